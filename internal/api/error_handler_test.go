package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"echo error", echo.NewHTTPError(http.StatusUnauthorized, "Invalid username and/or password"), 401, "Invalid username and/or password"},
		{"throttled", domain.ErrRateLimitExceeded, 429, "Too many attempts. Please try again later."},
		{"authentication", fmt.Errorf("verify: %w", domain.ErrAuthentication), 401, "authentication failed"},
		{"csrf", domain.ErrCSRFTokenMissing, 403, "No cheating (CSRF check failed)"},
		{"denied", domain.ErrAuthorizationDenied, 403, "access forbidden"},
		{"engine down", errors.Join(domain.ErrPolicyEngineUnavailable, errors.New("dial tcp")), 503, "service unavailable"},
		{"validation", &domain.ValidationError{Field: "action", Message: "Action failed validation"}, 400, "Action failed validation"},
		{"unknown", errors.New("mongo: connection pool exhausted"), 500, "internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop())(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, resp.Error)
			}
		})
	}
}

func TestHTMLErrorHandler(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	var gotCode int
	var gotMsg string
	handler := NewHTMLErrorHandler(zerolog.Nop(), func(c echo.Context, code int, msg string) error {
		gotCode, gotMsg = code, msg
		return c.HTML(code, "<p>"+msg+"</p>")
	})
	handler(errors.New("boom"), c)

	if gotCode != http.StatusInternalServerError || gotMsg != "internal server error" {
		t.Fatalf("unexpected render args: %d %q", gotCode, gotMsg)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
