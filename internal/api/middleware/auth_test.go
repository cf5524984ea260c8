package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runBearer(t *testing.T, req *http.Request) string {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got string
	handler := BearerToken()(func(c echo.Context) error {
		got = TokenFromContext(c)
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return got
}

func TestBearerToken_FromCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	if got := runBearer(t, req); got != "cookie-token" {
		t.Fatalf("expected cookie token to win, got %q", got)
	}
}

func TestBearerToken_FromHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "bearer header-token")

	if got := runBearer(t, req); got != "header-token" {
		t.Fatalf("expected header token, got %q", got)
	}
}

func TestBearerToken_InvalidHeaderFormat(t *testing.T) {
	for _, h := range []string{"Token abc", "Bearer", "abc"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", h)
		if got := runBearer(t, req); got != "" {
			t.Fatalf("header %q: expected no token, got %q", h, got)
		}
	}
}

func TestBearerToken_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if got := runBearer(t, req); got != "" {
		t.Fatalf("expected no token, got %q", got)
	}
}
