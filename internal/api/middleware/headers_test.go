package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestSecureHeadersAndVanityRemoval(t *testing.T) {
	e := echo.New()
	e.Use(RemoveVanityHeaders(), SecureHeaders(SecurityOptions(false)))
	e.GET("/", func(c echo.Context) error {
		c.Response().Header().Set("X-Powered-By", "Express")
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Powered-By"); got != "" {
		t.Fatalf("expected vanity header removed, got %q", got)
	}
}

func TestLogCookies_NeverLogsValues(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/authorization", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "eyJhbGciOiJIUzI1NiJ9.secret.sig"})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "csrf-secret-value"})
	c := e.NewContext(req, httptest.NewRecorder())

	if err := LogCookies(log)(func(c echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "received userToken cookie") || !strings.Contains(out, "received CSRF cookie") {
		t.Fatalf("expected cookie presence to be logged: %s", out)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("cookie value leaked into logs: %s", out)
	}
}
