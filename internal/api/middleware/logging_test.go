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

func TestLogCookies_NamesWithoutValues(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/authorization-protected", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "eyJhbGciOiJIUzI1NiJ9.secret"})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "csrf-secret-value"})
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	err := LogCookies(log)(func(echo.Context) error {
		called = true
		return nil
	})(c)
	if err != nil || !called {
		t.Fatalf("expected next to run, err=%v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "received userToken cookie") || !strings.Contains(out, "received CSRF cookie") {
		t.Fatalf("expected both cookie events: %s", out)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("cookie values must not be logged: %s", out)
	}
}

func TestRequestLogger_OmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/authorize", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/authorize?token=abc.def.ghi", nil))

	out := buf.String()
	if !strings.Contains(out, `"path":"/authorize"`) || !strings.Contains(out, `"status":204`) {
		t.Fatalf("unexpected request log: %s", out)
	}
	if strings.Contains(out, "abc.def.ghi") {
		t.Fatalf("query string leaked into logs: %s", out)
	}
}
