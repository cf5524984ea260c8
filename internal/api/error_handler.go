package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// PageRenderer renders an error for browser-facing services.
type PageRenderer func(c echo.Context, code int, msg string) error

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

// NewHTMLErrorHandler resolves errors like NewHTTPErrorHandler but renders
// them through render.
func NewHTMLErrorHandler(log zerolog.Logger, render PageRenderer) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if rerr := render(c, code, msg); rerr != nil {
			log.Error().Err(rerr).Msg("render error page")
			_ = c.String(code, msg)
		}
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "Too many attempts. Please try again later."
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized, "authentication failed"
	case errors.Is(err, domain.ErrCSRFValidation):
		return http.StatusForbidden, "No cheating (CSRF check failed)"
	case errors.Is(err, domain.ErrAuthorizationDenied):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrPolicyEngineUnavailable):
		log.Error().Err(err).Str("path", c.Path()).Msg("policy engine unavailable")
		return http.StatusServiceUnavailable, "service unavailable"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
