package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/api/middleware"
	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/core/service"
	"github.com/PeterMosmans/secure-coding-go/internal/view"
)

const (
	csrfFailed      = "No cheating (CSRF check failed)"
	somethingFailed = "Something went wrong"
)

// ActionHandler serves the authorization demo: a form page plus a protected
// and a deliberately unprotected action endpoint.
type ActionHandler struct {
	protected   actionGateway
	unprotected actionGateway
	csrf        *middleware.CSRFGuard
	log         zerolog.Logger
}

func NewActionHandler(protected, unprotected actionGateway, csrf *middleware.CSRFGuard, log zerolog.Logger) *ActionHandler {
	return &ActionHandler{protected: protected, unprotected: unprotected, csrf: csrf, log: log}
}

// Form renders both action forms with a fresh CSRF token.
func (h *ActionHandler) Form(c echo.Context) error {
	return h.render(c, http.StatusOK, "", false)
}

// Perform runs an action without CSRF protection or input validation. The
// cross-site forgery demo targets this endpoint.
func (h *ActionHandler) Perform(c echo.Context) error {
	req := actionRequest(c, nil)
	return h.respond(c, req.Action, h.unprotected.Handle(c.Request().Context(), req))
}

// PerformProtected runs an action through every gateway stage.
func (h *ActionHandler) PerformProtected(c echo.Context) error {
	req := actionRequest(c, h.csrf)
	return h.respond(c, req.Action, h.protected.Handle(c.Request().Context(), req))
}

func (h *ActionHandler) respond(c echo.Context, action string, out service.Outcome) error {
	switch out.Reason {
	case domain.ReasonNone:
		return h.render(c, http.StatusOK,
			fmt.Sprintf("User %s has performed %q", out.Principal.Username, action), true)
	case domain.ReasonInvalidInput:
		msg := "Action failed validation"
		var ve *domain.ValidationError
		if errors.As(out.Err, &ve) {
			msg = ve.Message
		}
		return h.render(c, http.StatusBadRequest, msg, false)
	case domain.ReasonNotAuthenticated:
		if middleware.TokenFromContext(c) == "" {
			return h.render(c, http.StatusUnauthorized,
				fmt.Sprintf("Did not receive a valid token to perform %q", action), false)
		}
		return h.render(c, http.StatusUnauthorized, "Invalid token", false)
	case domain.ReasonCSRFFailed:
		h.log.Warn().Str("ip", c.RealIP()).Msg("received a request without valid CSRF token")
		return h.render(c, http.StatusForbidden, csrfFailed, false)
	case domain.ReasonNotAuthorized:
		return h.render(c, http.StatusForbidden,
			fmt.Sprintf("User %s is not allowed to perform %q", out.Principal.Username, action), false)
	default:
		return h.render(c, http.StatusInternalServerError, somethingFailed, false)
	}
}

func (h *ActionHandler) render(c echo.Context, code int, result string, success bool) error {
	token, err := h.csrf.Issue(c)
	if err != nil {
		return err
	}
	return c.Render(code, view.PageAuthorization, view.PageData{
		Title:     "Authorization",
		CSRFToken: token,
		Result:    result,
		Success:   success,
	})
}
