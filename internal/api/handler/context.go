package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/PeterMosmans/secure-coding-go/internal/api/middleware"
	"github.com/PeterMosmans/secure-coding-go/internal/core/service"
)

// actionRequest assembles the gateway input from the request: the action
// form field, the bearer token found by middleware.BearerToken and a lazy
// CSRF check bound to this request.
func actionRequest(c echo.Context, csrf *middleware.CSRFGuard) service.ActionRequest {
	req := service.ActionRequest{
		Action:      c.FormValue("action"),
		BearerToken: middleware.TokenFromContext(c),
		ClientIP:    c.RealIP(),
	}
	if csrf != nil {
		req.CSRF = func() error { return csrf.Check(c) }
	}
	return req
}
