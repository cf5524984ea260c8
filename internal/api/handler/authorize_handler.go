package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/core/service"
)

const (
	authorizationFailed = "Authorization failed"
	serviceUnavailable  = "Authorization service unavailable"
)

// actionGateway runs a gated action to completion.
type actionGateway interface {
	Handle(ctx context.Context, req service.ActionRequest) service.Outcome
}

type AuthorizeHandler struct {
	gateway actionGateway
}

func NewAuthorizeHandler(gateway actionGateway) *AuthorizeHandler {
	return &AuthorizeHandler{gateway: gateway}
}

type authorizeRequest struct {
	Token  string `json:"token" validate:"required"`
	Action string `json:"action" validate:"required"`
}

type authorizeResponse struct {
	IsAllowed bool `json:"isAllowed"`
}

// Authorize verifies the caller's token and asks the policy engine whether
// the action is permitted on the demo resource.
//
// @Summary      Check a permission
// @Tags         authorization
// @Accept       json
// @Produce      json
// @Param        body  body      authorizeRequest  true  "Bearer token and action"
// @Success      200   {object}  authorizeResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /authorize [post]
func (h *AuthorizeHandler) Authorize(c echo.Context) error {
	var req authorizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, authorizationFailed)
	}

	out := h.gateway.Handle(c.Request().Context(), service.ActionRequest{
		Action:      req.Action,
		BearerToken: req.Token,
		ClientIP:    c.RealIP(),
	})

	switch out.Reason {
	case domain.ReasonNone:
		return c.JSON(http.StatusOK, authorizeResponse{IsAllowed: true})
	case domain.ReasonNotAuthorized:
		return c.JSON(http.StatusOK, authorizeResponse{IsAllowed: false})
	case domain.ReasonPolicyEngineError:
		return echo.NewHTTPError(http.StatusServiceUnavailable, serviceUnavailable)
	case domain.ReasonNotAuthenticated, domain.ReasonCSRFFailed, domain.ReasonInvalidInput:
		return echo.NewHTTPError(http.StatusUnauthorized, authorizationFailed)
	}
	return errors.Join(domain.ErrUnexpected, out.Err)
}
