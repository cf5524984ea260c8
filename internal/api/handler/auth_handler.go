package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/PeterMosmans/secure-coding-go/internal/api/metrics"
	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
)

const invalidCredentials = "Invalid username and/or password"

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password, c.RealIP())
	if err != nil {
		metrics.ObserveLogin(false)
		if errors.Is(err, domain.ErrAuthentication) {
			return echo.NewHTTPError(http.StatusUnauthorized, invalidCredentials)
		}
		return err
	}

	metrics.ObserveLogin(true)
	return c.JSON(http.StatusOK, loginResponse{Token: res.Token})
}

// Banner answers plain GET requests on a service root.
func Banner(text string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, text)
	}
}
