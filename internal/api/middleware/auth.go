package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// TokenCookieName is the cookie the front-end stores the bearer token in.
	TokenCookieName = "userToken"

	bearerTokenKey = "bearer_token"
)

// BearerToken extracts the bearer token from the userToken cookie or, when
// absent, from an "Authorization: Bearer" header, and stores it in the
// context. It never validates the token: verification is a gateway stage.
func BearerToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := extractBearer(c); token != "" {
				c.Set(bearerTokenKey, token)
			}
			return next(c)
		}
	}
}

// TokenFromContext returns the token stored by BearerToken, if any.
func TokenFromContext(c echo.Context) string {
	token, _ := c.Get(bearerTokenKey).(string)
	return token
}

func extractBearer(c echo.Context) string {
	if cookie, err := c.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
