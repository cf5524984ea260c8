package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/api/metrics"
	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
)

// LoginRateLimit admits at most the limiter's quota of requests per client IP
// and rejects the rest with domain.ErrRateLimitExceeded before the handler
// (and thus password hashing) runs. A limiter failure also rejects.
func LoginRateLimit(limiter ports.RateLimiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			decision, err := limiter.Admit(c.Request().Context(), ip)
			if err != nil {
				log.Error().Err(err).Str("ip", ip).Msg("rate limiter unavailable, rejecting login")
				metrics.LoginThrottledTotal.Inc()
				return domain.ErrRateLimitExceeded
			}
			if !decision.Allowed {
				log.Info().Str("ip", ip).Msg("login throttled")
				metrics.LoginThrottledTotal.Inc()
				if decision.RetryAfter > 0 {
					secs := int(math.Ceil(decision.RetryAfter.Seconds()))
					c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(secs))
				}
				return domain.ErrRateLimitExceeded
			}
			return next(c)
		}
	}
}
