package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/unrolled/secure"
)

// vanityHeaders reveal the server stack and are stripped from every response.
var vanityHeaders = []string{"Server", "X-Powered-By"}

// SecurityOptions are the response headers applied to every browser-facing
// page. Content-Security-Policy is left to the individual pages.
func SecurityOptions(tlsEnabled bool) secure.Options {
	opts := secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	if tlsEnabled {
		opts.STSSeconds = 31536000
	}
	return opts
}

// SecureHeaders applies opts through unrolled/secure.
func SecureHeaders(opts secure.Options) echo.MiddlewareFunc {
	return echo.WrapMiddleware(secure.New(opts).Handler)
}

// RemoveVanityHeaders strips headers that advertise the server software.
func RemoveVanityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Before(func() {
				for _, h := range vanityHeaders {
					c.Response().Header().Del(h)
				}
			})
			return next(c)
		}
	}
}
