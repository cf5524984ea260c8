package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/PeterMosmans/secure-coding-go/docs"
	"github.com/PeterMosmans/secure-coding-go/internal/api/handler"
	"github.com/PeterMosmans/secure-coding-go/internal/api/metrics"
	"github.com/PeterMosmans/secure-coding-go/internal/api/middleware"
	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
	"github.com/PeterMosmans/secure-coding-go/internal/core/service"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/http/handlers"
	"github.com/PeterMosmans/secure-coding-go/internal/view"
)

const maxBodySize = "64K"

// Options is shared by every service router.
type Options struct {
	Log zerolog.Logger
	// Subsystem labels the request metrics of this service.
	Subsystem string
	// Registerer enables request metrics and GET /metrics. Nil disables both.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// AllowOrigin is the single browser origin allowed to call the JSON APIs.
	AllowOrigin string
	// Readiness lists the dependencies checked by GET /health/ready.
	Readiness map[string]handlers.Pinger
	// TrustedProxies are the only peers whose X-Forwarded-For is honoured
	// when resolving the client IP. Empty means the TCP peer address.
	TrustedProxies []*net.IPNet
}

// SiteDeps wires the browser-facing site.
type SiteDeps struct {
	Protected   *service.Gateway
	Unprotected *service.Gateway
	CSRF        *middleware.CSRFGuard
	Config      handler.SiteConfig
	Links       view.Links
	TLS         bool
}

// GatewayMetrics records every gateway outcome in the Prometheus counters.
func GatewayMetrics(endpoint string, o service.Outcome, _ time.Duration) {
	metrics.ObserveGatewayOutcome(endpoint, string(o.Reason))
}

// NewAuthRouter builds the token issuing service.
func NewAuthRouter(opts Options, auth ports.AuthService, limiter ports.RateLimiter) (*echo.Echo, error) {
	e, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	e.Use(allowOrigin(opts.AllowOrigin))

	authHandler := handler.NewAuthHandler(auth)

	e.GET("/", handler.Banner("Authentication server up and running"))
	e.POST("/login", authHandler.Login, middleware.LoginRateLimit(limiter, opts.Log))

	return e, nil
}

// NewAuthzRouter builds the permission checking service.
func NewAuthzRouter(opts Options, gateway *service.Gateway) (*echo.Echo, error) {
	e, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	e.Use(allowOrigin(opts.AllowOrigin))

	authorizeHandler := handler.NewAuthorizeHandler(gateway)

	e.GET("/", handler.Banner("Authorization server up and running"))
	e.POST("/authorize", authorizeHandler.Authorize)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}

// NewSiteRouter builds the browser-facing demo site.
func NewSiteRouter(opts Options, deps SiteDeps) (*echo.Echo, error) {
	e, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	if err := useTemplates(e, opts.Log); err != nil {
		return nil, err
	}

	e.Use(middleware.SecureHeaders(middleware.SecurityOptions(deps.TLS)))
	e.Use(middleware.LogCookies(opts.Log))
	e.Use(middleware.BearerToken())

	site := handler.NewSiteHandler(deps.Config, deps.Links, deps.CSRF)
	actions := handler.NewActionHandler(deps.Protected, deps.Unprotected, deps.CSRF, opts.Log)

	e.GET("/config.json", site.Config)
	e.GET("/", site.Index)
	e.GET("/csp", site.CSP)
	e.GET("/frame", site.Frame)
	e.GET("/test", site.Test)
	e.GET("/authentication", site.Authentication)

	e.GET("/authorization", actions.Form)
	e.GET("/authorization-protected", actions.Form)
	e.POST("/authorization", actions.Perform)
	e.POST("/authorization-protected", actions.PerformProtected)

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.StaticFS("/", view.Static())

	return e, nil
}

// NewAttackerRouter builds the hostile site that forges requests against
// webURL.
func NewAttackerRouter(opts Options, webURL string) (*echo.Echo, error) {
	e, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	if err := useTemplates(e, opts.Log); err != nil {
		return nil, err
	}

	attacker := handler.NewAttackerHandler(webURL)

	e.GET("/", attacker.Unprotected)
	e.GET("/protected", attacker.Protected)
	e.StaticFS("/", view.Static())

	return e, nil
}

func newBase(opts Options) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Log)
	e.Validator = handler.NewValidator()
	e.IPExtractor = clientIPExtractor(opts.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(opts.Log))
	e.Use(middleware.RemoveVanityHeaders())
	e.Use(echomiddleware.BodyLimit(maxBodySize))

	if opts.Registerer != nil {
		mw, err := echoprometheus.MiddlewareConfig{
			Subsystem:  opts.Subsystem,
			Registerer: opts.Registerer,
		}.ToMiddleware()
		if err != nil {
			return nil, fmt.Errorf("request metrics: %w", err)
		}
		e.Use(mw)
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: opts.Gatherer}))
	}

	// --- Health checks ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(opts.Readiness).Readiness)

	return e, nil
}

// clientIPExtractor resolves c.RealIP(), which keys the login rate limit.
// Forwarding headers are ignored unless the peer is a configured proxy;
// echo's default loopback and private-range trust is switched off.
func clientIPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func useTemplates(e *echo.Echo, log zerolog.Logger) error {
	engine, err := view.NewEngine()
	if err != nil {
		return err
	}
	e.Renderer = engine
	e.HTTPErrorHandler = NewHTMLErrorHandler(log, func(c echo.Context, code int, msg string) error {
		return c.Render(code, view.PageError, view.PageData{Title: http.StatusText(code), Result: msg})
	})
	return nil
}

// allowOrigin restricts cross-origin calls to a single origin. An empty
// origin disables CORS headers altogether.
func allowOrigin(origin string) echo.MiddlewareFunc {
	if origin == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{origin},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	})
}
