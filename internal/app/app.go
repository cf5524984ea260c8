// Package app holds the start-up wiring shared by the service binaries.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/api"
	"github.com/PeterMosmans/secure-coding-go/internal/api/metrics"
	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/core/service"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/config"
	redisdb "github.com/PeterMosmans/secure-coding-go/internal/infrastructure/db/redis"
	httpserver "github.com/PeterMosmans/secure-coding-go/internal/infrastructure/http"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/http/handlers"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/policy"
	"github.com/PeterMosmans/secure-coding-go/pkg/logger"
)

const cerbosHealthPath = "/_cerbos/health"

// Env is what every service starts from.
type Env struct {
	Name   string
	Config *config.Config
	Log    zerolog.Logger
	// Readiness collects the dependency checks the service registers.
	Readiness map[string]handlers.Pinger

	proxies []*net.IPNet
	redis   *goredis.Client
	closers []func()
}

// Init loads and validates the configuration and initialises the logger.
// needSecret is false for services that never touch bearer tokens.
func Init(ctx context.Context, name string, needSecret bool) (*Env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	}).With().Str("service", name).Logger()

	if err := cfg.Validate(needSecret); err != nil {
		return nil, err
	}
	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return nil, err
	}
	if len(proxies) > 0 {
		log.Info().Strs("trusted_proxies", cfg.TrustedProxies).Msg("client IP taken from X-Forwarded-For of trusted proxies")
	}
	return &Env{Name: name, Config: cfg, Log: log, Readiness: map[string]handlers.Pinger{}, proxies: proxies}, nil
}

// RouterOptions returns the router settings every service shares.
func (env *Env) RouterOptions() api.Options {
	return api.Options{
		Log:         env.Log,
		Subsystem:   env.Name,
		Registerer:  prometheus.DefaultRegisterer,
		Gatherer:    prometheus.DefaultGatherer,
		AllowOrigin: env.Config.WebURL(),
		Readiness:   env.Readiness,

		TrustedProxies: env.proxies,
	}
}

// Serve runs e on ep until ctx ends, over HTTPS when TLS is configured.
func (env *Env) Serve(ctx context.Context, e *echo.Echo, ep config.Endpoint) error {
	return httpserver.Run(ctx, e, httpserver.ServerConfig{
		Name:     env.Name,
		Addr:     ep.ListenAddr(),
		CertFile: env.Config.TLS.CertFile,
		KeyFile:  env.Config.TLS.KeyFile,
	}, env.Log)
}

// OnClose registers fn to run when the service stops.
func (env *Env) OnClose(fn func()) {
	env.closers = append(env.closers, fn)
}

// Close runs the registered closers in reverse order.
func (env *Env) Close() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		env.closers[i]()
	}
}

// TokenVerifier builds the verifying side of the token service. With
// TOKEN_DENYLIST set it connects to Redis and consults the denylist.
func (env *Env) TokenVerifier(ctx context.Context) (*service.TokenService, error) {
	cfg := env.Config
	opts := []service.TokenOption{
		service.WithIssuer(cfg.TokenIssuer),
		service.WithLogger(env.Log),
	}
	if cfg.TokenDenylist {
		rdb, err := env.Redis(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithDenylist(redisdb.NewDenylist(rdb)))
	}
	return service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, opts...)
}

// Policy builds the policy engine client and registers its health check.
func (env *Env) Policy() (*policy.CerbosClient, error) {
	cfg := env.Config.PolicyEngine
	client, err := policy.NewCerbosClient(policy.Config{
		BaseURL:  cfg.URL,
		Timeout:  cfg.Timeout,
		Resource: domain.Resource{Kind: cfg.ResourceKind, ID: cfg.ResourceID},
	}, env.Log, policy.WithObserver(metrics.ObservePolicyRequest))
	if err != nil {
		return nil, err
	}
	healthClient := &http.Client{Timeout: cfg.Timeout}
	env.Readiness["policy_engine"] = handlers.HTTPPinger(healthClient, cfg.URL+cerbosHealthPath)
	return client, nil
}

// Gateway builds an action gateway that reports its outcomes as metrics.
func (env *Env) Gateway(endpoint string, opts service.GatewayOptions, verifier *service.TokenService, pdp *policy.CerbosClient) *service.Gateway {
	return service.NewGateway(endpoint, opts, verifier, pdp, pdp.Resource(), env.Log).
		Observe(api.GatewayMetrics)
}

// Redis connects once and registers the client for readiness and shutdown.
func (env *Env) Redis(ctx context.Context) (*goredis.Client, error) {
	if env.redis != nil {
		return env.redis, nil
	}
	cfg := env.Config.Redis
	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		return nil, err
	}
	env.redis = rdb
	env.Readiness["redis"] = handlers.RedisPinger(rdb)
	env.OnClose(func() { _ = rdb.Close() })
	return rdb, nil
}

// Exit logs err unless it is the result of a normal shutdown.
func Exit(log zerolog.Logger, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		log.Info().Msg("stopped")
		return
	}
	log.Fatal().Err(err).Msg("service failed")
}
