// authd issues bearer tokens for valid credentials. Login attempts are rate
// limited per client IP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PeterMosmans/secure-coding-go/internal/api"
	"github.com/PeterMosmans/secure-coding-go/internal/app"
	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
	"github.com/PeterMosmans/secure-coding-go/internal/core/service"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/config"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/credentials"
	mongodb "github.com/PeterMosmans/secure-coding-go/internal/infrastructure/db/mongo"
	redisdb "github.com/PeterMosmans/secure-coding-go/internal/infrastructure/db/redis"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/http/handlers"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/password"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/queue"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/ratelimit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := app.Init(ctx, "authd", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "authd: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, env)
	env.Close()
	app.Exit(env.Log, err)
}

func run(ctx context.Context, env *app.Env) error {
	cfg := env.Config

	store, err := credentialStore(ctx, env)
	if err != nil {
		return err
	}
	limiter, err := rateLimiter(ctx, env)
	if err != nil {
		return err
	}
	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL,
		service.WithIssuer(cfg.TokenIssuer),
		service.WithLogger(env.Log),
	)
	if err != nil {
		return err
	}

	pool := queue.NewVerifierPool(cfg.Credentials.VerifyWorkers, password.Verify, env.Log)
	env.OnClose(pool.Stop)

	auth := service.NewAuthService(store, tokens, env.Log, service.WithPasswordVerifier(pool.Verify))

	e, err := api.NewAuthRouter(env.RouterOptions(), auth, limiter)
	if err != nil {
		return err
	}
	env.Log.Info().
		Str("url", cfg.AuthURL()).
		Str("credentials", cfg.Credentials.Source).
		Str("rate_limit", cfg.RateLimit.Backend).
		Msg("authentication server starting")
	return env.Serve(ctx, e, cfg.Auth)
}

func credentialStore(ctx context.Context, env *app.Env) (ports.CredentialStore, error) {
	cfg := env.Config
	switch cfg.Credentials.Source {
	case config.CredentialSourceFile:
		return credentials.LoadFile(cfg.Credentials.File)
	case config.CredentialSourceMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  env.Name,
		})
		if err != nil {
			return nil, err
		}
		env.Readiness["mongo"] = handlers.MongoPinger(client)
		env.OnClose(func() { _ = client.Disconnect(context.Background()) })
		return mongodb.NewCredentialRepository(db, cfg.Mongo.Collection), nil
	default:
		env.Log.Warn().Msg("using the built-in demo accounts")
		return credentials.NewDemoStore(password.DefaultParams)
	}
}

func rateLimiter(ctx context.Context, env *app.Env) (ports.RateLimiter, error) {
	cfg := env.Config.RateLimit
	if cfg.Backend == config.RateLimitBackendRedis {
		rdb, err := env.Redis(ctx)
		if err != nil {
			return nil, err
		}
		return redisdb.NewLimiter(rdb, redisdb.LimiterConfig{Prefix: "login", Limit: cfg.Attempts, Window: cfg.Window}), nil
	}
	return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{Limit: cfg.Attempts, Window: cfg.Window}), nil
}
