// webd serves the demo site and its action endpoints, one guarded by the
// full gateway and one deliberately left open to cross-site forgery.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PeterMosmans/secure-coding-go/internal/api"
	"github.com/PeterMosmans/secure-coding-go/internal/api/handler"
	"github.com/PeterMosmans/secure-coding-go/internal/api/middleware"
	"github.com/PeterMosmans/secure-coding-go/internal/app"
	"github.com/PeterMosmans/secure-coding-go/internal/core/service"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/config"
	"github.com/PeterMosmans/secure-coding-go/internal/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := app.Init(ctx, "webd", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "webd: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, env)
	env.Close()
	app.Exit(env.Log, err)
}

func run(ctx context.Context, env *app.Env) error {
	cfg := env.Config

	profile, err := csrfProfile(cfg.CSRF)
	if err != nil {
		return err
	}
	verifier, err := env.TokenVerifier(ctx)
	if err != nil {
		return err
	}
	pdp, err := env.Policy()
	if err != nil {
		return err
	}

	e, err := api.NewSiteRouter(env.RouterOptions(), api.SiteDeps{
		Protected:   env.Gateway("authorization-protected", service.GatewayOptions{CSRF: true, ValidateInput: true}, verifier, pdp),
		Unprotected: env.Gateway("authorization", service.GatewayOptions{}, verifier, pdp),
		CSRF:        middleware.NewCSRFGuard(profile),
		Config:      handler.SiteConfig{APIURL: cfg.APIURL(), AuthURL: cfg.AuthURL()},
		Links:       view.Links{AuthURL: cfg.AuthURL(), APIURL: cfg.APIURL(), AttackerURL: cfg.AttackerURL()},
		TLS:         cfg.TLSEnabled(),
	})
	if err != nil {
		return err
	}
	env.Log.Info().Str("url", cfg.WebURL()).Str("csrf_profile", cfg.CSRF.Profile).Msg("web server starting")
	return env.Serve(ctx, e, cfg.Web)
}

// csrfProfile starts from the named profile and applies individual overrides.
func csrfProfile(c config.CSRFConfig) (middleware.CookieProfile, error) {
	profile := middleware.PermissiveCookies
	if c.Profile == config.CSRFProfileHardened {
		profile = middleware.HardenedCookies
	}
	if c.SameSite != "" {
		sameSite, err := config.ParseSameSite(c.SameSite)
		if err != nil {
			return profile, err
		}
		profile.SameSite = sameSite
	}
	if c.Secure != nil {
		profile.Secure = *c.Secure
	}
	if c.HTTPOnly != nil {
		profile.HTTPOnly = *c.HTTPOnly
	}
	return profile, nil
}
