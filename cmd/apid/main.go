// apid answers whether the bearer of a token may perform an action on the
// demo resource, as decided by the external policy engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PeterMosmans/secure-coding-go/internal/api"
	"github.com/PeterMosmans/secure-coding-go/internal/app"
	"github.com/PeterMosmans/secure-coding-go/internal/core/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := app.Init(ctx, "apid", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apid: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, env)
	env.Close()
	app.Exit(env.Log, err)
}

func run(ctx context.Context, env *app.Env) error {
	verifier, err := env.TokenVerifier(ctx)
	if err != nil {
		return err
	}
	pdp, err := env.Policy()
	if err != nil {
		return err
	}

	// Tokens travel in the JSON body, so there is no ambient credential to
	// forge and no CSRF stage.
	gateway := env.Gateway("authorize", service.GatewayOptions{}, verifier, pdp)

	e, err := api.NewAuthzRouter(env.RouterOptions(), gateway)
	if err != nil {
		return err
	}
	env.Log.Info().Str("url", env.Config.APIURL()).Str("policy_engine", env.Config.PolicyEngine.URL).Msg("authorization server starting")
	return env.Serve(ctx, e, env.Config.API)
}
