// attackerd serves a hostile page that silently submits a forged form to
// the demo site.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PeterMosmans/secure-coding-go/internal/api"
	"github.com/PeterMosmans/secure-coding-go/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := app.Init(ctx, "attackerd", false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attackerd: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, env)
	env.Close()
	app.Exit(env.Log, err)
}

func run(ctx context.Context, env *app.Env) error {
	e, err := api.NewAttackerRouter(env.RouterOptions(), env.Config.WebURL())
	if err != nil {
		return err
	}
	env.Log.Info().Str("url", env.Config.AttackerURL()).Str("target", env.Config.WebURL()).Msg("attacker site starting")
	return env.Serve(ctx, e, env.Config.Attacker)
}
