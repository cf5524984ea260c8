package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultShutdownTimeout   = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

// ServerConfig describes one listening service.
type ServerConfig struct {
	Name string
	Addr string
	// CertFile and KeyFile switch the listener to HTTPS when both are set.
	CertFile        string
	KeyFile         string
	ShutdownTimeout time.Duration
}

// Run serves e until ctx is cancelled, then shuts it down gracefully. It
// returns the first error of either the listener or the shutdown.
func Run(ctx context.Context, e *echo.Echo, cfg ServerConfig, log zerolog.Logger) error {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	e.Server.ReadHeaderTimeout = defaultReadHeaderTimeout
	e.TLSServer.ReadHeaderTimeout = defaultReadHeaderTimeout

	log = log.With().Str("service", cfg.Name).Str("addr", cfg.Addr).Logger()
	tls := cfg.CertFile != "" && cfg.KeyFile != ""

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Bool("tls", tls).Msg("server starting")
		var err error
		if tls {
			err = e.StartTLS(cfg.Addr, cfg.CertFile, cfg.KeyFile)
		} else {
			err = e.Start(cfg.Addr)
		}
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		log.Info().Msg("server shutting down")
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	})

	return g.Wait()
}
