package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	adapthttp "storefront/internal/adapter/http"
	"storefront/internal/adapter/remote"
	"storefront/internal/app"
	"storefront/internal/domain"
	"storefront/internal/sealer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	secret := cfg.Session.Secret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		log.Warn("SESSION_SECRET is not set; sessions will not survive a restart")
	}
	seal, err := sealer.New(secret)
	if err != nil {
		return err
	}

	client, err := remote.New(remote.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  log.With("component", "remote"),
	})
	if err != nil {
		return err
	}

	authSvc := app.NewAuthService(st, seal, client, log)
	catalogSvc := app.NewCatalogService(client)
	cartSvc := app.NewCartService(st, catalogSvc, log)
	checkoutSvc := app.NewCheckoutService(cartSvc, authSvc, log)

	h := adapthttp.New(cartSvc, authSvc, catalogSvc, checkoutSvc, log.With("component", "http"), cfg.Server.WebDir).
		WithSecureCookies(cfg.Server.SecureCookies).
		Handler()

	go sweepExpired(ctx, st, cfg.Session.SweepPeriod)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr, "store", cfg.Store.Kind, "api", cfg.API.BaseURL)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepExpired periodically drops expired session entries.
func sweepExpired(ctx context.Context, sessions domain.SessionRepository, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := sessions.DeleteExpired(ctx); err != nil && ctx.Err() == nil {
				log.Warn("sweep expired sessions", "error", err)
			}
		}
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
