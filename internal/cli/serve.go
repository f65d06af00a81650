package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/accounts"
	"github.com/taskdeck/taskdeck/internal/httpapi"
	"github.com/taskdeck/taskdeck/internal/identity"
	"github.com/taskdeck/taskdeck/internal/logger"
	"github.com/taskdeck/taskdeck/internal/projects"
	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the taskdeck HTTP API server.

The server connects to Postgres and the identity verifier configured in
taskdeck.yaml (or the matching environment variables) and serves until
interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if config.Database.URL == "" {
		return fmt.Errorf("no database URL configured (set database.url or DATABASE_URL)")
	}
	if config.Identity.BaseURL == "" {
		return fmt.Errorf("no identity verifier configured (set identity.base_url or IDENTITY_BASE_URL)")
	}
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("no session secret configured (set auth.jwt_secret or AUTH_JWT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := store.DefaultOptions(config.Database.URL)
	opts.MaxConnections = config.Database.MaxConnections
	db, err := store.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer db.Close()

	verifier := identity.NewClient(config.Identity.BaseURL, config.Identity.ServiceKey)
	sessions := httpapi.NewSessionManager(config.Auth.JWTSecret, time.Duration(config.Auth.TokenTTL))

	server := httpapi.NewServer(
		accounts.NewService(db, verifier),
		projects.NewService(db),
		tasks.NewService(db),
		sessions,
	)

	httpServer := &http.Server{
		Addr:              config.Server.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.CLI().Info("server listening", "addr", config.Server.Addr)
		fmt.Printf("taskdeck listening on %s\n", config.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		logger.CLI().Info("server stopped")
	}
	return nil
}
