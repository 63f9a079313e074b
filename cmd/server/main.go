// ContactDesk - contact form application
// Entry point for the web server
package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/findosh/contactdesk/internal/config"
	"github.com/findosh/contactdesk/internal/handlers"
	"github.com/findosh/contactdesk/internal/logging"
	"github.com/findosh/contactdesk/internal/middleware"
	"github.com/findosh/contactdesk/internal/services/auth"
	"github.com/findosh/contactdesk/internal/services/ledger"
	"github.com/findosh/contactdesk/internal/services/remote"
	"github.com/findosh/contactdesk/internal/services/session"
	"github.com/findosh/contactdesk/internal/services/workflow"
	"github.com/findosh/contactdesk/internal/storage"
	"github.com/findosh/contactdesk/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	// Initialize persistence
	provider, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	// Initialize stores
	sessionStore := session.NewStore(provider.Blob(storage.SessionKey), log)
	submissions := ledger.New(provider.Blob(storage.LedgerKey), log)
	submissions.Restore(ctx)
	// Guarded pages show a placeholder until the session is restored
	go sessionStore.Restore(ctx)

	// Initialize services
	roster, err := auth.DefaultRoster()
	if err != nil {
		return err
	}
	client := remote.NewClient(cfg.APIBaseURL, cfg.RemoteTimeout)
	login := workflow.NewLogin(client, sessionStore, log, cfg.RemoteTimeout)
	contact := workflow.NewContact(client, submissions, log, cfg.RemoteTimeout)
	forms := auth.NewFormTokens(cfg.SecretKey, cfg.FormTokenTTL)

	// Initialize handlers
	h, err := handlers.New(cfg, web.FS, sessionStore, submissions, login, contact, forms, roster, log)
	if err != nil {
		return err
	}

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return err
	}
	guard := middleware.NewGuard(sessionStore, "/login", http.HandlerFunc(h.Pending))
	mux := h.Routes(guard, static)

	// Apply global middleware
	handler := middleware.Chain(
		mux,
		middleware.Recover(log),
		middleware.SecurityHeaders,
		middleware.Logger(log),
		middleware.CSRF([]byte(cfg.SecretKey), cfg.SecureCookies, "/apis/"),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting", "addr", srv.Addr, "environment", cfg.Environment, "storage", cfg.StorageDriver)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stop:
		log.Info(ctx, "shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
