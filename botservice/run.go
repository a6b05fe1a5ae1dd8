// Package botservice assembles the webhook server: configuration,
// storage, the update dispatcher and the HTTP surface.
package botservice

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mnemocard/mnemocard/internal/api"
	"github.com/mnemocard/mnemocard/internal/config"
	"github.com/mnemocard/mnemocard/internal/dispatch"
	"github.com/mnemocard/mnemocard/internal/i18n"
	"github.com/mnemocard/mnemocard/internal/logger"
	"github.com/mnemocard/mnemocard/internal/store"
	"github.com/mnemocard/mnemocard/internal/store/postgres"
	"github.com/mnemocard/mnemocard/internal/store/sqlite"
	"github.com/mnemocard/mnemocard/internal/telegram"
)

// Run starts the bot webhook HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("mnemocard")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("webhook_path", cfg.WebhookPath).
		Msg("Bot service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	catalog, err := i18n.Load()
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to load locale catalog")
		return err
	}

	client := telegram.NewClient(cfg.BotToken, cfg.TelegramBaseURL)
	dispatcher := dispatch.New(st, client, catalog, log, cfg.PerPage)

	router := buildRouter(cfg, st, dispatcher, log)

	if cfg.WebhookURL != "" {
		if err := client.SetWebhook(ctx, cfg.WebhookURL+cfg.WebhookPath); err != nil {
			log.Error().Stack().Err(err).Msg("Failed to register webhook")
			return err
		}
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// openStore opens the configured database, applies migrations and
// returns the store adapter on top of it.
func openStore(cfg *config.Config, log zerolog.Logger) (store.Store, *sql.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error().Stack().Err(err).Msg("Postgres unavailable")
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			log.Error().Stack().Err(err).Msg("Postgres migration failed")
			return nil, nil, err
		}
		return postgres.NewWithDB(db), db, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Error().Stack().Err(err).Msg("SQLite unavailable")
			return nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			_ = db.Close()
			log.Error().Stack().Err(err).Msg("SQLite migration failed")
			return nil, nil, err
		}
		return sqlite.NewWithDB(db), db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(cfg *config.Config, st store.Store, dispatcher *dispatch.Dispatcher, log zerolog.Logger) http.Handler {
	webhook := api.NewWebhookHandler(dispatcher, log)
	health := api.NewHealthHandler(st)
	return api.NewRouter(cfg.WebhookPath, webhook, health, log)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
