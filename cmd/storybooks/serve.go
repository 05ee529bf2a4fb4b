package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/build"
	"github.com/joestump/storybooks/internal/config"
	"github.com/joestump/storybooks/internal/db"
	"github.com/joestump/storybooks/internal/handler"
	"github.com/joestump/storybooks/internal/logging"
	"github.com/joestump/storybooks/internal/store"
	"github.com/joestump/storybooks/internal/tracing"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Init(cfg.Log.Level, cfg.Log.Format)
			slog.Info("starting storybooks", "version", build.Version, "commit", build.Commit)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := tracing.Init(ctx)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownTracing(sctx); err != nil {
					slog.Warn("tracing shutdown", "error", err)
				}
			}()

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			sessionStore, closeStore, err := newSessionStore(ctx, cfg, database)
			if err != nil {
				return err
			}
			defer closeStore()
			sessionManager := auth.NewSessionManager(sessionStore, cfg.Session.Lifetime, !cfg.InsecureCookies)

			oidcProvider, err := auth.NewProvider(ctx, cfg)
			if err != nil {
				return err
			}

			userStore := store.NewUserStore(database)
			storyStore := store.NewStoryStore(database)
			tokenStore := auth.NewSQLTokenStore(database)

			router := handler.NewRouter(handler.Deps{
				SessionManager: sessionManager,
				AuthHandlers:   auth.NewHandlers(oidcProvider, sessionManager, userStore, !cfg.InsecureCookies),
				AuthMiddleware: auth.NewMiddleware(sessionManager, userStore),
				StoryStore:     storyStore,
				UserStore:      userStore,
				TokenStore:     tokenStore,
				DB:             database,
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           otelhttp.NewHandler(router, "storybooks"),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("listening", "addr", cfg.HTTP.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}

// newSessionStore picks the scs backend from config. The returned func
// releases anything the store holds open.
func newSessionStore(ctx context.Context, cfg *config.Config, database *sqlx.DB) (scs.Store, func(), error) {
	if cfg.Session.Store != "redis" {
		return auth.NewDBStore(database, cfg.DB.Driver), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	slog.Info("session store", "backend", "redis", "addr", cfg.Redis.Addr)
	return auth.NewRedisStore(client), func() { _ = client.Close() }, nil
}
