package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"Inkwell/internal/api/middleware"
	"Inkwell/internal/api/routes"
	"Inkwell/internal/auth"
	"Inkwell/internal/config"
	"Inkwell/internal/core/assets"
	"Inkwell/internal/core/postcommit"
	"Inkwell/internal/core/posts"
	"Inkwell/internal/core/users"
	"Inkwell/internal/db/memory"
	"Inkwell/internal/db/migrations"
	postgresRepo "Inkwell/internal/db/postgres"
	"Inkwell/internal/events"
)

const (
	// Distinct client IPs tracked by the rate limiter
	rateLimitClients = 10000
	// Upper bound for a single post-commit task such as removing an asset
	hookTimeout     = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	// Initialize repositories
	var (
		userRepo users.UserRepository
		postRepo posts.Repository
		db       *sql.DB
	)
	if cfg.UseMemory() {
		memUsers := memory.NewUserRepository()
		userRepo = memUsers
		postRepo = memory.NewPostRepository(memUsers)
		slog.Warn("using in-memory storage, data is lost on restart")
	} else {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("failed to close database", "error", closeErr)
			}
		}()

		if err := db.Ping(); err != nil {
			return err
		}
		slog.Info("connected to database")

		if err := migrations.Up(db); err != nil {
			return err
		}
		slog.Info("migrations completed successfully")

		userRepo = postgresRepo.NewUserRepository(db)
		postRepo = postgresRepo.NewPostRepository(db)
	}

	tokens, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	store, err := assets.NewDiskStore(cfg.UploadDir, assets.Rendition{
		MaxWidth: cfg.ImageMaxWidth,
		Quality:  cfg.ImageQuality,
	})
	if err != nil {
		return err
	}

	// Optional event stream
	var (
		nc        *nats.Conn
		publisher posts.EventPublisher
	)
	if cfg.NatsURL != "" {
		nc, err = events.Connect(cfg.NatsURL)
		if err != nil {
			return err
		}
		publisher = events.NewNatsPublisher(nc)
		slog.Info("publishing post events", "nats_url", cfg.NatsURL)
	}

	runner := postcommit.NewRunner(hookTimeout)

	handler := routes.NewRouter(routes.Deps{
		Posts:          posts.NewPostService(postRepo, store, runner, publisher),
		Users:          users.NewUserService(userRepo, tokens, 0),
		Assets:         store,
		Tokens:         tokens,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, rateLimitClients),
		UploadDir:      store.Dir(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		UploadMaxBytes: cfg.UploadMaxBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Inkwell starting", "addr", srv.Addr, "memory", cfg.UseMemory())
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if err := runner.Close(shutdownCtx); err != nil {
		slog.Warn("post-commit tasks still running at shutdown", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			slog.Warn("nats drain", "error", err)
		}
	}
	return nil
}
