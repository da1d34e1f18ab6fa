package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/echotrails/medialocker/internal/api"
	"github.com/echotrails/medialocker/pkg/medialocker"
	"github.com/echotrails/medialocker/pkg/medialocker/config"
	"github.com/echotrails/medialocker/pkg/medialocker/links"
	memoryrepo "github.com/echotrails/medialocker/pkg/medialocker/repo/memory"
	"github.com/echotrails/medialocker/pkg/medialocker/repo/postgres"
	memorystorage "github.com/echotrails/medialocker/pkg/medialocker/storage/memory"
	s3storage "github.com/echotrails/medialocker/pkg/medialocker/storage/s3"
)

func main() {
	// .env is optional; the environment wins on conflict.
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Environment == "development" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	repo, cleanup, err := buildRepository(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	signer, err := buildStorage(cfg)
	if err != nil {
		return err
	}

	issuer, err := links.NewIssuer(signer, links.Config{
		CoverStyle:     cfg.CoverStyle,
		PreviewStyle:   cfg.PreviewStyle,
		AlbumStyle:     cfg.AlbumStyle,
		CDNDomain:      cfg.CDNDomain,
		CDNSecret:      cfg.CDNSecret,
		ReadValidity:   cfg.LinkReadValidity,
		CacheTTL:       cfg.LinkCacheTTL,
		UploadValidity: cfg.LinkUploadValidity,
	})
	if err != nil {
		return fmt.Errorf("build link issuer: %w", err)
	}

	svc, err := medialocker.New(
		medialocker.WithRepository(repo),
		medialocker.WithLinkIssuer(issuer),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	tokenAuth := api.NewTokenAuth(cfg.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/files", func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator)
		r.Use(api.IdentityMiddleware)
		r.Mount("/", api.NewAssetHandler(svc).Routes())
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// buildRepository selects the persistence backend. An empty DATABASE_URL
// means in-memory, suitable for local development only.
func buildRepository(cfg *config.ServerConfig) (medialocker.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("no DATABASE_URL set, using in-memory repository")
		return memoryrepo.New(), func() {}, nil
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	slog.Info("connected to postgres")
	return postgres.NewWithPool(pool), pool.Close, nil
}

// buildStorage selects the object-store signer. An empty S3_BUCKET means the
// in-memory backend, suitable for local development only.
func buildStorage(cfg *config.ServerConfig) (links.ProviderSigner, error) {
	if cfg.S3Bucket == "" {
		slog.Warn("no S3_BUCKET set, using in-memory object store")
		return memorystorage.New(), nil
	}

	backend, err := s3storage.New(s3storage.Config{
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Endpoint:        cfg.S3Endpoint,
		UsePathStyle:    cfg.S3UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("build s3 backend: %w", err)
	}
	return backend, nil
}
