package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/petite-maison/internal/audit"
	"github.com/vasiliy-maslov/petite-maison/internal/auth"
	"github.com/vasiliy-maslov/petite-maison/internal/cart"
	"github.com/vasiliy-maslov/petite-maison/internal/catalog"
	"github.com/vasiliy-maslov/petite-maison/internal/config"
	"github.com/vasiliy-maslov/petite-maison/internal/db"
	"github.com/vasiliy-maslov/petite-maison/internal/fanzine"
	handler "github.com/vasiliy-maslov/petite-maison/internal/handler/http"
	"github.com/vasiliy-maslov/petite-maison/internal/metrics"
	"github.com/vasiliy-maslov/petite-maison/internal/objstore"
	"github.com/vasiliy-maslov/petite-maison/internal/order"
	"github.com/vasiliy-maslov/petite-maison/internal/user"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, skipMigrations)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start-up")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, skipMigrations bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log.Info().Str("env", cfg.App.Env).Msg("Petite Maison API starting...")

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pg.Close()

	if !skipMigrations {
		if err := db.MigrateUp(cfg.Postgres); err != nil {
			return err
		}
	}

	// audit пишет через тот же пул, но через database/sql для sqlx
	auditDB := sqlx.NewDb(stdlib.OpenDBFromPool(pg.Pool), "pgx")
	defer auditDB.Close()
	recorder := audit.NewRecorder(auditDB)

	sessions, closeSessions, err := newSessionStore(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeSessions()

	signer, err := newAssetSigner(ctx, cfg.MinIO)
	if err != nil {
		return err
	}

	provider, err := auth.NewProvider(cfg.Auth)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	userSvc := user.NewService(user.NewRepository(pg.Pool))
	authSvc := auth.NewService(userSvc, provider, sessions, recorder)
	catalogSvc := catalog.NewService(catalog.NewRepository(pg.Pool))
	cartSvc := cart.NewService(cart.NewRepository(pg.Pool))
	orderSvc := order.NewService(order.NewRepository(pg.Pool), order.PolicyFromConfig(cfg.Pricing), recorder, m)
	fanzineSvc := fanzine.NewService(
		fanzine.NewRepository(pg.Pool),
		signer,
		fanzine.PricingFromConfig(cfg.Pricing),
		recorder,
		m,
	)

	router := handler.NewRouter(handler.Dependencies{
		Provider:       provider,
		Auth:           authSvc,
		Users:          userSvc,
		Catalog:        catalogSvc,
		Cart:           cartSvc,
		Orders:         orderSvc,
		Fanzine:        fanzineSvc,
		Audit:          recorder,
		Metrics:        m,
		DB:             pg,
		RequestTimeout: cfg.App.RequestTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.App.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stopCh)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("could not listen on %s: %w", cfg.App.Port, err)
		}
	case sig := <-stopCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("Petite Maison API stopped gracefully")
	return nil
}

// newSessionStore uses Redis when configured and an in-process store
// otherwise. The in-process store loses sessions on restart.
func newSessionStore(ctx context.Context, cfg config.RedisConfig) (auth.SessionStore, func(), error) {
	if !cfg.Enabled() {
		log.Warn().Msg("REDIS_URL not set, refresh sessions are kept in memory")
		return auth.NewMemorySessionStore(), func() {}, nil
	}

	store, client, err := auth.NewRedisSessionStore(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis client")
		}
	}, nil
}

func newAssetSigner(ctx context.Context, cfg config.MinIOConfig) (fanzine.AssetSigner, error) {
	if !cfg.Enabled() {
		log.Info().Msg("MinIO not configured, fanzine PDFs are served by stored URL")
		return fanzine.PassthroughSigner(), nil
	}

	client, err := objstore.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare MinIO bucket: %w", err)
	}
	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("Fanzine PDFs are signed through MinIO")
	return client, nil
}
