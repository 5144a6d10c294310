package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/berthd/berth/internal/adapters/in/http/middleware"
	tokenhandler "github.com/berthd/berth/internal/adapters/in/http/token"
	webhookhandler "github.com/berthd/berth/internal/adapters/in/http/webhook"
	"github.com/berthd/berth/internal/adapters/out/sqlite"
	tokensvc "github.com/berthd/berth/internal/usecase/token"
	webhooksvc "github.com/berthd/berth/internal/usecase/webhook"
)

// RunServer loads configuration, wires the services and runs the HTTP
// server until the context is cancelled or a shutdown signal arrives.
func RunServer(ctx context.Context, configPath string) error {
	cfg, err := initConfig(configPath)
	if err != nil {
		return err
	}

	log, cleanup, err := initLogger(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	ctx = zerowrap.WithCtx(ctx, log)
	log.Info().
		Str(zerowrap.FieldLayer, "app").
		Str(zerowrap.FieldComponent, "server").
		Msg("starting berth token server")

	store, err := OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}()

	tokenConfig, err := buildTokenConfig(cfg)
	if err != nil {
		return err
	}

	tokenService := tokensvc.NewService(tokenConfig, store, store, log)
	webhookService := webhooksvc.NewService(store, log)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/token/", tokenhandler.NewHandler(tokenService, log))
	mux.Handle("/api/webhooks/registry/", webhookhandler.NewHandler(webhookService, log))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","component":"server"}`))
	})

	handler := middleware.Chain(
		middleware.PanicRecovery(log),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders,
	)(mux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().
		Str(zerowrap.FieldLayer, "app").
		Str(zerowrap.FieldComponent, "server").
		Int("port", cfg.Server.Port).
		Msg("HTTP server listening")

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().
				Str(zerowrap.FieldLayer, "app").
				Str(zerowrap.FieldComponent, "server").
				Err(err).
				Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		log.Info().
			Str(zerowrap.FieldLayer, "app").
			Str(zerowrap.FieldComponent, "server").
			Msg("context cancelled, shutting down")
	case sig := <-quit:
		log.Info().
			Str(zerowrap.FieldLayer, "app").
			Str(zerowrap.FieldComponent, "server").
			Str("signal", sig.String()).
			Msg("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().
		Str(zerowrap.FieldLayer, "app").
		Str(zerowrap.FieldComponent, "server").
		Msg("berth shutdown complete")

	return nil
}

// OpenStore opens the configured database. Shared by the server and
// the administrative CLI commands.
func OpenStore(cfg Config, log zerowrap.Logger) (*sqlite.Store, error) {
	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return sqlite.Open(dbPath, log)
}

// LoadConfig loads the application configuration for CLI commands.
func LoadConfig(configPath string) (Config, error) {
	return initConfig(configPath)
}

// NewLogger builds a logger from the configuration for CLI commands.
func NewLogger(cfg Config) (zerowrap.Logger, func(), error) {
	return initLogger(cfg)
}

// buildTokenConfig turns the raw config section into the token service
// configuration, loading key material from disk.
func buildTokenConfig(cfg Config) (tokensvc.Config, error) {
	if cfg.Registry.PrivateKey == "" {
		return tokensvc.Config{}, fmt.Errorf("registry.private_key is required for token signing")
	}

	key, err := loadSigningKey(cfg.Registry.PrivateKey)
	if err != nil {
		return tokensvc.Config{}, err
	}

	cert, err := loadCertificate(cfg.Registry.Certificate)
	if err != nil {
		return tokensvc.Config{}, err
	}

	lifetime := tokensvc.DefaultTokenLifetime
	if cfg.Registry.TokenLifetime != "" {
		lifetime, err = time.ParseDuration(cfg.Registry.TokenLifetime)
		if err != nil {
			return tokensvc.Config{}, fmt.Errorf("invalid registry.token_lifetime: %w", err)
		}
	}

	return tokensvc.Config{
		Issuer:        cfg.Registry.Issuer,
		Service:       cfg.Registry.Service,
		TokenLifetime: lifetime,
		SigningKey:    key,
		Certificate:   cert,
	}, nil
}
