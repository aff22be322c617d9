// Command directory runs the reference backend user directory the relay
// reconciles against.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/config"
	"github.com/gosuda/teamboard/internal/directory"
	"github.com/gosuda/teamboard/internal/domain"
	"github.com/gosuda/teamboard/internal/migrate"
	"github.com/gosuda/teamboard/internal/store/memory"
	"github.com/gosuda/teamboard/internal/store/postgres"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	cfg, err := config.LoadDirectory()
	if err != nil {
		return err
	}

	level, _ := zerolog.ParseLevel(cfg.Log.Level) // validated by config.LoadDirectory
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var users domain.UserRepository
	switch cfg.Store {
	case config.StorePostgres:
		if cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}

		dsn := cfg.Database.DSN()
		if err := migrate.Up(ctx, dsn); err != nil {
			return err
		}

		store, err := postgres.New(ctx, dsn, int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return err
		}
		defer store.Close()
		users = store.Users()
	default:
		log.Warn().Msg("using in-memory user store; records are lost on restart")
		users = memory.NewUserRepo()
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)

	api := humachi.New(router, huma.DefaultConfig("Teamboard User Directory", version))
	directory.RegisterRoutes(api, users, auth.NewSessionVerifier(cfg.Session.Secret, cfg.Session.Issuer))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("store", cfg.Store).Msg("starting directory")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("directory shutdown: %w", err)
	}

	log.Info().Msg("stopped")
	return nil
}
