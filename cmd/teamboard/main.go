package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/board"
	"github.com/gosuda/teamboard/internal/config"
	"github.com/gosuda/teamboard/internal/directory"
	"github.com/gosuda/teamboard/internal/metrics"
	"github.com/gosuda/teamboard/internal/server"
	redisstore "github.com/gosuda/teamboard/internal/store/redis"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, _ := zerolog.ParseLevel(cfg.Log.Level) // validated by config.Load
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	boardCfg := board.Config{
		BoardID:  cfg.Board.ID,
		Seed:     board.DefaultSeed(),
		Recorder: collector,
	}

	// Redis is optional: without it the board works but no events stream.
	var pubsub *redisstore.PubSub
	if cfg.Redis.Addr != "" {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()
		boardCfg.Publisher = pubsub
	}

	store, err := board.New(boardCfg)
	if err != nil {
		return err
	}

	dir := directory.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, nil)
	log.Info().Str("url", cfg.Backend.URL).Msg("using user directory")

	srv := server.New(ctx, cfg, server.Deps{
		Reconciler: auth.NewReconciler(dir, collector),
		Verifier:   auth.NewSessionVerifier(cfg.Session.Secret, cfg.Session.Issuer),
		Board:      store,
		Events:     pubsub,
		Metrics:    reg,
		Version:    version,
	})

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
