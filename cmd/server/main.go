// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/versus/internal/auth"
	"github.com/jason-s-yu/versus/internal/cache"
	"github.com/jason-s-yu/versus/internal/config"
	"github.com/jason-s-yu/versus/internal/database"
	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/game/grid"
	"github.com/jason-s-yu/versus/internal/game/paddle"
	"github.com/jason-s-yu/versus/internal/handlers"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/jason-s-yu/versus/internal/tournament"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// sessionHost is what main needs from a game.Manager[S] once S is fixed.
type sessionHost interface {
	handlers.SessionService
	tournament.MatchHost
	Close()
}

func newSessionHost(cfg config.Config, sender game.Sender, opts game.Options) sessionHost {
	switch cfg.GameKind {
	case "paddle":
		return game.NewManager[*paddle.State](paddle.New(cfg.PaddleWinScore, cfg.PaddleTick), sender, opts)
	default:
		return game.NewManager[*grid.State](grid.New(cfg.GridSize, cfg.GridMaxMarks), sender, opts)
	}
}

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := realtime.NewRegistry(logger)
	opts := game.Options{
		Cooldown:        cfg.Cooldown,
		MoveTimeout:     cfg.MoveTimeout,
		OutboundTimeout: cfg.OutboundTimeout,
		SkipBlockCheck:  cfg.SkipBlockCheck,
		Logger:          logger,
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		busy := cache.NewBusyStore(rdb, cfg.GameKind, cfg.SiblingKind, cfg.BusyTTL)
		opts.Oracle = busy
		opts.Publisher = busy
		opts.Notifier = cache.NewNotifier(rdb, cfg.NotificationChannel)
		opts.Results = cache.NewResultQueue(rdb, cfg.HistorianQueue)
	} else {
		logger.Warn("REDIS_ADDR not set: no cross-service busy checks, notifications or match history")
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		store := database.NewStore(pool)
		opts.Relations = store
		opts.Directory = store
	} else {
		logger.Warn("DATABASE_URL not set: usernames are generated and nobody is blocked")
	}

	var verifier *auth.Verifier
	if cfg.JWTPublicKeyPath != "" {
		verifier, err = auth.LoadVerifier(cfg.JWTPublicKeyPath)
		if err != nil {
			logger.Fatalf("jwt: %v", err)
		}
	} else {
		// Tokens from this throwaway key are never handed out, so every
		// connection is refused. Useful only for smoke-testing the HTTP side.
		logger.Warn("JWT_PUBLIC_KEY_PATH not set: websocket connections cannot authenticate")
		_, verifier, err = auth.NewKeyPair(0)
		if err != nil {
			logger.Fatalf("jwt: %v", err)
		}
	}

	sessions := newSessionHost(cfg, registry, opts)
	defer sessions.Close()

	tournaments := tournament.NewManager(sessions, registry, tournament.Options{
		MinParticipants: cfg.TournamentMinParticipants,
		OutboundTimeout: cfg.OutboundTimeout,
		Logger:          logger,
		Directory:       opts.Directory,
	})

	gs := &handlers.GameServer{
		Logger:      logger,
		Verifier:    verifier,
		Registry:    registry,
		Sessions:    sessions,
		Tournaments: tournaments,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           gs.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.WithField("game", cfg.GameKind).Infof("Running on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
