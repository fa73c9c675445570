package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/duelhall/duelhall-server/internal/config"
	"github.com/duelhall/duelhall-server/internal/engine"
	"github.com/duelhall/duelhall-server/internal/game/deck"
	"github.com/duelhall/duelhall-server/internal/game/effects"
	"github.com/duelhall/duelhall-server/internal/game/rules"
	"github.com/duelhall/duelhall-server/internal/match"
	"github.com/duelhall/duelhall-server/internal/room"
	"github.com/duelhall/duelhall-server/internal/server"
	"github.com/duelhall/duelhall-server/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting duelhall server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("duelhall server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	catalog, err := deck.LoadFile(cfg.Game.DeckFile)
	if err != nil {
		return fmt.Errorf("load deck: %w", err)
	}
	logger.Info("deck loaded",
		zap.String("deck", catalog.Name),
		zap.Int("cards", catalog.Size()),
	)

	hub := session.NewHub(session.Options{
		SendBuffer:   cfg.Server.WebSocket.SendBuffer,
		WriteTimeout: cfg.Server.WebSocket.WriteTimeout,
		PingInterval: cfg.Server.WebSocket.PingInterval,
		RateLimit:    rate.Limit(cfg.Server.RateLimit),
		RateBurst:    cfg.Server.RateBurst,
	}, logger.Named("session"))

	eng := engine.New(
		effects.NewResolver(logger.Named("effects")),
		hub,
		engine.Options{ResponseTimeout: cfg.Game.ResponseTimeout},
		logger.Named("engine"),
	)
	defer eng.Close()

	rooms := room.NewRegistry(room.Options{
		MaxSeats:       cfg.Game.MaxSeats,
		StartingHealth: cfg.Game.StartingHealth,
		Shuffle:        deck.Shuffle,
	}, logger.Named("rooms"))

	turns := rules.NewController(rules.Options{
		StartingHealth: cfg.Game.StartingHealth,
		HandSize:       cfg.Game.HandSize,
		DrawPerTurn:    cfg.Game.DrawPerTurn,
	}, logger.Named("rules"))

	svc := match.NewService(rooms, eng, turns, catalog, logger.Named("match"))

	srv := server.New(svc, hub, server.Options{
		AllowedOrigins:  cfg.Server.WebSocket.AllowedOrigins,
		ReadBufferSize:  cfg.Server.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.Server.WebSocket.WriteBufferSize,
		MaxMessageSize:  cfg.Server.WebSocket.MaxMessageSize,
		PingInterval:    cfg.Server.WebSocket.PingInterval,
		RateLimit:       rate.Limit(cfg.Server.RateLimit),
		RateBurst:       cfg.Server.RateBurst,
	}, logger.Named("server"))

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTP.Address,
		Handler: srv.Router(),
	}

	var (
		admin   *server.Admin
		grpcLis net.Listener
	)
	if cfg.Server.GRPC.Address != "" {
		grpcLis, err = net.Listen("tcp", cfg.Server.GRPC.Address)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPC.Address, err)
		}
		admin = server.NewAdmin(logger.Named("grpc"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if admin != nil {
		g.Go(func() error {
			logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
			if err := admin.Server.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		admin.SetServing(true)
	}

	g.Go(func() error {
		return rooms.RunReaper(ctx, cfg.Game.ReapInterval, cfg.Game.IdleRoomTTL, hub.Live)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down gracefully...")

		if admin != nil {
			admin.Shutdown()
		}
		hub.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("duelhall server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.Duration("response_timeout", cfg.Game.ResponseTimeout),
		zap.Int("max_seats", cfg.Game.MaxSeats),
	)
	return g.Wait()
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
