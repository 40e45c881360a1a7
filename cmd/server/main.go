// Package main provides the entry point for the simulation backend server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenrir-desktop/sim-backend/internal/agents"
	"github.com/fenrir-desktop/sim-backend/internal/api"
	"github.com/fenrir-desktop/sim-backend/internal/engine"
	"github.com/fenrir-desktop/sim-backend/pkg/config"
	"github.com/fenrir-desktop/sim-backend/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	host := flag.String("host", "", "Server host (overrides config)")
	port := flag.Int("port", 0, "Server port (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := setupLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting simulation backend",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int64("tickIntervalMs", cfg.Sim.TickIntervalMs),
		zap.Int64("seed", cfg.Sim.Seed),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := metrics.New()

	engCfg := engine.DefaultConfig()
	engCfg.TickInterval = time.Duration(cfg.Sim.TickIntervalMs) * time.Millisecond
	engCfg.MinTickInterval = time.Duration(cfg.Sim.MinTickIntervalMs) * time.Millisecond
	engCfg.MaxTickInterval = time.Duration(cfg.Sim.MaxTickIntervalMs) * time.Millisecond
	engCfg.RollInterval = cfg.Sim.RollInterval
	engCfg.OverrideWindow = cfg.Sim.OverrideWindow
	engCfg.EventProbability = cfg.Sim.EventProbability
	engCfg.TradeBufferCap = cfg.Sim.TradeBufferCap
	engCfg.EventBufferCap = cfg.Sim.EventBufferCap
	engCfg.LeaderboardSize = cfg.Sim.LeaderboardSize
	engCfg.Seed = cfg.Sim.Seed
	engCfg.Policy.LearningRate = cfg.Sim.LearningRate
	engCfg.Policy.Discount = cfg.Sim.Discount
	engCfg.Policy.ExplorationInitial = cfg.Sim.ExplorationInitial
	engCfg.Policy.ExplorationDecay = cfg.Sim.ExplorationDecay
	engCfg.Policy.ExplorationMin = cfg.Sim.ExplorationMin
	engCfg.Policy.RewardScale = cfg.Sim.RewardScale

	eng := engine.New(logger, engCfg, agents.DefaultProfiles(), recorder)
	defer eng.Close()

	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.EnableMetrics = cfg.Server.EnableMetrics

	server := api.NewServer(logger, serverCfg, eng, recorder)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	logger.Info("Server started",
		zap.String("http", fmt.Sprintf("http://%s:%d/api/sim", cfg.Server.Host, cfg.Server.Port)),
		zap.String("ws", fmt.Sprintf("ws://%s:%d/ws", cfg.Server.Host, cfg.Server.Port)),
	)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		if eng.IsRunning() {
			eng.Stop()
		}
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return logger
}
