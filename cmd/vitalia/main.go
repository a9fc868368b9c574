// Vitalia is a local-first care companion daemon: it watches medication,
// insulin, meal, appointment and hydration schedules, classifies vital-sign
// readings, and announces what is due through simulated call sessions.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vitalia-app/vitalia/internal/api"
	"github.com/vitalia-app/vitalia/internal/call"
	"github.com/vitalia-app/vitalia/internal/config"
	"github.com/vitalia-app/vitalia/internal/engine"
	"github.com/vitalia-app/vitalia/internal/logging"
	"github.com/vitalia-app/vitalia/internal/speech"
	"github.com/vitalia-app/vitalia/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dataDir := flag.String("data", "", "data directory")
	flag.Parse()

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Vitalia exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	st, err := store.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	narrator := speech.NewEspeakNarrator(logger)
	logger.Info("Speech provider ready",
		zap.String("provider", narrator.Name()),
		zap.Bool("available", narrator.IsReady()),
	)

	orchestrator := call.NewOrchestrator(narrator, cfg.Speech, cfg.Engine, logger)

	ledger := engine.NewBadgerLedger(st, logger)
	evaluator := engine.NewEvaluator(cfg.Engine, ledger, orchestrator, engine.SystemClock(), logger)
	evaluator.AddFastSource(engine.NewMedicationSource(st))
	evaluator.AddSlowSource(engine.NewInsulinSource(st))
	evaluator.AddSlowSource(engine.NewMealSource(st))
	evaluator.SetAppointments(st)
	evaluator.SetHydration(st)

	if err := evaluator.Start(); err != nil {
		return fmt.Errorf("failed to start evaluator: %w", err)
	}
	defer evaluator.Stop()

	server := api.New(cfg, st, orchestrator, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	if err := server.Shutdown(); err != nil {
		logger.Warn("Server shutdown failed", zap.Error(err))
	}
	narrator.CancelAll()

	return nil
}
