package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/ent0n29/deskmate/internal/app"
	"github.com/ent0n29/deskmate/internal/config"
	"github.com/ent0n29/deskmate/internal/logger"
)

var log = logger.New("main")

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level (debug|info|warn|error), overrides LOG_LEVEL")
	addr := cli.StringP("addr", "a", "", "Bind address, overrides APP_BIND_ADDR")
	cli.Parse()

	if err := godotenv.Load(*envFile); err != nil && cli.CommandLine.Changed("env") {
		log.Warn().Err(err).Str("path", *envFile).Msg("Could not load env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config error")
	}
	if strings.TrimSpace(*logLevel) != "" {
		cfg.LogLevel = *logLevel
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.BindAddr = *addr
	}
	logger.Setup(cfg.LogLevel)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	built, err := app.Build(runCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}
	log.Info().
		Str("speech_input", built.Speech.InputMode).
		Str("speech_output", built.Speech.OutputMode).
		Str("reminder_store", built.Reminders.Mode()).
		Int("reminders", len(built.Reminders.List())).
		Msg(built.Speech.Detail)

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		built.Scheduler.Run(runCtx)
	}()

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}
	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	runCancel()
	<-schedulerDone
	if err := built.Cleanup(shutdownCtx); err != nil {
		log.Err(err).Msg("Cleanup failed")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Err(err).Msg("Graceful shutdown failed")
		_ = httpServer.Close()
	}

	log.Info().Msg("Shutdown complete")
}
