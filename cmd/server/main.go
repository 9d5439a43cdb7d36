// Package main provides the entry point for the build server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Chailang/appPack/internal/api"
	"github.com/Chailang/appPack/internal/build"
	"github.com/Chailang/appPack/internal/build/stage"
	"github.com/Chailang/appPack/internal/notify"
	"github.com/Chailang/appPack/internal/secrets"
	"github.com/Chailang/appPack/internal/settings"
	"github.com/Chailang/appPack/pkg/config"
	"github.com/Chailang/appPack/pkg/logger"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Secrets service is optional; without keys the git passphrase is
	// stored in plaintext and the settings store logs a warning.
	var secretsSvc *secrets.Service
	if cfg.Secrets.AgePublicKey != "" || cfg.Secrets.AgePrivateKey != "" {
		secretsSvc, err = secrets.NewService(&secrets.Config{
			AgePublicKey:  cfg.Secrets.AgePublicKey,
			AgePrivateKey: cfg.Secrets.AgePrivateKey,
		}, log.Logger)
		if err != nil {
			log.Error("failed to initialize secrets service", "error", err)
			os.Exit(1)
		}
		log.Info("secrets service initialized",
			"can_encrypt", secretsSvc.CanEncrypt(),
			"can_decrypt", secretsSvc.CanDecrypt(),
		)
	} else {
		log.Warn("age keys not configured, stored credentials will not be encrypted")
	}

	settingsStore, err := settings.NewStore(cfg.SettingsPath, secretsSvc, log.Logger)
	if err != nil {
		log.Error("failed to load settings", "error", err, "path", cfg.SettingsPath)
		os.Exit(1)
	}

	notifyClient := notify.NewClient(cfg.Notify.Timeout, log.WithComponent("notify").Logger)

	orchestrator := build.New(build.Config{
		Notifier:   &stage.Notify{Client: notifyClient},
		Webhook:    settingsStore.WebhookURL,
		Passphrase: settingsStore.Passphrase,
		Retention:  cfg.Session.Retention,
		Logger:     log.WithComponent("build").Logger,
	})

	server := api.NewServer(cfg, orchestrator, settingsStore, log.Logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	// Let in-flight log writes drain.
	time.Sleep(100 * time.Millisecond)
	log.Info("server stopped")
}
