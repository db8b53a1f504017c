package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ahtungko/aicbot/pkg/config"
	"github.com/ahtungko/aicbot/pkg/db"
	"github.com/ahtungko/aicbot/pkg/utils"
)

func main() {
	// .env is optional; environment wins over file values either way.
	_ = godotenv.Load()

	utils.InitLogger()
	logger := utils.GetLogger()

	if _, err := config.EnsureDefaultConfig(); err != nil {
		logger.Warn("failed to write default config", "error", err)
	}

	cfg, configFile, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded",
		"file", configFile,
		"manus_base_url", cfg.ManusBaseURL(),
		"api_key", utils.MaskSensitiveString(cfg.ManusAPIKey()))

	if cfg.ManusAPIKey() == "" {
		logger.Warn("MANUS_API_KEY is not set; chat requests will fail until it is configured")
	}

	dataPath, err := cfg.DataPath()
	if err != nil {
		logger.Error("failed to resolve data path", "error", err)
		os.Exit(1)
	}
	gdb, err := db.Open(dataPath)
	if err != nil {
		logger.Error("failed to open database", "path", dataPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(cfg, gdb)
	if err := server.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")
}
