package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ekaraca522/dolapscraper/config"
	"ekaraca522/dolapscraper/logger"
	"ekaraca522/dolapscraper/services/cache"
	"ekaraca522/dolapscraper/services/worker"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	logger.Init()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	var cacheSvc cache.CacheService
	if cfg.MemcacheAddr != "" {
		memcacheSvc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := memcacheSvc.Ping(); err != nil {
			logger.Warn("Memcached unreachable at %s, category block flags disabled: %v", cfg.MemcacheAddr, err)
		} else {
			cacheSvc = memcacheSvc
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal %v, shutting down", sig)
		cancel()
	}()

	w := worker.New(cfg, cacheSvc)
	if err := w.Run(ctx); err != nil {
		logger.Fatal("Run failed: %v", err)
	}
}
