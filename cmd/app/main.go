package main

import (
	"flag"
	"log"
	"os"
	_ "time/tzdata"

	"StockTracker/internal/di"
	"StockTracker/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config (.env, YAML, then environment overrides)
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s historical=%s forecast=%s alerts=%s",
		cfg.Environment, cfg.Historical.Source, cfg.Forecast.Backend, cfg.Alerts.Sink)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
