// Package main runs the observation relay daemon: the local control API
// plus the durable delivery queue behind it.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dailypulse/relay/internal/app/runtime"
	"github.com/dailypulse/relay/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	envFile := flag.String("env-file", "", "Optional .env file with environment overrides")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("load env file: %v", err)
		}
	} else {
		_ = godotenv.Load() // allow .env for local runs
	}

	if v := os.Getenv("RELAY_CONFIG"); v != "" && *configPath == "" {
		*configPath = v
	}

	cfg := config.LoadOrDefault(*configPath)

	app, err := runtime.NewApplication(cfg)
	if err != nil {
		log.Fatalf("initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
