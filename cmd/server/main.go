package main // Entry point package

import (
	"context"
	"log" // Logging library
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/elder-health-text/internal/app"    // Server assembly
	"github.com/iliyamo/elder-health-text/internal/config" // Internal config loader
)

func main() {
	config.LoadDotEnv()  // Pick up a local .env if present
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
