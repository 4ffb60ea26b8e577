package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/pokepack/internal/smoke"
)

// Default configuration constants.
const (
	defaultUsers       = 5
	defaultPacks       = 3
	defaultWorkers     = 4
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:3001", "Base URL of the service")
		users   = flag.Int("users", defaultUsers, "Number of players to simulate")
		packs   = flag.Int("packs", defaultPacks, "Packs each player opens")
		setID   = flag.String("set", "", "Set id to open (default: server default)")
		workers = flag.Int("workers", defaultWorkers, "Number of concurrent players")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile = flag.String("log", "", "Log file for run output (default: smoke_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	if err := smoke.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &smoke.Config{
		BaseURL:      *baseURL,
		Users:        *users,
		PacksPerUser: *packs,
		SetID:        *setID,
		Workers:      *workers,
		Timeout:      *timeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	if _, err := smoke.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
