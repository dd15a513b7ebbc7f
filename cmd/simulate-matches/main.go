package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/matchsim"
)

// Default configuration constants.
const (
	defaultNumPlayers = 500
	defaultNumMatches = 5000
	defaultTopN       = 50
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultSimTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numPlayers = flag.Int("players", defaultNumPlayers, "Number of players to register")
		numMatches = flag.Int("matches", defaultNumMatches, "Number of matches to generate and submit")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated matches (default: generated_matches_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for simulation output (default: sim_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		matchsim.ShowHelp()
		return
	}

	// Setup logging
	if err := matchsim.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultSimTimeout)
	defer cancel()

	// Create simulation configuration
	config := &matchsim.Config{
		BaseURL:    *baseURL,
		NumPlayers: *numPlayers,
		NumMatches: *numMatches,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the simulation
	if err := matchsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
