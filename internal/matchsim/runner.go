package matchsim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete match simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting match simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("players", config.NumPlayers),
		logger.Int("matches", config.NumMatches),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and register players
	players := generatePlayers(ctx, config)
	if err := registerPlayers(ctx, config, players, stats); err != nil {
		return fmt.Errorf("player registration failed: %w", err)
	}

	// Step 3: Generate matches
	matches, err := generateMatches(ctx, config, players, stats)
	if err != nil {
		return fmt.Errorf("match generation failed: %w", err)
	}

	// Step 4: Submit matches concurrently
	if err := submitMatches(ctx, config, matches, stats); err != nil {
		return fmt.Errorf("match submission failed: %w", err)
	}

	// Step 5: Wait for queued work to drain, then force a recalculation so
	// rank queries observe every match
	logger.Get().Info(ctx, "waiting for matches to be processed")
	time.Sleep(ProcessingDelay)
	if err := triggerRecalculation(ctx, config); err != nil {
		return fmt.Errorf("recalculation failed: %w", err)
	}

	// Step 6: Retrieve rank summaries concurrently
	summaries, err := retrieveRanks(ctx, config, players, stats)
	if err != nil {
		return fmt.Errorf("rank retrieval failed: %w", err)
	}

	// Step 7: Get leaderboard
	page, err := getLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	// Step 8: Verify results
	if err := verifyResults(config, summaries, page); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 9: Save matches to file
	if err := saveMatchesToFile(ctx, config, matches); err != nil {
		logger.Get().Warn(ctx, "failed to save matches to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz?format=json"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveMatchesToFile saves the generated matches to a JSON file.
func saveMatchesToFile(ctx context.Context, config *Config, matches []Match) error {
	if len(matches) == 0 {
		return fmt.Errorf("no matches to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_matches_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write matches to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, match := range matches {
		jsonData, err := json.Marshal(match)
		if err != nil {
			return fmt.Errorf("failed to marshal match %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write match %d: %w", i, err)
		}

		// Add comma except for last match
		if i < len(matches)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "matches saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, matchesPerSecond float64

	if stats.MatchesSubmitted > 0 {
		successRate = float64(stats.MatchesSuccessful) / float64(stats.MatchesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("playersRegistered", stats.PlayersRegistered),
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesSuccessful", stats.MatchesSuccessful),
		logger.Int("matchesDuplicate", stats.MatchesDuplicate),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("ranksRetrieved", stats.RanksRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}
