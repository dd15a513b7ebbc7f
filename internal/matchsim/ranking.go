package matchsim

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveRanks retrieves global rank summaries for all players concurrently.
func retrieveRanks(ctx context.Context, config *Config, players []Player, stats *Stats) ([]RankSummary, error) {
	log.Printf("🏆 Retrieving ranks for %d players with %d workers...", len(players), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage, indexed so workers never contend on a slot
	summaries := make([]RankSummary, len(players))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					playerID := players[index].ID
					summary, err := retrieveSingleRank(ctx, client, config.BaseURL, playerID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get rank for %s: %v", playerID, err)
						}
					} else {
						summaries[index] = summary
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						log.Printf("🏆 Ranks: %d/%d retrieved (success: %d, failed: %d)",
							total, len(players), ret, fail)
					}
				}
			}
		}()
	}

	// Send player indices to workers
	go func() {
		defer close(indexChan)
		for i := range players {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Filter out empty entries (failed retrievals)
	validSummaries := make([]RankSummary, 0, len(summaries))
	for _, summary := range summaries {
		if summary.PlayerID != "" { // Empty PlayerID indicates failed retrieval
			validSummaries = append(validSummaries, summary)
		}
	}

	// Update stats
	stats.RanksRetrieved = len(validSummaries)

	log.Printf(`✅ Rank retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validSummaries), int(atomic.LoadInt64(&failed)))

	return validSummaries, nil
}

// retrieveSingleRank retrieves the global rank summary for a single player.
func retrieveSingleRank(ctx context.Context, client *HTTPClient, baseURL, playerID string) (RankSummary, error) {
	url := fmt.Sprintf("%s/rank/%s", baseURL, playerID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return RankSummary{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return RankSummary{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return RankSummary{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var summary RankSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return RankSummary{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return summary, nil
}

// getLeaderboard retrieves the top N global leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) (*Page, error) {
	log.Printf("🥇 Getting top %d leaderboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.LeaderboardEntries = len(page.Entries)
	log.Printf("✅ Retrieved %d leaderboard entries (%d players ranked)", len(page.Entries), page.TotalPlayers)

	return &page, nil
}

// triggerRecalculation asks the service to rebuild the global leaderboard so
// rank queries observe every submitted match.
func triggerRecalculation(ctx context.Context, config *Config) error {
	log.Println("🔄 Triggering global rank recalculation...")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/admin/recalculate"

	resp, err := client.Post(ctx, url, map[string]string{"scope": "global"})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	log.Println("✅ Recalculation completed")
	return nil
}
