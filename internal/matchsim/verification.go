package matchsim

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults checks the consistency of rank summaries and the leaderboard.
func verifyResults(config *Config, summaries []RankSummary, page *Page) error {
	log.Println("🔍 Verifying results...")

	if len(summaries) == 0 {
		return fmt.Errorf("no rank summaries to verify")
	}

	// Sort summaries by rank ascending to find the best-ranked player
	sortedSummaries := make([]RankSummary, len(summaries))
	copy(sortedSummaries, summaries)
	sort.Slice(sortedSummaries, func(i, j int) bool {
		return sortedSummaries[i].Rank < sortedSummaries[j].Rank
	})

	if page != nil && len(page.Entries) > 0 {
		if err := verifyLeaderboardConsistency(sortedSummaries, page); err != nil {
			log.Printf("⚠️  Leaderboard consistency warning: %v", err)
		} else {
			log.Println("✅ Leaderboard consistency verified")
		}
	}

	displayTopPlayers(sortedSummaries, page, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks the leaderboard against the per-player
// rank summaries: the top entry must hold rank 1, entries must be sorted by
// rating descending with contiguous ranks, and the best summary must agree
// with the top entry.
func verifyLeaderboardConsistency(sortedSummaries []RankSummary, page *Page) error {
	entries := page.Entries
	if len(entries) == 0 {
		return fmt.Errorf("empty leaderboard")
	}

	if entries[0].Rank != 1 {
		return fmt.Errorf("top leaderboard entry has rank %d, expected 1", entries[0].Rank)
	}

	topSummary := sortedSummaries[0]
	if topSummary.Rank == 1 && topSummary.PlayerID != entries[0].PlayerID {
		return fmt.Errorf("top leaderboard entry (%s) does not match rank-1 summary (%s)",
			entries[0].PlayerID, topSummary.PlayerID)
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].Rank != entries[i-1].Rank+1 {
			return fmt.Errorf("ranks not contiguous: entry %d has rank %d after rank %d",
				i, entries[i].Rank, entries[i-1].Rank)
		}
		if entries[i].Rating > entries[i-1].Rating {
			return fmt.Errorf("leaderboard not sorted by rating: entry %d has higher rating than entry %d",
				i, i-1)
		}
	}

	// Every summary's total must agree with the leaderboard's population
	for _, summary := range sortedSummaries {
		if summary.TotalPlayers != page.TotalPlayers {
			return fmt.Errorf("summary for %s reports %d total players, leaderboard reports %d",
				summary.PlayerID, summary.TotalPlayers, page.TotalPlayers)
		}
	}

	return nil
}

// displayTopPlayers shows the top players from summaries and the leaderboard.
func displayTopPlayers(sortedSummaries []RankSummary, page *Page, verbose bool) {
	topN := 10
	if len(sortedSummaries) < topN {
		topN = len(sortedSummaries)
	}

	log.Printf("🏆 Top %d players from rank summaries:", topN)
	for i := 0; i < topN; i++ {
		summary := sortedSummaries[i]
		log.Printf("   %d. %s - Percentile: %.1f", summary.Rank, summary.PlayerID, summary.Percentile)
	}

	if page != nil && len(page.Entries) > 0 {
		leaderboardTopN := topN
		if len(page.Entries) < leaderboardTopN {
			leaderboardTopN = len(page.Entries)
		}

		log.Printf("🥇 Top %d players from leaderboard:", leaderboardTopN)
		for i := 0; i < leaderboardTopN; i++ {
			entry := page.Entries[i]
			log.Printf("   %d. %s - Rating: %d", entry.Rank, entry.PlayerID, entry.Rating)
		}
	}

	if verbose && page != nil && len(page.Entries) > 0 {
		avgRating := calculateAverageRating(page.Entries)
		maxRating := page.Entries[0].Rating
		minRating := page.Entries[len(page.Entries)-1].Rating

		log.Printf(`📊 Rating statistics:
   Average: %.1f
   Maximum: %d
   Minimum: %d
`, avgRating, maxRating, minRating)
	}
}

// calculateAverageRating calculates the average rating across entries.
func calculateAverageRating(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}

	sum := 0
	for _, entry := range entries {
		sum += entry.Rating
	}

	return float64(sum) / float64(len(entries))
}
