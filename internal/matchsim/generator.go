package matchsim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	skillTierDivisor   = 6
	maxGoalsPerSide    = 5
)

// Constants for skill generation ranges. Skill is a hidden value in [0, 1]
// that drives match outcomes; stronger players win more often so the
// resulting ratings spread out the way a real population does.
const (
	casualSkillMin   = 0.2
	casualSkillRange = 0.4
	strongSkillMin   = 0.6
	strongSkillRange = 0.25
	weakSkillMin     = 0.0
	weakSkillRange   = 0.25
	eliteSkillMin    = 0.85
	eliteSkillRange  = 0.15
	wideSkillMin     = 0.0
	wideSkillRange   = 1.0
)

// Constants for skill tier cases.
const (
	caseCasualPlayer = 0
	caseStrongPlayer = 1
	caseWeakPlayer   = 2
	caseElitePlayer  = 3
	caseWideRangeA   = 4
	caseWideRangeB   = 5
)

// countries and sessions assigned round-robin so every scoped leaderboard
// ends up with a meaningful population.
var simCountries = []string{"US", "SE", "DE", "BR", "JP", "KR", "FR", "GB"}

const simSessionCount = 4

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomIntn returns a random int in [0, n) using crypto/rand.
func randomIntn(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generatePlayers creates the specified number of players with unique IDs
// and hidden skill values.
func generatePlayers(ctx context.Context, config *Config) []Player {
	logger.Get().Info(ctx, "generating players", logger.Int("numPlayers", config.NumPlayers))

	players := make([]Player, config.NumPlayers)
	for i := 0; i < config.NumPlayers; i++ {
		id := uuid.New().String()
		players[i] = Player{
			ID:        id,
			Name:      "sim_player_" + strconv.Itoa(i),
			Country:   simCountries[i%len(simCountries)],
			SessionID: "session-" + strconv.Itoa(i%simSessionCount),
			skill:     generateSkill(),
		}
	}
	return players
}

// generateSkill draws a hidden skill value from a tiered distribution.
func generateSkill() float64 {
	tier, _ := rand.Int(rand.Reader, big.NewInt(skillTierDivisor))
	switch tier.Int64() {
	case caseCasualPlayer:
		// Casual players (0.2 - 0.6) - most common
		return casualSkillMin + getRandomFloat()*casualSkillRange
	case caseStrongPlayer:
		// Strong players (0.6 - 0.85)
		return strongSkillMin + getRandomFloat()*strongSkillRange
	case caseWeakPlayer:
		// Weak players (0.0 - 0.25)
		return weakSkillMin + getRandomFloat()*weakSkillRange
	case caseElitePlayer:
		// Elite players (0.85 - 1.0) - rare
		return eliteSkillMin + getRandomFloat()*eliteSkillRange
	case caseWideRangeA, caseWideRangeB:
		return wideSkillMin + getRandomFloat()*wideSkillRange
	default:
		return wideSkillMin + getRandomFloat()*wideSkillRange
	}
}

// generateMatches creates the specified number of matches between random
// player pairs. The higher-skilled player is more likely to win, with enough
// noise that upsets still happen.
func generateMatches(ctx context.Context, config *Config, players []Player, stats *Stats) ([]Match, error) {
	if len(players) < 2 {
		return nil, fmt.Errorf("need at least 2 players, have %d", len(players))
	}

	logger.Get().Info(ctx, "generating matches", logger.Int("numMatches", config.NumMatches))

	matches := make([]Match, config.NumMatches)
	for i := 0; i < config.NumMatches; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during match generation: %w", ctx.Err())
		default:
		}

		a := randomIntn(len(players))
		b := randomIntn(len(players) - 1)
		if b >= a {
			b++
		}
		matches[i] = generateSingleMatch(i, players[a], players[b])
	}

	stats.MatchesGenerated = len(matches)
	logger.Get().Info(ctx, "generated matches successfully", logger.Int("count", len(matches)))

	return matches, nil
}

// generateSingleMatch produces a match between two players with scores
// decided by their skill gap plus noise.
func generateSingleMatch(index int, a, b Player) Match {
	matchID := "sim_match_" + strconv.Itoa(index) + "_" + strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.Itoa(randomIntn(10000))

	// Probability that A wins grows with the skill gap; a zero gap is a
	// coin flip with a small draw band around it.
	winProbA := 0.5 + (a.skill-b.skill)/2
	roll := getRandomFloat()

	scoreA, scoreB := 0, 0
	switch {
	case roll < winProbA-0.05:
		scoreA = 1 + randomIntn(maxGoalsPerSide)
		scoreB = randomIntn(scoreA)
	case roll > winProbA+0.05:
		scoreB = 1 + randomIntn(maxGoalsPerSide)
		scoreA = randomIntn(scoreB)
	default:
		scoreA = randomIntn(maxGoalsPerSide)
		scoreB = scoreA
	}

	return Match{
		MatchID: matchID,
		PlayerA: a.ID,
		ScoreA:  scoreA,
		PlayerB: b.ID,
		ScoreB:  scoreB,
	}
}
