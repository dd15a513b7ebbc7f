package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// uniqueViolation is the postgres error code raised when the match_results
// primary key rejects a replayed match id.
const uniqueViolation = "23505"

// PostgresStore implements Store on top of database/sql with the pq driver.
// Schema management is external; the store assumes the players,
// player_ratings, match_results, and leaderboard_entries tables exist.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for the given DSN and pings it.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w: %v", ErrPersistence, err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}

// CreatePlayer registers a player and the initial rating row in one tx.
func (s *PostgresStore) CreatePlayer(ctx context.Context, p model.Player) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("create player", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO players (id, name, country, session_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, p.Country, p.SessionID, p.IsActive, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPlayerExists
		}
		return persistErr("create player", err)
	}

	r := model.NewPlayerRating(p.ID)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO player_ratings (player_id, rating, peak_rating, lowest_rating, matches_played, wins, losses, draws, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, 0, $5)
	`, r.PlayerID, r.Rating, r.PeakRating, r.LowestRating, createdAt)
	if err != nil {
		return persistErr("create rating", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("create player", err)
	}
	return nil
}

// GetPlayer returns a player by id.
func (s *PostgresStore) GetPlayer(ctx context.Context, playerID string) (model.Player, error) {
	var p model.Player
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, country, session_id, is_active, created_at
		FROM players WHERE id = $1
	`, playerID).Scan(&p.ID, &p.Name, &p.Country, &p.SessionID, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, ErrNotFound
	}
	if err != nil {
		return model.Player{}, persistErr("get player", err)
	}
	return p, nil
}

// SetActive flips the soft-deactivation flag.
func (s *PostgresStore) SetActive(ctx context.Context, playerID string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE players SET is_active = $2 WHERE id = $1`, playerID, active)
	if err != nil {
		return persistErr("set active", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRating returns the current rating record.
func (s *PostgresStore) GetRating(ctx context.Context, playerID string) (model.PlayerRating, error) {
	var r model.PlayerRating
	err := s.db.QueryRowContext(ctx, `
		SELECT player_id, rating, peak_rating, lowest_rating, matches_played, wins, losses, draws, updated_at
		FROM player_ratings WHERE player_id = $1
	`, playerID).Scan(&r.PlayerID, &r.Rating, &r.PeakRating, &r.LowestRating,
		&r.MatchesPlayed, &r.Wins, &r.Losses, &r.Draws, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerRating{}, ErrNotFound
	}
	if err != nil {
		return model.PlayerRating{}, persistErr("get rating", err)
	}
	return r, nil
}

// ApplyMatch records the match and both rating updates in one transaction.
// Both rating rows are locked in id order before the apply callback runs,
// so concurrent results for an overlapping player serialize instead of
// losing an update. The duplicate check rides on the match_results primary
// key inside the same transaction.
func (s *PostgresStore) ApplyMatch(ctx context.Context, sub model.MatchSubmission, apply ApplyFunc) (model.MatchResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.MatchResult{}, persistErr("apply match", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// Lock in lexicographic order to avoid lock-order deadlocks.
	first, second := sub.PlayerA, sub.PlayerB
	if second < first {
		first, second = second, first
	}
	locked := map[string]model.PlayerRating{}
	for _, id := range []string{first, second} {
		var r model.PlayerRating
		err := tx.QueryRowContext(ctx, `
			SELECT player_id, rating, peak_rating, lowest_rating, matches_played, wins, losses, draws, updated_at
			FROM player_ratings WHERE player_id = $1 FOR UPDATE
		`, id).Scan(&r.PlayerID, &r.Rating, &r.PeakRating, &r.LowestRating,
			&r.MatchesPlayed, &r.Wins, &r.Losses, &r.Draws, &r.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return model.MatchResult{}, ErrNotFound
		}
		if err != nil {
			return model.MatchResult{}, persistErr("lock rating", err)
		}
		locked[id] = r
	}

	newA, newB, result, err := apply(locked[sub.PlayerA], locked[sub.PlayerB])
	if err != nil {
		return model.MatchResult{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_results (match_id, player_a, score_a, new_rating_a, player_b, score_b, new_rating_b, outcome_a, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, result.MatchID, result.PlayerA, result.ScoreA, result.NewRatingA,
		result.PlayerB, result.ScoreB, result.NewRatingB, string(result.OutcomeA), result.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.MatchResult{}, ErrDuplicateResult
		}
		return model.MatchResult{}, persistErr("record match", err)
	}

	for _, r := range []model.PlayerRating{newA, newB} {
		_, err = tx.ExecContext(ctx, `
			UPDATE player_ratings
			SET rating = $2, peak_rating = $3, lowest_rating = $4,
			    matches_played = $5, wins = $6, losses = $7, draws = $8, updated_at = $9
			WHERE player_id = $1
		`, r.PlayerID, r.Rating, r.PeakRating, r.LowestRating,
			r.MatchesPlayed, r.Wins, r.Losses, r.Draws, r.UpdatedAt)
		if err != nil {
			return model.MatchResult{}, persistErr("update rating", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.MatchResult{}, persistErr("apply match", err)
	}
	return result, nil
}

// History returns a player's results, most-recent-first.
func (s *PostgresStore) History(ctx context.Context, playerID string, limit int) ([]model.HistoricalResult, error) {
	query := `
		SELECT match_id, player_a, outcome_a, recorded_at
		FROM match_results
		WHERE player_a = $1 OR player_b = $1
		ORDER BY recorded_at DESC
	`
	args := []any{playerID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("history", err)
	}
	defer rows.Close()

	var out []model.HistoricalResult
	for rows.Next() {
		var (
			h        model.HistoricalResult
			playerA  string
			outcomeA string
		)
		if err := rows.Scan(&h.MatchID, &playerA, &outcomeA, &h.RecordedAt); err != nil {
			return nil, persistErr("history scan", err)
		}
		h.Outcome = model.Outcome(outcomeA)
		if playerA != playerID {
			h.Outcome = h.Outcome.Opposite()
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("history rows", err)
	}
	return out, nil
}

// ListActive returns the active population for a scope, unordered.
func (s *PostgresStore) ListActive(ctx context.Context, scope model.Scope, scopeKey string) ([]RatedPlayer, error) {
	query := `
		SELECT p.id, p.name, p.country, p.session_id, p.is_active, p.created_at,
		       r.rating, r.peak_rating, r.lowest_rating, r.matches_played, r.wins, r.losses, r.draws, r.updated_at
		FROM players p
		JOIN player_ratings r ON r.player_id = p.id
		WHERE p.is_active = TRUE
	`
	args := []any{}
	switch scope {
	case model.ScopeCountry:
		query += " AND p.country = $1"
		args = append(args, scopeKey)
	case model.ScopeSession:
		query += " AND p.session_id = $1"
		args = append(args, scopeKey)
	case model.ScopeGlobal:
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list active", err)
	}
	defer rows.Close()

	var out []RatedPlayer
	for rows.Next() {
		var rp RatedPlayer
		if err := rows.Scan(
			&rp.Player.ID, &rp.Player.Name, &rp.Player.Country, &rp.Player.SessionID,
			&rp.Player.IsActive, &rp.Player.CreatedAt,
			&rp.Rating.Rating, &rp.Rating.PeakRating, &rp.Rating.LowestRating,
			&rp.Rating.MatchesPlayed, &rp.Rating.Wins, &rp.Rating.Losses, &rp.Rating.Draws,
			&rp.Rating.UpdatedAt,
		); err != nil {
			return nil, persistErr("list active scan", err)
		}
		rp.Rating.PlayerID = rp.Player.ID
		out = append(out, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list active rows", err)
	}
	return out, nil
}

// ReplaceEntries deletes and re-inserts a scope's entry set in one tx, so
// readers only ever see a complete ranking.
func (s *PostgresStore) ReplaceEntries(ctx context.Context, scope model.Scope, scopeKey string, entries []model.LeaderboardEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("replace entries", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.ExecContext(ctx, `
		DELETE FROM leaderboard_entries WHERE scope = $1 AND scope_key = $2
	`, string(scope), scopeKey)
	if err != nil {
		return persistErr("clear entries", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leaderboard_entries
			(scope, scope_key, player_id, rank, previous_rank, rank_change,
			 rating, win_rate, current_streak, best_streak, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return persistErr("prepare entries", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			string(scope), scopeKey, e.PlayerID, e.Rank, e.PreviousRank, e.RankChange,
			e.Rating, e.WinRate, e.CurrentStreak, e.BestStreak, e.ComputedAt,
		); err != nil {
			return persistErr("insert entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr("replace entries", err)
	}
	return nil
}

// Entries returns one rank-ordered page plus the scope's total count.
func (s *PostgresStore) Entries(ctx context.Context, scope model.Scope, scopeKey string, offset, limit int) ([]model.LeaderboardEntry, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leaderboard_entries WHERE scope = $1 AND scope_key = $2
	`, string(scope), scopeKey).Scan(&total)
	if err != nil {
		return nil, 0, persistErr("count entries", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, rank, previous_rank, rank_change, rating, win_rate,
		       current_streak, best_streak, computed_at
		FROM leaderboard_entries
		WHERE scope = $1 AND scope_key = $2
		ORDER BY rank ASC
		LIMIT $3 OFFSET $4
	`, string(scope), scopeKey, limit, offset)
	if err != nil {
		return nil, 0, persistErr("entries", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows, scope, scopeKey)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Entry returns a single player's entry for a scope.
func (s *PostgresStore) Entry(ctx context.Context, playerID string, scope model.Scope, scopeKey string) (model.LeaderboardEntry, error) {
	var e model.LeaderboardEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT player_id, rank, previous_rank, rank_change, rating, win_rate,
		       current_streak, best_streak, computed_at
		FROM leaderboard_entries
		WHERE scope = $1 AND scope_key = $2 AND player_id = $3
	`, string(scope), scopeKey, playerID).Scan(
		&e.PlayerID, &e.Rank, &e.PreviousRank, &e.RankChange, &e.Rating,
		&e.WinRate, &e.CurrentStreak, &e.BestStreak, &e.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	if err != nil {
		return model.LeaderboardEntry{}, persistErr("entry", err)
	}
	e.Scope = scope
	e.ScopeKey = scopeKey
	return e, nil
}

// EntriesByRankRange returns entries with lo <= rank <= hi, in order.
func (s *PostgresStore) EntriesByRankRange(ctx context.Context, scope model.Scope, scopeKey string, lo, hi int) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, rank, previous_rank, rank_change, rating, win_rate,
		       current_streak, best_streak, computed_at
		FROM leaderboard_entries
		WHERE scope = $1 AND scope_key = $2 AND rank BETWEEN $3 AND $4
		ORDER BY rank ASC
	`, string(scope), scopeKey, lo, hi)
	if err != nil {
		return nil, persistErr("rank range", err)
	}
	defer rows.Close()

	return scanEntries(rows, scope, scopeKey)
}

// CountPlayers returns the number of registered players.
func (s *PostgresStore) CountPlayers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&n); err != nil {
		return 0, persistErr("count players", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows, scope model.Scope, scopeKey string) ([]model.LeaderboardEntry, error) {
	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(
			&e.PlayerID, &e.Rank, &e.PreviousRank, &e.RankChange, &e.Rating,
			&e.WinRate, &e.CurrentStreak, &e.BestStreak, &e.ComputedAt,
		); err != nil {
			return nil, persistErr("entry scan", err)
		}
		e.Scope = scope
		e.ScopeKey = scopeKey
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("entry rows", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
