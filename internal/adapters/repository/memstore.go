package repository

import (
	"context"
	"sync"
	"time"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// scopeRef identifies one leaderboard entry set.
type scopeRef struct {
	scope model.Scope
	key   string
}

// MemStore implements Store with mutex-guarded maps. It backs tests and
// cache-less development runs; a single lock around ApplyMatch gives the
// same serialization the SQL implementation gets from row locks.
type MemStore struct {
	mu         sync.RWMutex
	players    map[string]model.Player
	ratings    map[string]model.PlayerRating
	matches    map[string]model.MatchResult
	history    map[string][]model.HistoricalResult
	entries    map[scopeRef][]model.LeaderboardEntry
	entryByPID map[scopeRef]map[string]int
	historyCap int
}

// MemOption applies a configuration option to the MemStore.
type MemOption func(*MemStore)

// WithHistoryCap bounds the per-player history retained in memory.
// Zero or negative keeps everything.
func WithHistoryCap(n int) MemOption {
	return func(s *MemStore) {
		s.historyCap = n
	}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		players:    make(map[string]model.Player),
		ratings:    make(map[string]model.PlayerRating),
		matches:    make(map[string]model.MatchResult),
		history:    make(map[string][]model.HistoricalResult),
		entries:    make(map[scopeRef][]model.LeaderboardEntry),
		entryByPID: make(map[scopeRef]map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePlayer registers a player with an initial rating record.
func (s *MemStore) CreatePlayer(_ context.Context, p model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[p.ID]; exists {
		return ErrPlayerExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.players[p.ID] = p
	s.ratings[p.ID] = model.NewPlayerRating(p.ID)
	return nil
}

// GetPlayer returns a player by id.
func (s *MemStore) GetPlayer(_ context.Context, playerID string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[playerID]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

// SetActive flips the soft-deactivation flag.
func (s *MemStore) SetActive(_ context.Context, playerID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = active
	s.players[playerID] = p
	return nil
}

// GetRating returns the current rating record.
func (s *MemStore) GetRating(_ context.Context, playerID string) (model.PlayerRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.ratings[playerID]
	if !ok {
		return model.PlayerRating{}, ErrNotFound
	}
	return r, nil
}

// ApplyMatch records a match and both rating updates under one lock, which
// is this store's transaction boundary. The duplicate check and the writes
// are not separable.
func (s *MemStore) ApplyMatch(_ context.Context, sub model.MatchSubmission, apply ApplyFunc) (model.MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.matches[sub.MatchID]; seen {
		return model.MatchResult{}, ErrDuplicateResult
	}

	ratingA, ok := s.ratings[sub.PlayerA]
	if !ok {
		return model.MatchResult{}, ErrNotFound
	}
	ratingB, ok := s.ratings[sub.PlayerB]
	if !ok {
		return model.MatchResult{}, ErrNotFound
	}

	newA, newB, result, err := apply(ratingA, ratingB)
	if err != nil {
		return model.MatchResult{}, err
	}

	s.matches[sub.MatchID] = result
	s.ratings[sub.PlayerA] = newA
	s.ratings[sub.PlayerB] = newB
	s.prependHistory(sub.PlayerA, model.HistoricalResult{
		MatchID:    result.MatchID,
		Outcome:    result.OutcomeA,
		RecordedAt: result.RecordedAt,
	})
	s.prependHistory(sub.PlayerB, model.HistoricalResult{
		MatchID:    result.MatchID,
		Outcome:    result.OutcomeA.Opposite(),
		RecordedAt: result.RecordedAt,
	})
	return result, nil
}

func (s *MemStore) prependHistory(playerID string, r model.HistoricalResult) {
	h := append([]model.HistoricalResult{r}, s.history[playerID]...)
	if s.historyCap > 0 && len(h) > s.historyCap {
		h = h[:s.historyCap]
	}
	s.history[playerID] = h
}

// History returns a player's results, most-recent-first.
func (s *MemStore) History(_ context.Context, playerID string, limit int) ([]model.HistoricalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[playerID]
	if limit > 0 && limit < len(h) {
		h = h[:limit]
	}
	out := make([]model.HistoricalResult, len(h))
	copy(out, h)
	return out, nil
}

// ListActive returns the active population for a scope, unordered.
func (s *MemStore) ListActive(_ context.Context, scope model.Scope, scopeKey string) ([]RatedPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []RatedPlayer
	for id, p := range s.players {
		if !p.IsActive {
			continue
		}
		switch scope {
		case model.ScopeCountry:
			if p.Country != scopeKey {
				continue
			}
		case model.ScopeSession:
			if p.SessionID != scopeKey {
				continue
			}
		case model.ScopeGlobal:
			// everyone
		}
		out = append(out, RatedPlayer{Player: p, Rating: s.ratings[id]})
	}
	return out, nil
}

// ReplaceEntries atomically swaps a scope's full entry set.
func (s *MemStore) ReplaceEntries(_ context.Context, scope model.Scope, scopeKey string, entries []model.LeaderboardEntry) error {
	ref := scopeRef{scope: scope, key: scopeKey}

	copied := make([]model.LeaderboardEntry, len(entries))
	copy(copied, entries)
	index := make(map[string]int, len(copied))
	for i, e := range copied {
		index[e.PlayerID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[ref] = copied
	s.entryByPID[ref] = index
	return nil
}

// Entries returns one rank-ordered page plus the scope's total count.
func (s *MemStore) Entries(_ context.Context, scope model.Scope, scopeKey string, offset, limit int) ([]model.LeaderboardEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[scopeRef{scope: scope, key: scopeKey}]
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]model.LeaderboardEntry, end-offset)
	copy(out, all[offset:end])
	return out, total, nil
}

// Entry returns a single player's entry for a scope.
func (s *MemStore) Entry(_ context.Context, playerID string, scope model.Scope, scopeKey string) (model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref := scopeRef{scope: scope, key: scopeKey}
	idx, ok := s.entryByPID[ref][playerID]
	if !ok {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	return s.entries[ref][idx], nil
}

// EntriesByRankRange returns entries with lo <= rank <= hi.
func (s *MemStore) EntriesByRankRange(_ context.Context, scope model.Scope, scopeKey string, lo, hi int) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[scopeRef{scope: scope, key: scopeKey}]
	if lo < 1 {
		lo = 1
	}
	if hi > len(all) {
		hi = len(all)
	}
	if lo > hi {
		return nil, nil
	}
	// Entries are rank-ordered, rank r lives at index r-1.
	out := make([]model.LeaderboardEntry, hi-lo+1)
	copy(out, all[lo-1:hi])
	return out, nil
}

// CountPlayers returns the number of registered players.
func (s *MemStore) CountPlayers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), nil
}
