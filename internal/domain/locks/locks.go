// Package locks tracks table/leaderboard pairs that are forbidden from
// further automatic multiplier edits because an approved drop request is
// waiting for the table to be verified upstream.
package locks

import (
	"context"
	"fmt"
	"sync"

	"github.com/mogibot/penalty/internal/domain/model"
	"github.com/mogibot/penalty/pkg/logger"
	"github.com/mogibot/penalty/pkg/metrics"
)

// TableGetter fetches the current state of a table from the external API.
type TableGetter interface {
	GetTable(ctx context.Context, tableID int64) (model.Table, error)
}

// entry is one locked table/leaderboard pair.
type entry struct {
	leaderboardID string
	tableID       int64
}

// Store is the multiplier lock set. A pair appears at most once.
// All mutation is guarded by a single mutex; callers that interleave a
// lock check with an external call must re-check after the call returns.
type Store struct {
	mu      sync.RWMutex
	entries map[entry]struct{}

	tables TableGetter
	logger logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates an empty lock store.
func NewStore(tables TableGetter, opts ...Option) *Store {
	s := &Store{
		entries: make(map[entry]struct{}),
		tables:  tables,
		logger:  logger.Get().Named("locks"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add registers a lock for the pair. Returns false if it was already held.
func (s *Store) Add(leaderboardID string, tableID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{leaderboardID: leaderboardID, tableID: tableID}
	if _, exists := s.entries[e]; exists {
		return false
	}
	s.entries[e] = struct{}{}
	metrics.UpdateActiveLocks(len(s.entries))
	return true
}

// Locked reports whether the pair is currently locked.
func (s *Store) Locked(leaderboardID string, tableID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.entries[entry{leaderboardID: leaderboardID, tableID: tableID}]
	return exists
}

// Clear removes every lock held for the leaderboard and returns the count.
func (s *Store) Clear(leaderboardID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for e := range s.entries {
		if e.leaderboardID == leaderboardID {
			delete(s.entries, e)
			cleared++
		}
	}
	metrics.UpdateActiveLocks(len(s.entries))
	return cleared
}

// Count returns the number of locks currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// highestLocked returns the highest locked table id for the leaderboard,
// or false when the leaderboard holds no locks.
func (s *Store) highestLocked(leaderboardID string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	found := false
	for e := range s.entries {
		if e.leaderboardID != leaderboardID {
			continue
		}
		if !found || e.tableID > max {
			max = e.tableID
			found = true
		}
	}
	return max, found
}

// CheckAndClear looks up the highest locked table for the leaderboard and,
// if the external system has verified it, clears every lock held for that
// leaderboard in one pass. Verification is monotonic in table id for a
// leaderboard's processing order, so one verified table frees the rest.
// Returns the number of cleared entries.
func (s *Store) CheckAndClear(ctx context.Context, leaderboardID string) (int, error) {
	tableID, ok := s.highestLocked(leaderboardID)
	if !ok {
		return 0, nil
	}

	table, err := s.tables.GetTable(ctx, tableID)
	if err != nil {
		return 0, fmt.Errorf("fetch table %d: %w", tableID, err)
	}
	if !table.Verified() {
		return 0, nil
	}

	cleared := s.Clear(leaderboardID)
	if cleared > 0 {
		metrics.RecordLocksCleared(cleared)
		s.logger.Info(ctx, "cleared multiplier locks after verification",
			logger.String("leaderboardID", leaderboardID),
			logger.Int64("tableID", tableID),
			logger.Int("cleared", cleared),
		)
	}
	return cleared, nil
}
