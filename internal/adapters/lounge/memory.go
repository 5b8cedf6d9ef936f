package lounge

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mogibot/penalty/internal/domain/model"
)

// PenaltyCall records one ApplyPenalty invocation against the in-memory
// backend, kept for inspection in tests and local development.
type PenaltyCall struct {
	Params PenaltyParams
	IDs    []*int64
}

// Memory implements Client entirely in memory. It backs tests and local
// development runs where no lounge website is reachable.
type Memory struct {
	mu sync.Mutex

	tables  map[int64]model.Table
	players map[int64]model.Player

	requests      map[int64]model.PenaltyRequest
	nextRequestID int64
	nextPenaltyID int64

	// Multipliers holds the last multiplier written per table per player.
	Multipliers map[int64]map[string]float64

	// MultiplierCalls counts SetMultipliers invocations per table.
	MultiplierCalls map[int64]int

	// PenaltyCalls records every ApplyPenalty invocation in order.
	PenaltyCalls []PenaltyCall

	// FailPenaltyFor makes ApplyPenalty yield a nil id for these names.
	FailPenaltyFor map[string]bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		tables:          make(map[int64]model.Table),
		players:         make(map[int64]model.Player),
		requests:        make(map[int64]model.PenaltyRequest),
		nextRequestID:   1,
		nextPenaltyID:   1000,
		Multipliers:     make(map[int64]map[string]float64),
		MultiplierCalls: make(map[int64]int),
		FailPenaltyFor:  make(map[string]bool),
	}
}

// PutTable seeds or replaces a table.
func (m *Memory) PutTable(t model.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.ID] = t
}

// VerifyTable marks a seeded table as verified now.
func (m *Memory) VerifyTable(tableID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		return
	}
	now := time.Now()
	t.VerifiedOn = &now
	m.tables[tableID] = t
}

// PutPlayer seeds or replaces a player.
func (m *Memory) PutPlayer(p model.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = p
}

// GetTable implements TableService.
func (m *Memory) GetTable(ctx context.Context, tableID int64) (model.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		return model.Table{}, ErrNotFound
	}
	return t, nil
}

// GetPlayer implements PlayerService.
func (m *Memory) GetPlayer(ctx context.Context, name string) (model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return model.Player{}, ErrNotFound
}

// GetPlayerByID implements PlayerService.
func (m *Memory) GetPlayerByID(ctx context.Context, id int64) (model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

// GetPlayerByDiscord implements PlayerService.
func (m *Memory) GetPlayerByDiscord(ctx context.Context, discordID string) (model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.DiscordID == discordID {
			return p, nil
		}
	}
	return model.Player{}, ErrNotFound
}

// CreateRequest implements RequestStore.
func (m *Memory) CreateRequest(ctx context.Context, p CreateRequestParams) (model.PenaltyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reporterID, playerID int64
	for _, pl := range m.players {
		if strings.EqualFold(pl.Name, p.ReporterName) {
			reporterID = pl.ID
		}
		if strings.EqualFold(pl.Name, p.PlayerName) {
			playerID = pl.ID
		}
	}

	req := model.PenaltyRequest{
		ID:            m.nextRequestID,
		KindName:      p.KindName,
		LeaderboardID: p.LeaderboardID,
		TableID:       p.TableID,
		Count:         p.Count,
		ReporterID:    reporterID,
		ReporterName:  p.ReporterName,
		PlayerID:      playerID,
		PlayerName:    p.PlayerName,
		CreatedAt:     time.Now(),
	}
	m.nextRequestID++
	m.requests[req.ID] = req
	return req, nil
}

// GetRequest implements RequestStore.
func (m *Memory) GetRequest(ctx context.Context, id int64) (model.PenaltyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return model.PenaltyRequest{}, ErrNotFound
	}
	return req, nil
}

// ListPending implements RequestStore.
func (m *Memory) ListPending(ctx context.Context, leaderboardID string) ([]model.PenaltyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PenaltyRequest, 0, len(m.requests))
	for _, req := range m.requests {
		if leaderboardID == "" || req.LeaderboardID == leaderboardID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteRequest implements RequestStore.
func (m *Memory) DeleteRequest(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return ErrNotFound
	}
	delete(m.requests, id)
	return nil
}

// ApplyPenalty implements PenaltyService.
func (m *Memory) ApplyPenalty(ctx context.Context, p PenaltyParams) ([]*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]*int64, 0, len(p.PlayerNames))
	for _, name := range p.PlayerNames {
		if m.FailPenaltyFor[name] {
			ids = append(ids, nil)
			continue
		}
		id := m.nextPenaltyID
		m.nextPenaltyID++
		ids = append(ids, &id)
	}
	m.PenaltyCalls = append(m.PenaltyCalls, PenaltyCall{Params: p, IDs: ids})
	return ids, nil
}

// SetMultipliers implements MultiplierService.
func (m *Memory) SetMultipliers(ctx context.Context, tableID int64, multipliers map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[tableID]; !ok {
		return ErrNotFound
	}
	current, ok := m.Multipliers[tableID]
	if !ok {
		current = make(map[string]float64)
		m.Multipliers[tableID] = current
	}
	for name, mult := range multipliers {
		current[name] = mult
	}
	m.MultiplierCalls[tableID]++
	return nil
}
