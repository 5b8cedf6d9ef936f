// Package lounge abstracts the remote leaderboard ("lounge") API that
// owns tables, players, penalty requests, and penalties. This engine only
// reads and writes through these interfaces; it never stores any of that
// state itself.
package lounge

import (
	"context"

	"github.com/mogibot/penalty/internal/domain/model"
)

// TableService reads table state.
type TableService interface {
	GetTable(ctx context.Context, tableID int64) (model.Table, error)
}

// PlayerService reads player identities.
type PlayerService interface {
	GetPlayer(ctx context.Context, name string) (model.Player, error)
	GetPlayerByID(ctx context.Context, id int64) (model.Player, error)
	GetPlayerByDiscord(ctx context.Context, discordID string) (model.Player, error)
}

// CreateRequestParams carries the fields persisted for a new report.
type CreateRequestParams struct {
	KindName      string
	LeaderboardID string
	TableID       int64
	Count         int
	PlayerName    string
	ReporterName  string
}

// RequestStore persists pending penalty requests. The pending set lives
// upstream; this engine treats it as the single source of truth.
type RequestStore interface {
	CreateRequest(ctx context.Context, p CreateRequestParams) (model.PenaltyRequest, error)
	GetRequest(ctx context.Context, id int64) (model.PenaltyRequest, error)
	ListPending(ctx context.Context, leaderboardID string) ([]model.PenaltyRequest, error)
	DeleteRequest(ctx context.Context, id int64) error
}

// PenaltyParams carries one penalty application.
type PenaltyParams struct {
	Amount      int
	Tier        string
	PlayerNames []string
	Reason      string
	TableID     int64
	IsAnonymous bool
	IsStrike    bool
}

// PenaltyService applies penalties downstream. The result holds one entry
// per player; a nil entry is a per-player failure the caller must treat
// as a partial application.
type PenaltyService interface {
	ApplyPenalty(ctx context.Context, p PenaltyParams) ([]*int64, error)
}

// MultiplierService writes per-player score multipliers for a table.
type MultiplierService interface {
	SetMultipliers(ctx context.Context, tableID int64, multipliers map[string]float64) error
}

// Client bundles every consumed lounge interface.
type Client interface {
	TableService
	PlayerService
	RequestStore
	PenaltyService
	MultiplierService
}
