package multiplier

import (
	"context"
	"fmt"
	"strings"

	"github.com/mogibot/penalty/internal/domain/catalog"
	"github.com/mogibot/penalty/internal/domain/model"
	"github.com/mogibot/penalty/pkg/logger"
	"github.com/mogibot/penalty/pkg/metrics"
)

// TableGetter fetches the current state of a table from the external API.
type TableGetter interface {
	GetTable(ctx context.Context, tableID int64) (model.Table, error)
}

// MultiplierSetter writes per-player multipliers for a table.
type MultiplierSetter interface {
	SetMultipliers(ctx context.Context, tableID int64, multipliers map[string]float64) error
}

// LockChecker reports whether automatic multiplier edits are currently
// forbidden for a table/leaderboard pair.
type LockChecker interface {
	Locked(leaderboardID string, tableID int64) bool
}

// Classifier resolves kind names so the engine can recognize drop-family
// requests in the pending set.
type Classifier interface {
	Classify(name string) (catalog.Kind, error)
}

// Engine keeps teammate multipliers consistent with the union of pending
// drop requests per team per table. Application is idempotent per team,
// not per request; removal only resets a team once nothing in the pending
// set still justifies the correction.
type Engine struct {
	tables TableGetter
	setter MultiplierSetter
	locks  LockChecker
	kinds  Classifier
	policy *Policy
	logger logger.Logger
}

// EngineOption applies a configuration option to the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a reconciliation engine.
func NewEngine(tables TableGetter, setter MultiplierSetter, locks LockChecker, kinds Classifier, policy *Policy, opts ...EngineOption) *Engine {
	e := &Engine{
		tables: tables,
		setter: setter,
		locks:  locks,
		kinds:  kinds,
		policy: policy,
		logger: logger.Get().Named("reconcile"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// isDrop reports whether a pending request belongs to the drop family.
// Unknown kinds in the pending set are treated as non-drop and skipped.
func (e *Engine) isDrop(kindName string) bool {
	k, err := e.kinds.Classify(kindName)
	return err == nil && k.Family == model.FamilyDrop
}

// teamCovered reports whether any other pending drop request targets the
// same team on the same table as req. Only requests whose count warrants
// a correction count as coverage; a drop below the threshold never
// applied one, so it cannot stand in for one.
func (e *Engine) teamCovered(table *model.Table, req model.PenaltyRequest, pending []model.PenaltyRequest) bool {
	for _, other := range pending {
		if other.ID == req.ID || other.TableID != req.TableID {
			continue
		}
		if !e.isDrop(other.KindName) || !e.policy.Warranted(other.Count) {
			continue
		}
		if table.SameTeam(req.PlayerName, other.PlayerName) {
			return true
		}
	}
	return false
}

// Apply computes and sets the corrective multiplier owed for a new
// drop-family request, unless another pending request already covers the
// team or the table is locked.
func (e *Engine) Apply(ctx context.Context, req model.PenaltyRequest, pending []model.PenaltyRequest) error {
	if !e.policy.Warranted(req.Count) {
		return nil
	}
	if e.locks.Locked(req.LeaderboardID, req.TableID) {
		metrics.RecordMultiplierSkip()
		e.logger.Debug(ctx, "table locked, skipping multiplier application",
			logger.Int64("tableID", req.TableID),
			logger.String("leaderboardID", req.LeaderboardID),
		)
		return nil
	}

	table, err := e.tables.GetTable(ctx, req.TableID)
	if err != nil {
		return fmt.Errorf("fetch table %d: %w", req.TableID, err)
	}
	// The table fetch is a suspension point; another command may have
	// locked the table meanwhile. Re-validate before mutating anything.
	if e.locks.Locked(req.LeaderboardID, req.TableID) {
		metrics.RecordMultiplierSkip()
		return nil
	}

	team := table.Team(req.PlayerName)
	if team == nil {
		return fmt.Errorf("player %q not on table %d: %w", req.PlayerName, req.TableID, ErrPlayerNotOnTable)
	}
	if e.teamCovered(&table, req, pending) {
		metrics.RecordMultiplierSkip()
		e.logger.Debug(ctx, "team already covered by a pending drop request",
			logger.Int64("tableID", req.TableID),
			logger.String("player", req.PlayerName),
		)
		return nil
	}

	mult := e.policy.Compute(req.Count)
	updates := teammateMultipliers(team, req.PlayerName, mult)
	if len(updates) == 0 {
		return nil
	}
	if err := e.setter.SetMultipliers(ctx, req.TableID, updates); err != nil {
		return fmt.Errorf("set multipliers for table %d: %w", req.TableID, err)
	}

	metrics.RecordMultiplierApplication()
	e.logger.Info(ctx, "applied corrective multiplier",
		logger.Int64("tableID", req.TableID),
		logger.String("player", req.PlayerName),
		logger.Int("racesPlayedAlone", req.Count),
		logger.Float64("multiplier", mult),
	)
	return nil
}

// Remove resets the team's multipliers to 1.0 after a refusal, but only
// when no other pending drop request for the table still covers the team.
func (e *Engine) Remove(ctx context.Context, req model.PenaltyRequest, pending []model.PenaltyRequest) error {
	if !e.policy.Warranted(req.Count) {
		return nil
	}
	if e.locks.Locked(req.LeaderboardID, req.TableID) {
		metrics.RecordMultiplierSkip()
		return nil
	}

	table, err := e.tables.GetTable(ctx, req.TableID)
	if err != nil {
		return fmt.Errorf("fetch table %d: %w", req.TableID, err)
	}
	if e.locks.Locked(req.LeaderboardID, req.TableID) {
		metrics.RecordMultiplierSkip()
		return nil
	}

	team := table.Team(req.PlayerName)
	if team == nil {
		return fmt.Errorf("player %q not on table %d: %w", req.PlayerName, req.TableID, ErrPlayerNotOnTable)
	}
	if e.teamCovered(&table, req, pending) {
		// Another pending report still justifies the correction.
		metrics.RecordMultiplierSkip()
		return nil
	}

	updates := make(map[string]float64, len(team.Scores))
	for i := range team.Scores {
		updates[team.Scores[i].Player.Name] = 1.0
	}
	if err := e.setter.SetMultipliers(ctx, req.TableID, updates); err != nil {
		return fmt.Errorf("reset multipliers for table %d: %w", req.TableID, err)
	}

	metrics.RecordMultiplierRollback()
	e.logger.Info(ctx, "rolled back corrective multiplier",
		logger.Int64("tableID", req.TableID),
		logger.String("player", req.PlayerName),
	)
	return nil
}

// teammateMultipliers builds the update map for everyone on the team
// except the affected player themself.
func teammateMultipliers(team *model.Team, playerName string, mult float64) map[string]float64 {
	updates := make(map[string]float64, len(team.Scores))
	for i := range team.Scores {
		name := team.Scores[i].Player.Name
		if strings.EqualFold(name, playerName) {
			continue
		}
		updates[name] = mult
	}
	return updates
}
