// Package workflow implements the penalty request lifecycle: intake
// validation, the Pending -> Approved/Refused state machine, and the
// side effects each transition owes (penalty application, multiplier
// reconciliation, multiplier locks).
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mogibot/penalty/internal/adapters/lounge"
	"github.com/mogibot/penalty/internal/domain/catalog"
	"github.com/mogibot/penalty/internal/domain/locks"
	"github.com/mogibot/penalty/internal/domain/model"
	"github.com/mogibot/penalty/internal/domain/multiplier"
	"github.com/mogibot/penalty/pkg/logger"
	"github.com/mogibot/penalty/pkg/metrics"
)

// Count bounds per kind family.
const (
	maxRacesPlayedAlone = 12
	minRepicks          = 1
	maxRepicks          = 11
)

// Actor identifies who performs an operation. Staff actors bypass the
// participant and author checks and may resolve any request.
type Actor struct {
	ID        int64
	DiscordID string
	Name      string
	IsStaff   bool
}

// SubmitParams carries a new incident report.
type SubmitParams struct {
	KindName      string
	LeaderboardID string
	TableID       int64
	PlayerName    string
	Count         int
	Reporter      Actor
}

// Outcome summarizes one resolved request for the caller.
type Outcome struct {
	RequestID  int64
	Status     string // "accepted", "refused", or "error"
	PenaltyIDs []*int64
	Summary    string
}

// Workflow drives every state transition of a penalty request. All
// mutation of the pending set and the lock set funnels through here.
type Workflow struct {
	client  lounge.Client
	catalog *catalog.Catalog
	engine  *multiplier.Engine
	locks   *locks.Store
	logger  logger.Logger
}

// Option applies a configuration option to the Workflow.
type Option func(*Workflow)

// WithLogger sets a custom logger for the workflow.
func WithLogger(l logger.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a workflow over the given collaborators.
func New(client lounge.Client, cat *catalog.Catalog, eng *multiplier.Engine, lockStore *locks.Store, opts ...Option) *Workflow {
	w := &Workflow{
		client:  client,
		catalog: cat,
		engine:  eng,
		locks:   lockStore,
		logger:  logger.Get().Named("workflow"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Submit validates and persists a new penalty request. For drop-family
// kinds it then reconciles teammate multipliers against the pending set.
// The returned request is persisted even when reconciliation fails; such
// failures come back as the error alongside the created request.
func (w *Workflow) Submit(ctx context.Context, p SubmitParams) (model.PenaltyRequest, error) {
	// An inbound request is a natural moment to free locks whose table
	// has been verified since the last sweep.
	if _, err := w.locks.CheckAndClear(ctx, p.LeaderboardID); err != nil {
		w.logger.Warn(ctx, "lock sweep failed",
			logger.String("leaderboardID", p.LeaderboardID),
			logger.Error(err),
		)
	}

	kind, err := w.catalog.Classify(p.KindName)
	if err != nil {
		metrics.RecordRequestRejected()
		return model.PenaltyRequest{}, err
	}

	table, err := w.client.GetTable(ctx, p.TableID)
	if err != nil {
		metrics.RecordRequestRejected()
		if errors.Is(err, lounge.ErrNotFound) {
			return model.PenaltyRequest{}, fmt.Errorf("table %d: %w", p.TableID, ErrTableNotFound)
		}
		return model.PenaltyRequest{}, fmt.Errorf("fetch table %d: %w", p.TableID, err)
	}

	player, err := w.client.GetPlayer(ctx, p.PlayerName)
	if err != nil {
		metrics.RecordRequestRejected()
		if errors.Is(err, lounge.ErrNotFound) {
			return model.PenaltyRequest{}, fmt.Errorf("player %q: %w", p.PlayerName, ErrPlayerNotFound)
		}
		return model.PenaltyRequest{}, fmt.Errorf("fetch player %q: %w", p.PlayerName, err)
	}

	if !p.Reporter.IsStaff && table.ScoreByDiscord(p.Reporter.DiscordID) == nil {
		metrics.RecordRequestRejected()
		return model.PenaltyRequest{}, ErrNotAParticipant
	}

	// An omitted count means a single repick.
	if p.Count == 0 && kind.Family == model.FamilyRepick {
		p.Count = minRepicks
	}

	if err := validateCount(kind, p.Count); err != nil {
		metrics.RecordRequestRejected()
		return model.PenaltyRequest{}, err
	}

	if kind.AuthorOnly && !p.Reporter.IsStaff {
		reporterIsAuthor := p.Reporter.DiscordID != "" && p.Reporter.DiscordID == table.AuthorID
		reportedIsAuthor := player.DiscordID != "" && player.DiscordID == table.AuthorID
		if !reporterIsAuthor && !reportedIsAuthor {
			metrics.RecordRequestRejected()
			return model.PenaltyRequest{}, fmt.Errorf("kind %q is restricted to the table author: %w", kind.Name, ErrNotAuthorized)
		}
	}

	req, err := w.client.CreateRequest(ctx, lounge.CreateRequestParams{
		KindName:      kind.Name,
		LeaderboardID: p.LeaderboardID,
		TableID:       p.TableID,
		Count:         p.Count,
		PlayerName:    player.Name,
		ReporterName:  p.Reporter.Name,
	})
	if err != nil {
		return model.PenaltyRequest{}, fmt.Errorf("persist request: %w", err)
	}
	metrics.RecordRequestSubmitted()
	w.logger.Info(ctx, "penalty request submitted",
		logger.Int64("requestID", req.ID),
		logger.String("kind", kind.Name),
		logger.Int64("tableID", req.TableID),
		logger.String("player", req.PlayerName),
	)

	if kind.Family == model.FamilyDrop {
		pending, err := w.client.ListPending(ctx, p.LeaderboardID)
		if err != nil {
			return req, fmt.Errorf("list pending requests: %w", err)
		}
		if err := w.engine.Apply(ctx, req, pending); err != nil {
			metrics.RecordErrorByComponent("workflow", "reconcile_error")
			return req, fmt.Errorf("reconcile multipliers: %w", err)
		}
	}
	return req, nil
}

// validateCount enforces the per-family numeric bounds.
func validateCount(kind catalog.Kind, count int) error {
	switch kind.Family {
	case model.FamilyRepick:
		if count < minRepicks || count > maxRepicks {
			return fmt.Errorf("repick count %d outside [%d, %d]: %w", count, minRepicks, maxRepicks, ErrInvalidCount)
		}
	case model.FamilyDrop:
		if count < 0 || count > maxRacesPlayedAlone {
			return fmt.Errorf("races played alone %d outside [0, %d]: %w", count, maxRacesPlayedAlone, ErrInvalidCount)
		}
		if count < kind.MinCount {
			return fmt.Errorf("count %d below minimum %d for kind %q: %w", count, kind.MinCount, kind.Name, ErrCountBelowThreshold)
		}
	}
	return nil
}

// Approve resolves a pending request by applying its penalty downstream.
// The request leaves the pending set once the penalty calls have been
// dispatched, even when some of them failed; partial failures surface as
// an "error" outcome carrying the ids that did apply.
func (w *Workflow) Approve(ctx context.Context, actor Actor, requestID int64) (Outcome, error) {
	req, err := w.client.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, lounge.ErrNotFound) {
			metrics.RecordRequestStale()
			return Outcome{RequestID: requestID}, ErrAlreadyHandled
		}
		return Outcome{RequestID: requestID}, fmt.Errorf("fetch request %d: %w", requestID, err)
	}

	kind, err := w.catalog.Classify(req.KindName)
	if err != nil {
		return Outcome{RequestID: requestID}, fmt.Errorf("request %d kind %q: %w", requestID, req.KindName, err)
	}

	table, err := w.client.GetTable(ctx, req.TableID)
	if err != nil {
		return Outcome{RequestID: requestID}, fmt.Errorf("fetch table %d: %w", req.TableID, err)
	}

	// Names drift between submission and approval; penalize the current one.
	playerName := req.PlayerName
	if player, err := w.client.GetPlayerByID(ctx, req.PlayerID); err == nil {
		playerName = player.Name
	}

	// The lock must exist before the penalty call suspends, so that no
	// reconciliation sneaks in while the approval is in flight.
	if kind.Family == model.FamilyDrop {
		w.locks.Add(req.LeaderboardID, req.TableID)
	}

	ids, applyErr := w.applyPenalties(ctx, kind, req, table.Tier, playerName)

	if err := w.client.DeleteRequest(ctx, req.ID); err != nil && !errors.Is(err, lounge.ErrNotFound) {
		w.logger.Error(ctx, "failed to remove resolved request",
			logger.Int64("requestID", req.ID),
			logger.Error(err),
		)
	}
	metrics.RecordRequestApproved()

	out := Outcome{RequestID: req.ID, PenaltyIDs: ids}
	if applyErr != nil {
		out.Status = "error"
		out.Summary = fmt.Sprintf("approved %q for %s with errors: %v", kind.Name, playerName, applyErr)
		w.logger.Error(ctx, "penalty application failed",
			logger.Int64("requestID", req.ID),
			logger.String("actor", actor.Name),
			logger.Error(applyErr),
		)
		return out, applyErr
	}
	out.Status = "accepted"
	out.Summary = fmt.Sprintf("approved %q for %s (%d penalty point deduction)", kind.Name, playerName, kind.BaseAmount*len(ids))
	w.logger.Info(ctx, "penalty request approved",
		logger.Int64("requestID", req.ID),
		logger.String("actor", actor.Name),
		logger.String("kind", kind.Name),
		logger.Int("penalties", len(ids)),
	)
	return out, nil
}

// applyPenalties dispatches the downstream penalty calls a kind owes.
// Repick escalates: one call per repicked race, the first without strike.
func (w *Workflow) applyPenalties(ctx context.Context, kind catalog.Kind, req model.PenaltyRequest, tier, playerName string) ([]*int64, error) {
	calls := 1
	if kind.Family == model.FamilyRepick {
		calls = req.Count
	}

	ids := make([]*int64, 0, calls)
	failed := false
	for i := 0; i < calls; i++ {
		isStrike := kind.IsStrike
		if kind.Family == model.FamilyRepick {
			isStrike = i > 0
		}
		res, err := w.client.ApplyPenalty(ctx, lounge.PenaltyParams{
			Amount:      kind.BaseAmount,
			Tier:        tier,
			PlayerNames: []string{playerName},
			Reason:      kind.Name,
			TableID:     req.TableID,
			IsAnonymous: true,
			IsStrike:    isStrike,
		})
		if err != nil {
			metrics.RecordPenaltyError()
			ids = append(ids, nil)
			failed = true
			continue
		}
		for _, id := range res {
			if id == nil {
				metrics.RecordPenaltyError()
				failed = true
			} else {
				metrics.RecordPenaltyApplied()
			}
			ids = append(ids, id)
		}
	}
	if failed {
		return ids, &PartialApplicationError{IDs: ids}
	}
	return ids, nil
}

// Refuse resolves a pending request without penalties and rolls back any
// multiplier correction the request alone justified. The original
// reporter may refuse their own request, except a drop-family request
// whose table is already verified; staff may always refuse.
func (w *Workflow) Refuse(ctx context.Context, actor Actor, requestID int64) (Outcome, error) {
	req, err := w.client.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, lounge.ErrNotFound) {
			metrics.RecordRequestStale()
			return Outcome{RequestID: requestID}, ErrAlreadyHandled
		}
		return Outcome{RequestID: requestID}, fmt.Errorf("fetch request %d: %w", requestID, err)
	}

	if !actor.IsStaff && actor.ID != req.ReporterID {
		return Outcome{RequestID: requestID}, ErrNotAuthorized
	}

	kind, err := w.catalog.Classify(req.KindName)
	if err != nil {
		return Outcome{RequestID: requestID}, fmt.Errorf("request %d kind %q: %w", requestID, req.KindName, err)
	}

	if kind.Family == model.FamilyDrop && !actor.IsStaff {
		table, err := w.client.GetTable(ctx, req.TableID)
		if err != nil {
			return Outcome{RequestID: requestID}, fmt.Errorf("fetch table %d: %w", req.TableID, err)
		}
		// A reporter cannot retract a correction once the result is final.
		if table.Verified() {
			return Outcome{RequestID: requestID}, fmt.Errorf("table %d already verified: %w", req.TableID, ErrNotAuthorized)
		}
	}

	if err := w.client.DeleteRequest(ctx, req.ID); err != nil {
		if errors.Is(err, lounge.ErrNotFound) {
			metrics.RecordRequestStale()
			return Outcome{RequestID: requestID}, ErrAlreadyHandled
		}
		return Outcome{RequestID: requestID}, fmt.Errorf("remove request %d: %w", req.ID, err)
	}
	metrics.RecordRequestRefused()

	if kind.Family == model.FamilyDrop {
		pending, err := w.client.ListPending(ctx, req.LeaderboardID)
		if err != nil {
			return Outcome{RequestID: req.ID, Status: "error"}, fmt.Errorf("list pending requests: %w", err)
		}
		if err := w.engine.Remove(ctx, req, pending); err != nil {
			metrics.RecordErrorByComponent("workflow", "rollback_error")
			return Outcome{RequestID: req.ID, Status: "error"}, fmt.Errorf("roll back multipliers: %w", err)
		}
	}

	w.logger.Info(ctx, "penalty request refused",
		logger.Int64("requestID", req.ID),
		logger.String("actor", actor.Name),
		logger.String("kind", kind.Name),
	)
	return Outcome{
		RequestID: req.ID,
		Status:    "refused",
		Summary:   fmt.Sprintf("refused %q for %s", kind.Name, req.PlayerName),
	}, nil
}

// ApproveAll approves every pending request for the leaderboard in id
// order, reporting per-item outcomes. Items resolved concurrently are
// reported as already handled; one failure does not stop the batch.
func (w *Workflow) ApproveAll(ctx context.Context, actor Actor, leaderboardID string) ([]Outcome, error) {
	pending, err := w.client.ListPending(ctx, leaderboardID)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}

	outcomes := make([]Outcome, 0, len(pending))
	for _, req := range pending {
		out, err := w.Approve(ctx, actor, req.ID)
		if err != nil && out.Status == "" {
			out.Status = "error"
			out.Summary = err.Error()
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// ListPending returns the unresolved requests for a leaderboard, sorted
// by table id so co-occurring reports about one match sit together.
func (w *Workflow) ListPending(ctx context.Context, leaderboardID string) ([]model.PenaltyRequest, error) {
	pending, err := w.client.ListPending(ctx, leaderboardID)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].TableID != pending[j].TableID {
			return pending[i].TableID < pending[j].TableID
		}
		return pending[i].ID < pending[j].ID
	})
	return pending, nil
}
