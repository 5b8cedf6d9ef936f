// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	cmdqueue "github.com/mogibot/penalty/internal/adapters/mq/queue"
	dispatch "github.com/mogibot/penalty/internal/adapters/mq/worker"
	"github.com/mogibot/penalty/internal/domain/catalog"
	"github.com/mogibot/penalty/internal/domain/locks"
	"github.com/mogibot/penalty/internal/domain/model"
	"github.com/mogibot/penalty/internal/domain/multiplier"
	"github.com/mogibot/penalty/internal/workflow"
	"github.com/mogibot/penalty/pkg/logger"
	"github.com/mogibot/penalty/pkg/metrics"

	"github.com/mogibot/penalty/internal/adapters/lounge"
)

// Default service configuration constants.
const (
	defaultQueueSize     = 1024
	defaultSweepInterval = time.Minute
)

// Service wires the penalty engine together: lounge client, kind
// catalog, multiplier policy, lock store, workflow, and the command
// queue with its single dispatcher.
type Service struct {
	mu sync.RWMutex

	// Core components
	client   lounge.Client
	catalog  *catalog.Catalog
	policy   *multiplier.Policy
	engine   *multiplier.Engine
	locks    *locks.Store
	workflow *workflow.Workflow
	cmdQueue cmdqueue.Queue
	dispatch *dispatch.Dispatcher

	// Configuration
	queueSize      int
	minMissedRaces int
	noLossRaces    int
	leaderboards   []string
	sweepInterval  time.Duration
	kindAmounts    map[string]int
	kindAliases    map[string]string

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClient sets the lounge backend. Defaults to the in-memory one.
func WithClient(c lounge.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithQueueSize sets the maximum size of the command queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithThresholds sets the multiplier policy thresholds.
func WithThresholds(minMissedRaces, noLossRaces int) Option {
	return func(s *Service) {
		if minMissedRaces > 0 && noLossRaces > minMissedRaces {
			s.minMissedRaces = minMissedRaces
			s.noLossRaces = noLossRaces
		}
	}
}

// WithLeaderboards sets the leaderboards swept for verified tables.
func WithLeaderboards(ids []string) Option {
	return func(s *Service) {
		if len(ids) > 0 {
			s.leaderboards = ids
		}
	}
}

// WithLockSweepInterval sets the period of the lock sweep loop.
// Zero or negative disables the sweep.
func WithLockSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		s.sweepInterval = d
	}
}

// WithKindAmounts overrides penalty base amounts per kind name.
func WithKindAmounts(amounts map[string]int) Option {
	return func(s *Service) {
		s.kindAmounts = amounts
	}
}

// WithKindAliases registers alternate kind names.
func WithKindAliases(aliases map[string]string) Option {
	return func(s *Service) {
		s.kindAliases = aliases
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:      defaultQueueSize,
		minMissedRaces: 3,
		noLossRaces:    8,
		leaderboards:   []string{"150cc"},
		sweepInterval:  defaultSweepInterval,
		stopCh:         make(chan struct{}),
		logger:         nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting penalty service...")

	// Initialize components
	if s.client == nil {
		s.client = lounge.NewMemory()
		s.logger.Info(ctx, "using in-memory lounge backend")
	}
	catalogOpts := make([]catalog.Option, 0, 2)
	if len(s.kindAmounts) > 0 {
		catalogOpts = append(catalogOpts, catalog.WithBaseAmounts(s.kindAmounts))
	}
	if len(s.kindAliases) > 0 {
		catalogOpts = append(catalogOpts, catalog.WithAliases(s.kindAliases))
	}
	s.catalog = catalog.New(catalogOpts...)
	s.policy = multiplier.NewPolicy(
		multiplier.WithMinMissedRaces(s.minMissedRaces),
		multiplier.WithNoLossRaces(s.noLossRaces),
	)
	s.locks = locks.NewStore(s.client)
	s.engine = multiplier.NewEngine(s.client, s.client, s.locks, s.catalog, s.policy)
	s.workflow = workflow.New(s.client, s.catalog, s.engine, s.locks)
	s.cmdQueue = cmdqueue.NewInMemoryQueue(
		cmdqueue.WithCapacity(s.queueSize),
		cmdqueue.WithBufferSize(s.queueSize),
	)

	// Exactly one dispatcher; resolutions must not run concurrently.
	s.dispatch = dispatch.NewDispatcher(s.cmdQueue, s.workflow)
	go s.dispatch.Run(ctx)

	if s.sweepInterval > 0 {
		go s.runLockSweep(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "penalty service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("minMissedRaces", s.minMissedRaces),
		logger.Int("noLossRaces", s.noLossRaces),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping penalty service...")

	// Close queue first so the dispatcher drains and stops
	if q, ok := s.cmdQueue.(*cmdqueue.InMemoryQueue); ok {
		_ = q.Close()
	}
	if s.dispatch != nil {
		_ = s.dispatch.Shutdown(ctx)
	}

	// Signal sweep loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "penalty service stopped")
}

// runLockSweep periodically frees multiplier locks whose table has been
// verified upstream since the last pass.
func (s *Service) runLockSweep(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			for _, lb := range s.leaderboards {
				if _, err := s.locks.CheckAndClear(ctx, lb); err != nil {
					s.logger.Warn(ctx, "lock sweep failed",
						logger.String("leaderboardID", lb),
						logger.Error(err),
					)
				}
			}
		}
	}
}

// Submit validates and persists a new penalty request.
func (s *Service) Submit(ctx context.Context, p workflow.SubmitParams) (model.PenaltyRequest, error) {
	return s.workflow.Submit(ctx, p)
}

// Enqueue pushes a resolution command to the dispatcher.
func (s *Service) Enqueue(ctx context.Context, c cmdqueue.Command) bool {
	return s.cmdQueue.Enqueue(ctx, c)
}

// ListPending returns the unresolved requests for a leaderboard.
func (s *Service) ListPending(ctx context.Context, leaderboardID string) ([]model.PenaltyRequest, error) {
	return s.workflow.ListPending(ctx, leaderboardID)
}

// Kinds returns the penalty kind catalog.
func (s *Service) Kinds() []catalog.Kind {
	return s.catalog.Kinds()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":   s.started,
		"queueSize": s.queueSize,
	}

	if s.started {
		queueLen := s.cmdQueue.Len(ctx)
		activeLocks := s.locks.Count()

		stats["queueLength"] = queueLen
		stats["activeLocks"] = activeLocks

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateActiveLocks(activeLocks)
	}

	return stats
}
