// Package worker runs the single dispatcher that consumes resolution
// commands off the queue and drives the workflow state machine.
//
// Exactly one dispatcher goroutine consumes the queue. That is the
// single-writer discipline the pending set and the lock set rely on:
// between two external calls of one command, no other command runs.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/mogibot/penalty/internal/adapters/mq/queue"
	"github.com/mogibot/penalty/internal/workflow"
	"github.com/mogibot/penalty/pkg/logger"
	"github.com/mogibot/penalty/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	dispatcherShutdownTimeout = 5 * time.Second
)

// Resolver is the workflow surface the dispatcher drives.
type Resolver interface {
	Approve(ctx context.Context, actor workflow.Actor, requestID int64) (workflow.Outcome, error)
	Refuse(ctx context.Context, actor workflow.Actor, requestID int64) (workflow.Outcome, error)
	ApproveAll(ctx context.Context, actor workflow.Actor, leaderboardID string) ([]workflow.Outcome, error)
}

// Queue defines how the dispatcher receives commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Command
}

// Dispatcher consumes commands and resolves requests through the workflow.
type Dispatcher struct {
	queue    Queue
	resolver Resolver
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(q Queue, resolver Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		resolver: resolver,
		name:     "dispatcher", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("dispatcher"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	if d.name != "dispatcher" {
		d.logger = d.logger.Named(d.name)
	}

	return d
}

// Run starts the dispatch loop until ctx is canceled or the queue closes.
func (d *Dispatcher) Run(ctx context.Context) {
	defer func() {
		close(d.done)
	}()

	commands := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case cmd, ok := <-commands:
			if !ok {
				// Channel closed, dispatcher should stop
				return
			}
			d.dispatch(ctx, cmd)
		}
	}
}

// Shutdown gracefully stops the dispatcher.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	close(d.shutdown)

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	case <-time.After(dispatcherShutdownTimeout):
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("dispatcher did not stop within %s", dispatcherShutdownTimeout)
	}
}

// dispatch resolves one command and replies to the caller. The reply
// channel is buffered; a caller that gave up never blocks the loop.
func (d *Dispatcher) dispatch(ctx context.Context, cmd queue.Command) {
	metrics.RecordDispatchLatency(float64(time.Since(cmd.EnqueuedAt).Milliseconds()))

	var res queue.Result
	switch cmd.Kind {
	case queue.KindApprove:
		out, err := d.resolver.Approve(ctx, cmd.Actor, cmd.RequestID)
		res = queue.Result{Outcomes: []workflow.Outcome{out}, Err: err}
	case queue.KindRefuse:
		out, err := d.resolver.Refuse(ctx, cmd.Actor, cmd.RequestID)
		res = queue.Result{Outcomes: []workflow.Outcome{out}, Err: err}
	case queue.KindApproveAll:
		outs, err := d.resolver.ApproveAll(ctx, cmd.Actor, cmd.LeaderboardID)
		res = queue.Result{Outcomes: outs, Err: err}
	default:
		res = queue.Result{Err: fmt.Errorf("unknown command kind %d", cmd.Kind)}
	}
	metrics.RecordCommandDispatched()

	if res.Err != nil {
		d.logger.Warn(ctx, "command resolved with error",
			logger.String("commandID", cmd.ID.String()),
			logger.String("kind", cmd.Kind.String()),
			logger.Error(res.Err),
		)
	}

	select {
	case cmd.Reply <- res:
	default:
		d.logger.Debug(ctx, "caller abandoned reply channel",
			logger.String("commandID", cmd.ID.String()),
		)
	}
}
