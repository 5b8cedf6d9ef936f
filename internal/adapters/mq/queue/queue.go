// Package queue carries resolution commands to the single dispatcher.
//
// Approvals and refusals can originate from several UI surfaces at once;
// funneling them through one bounded queue gives the state machine a
// single entry point per transition instead of duplicated handler logic
// per trigger source.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mogibot/penalty/internal/workflow"
	"github.com/mogibot/penalty/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultBufferSize    = 1024
	replyBuffer          = 1
)

// Kind enumerates the resolution commands.
type Kind int

const (
	// KindApprove resolves a single request by applying its penalty.
	KindApprove Kind = iota
	// KindRefuse resolves a single request without penalty.
	KindRefuse
	// KindApproveAll approves every pending request of a leaderboard.
	KindApproveAll
)

func (k Kind) String() string {
	switch k {
	case KindRefuse:
		return "refuse"
	case KindApproveAll:
		return "approve_all"
	default:
		return "approve"
	}
}

// Result is what the dispatcher sends back on a command's reply channel.
type Result struct {
	Outcomes []workflow.Outcome
	Err      error
}

// Command is one resolution request flowing through the queue.
// Reply is buffered so the dispatcher never blocks on a gone caller.
type Command struct {
	ID            uuid.UUID
	Kind          Kind
	RequestID     int64
	LeaderboardID string
	Actor         workflow.Actor
	Reply         chan Result
	EnqueuedAt    time.Time
}

// NewApprove builds an approve command for one request.
func NewApprove(actor workflow.Actor, requestID int64) Command {
	return newCommand(KindApprove, actor, requestID, "")
}

// NewRefuse builds a refuse command for one request.
func NewRefuse(actor workflow.Actor, requestID int64) Command {
	return newCommand(KindRefuse, actor, requestID, "")
}

// NewApproveAll builds a batch approval command for a leaderboard.
func NewApproveAll(actor workflow.Actor, leaderboardID string) Command {
	return newCommand(KindApproveAll, actor, 0, leaderboardID)
}

func newCommand(kind Kind, actor workflow.Actor, requestID int64, leaderboardID string) Command {
	return Command{
		ID:            uuid.New(),
		Kind:          kind,
		RequestID:     requestID,
		LeaderboardID: leaderboardID,
		Actor:         actor,
		Reply:         make(chan Result, replyBuffer),
		EnqueuedAt:    time.Now(),
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, c Command) bool

	// Dequeue returns a channel delivering commands as they arrive.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Command

	// Len returns the current number of queued commands.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands   chan Command
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	q.commands = make(chan Command, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a command to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Command) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if len(q.commands) >= q.capacity {
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.commands <- c:
		metrics.UpdateQueueSize(len(q.commands))
		return true
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel delivering commands as they arrive.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Command {
	out := make(chan Command)
	go func() {
		defer close(out)
		for c := range q.commands {
			select {
			case out <- c:
				metrics.UpdateQueueSize(len(q.commands))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued commands.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.commands)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}
	close(q.commands)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
