package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pscheid92/reactboard/internal/domain"
	"github.com/pscheid92/reactboard/internal/platform/correlation"
)

const defaultEventTimeout = 30 * time.Second

// SnapshotHandler processes one reaction snapshot. Implemented by Synchronizer.
type SnapshotHandler interface {
	Handle(ctx context.Context, snap domain.ReactionSnapshot) (domain.Outcome, error)
}

// DispatchRecorder observes queue behaviour. Implemented by the metrics adapter.
type DispatchRecorder interface {
	ObserveEnqueued(queueDepth int)
	ObserveDropped(reason string)
}

type DispatcherConfig struct {
	Workers      int
	QueueSize    int
	EventTimeout time.Duration
}

// Dispatcher feeds snapshots from a bounded queue to a fixed pool of workers.
// Each event gets its own correlation ID and timeout; a failed or panicking event
// is logged and dropped without affecting the others.
type Dispatcher struct {
	handler  SnapshotHandler
	recorder DispatchRecorder
	cfg      DispatcherConfig

	mu     sync.RWMutex
	queue  chan domain.ReactionSnapshot
	closed bool

	wg        sync.WaitGroup
	startOnce sync.Once
}

// NewDispatcher creates a Dispatcher. recorder may be nil.
func NewDispatcher(cfg DispatcherConfig, handler SnapshotHandler, recorder DispatchRecorder) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = defaultEventTimeout
	}
	return &Dispatcher{
		handler:  handler,
		recorder: recorder,
		cfg:      cfg,
		queue:    make(chan domain.ReactionSnapshot, cfg.QueueSize),
	}
}

// Submit enqueues a snapshot without blocking. It returns false if the queue is full
// or the dispatcher is stopped.
func (d *Dispatcher) Submit(snap domain.ReactionSnapshot) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.observeDropped("stopped")
		return false
	}

	select {
	case d.queue <- snap:
		if d.recorder != nil {
			d.recorder.ObserveEnqueued(len(d.queue))
		}
		return true
	default:
		slog.Warn("Event queue full, dropping reaction event", "message_id", snap.MessageID, "queue_size", d.cfg.QueueSize)
		d.observeDropped("queue_full")
		return false
	}
}

// Start launches the workers. ctx provides values only: cancelling it does not abort
// events that are already being processed. Use Stop to shut down.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		base := context.WithoutCancel(ctx)
		for i := range d.cfg.Workers {
			d.wg.Add(1)
			go d.work(base, i)
		}
		slog.Info("Dispatcher started", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
	})
}

// Stop closes the queue and waits for the workers to drain it, or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher drain interrupted: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(base context.Context, worker int) {
	defer d.wg.Done()
	for snap := range d.queue {
		d.process(base, worker, snap)
	}
}

func (d *Dispatcher) process(base context.Context, worker int, snap domain.ReactionSnapshot) {
	ctx, cancel := context.WithTimeout(correlation.WithID(base, correlation.NewID()), d.cfg.EventTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Reaction event panicked", "message_id", snap.MessageID, "worker", worker, "panic", r)
		}
	}()

	outcome, err := d.handler.Handle(ctx, snap)
	if err != nil {
		slog.ErrorContext(ctx, "Reaction event failed", "message_id", snap.MessageID, "channel_id", snap.ChannelID, "tallies", len(snap.Tallies), "error", err)
		return
	}

	slog.DebugContext(ctx, "Reaction event handled", "message_id", snap.MessageID, "outcome", outcome.String(), "worker", worker)
}

func (d *Dispatcher) observeDropped(reason string) {
	if d.recorder != nil {
		d.recorder.ObserveDropped(reason)
	}
}
