// Package mirror applies best-effort writes to the remote store in the
// background. Delivery is at-most-once: failed ops are logged, not retried,
// and the oldest pending op is dropped when the queue is full.
package mirror

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultQueueSize bounds the number of pending ops.
	DefaultQueueSize = 256
	// DefaultOpTimeout bounds a single op so the worker stays live.
	DefaultOpTimeout = 10 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Op is one remote write.
type Op struct {
	Name  string
	Apply func(ctx context.Context) error
}

// Stats is a snapshot of writer counters.
type Stats struct {
	Queued    int    `json:"queued"`
	Capacity  int    `json:"capacity"`
	Submitted uint64 `json:"submitted"`
	Applied   uint64 `json:"applied"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Writer is a single-worker outbox for remote writes.
type Writer struct {
	ops       chan Op
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *slog.Logger
	opTimeout time.Duration

	mu        sync.Mutex
	closed    bool
	submitted uint64
	applied   uint64
	failed    uint64
	dropped   uint64
	settledCh chan struct{}
}

// NewWriter starts a writer with the given queue size and per-op timeout.
// Non-positive values select the defaults.
func NewWriter(queueSize int, opTimeout time.Duration, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		ops:       make(chan Op, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		opTimeout: opTimeout,
		settledCh: make(chan struct{}),
	}

	w.wg.Add(1)
	go w.process()

	return w
}

// Submit queues op without blocking. When the queue is full the oldest
// pending op is dropped to make room.
func (w *Writer) Submit(op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.logger.Warn("[MIRROR] Writer closed, dropping op", "op", op.Name)
		return
	}
	w.submitted++

	select {
	case w.ops <- op:
		return
	default:
	}

	select {
	case old := <-w.ops:
		w.logger.Warn("[MIRROR] Queue full, dropped oldest op",
			"dropped_op", old.Name,
			"queue_len", len(w.ops),
		)
		w.dropped++
		w.settleLocked()
	default:
	}

	select {
	case w.ops <- op:
	default:
		// Only reachable if the queue has zero capacity.
		w.logger.Warn("[MIRROR] Failed to queue op", "op", op.Name)
		w.dropped++
		w.settleLocked()
	}
}

func (w *Writer) process() {
	defer w.wg.Done()

	for op := range w.ops {
		start := time.Now()
		ctx, cancel := context.WithTimeout(w.ctx, w.opTimeout)
		err := op.Apply(ctx)
		cancel()

		w.mu.Lock()
		if err != nil {
			w.failed++
		} else {
			w.applied++
		}
		w.settleLocked()
		w.mu.Unlock()

		if err != nil {
			w.logger.Error("[MIRROR] Remote write failed",
				"op", op.Name,
				"error", err,
			)
			continue
		}
		if d := time.Since(start); d > time.Second {
			w.logger.Warn("[MIRROR] Slow remote write",
				"op", op.Name,
				"duration_ms", d.Milliseconds(),
			)
		}
	}
}

func (w *Writer) settleLocked() {
	close(w.settledCh)
	w.settledCh = make(chan struct{})
}

// Flush waits until every op submitted before the call has been applied,
// has failed, or was dropped.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.submitted
	w.mu.Unlock()

	for {
		w.mu.Lock()
		done := w.applied+w.failed+w.dropped >= target
		ch := w.settledCh
		w.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting ops and drains the queue. Ops still pending after
// the shutdown timeout are abandoned.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	remaining := len(w.ops)
	close(w.ops)
	w.mu.Unlock()

	w.logger.Info("[MIRROR] Closing", "queue_remaining", remaining)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("[MIRROR] Drained gracefully")
	case <-time.After(shutdownTimeout):
		w.logger.Warn("[MIRROR] Drain timeout, abandoning pending ops")
		w.cancel()
		<-done
	}
	w.cancel()

	return nil
}

// Stats returns writer statistics.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Queued:    len(w.ops),
		Capacity:  cap(w.ops),
		Submitted: w.submitted,
		Applied:   w.applied,
		Failed:    w.failed,
		Dropped:   w.dropped,
	}
}
