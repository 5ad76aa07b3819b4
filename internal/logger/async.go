package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncQueue is shared by an AsyncHandler and every handler derived from it
// through WithAttrs or WithGroup.
type asyncQueue struct {
	mu      sync.RWMutex // guards closed and the close of ch
	closed  bool
	ch      chan queued
	wg      sync.WaitGroup
	dropped atomic.Int64
}

type queued struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler hands records to a pool of workers through a bounded
// channel so that logging never blocks a request. Records that do not fit
// are counted and dropped.
type AsyncHandler struct {
	inner slog.Handler
	q     *asyncQueue
}

// NewAsyncHandler creates an AsyncHandler with the given channel capacity and worker count.
func NewAsyncHandler(inner slog.Handler, chanSize, workers int) *AsyncHandler {
	q := &asyncQueue{ch: make(chan queued, chanSize)}
	for range workers {
		q.wg.Add(1)
		go q.drain()
	}
	return &AsyncHandler{inner: inner, q: q}
}

func (q *asyncQueue) drain() {
	defer q.wg.Done()
	for item := range q.ch {
		_ = item.h.Handle(context.Background(), item.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record for the handler it was logged through.
// Records logged after Close are dropped.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		h.q.dropped.Add(1)
		return nil
	}
	select {
	case h.q.ch <- queued{h: h.inner, rec: rec.Clone()}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler that shares the queue but adds attrs.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup returns a handler that shares the queue but opens a group.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close stops accepting records and waits until the workers have written
// everything already queued. It is safe to call more than once.
func (h *AsyncHandler) Close() {
	h.q.mu.Lock()
	if !h.q.closed {
		h.q.closed = true
		close(h.q.ch)
	}
	h.q.mu.Unlock()
	h.q.wg.Wait()
}
