// Package engine provides a worker pool for running columnar kernels
// over contiguous spans of a column in parallel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MinSpan is the smallest span dispatched to a worker. Columns shorter
// than this run on a single span.
const MinSpan = 1024

// Span is a contiguous index range [Start, End) of a column.
type Span struct {
	Start int
	End   int
}

// Len returns the number of elements in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// SpanFunc processes one span of a column.
type SpanFunc func(s Span) error

// task pairs a span with its function and the channel collecting the
// outcome for one Map call.
type task struct {
	span Span
	fn   SpanFunc
	errc chan<- error
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Name     string `json:"name"`
	Workers  int    `json:"workers"`
	Spans    int64  `json:"spans"`
	Elements int64  `json:"elements"`
	Failed   int64  `json:"failed"`
	Pending  int    `json:"pending"`
}

// Pool manages a fixed set of goroutine workers that execute column
// spans. A single Pool is safe for concurrent Map calls.
type Pool struct {
	name     string
	workers  int
	taskChan chan *task
	wg       sync.WaitGroup

	// Atomic counters for thread-safe statistics
	spans    int64
	elements int64
	failed   int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

// NewPool creates a pool with the specified number of workers. A
// non-positive count defaults to the number of CPUs.
func NewPool(name string, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		name:     name,
		workers:  workers,
		taskChan: make(chan *task, workers*4),
		ctx:      ctx,
		cancel:   cancel,
		running:  true,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// worker is the goroutine that processes span tasks.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.taskChan:
			if !ok {
				return
			}
			p.run(t)
		}
	}
}

// run executes a single span task and reports its outcome.
func (p *Pool) run(t *task) {
	// Panic recovery to prevent one span from crashing the entire pool
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&p.failed, 1)
			t.errc <- fmt.Errorf("panic in span [%d,%d): %v", t.span.Start, t.span.End, r)
		}
	}()

	err := t.fn(t.span)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
	} else {
		atomic.AddInt64(&p.spans, 1)
		atomic.AddInt64(&p.elements, int64(t.span.Len()))
	}
	t.errc <- err
}

// Map partitions [0, n) into contiguous spans and runs fn on each span
// across the pool's workers. Spans never overlap and cover [0, n)
// exactly, so span-local results can be written to disjoint slices
// without locking. Map blocks until every dispatched span finishes and
// returns the first error encountered.
func (p *Pool) Map(ctx context.Context, n int, fn SpanFunc) error {
	if n <= 0 {
		return nil
	}
	if !p.IsRunning() {
		return errors.New("pool is shut down")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	chunk := (n + p.workers - 1) / p.workers
	if chunk < MinSpan {
		chunk = MinSpan
	}

	spans := make([]Span, 0, (n+chunk-1)/chunk)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
	}

	errc := make(chan error, len(spans))
	dispatched := 0
	var firstErr error

submit:
	for _, s := range spans {
		select {
		case <-ctx.Done():
			firstErr = ctx.Err()
			break submit
		default:
		}
		select {
		case p.taskChan <- &task{span: s, fn: fn, errc: errc}:
			dispatched++
		case <-ctx.Done():
			firstErr = ctx.Err()
			break submit
		}
	}

	// Dispatched spans must drain even after cancellation; their
	// results may reference caller-owned memory. Pool shutdown is the
	// one case where queued spans will never report back.
	for i := 0; i < dispatched; i++ {
		select {
		case err := <-errc:
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case <-p.ctx.Done():
			if firstErr == nil {
				firstErr = errors.New("pool is shut down")
			}
			return firstErr
		}
	}

	return firstErr
}

// GetStats returns current pool statistics.
func (p *Pool) GetStats() PoolStats {
	return PoolStats{
		Name:     p.name,
		Workers:  p.workers,
		Spans:    atomic.LoadInt64(&p.spans),
		Elements: atomic.LoadInt64(&p.elements),
		Failed:   atomic.LoadInt64(&p.failed),
		Pending:  len(p.taskChan),
	}
}

// IsRunning returns true if the pool is still accepting work.
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Shutdown gracefully shuts down the pool, waiting for workers to
// finish their current spans.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	// Workers exit on context cancellation; the task channel is left
	// open so a racing Map cannot send on a closed channel.
	p.cancel()
	p.wg.Wait()
}

// ShutdownWithTimeout shuts down, giving workers at most the timeout
// to finish.
func (p *Pool) ShutdownWithTimeout(timeout time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("shutdown timeout")
	}
}
