package worker

import (
	"context"
	"log"
	"sync"
)

// StartFunc begins a run and returns its event stream.
type StartFunc[E any] func(ctx context.Context) <-chan E

// DeliverFunc is invoked from the run goroutine for every event of a run.
// The event loop should pass a closure that posts back into the event loop safely.
type DeliverFunc[E any] func(runID uint64, ev E)

// Runner supervises background runs: one goroutine per run, and starting a new
// run cancels the previous one. Run ids increase monotonically so the receiver
// can drop events of superseded runs.
type Runner[E any] struct {
	name   string
	mu     sync.Mutex
	wg     sync.WaitGroup
	nextID uint64
	cancel context.CancelFunc
	closed bool
}

// New creates an idle runner; name prefixes its log lines.
func New[E any](name string) *Runner[E] {
	return &Runner[E]{name: name}
}

// Submit cancels the current run, if any, and starts a new one. It returns the new
// run id, or 0 when the runner is closed.
func (r *Runner[E]) Submit(ctx context.Context, start StartFunc[E], deliver DeliverFunc[E]) uint64 {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	if r.cancel != nil {
		r.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.nextID++
	id := r.nextID
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()
		log.Printf("Worker: %s run %d started", r.name, id)
		for ev := range start(runCtx) {
			deliver(id, ev)
		}
		log.Printf("Worker: %s run %d finished", r.name, id)
	}()
	return id
}

// Cancel stops the current run without starting another.
func (r *Runner[E]) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Close cancels all runs and waits for their goroutines to exit.
func (r *Runner[E]) Close() {
	r.mu.Lock()
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	r.wg.Wait()
}
