// Package worker provides a bounded pool for CPU-heavy inference work.
//
// Speech recognition and synthesis both saturate cores; running one job per
// connection would let a handful of sessions oversubscribe the host. The pool
// caps concurrent jobs with a weighted semaphore while callers block (subject
// to their context) until a slot frees up.
package worker

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool limits how many jobs run concurrently. The zero value is not usable;
// construct with [NewPool].
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool creates a pool allowing up to size concurrent jobs. A size below 1
// defaults to half the logical CPUs, minimum 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = runtime.NumCPU() / 2
		if size < 1 {
			size = 1
		}
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Size returns the pool's concurrency limit.
func (p *Pool) Size() int { return int(p.size) }

// Do runs fn once a slot is available, blocking until then or until ctx is
// done. fn runs on the calling goroutine; Do exists for admission control,
// not for detaching work.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("worker: acquire slot: %w", err)
	}
	defer p.sem.Release(1)
	return fn()
}

// TryDo runs fn if a slot is immediately available and reports whether it
// ran. It never blocks.
func (p *Pool) TryDo(fn func() error) (bool, error) {
	if !p.sem.TryAcquire(1) {
		return false, nil
	}
	defer p.sem.Release(1)
	return true, fn()
}
