package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRunsFunctionAndReturnsItsError(t *testing.T) {
	t.Parallel()

	p := NewPool(1)
	want := errors.New("boom")
	got := p.Do(context.Background(), func() error { return want })
	if !errors.Is(got, want) {
		t.Errorf("Do returned %v, want %v", got, want)
	}
}

func TestDoLimitsConcurrency(t *testing.T) {
	t.Parallel()

	const limit = 2
	p := NewPool(limit)

	var (
		running atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func() error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > limit {
		t.Errorf("observed %d concurrent jobs, limit is %d", got, limit)
	}
}

func TestDoHonoursContextWhileWaiting(t *testing.T) {
	t.Parallel()

	p := NewPool(1)

	release := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func() error {
			<-release
			return nil
		})
	}()

	// Give the occupier time to take the slot.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	ran := false
	err := p.Do(ctx, func() error { ran = true; return nil })
	close(release)

	if err == nil {
		t.Fatal("expected error when slot never frees")
	}
	if ran {
		t.Error("fn ran despite context expiry")
	}
}

func TestTryDoDoesNotBlock(t *testing.T) {
	t.Parallel()

	p := NewPool(1)

	release := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func() error {
			<-release
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ran, err := p.TryDo(func() error { return nil })
	close(release)

	if err != nil {
		t.Fatalf("TryDo: %v", err)
	}
	if ran {
		t.Error("TryDo ran while pool was full")
	}
}

func TestNewPoolDefaultsToPositiveSize(t *testing.T) {
	t.Parallel()

	if got := NewPool(0).Size(); got < 1 {
		t.Errorf("Size() = %d, want >= 1", got)
	}
	if got := NewPool(4).Size(); got != 4 {
		t.Errorf("Size() = %d, want 4", got)
	}
}
