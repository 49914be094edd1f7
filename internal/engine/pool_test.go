// File path: internal/engine/pool_test.go
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, 4)
	defer p.Close()

	var done int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&done, 1)
		}); err != nil {
			t.Fatalf("unexpected Submit error: %v", err)
		}
	}
	wg.Wait()
	if atomic.LoadInt32(&done) != 4 {
		t.Fatalf("expected 4 tasks to run, got %d", done)
	}
}

func TestPoolSubmitReturnsErrQueueFullWhenSaturated(t *testing.T) {
	p := NewPool(1, 1)
	defer p.Close()

	block := make(chan struct{})
	release := make(chan struct{})
	// Occupy the single worker so the queue itself fills up.
	if err := p.Submit(func() {
		close(block)
		<-release
	}); err != nil {
		t.Fatalf("unexpected error occupying the worker: %v", err)
	}
	<-block

	// Fill the depth-1 queue.
	if err := p.Submit(func() {}); err != nil {
		t.Fatalf("unexpected error filling the queue: %v", err)
	}

	if err := p.Submit(func() {}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	close(release)
}

func TestPoolSubmitBlockingWaitsForRoom(t *testing.T) {
	p := NewPool(1, 1)
	defer p.Close()

	block := make(chan struct{})
	release := make(chan struct{})
	if err := p.Submit(func() {
		close(block)
		<-release
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-block
	if err := p.Submit(func() {}); err != nil {
		t.Fatalf("unexpected error filling the queue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.SubmitBlocking(ctx, func() {})
	if err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded while the pool stays saturated, got %v", err)
	}
	close(release)
}

func TestPoolCloseIsIdempotentAndWaitsForInFlight(t *testing.T) {
	p := NewPool(2, 4)
	var ran int32
	if err := p.Submit(func() {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&ran, 1)
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Close()
	p.Close()
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("expected the in-flight task to complete before Close returns, got ran=%d", ran)
	}
}
