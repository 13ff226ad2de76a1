package workspace

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSemaphore_LimitsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)

	var peak, current int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !sem.Acquire(context.Background()) {
				t.Error("Acquire failed unexpectedly")
				return
			}
			defer sem.Release()
			c := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if c <= old || atomic.CompareAndSwapInt32(&peak, old, c) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency %d exceeded limit 2", peak)
	}
}

func TestSemaphore_Nil(t *testing.T) {
	var sem *Semaphore
	if !sem.Acquire(context.Background()) {
		t.Error("nil semaphore Acquire should succeed")
	}
	sem.Release()
	if sem.Capacity() != 0 {
		t.Errorf("Capacity = %d, want 0", sem.Capacity())
	}
	if NewSemaphore(0) != nil {
		t.Error("NewSemaphore(0) should be nil")
	}
}

func TestSemaphore_Cancelled(t *testing.T) {
	sem := NewSemaphore(1)
	if !sem.Acquire(context.Background()) {
		t.Fatal("first Acquire failed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sem.Acquire(ctx) {
		t.Error("Acquire on cancelled context should fail")
	}
}
