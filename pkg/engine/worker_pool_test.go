package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolBasicOperations(t *testing.T) {
	pool, err := NewWorkerPool(4, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool failed: %v", err)
	}

	executed := false
	if !pool.Submit(func() { executed = true }) {
		t.Error("Task submission failed")
	}

	pool.Close()
	if !executed {
		t.Error("Task was not executed")
	}
}

func TestWorkerPoolConcurrentSubmissions(t *testing.T) {
	pool, err := NewWorkerPool(10, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool failed: %v", err)
	}

	numTasks := 100
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < numTasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() {
				atomic.AddInt64(&counter, 1)
			})
		}()
	}

	wg.Wait()
	pool.Close()

	if counter != int64(numTasks) {
		t.Errorf("Expected counter %d, got %d", numTasks, counter)
	}
}

func TestWorkerPoolRecoverFromPanic(t *testing.T) {
	pool, err := NewWorkerPool(2, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool failed: %v", err)
	}

	pool.Submit(func() { panic("task blew up") })

	// The pool survives and keeps processing
	done := make(chan struct{})
	pool.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Pool stopped processing after a task panic")
	}
	pool.Close()
}

// Closing the pool while tasks are being submitted must never panic
func TestWorkerPoolCloseRace(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		pool, err := NewWorkerPool(4, nil)
		if err != nil {
			t.Fatalf("NewWorkerPool failed: %v", err)
		}

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() {
						time.Sleep(time.Millisecond)
					})
				}
			}()
		}

		go pool.Close()
		wg.Wait()
		pool.Close()
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool, err := NewWorkerPool(2, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool failed: %v", err)
	}
	pool.Close()

	if pool.Submit(func() {}) {
		t.Error("Submit after close should return false")
	}
}

func TestWorkerPoolRejectsExcessiveWorkers(t *testing.T) {
	if _, err := NewWorkerPool(MaxWorkers+1, nil); err == nil {
		t.Error("Expected error for excessive worker count")
	}
}
