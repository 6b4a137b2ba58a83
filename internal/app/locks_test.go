package app

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		unlock := k.Lock("a")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		unlock()
	}()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	unlockA()
	wg.Wait()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
	if n := k.size(); n != 0 {
		t.Fatalf("size = %d, want 0", n)
	}
}
