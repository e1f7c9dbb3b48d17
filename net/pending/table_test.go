package pending

import (
	"sync"
	"testing"

	"github.com/telemetrylab/dtnet/net/common"
)

func TestAllocateAllKeys(t *testing.T) {
	table := NewTable()

	seen := make(map[uint8]bool)
	for i := 0; i < Capacity; i++ {
		key, err := table.Allocate()
		if err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
		if seen[key] {
			t.Fatalf("key %d allocated twice", key)
		}
		seen[key] = true
	}

	if table.Len() != Capacity {
		t.Errorf("Len is %d, want %d", table.Len(), Capacity)
	}

	// the 257th allocation must fail
	_, err := table.Allocate()
	if err == nil {
		t.Fatal("allocation beyond capacity did not fail")
	}
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCTooManyPendingRequests {
		t.Errorf("expected TooManyPendingRequests, got %v", err)
	}
}

func TestFillAndTake(t *testing.T) {
	table := NewTable()

	key, err := table.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	// not yet filled: Take leaves the key pending
	if _, ok := table.Take(key); ok {
		t.Error("Take returned a payload for an awaiting key")
	}
	if table.Len() != 1 {
		t.Errorf("awaiting key was released by Take, Len is %d", table.Len())
	}

	payload := map[string]any{"speed": float64(42)}
	if !table.Fill(key, payload) {
		t.Fatal("Fill rejected an awaiting key")
	}

	got, ok := table.Take(key)
	if !ok {
		t.Fatal("Take did not return the filled payload")
	}
	if got["speed"] != float64(42) {
		t.Errorf("payload is %v", got)
	}

	// key is retired now
	if _, ok := table.Take(key); ok {
		t.Error("Take returned a payload twice")
	}
	if table.Len() != 0 {
		t.Errorf("Len is %d after Take, want 0", table.Len())
	}
}

func TestFillUnknownKeyIsDropped(t *testing.T) {
	table := NewTable()

	if table.Fill(42, map[string]any{"x": 1}) {
		t.Error("Fill accepted a key that was never allocated")
	}
	if table.Len() != 0 {
		t.Errorf("Len is %d, want 0", table.Len())
	}
}

func TestTakeAllFlushesEverything(t *testing.T) {
	table := NewTable()

	filled, err := table.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	awaiting, err := table.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	table.Fill(filled, map[string]any{"speed": float64(1)})

	result := table.TakeAll()
	if len(result) != 1 {
		t.Fatalf("TakeAll returned %d payloads, want 1", len(result))
	}
	if _, ok := result[filled]; !ok {
		t.Errorf("TakeAll is missing the filled key %d", filled)
	}

	// awaiting keys are flushed too
	if table.Len() != 0 {
		t.Errorf("Len is %d after TakeAll, want 0", table.Len())
	}

	// a late response for the flushed awaiting key is dropped
	if table.Fill(awaiting, map[string]any{"late": true}) {
		t.Error("Fill accepted a key that TakeAll flushed")
	}
}

func TestRelease(t *testing.T) {
	table := NewTable()

	key, err := table.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	table.Release(key)
	if table.Len() != 0 {
		t.Errorf("Len is %d after Release, want 0", table.Len())
	}

	// releasing a free key is a no-op
	table.Release(key)
	if table.Len() != 0 {
		t.Errorf("Len is %d after double Release, want 0", table.Len())
	}
}

func TestConcurrentAllocateAndFill(t *testing.T) {
	table := NewTable()

	var wg sync.WaitGroup
	keys := make(chan uint8, Capacity)

	// allocators
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < Capacity/4; j++ {
				key, err := table.Allocate()
				if err != nil {
					t.Errorf("Allocate failed: %v", err)
					return
				}
				keys <- key
			}
		}()
	}

	// fillers and takers
	var takers sync.WaitGroup
	takers.Add(1)
	go func() {
		defer takers.Done()
		for i := 0; i < Capacity; i++ {
			key := <-keys
			if !table.Fill(key, map[string]any{"n": key}) {
				t.Errorf("Fill rejected allocated key %d", key)
			}
			if _, ok := table.Take(key); !ok {
				t.Errorf("Take missed filled key %d", key)
			}
		}
	}()

	wg.Wait()
	takers.Wait()

	if table.Len() != 0 {
		t.Errorf("Len is %d after drain, want 0", table.Len())
	}
}
