// Package pending implements the correlation-key table for outstanding
// requests. Keys live in [0,255]; a key is awaiting from the moment a query
// is posed until its response arrives, filled until the caller collects it.
package pending

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/telemetrylab/dtnet/net/common"
)

// Capacity is the number of correlation keys available per endpoint.
const Capacity = 256

// --------------------------------------------------------------------------
// Slot States
// --------------------------------------------------------------------------

type slotState uint8

const (
	slotFree slotState = iota
	slotAwaiting
	slotFilled
)

type slot struct {
	state   slotState
	payload map[string]any
}

// --------------------------------------------------------------------------
// Table
// --------------------------------------------------------------------------

// Table issues and retires correlation keys. All methods are safe for
// concurrent use and none of them blocks.
//
// Allocation picks a key uniformly at random among the currently free keys
// via a free list, so the worst case stays bounded even when the table is
// nearly full.
type Table struct {
	mu    sync.Mutex
	slots [Capacity]slot
	free  []uint8
}

// NewTable creates an empty table with all keys free.
func NewTable() *Table {
	t := &Table{
		free: make([]uint8, 0, Capacity),
	}
	for key := 0; key < Capacity; key++ {
		t.free = append(t.free, uint8(key))
	}
	return t
}

// Allocate picks a random free key and marks it awaiting. It fails with
// TooManyPendingRequests when all keys are live, which signals a caller that
// is not draining responses.
func (t *Table) Allocate() (uint8, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.free) == 0 {
		return 0, common.NewError(common.ErrCTooManyPendingRequests,
			fmt.Sprintf("maximum number of %d pending requests exceeded", Capacity))
	}

	// swap-remove a random entry from the free list
	i := rand.Intn(len(t.free))
	key := t.free[i]
	t.free[i] = t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]

	t.slots[key] = slot{state: slotAwaiting}
	return key, nil
}

// Fill transitions an awaiting key to filled. The return value reports
// whether the payload was stored; a payload for an unknown key is dropped
// (late or foreign response).
func (t *Table) Fill(key uint8, payload map[string]any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.slots[key].state != slotAwaiting {
		return false
	}
	t.slots[key] = slot{state: slotFilled, payload: payload}
	return true
}

// Take removes and returns the filled payload for a key. An awaiting key is
// left pending; the boolean return value indicates whether a payload was
// available.
func (t *Table) Take(key uint8) (map[string]any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.slots[key].state != slotFilled {
		return nil, false
	}
	payload := t.slots[key].payload
	t.release(key)
	return payload, true
}

// TakeAll atomically returns all filled payloads and clears the whole table,
// awaiting entries included. A response for a flushed awaiting key arriving
// later is dropped by Fill.
func (t *Table) TakeAll() map[uint8]map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make(map[uint8]map[string]any)
	for key := 0; key < Capacity; key++ {
		switch t.slots[key].state {
		case slotFilled:
			result[uint8(key)] = t.slots[key].payload
			t.release(uint8(key))
		case slotAwaiting:
			t.release(uint8(key))
		}
	}
	return result
}

// Release frees a key regardless of its state, discarding any payload. It is
// used to retire a key whose query was never sent.
func (t *Table) Release(key uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.slots[key].state != slotFree {
		t.release(key)
	}
}

// Len returns the number of live (awaiting or filled) keys.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Capacity - len(t.free)
}

// release returns a key to the free list. Callers must hold t.mu.
func (t *Table) release(key uint8) {
	t.slots[key] = slot{}
	t.free = append(t.free, key)
}
