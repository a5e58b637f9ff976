// Package hopper implements the mesh frequency hopper: a process-wide
// round-robin cursor shared across the uplink-wrap and re-relay paths so
// that outbound mesh transmissions spread evenly across the configured
// channels.
package hopper

import (
	"fmt"
	"sync"
)

// Hopper selects successive frequencies from a fixed configured list.
type Hopper struct {
	mu          sync.Mutex
	frequencies []uint32
	cursor      int
}

// New creates a Hopper over the given frequency list. The list is not
// copied defensively beyond this call; callers should not mutate it after
// constructing the Hopper.
func New(frequencies []uint32) *Hopper {
	return &Hopper{frequencies: frequencies}
}

// Next advances the cursor and returns the newly selected frequency.
// Advancing happens before wraparound is checked, and wraparound before
// indexing, so repeated calls visit every configured frequency in order.
func (h *Hopper) Next() (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.frequencies) == 0 {
		return 0, fmt.Errorf("hopper: no mesh frequencies are configured")
	}

	h.cursor++
	if h.cursor >= len(h.frequencies) {
		h.cursor = 0
	}

	return h.frequencies[h.cursor], nil
}
