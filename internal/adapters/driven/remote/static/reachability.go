package static

import (
	"sync"

	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
)

// Ensure Reachability implements the interface.
var _ driven.Reachability = (*Reachability)(nil)

// Reachability is a manually toggled reachability signal. The CLI uses an
// always-online instance; tests flip it to exercise offline paths.
type Reachability struct {
	mu      sync.Mutex
	online  bool
	changes chan bool
}

// NewReachability creates a reachability signal with the given initial
// state.
func NewReachability(online bool) *Reachability {
	return &Reachability{
		online:  online,
		changes: make(chan bool, 8),
	}
}

// Online reports the current state.
func (r *Reachability) Online() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

// Changes emits transitions set via SetOnline.
func (r *Reachability) Changes() <-chan bool {
	return r.changes
}

// SetOnline updates the state and emits the transition if it changed.
func (r *Reachability) SetOnline(online bool) {
	r.mu.Lock()
	changed := r.online != online
	r.online = online
	r.mu.Unlock()

	if changed {
		select {
		case r.changes <- online:
		default:
		}
	}
}
