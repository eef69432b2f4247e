// Package static provides a canned remote source for tests and offline
// development.
package static

import (
	"context"
	"sync"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.RemoteSource = (*Source)(nil)

// Source serves a fixed snapshot, optionally preceded by a scripted
// sequence of errors. Each queued error is returned once, in order, then
// the snapshot is served.
type Source struct {
	mu       sync.Mutex
	snapshot domain.RemoteSnapshot
	errs     []error
	fetches  int
}

// NewSource creates a source serving the given snapshot.
func NewSource(snapshot domain.RemoteSnapshot) *Source {
	return &Source{snapshot: snapshot}
}

// FailWith queues errors to be returned by the next fetches, one each.
func (s *Source) FailWith(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, errs...)
}

// SetSnapshot replaces the served snapshot.
func (s *Source) SetSnapshot(snapshot domain.RemoteSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

// Fetches returns how many times Fetch has been called.
func (s *Source) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Fetch returns the next scripted error, or a copy of the snapshot.
func (s *Source) Fetch(ctx context.Context) (domain.RemoteSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}

	out := make(domain.RemoteSnapshot, len(s.snapshot))
	for k, v := range s.snapshot {
		out[k] = v
	}
	return out, nil
}
