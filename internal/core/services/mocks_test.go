package services

import (
	"context"
	"strings"
	"sync"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
)

// mockBlobStore is a map-backed blob store with injectable failures.
type mockBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putErr       error
	putErrPrefix string
	getErr       error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (m *mockBlobStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil && strings.HasPrefix(key, m.putErrPrefix) {
		return m.putErr
	}
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *mockBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.blobs[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *mockBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *mockBlobStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// set writes directly to the backing map, bypassing Put failures.
func (m *mockBlobStore) set(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
}

func (m *mockBlobStore) keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

// mockWatchableBlobStore adds an externally driven change feed.
type mockWatchableBlobStore struct {
	*mockBlobStore
	watch chan string
}

func newMockWatchableBlobStore() *mockWatchableBlobStore {
	return &mockWatchableBlobStore{
		mockBlobStore: newMockBlobStore(),
		watch:         make(chan string, 8),
	}
}

func (m *mockWatchableBlobStore) Watch(ctx context.Context) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case key := <-m.watch:
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// notify simulates an external process touching a key.
func (m *mockWatchableBlobStore) notify(key string) {
	m.watch <- key
}

// mockRemoteSource serves scripted snapshots and errors, one per fetch.
type mockRemoteSource struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
	block   chan struct{}
}

type fetchResult struct {
	snap domain.RemoteSnapshot
	err  error
}

func (m *mockRemoteSource) queue(snap domain.RemoteSnapshot, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, fetchResult{snap: snap, err: err})
}

func (m *mockRemoteSource) Fetch(ctx context.Context) (domain.RemoteSnapshot, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.results) == 0 {
		return nil, domain.ErrFetchFailed
	}
	next := m.results[0]
	if len(m.results) > 1 {
		m.results = m.results[1:]
	}
	return next.snap, next.err
}

func (m *mockRemoteSource) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockReachability is a settable reachability signal.
type mockReachability struct {
	mu      sync.Mutex
	online  bool
	changes chan bool
}

func newMockReachability(online bool) *mockReachability {
	return &mockReachability{online: online, changes: make(chan bool, 4)}
}

func (m *mockReachability) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *mockReachability) Changes() <-chan bool {
	return m.changes
}

func (m *mockReachability) setOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
	m.changes <- online
}

// validSnapshot returns a well-formed remote snapshot at the given version.
func validSnapshot(version string) domain.RemoteSnapshot {
	return domain.RemoteSnapshot{
		domain.RemoteKeyVersion: version,
		domain.RemoteKeyTemplates: `{
			"zh_warm": "这是 {{date}} 的日记:{{what_happened}},感受:{{feelings}}",
			"en_warm": "Entry from {{date}}: {{what_happened}}, feeling {{feelings}}"
		}`,
		domain.RemoteKeySupportedLanguages: `["zh", "en"]`,
		domain.RemoteKeySupportedTones:     `["warm", "healing", "rational"]`,
	}
}
