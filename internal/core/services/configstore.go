package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// Storage keys for the configuration slots.
const (
	// ActiveConfigKey is the logical key of the active configuration blob.
	ActiveConfigKey = "current_config"

	// BackupKeyPrefix prefixes timestamped backup slots.
	BackupKeyPrefix = "backup_config_"
)

// maxBackups bounds the rolling backup chain.
const maxBackups = 3

// ConfigStore provides durable single-slot storage of the active
// configuration with an in-memory read-through cache and a bounded backup
// chain. All operations are serialised through one mutex: a Load racing a
// Save observes either the pre- or post-save state, never a torn write.
type ConfigStore struct {
	blobs driven.BlobStore

	mu     sync.Mutex
	cached *domain.ConfigurationDocument
	now    func() time.Time
}

// NewConfigStore creates a configuration store over a blob store.
func NewConfigStore(blobs driven.BlobStore) *ConfigStore {
	return &ConfigStore{blobs: blobs, now: time.Now}
}

// Save validates and persists doc as the active configuration.
// Saving a document with the same version and content fingerprint as the
// stored one is a no-op. Otherwise the previous active blob is copied into
// a timestamped backup slot before the replacement, and backups beyond the
// retention bound are pruned.
func (s *ConfigStore) Save(ctx context.Context, doc *domain.ConfigurationDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", domain.ErrInvalidConfiguration)
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.blobs.Get(ctx, ActiveConfigKey)
	if err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
		return fmt.Errorf("read active configuration: %w", err)
	}

	if existing != nil {
		var current domain.ConfigurationDocument
		if decodeErr := json.Unmarshal(existing, &current); decodeErr == nil {
			if current.Version == doc.Version && current.ContentHash() == doc.ContentHash() {
				logger.Debug("configuration %s unchanged, skipping write", doc.Version)
				s.cached = doc.Clone()
				return nil
			}
		}

		backupKey := BackupKeyPrefix + strconv.FormatInt(s.now().Unix(), 10)
		if backupErr := s.blobs.Put(ctx, backupKey, existing); backupErr != nil {
			// A failed backup is not fatal; the save still proceeds.
			logger.Warn("backup of previous configuration failed: %v", backupErr)
		} else if pruneErr := s.pruneBackups(ctx); pruneErr != nil {
			logger.Warn("pruning old backups failed: %v", pruneErr)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	if err := s.blobs.Put(ctx, ActiveConfigKey, data); err != nil {
		return fmt.Errorf("write active configuration: %w", err)
	}

	s.cached = doc.Clone()
	logger.Info("configuration %s saved", doc.Version)
	return nil
}

// Load returns the active configuration. The in-memory cache is served
// first; otherwise the active slot is read and validated, and on
// corruption each backup slot is tried newest-first. A missing active slot
// returns (nil, nil). Exhausting every slot returns ErrLoadFailed.
func (s *ConfigStore) Load(ctx context.Context) (*domain.ConfigurationDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached.Clone(), nil
	}

	data, err := s.blobs.Get(ctx, ActiveConfigKey)
	if errors.Is(err, domain.ErrBlobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read active configuration: %w", err)
	}

	doc, decodeErr := decodeDocument(data)
	if decodeErr == nil {
		s.cached = doc.Clone()
		return doc, nil
	}
	logger.Warn("active configuration slot is corrupt: %v", decodeErr)

	doc, backupErr := s.loadFromBackups(ctx)
	if backupErr != nil {
		return nil, fmt.Errorf("%w: active slot: %w", domain.ErrLoadFailed, decodeErr)
	}
	s.cached = doc.Clone()
	logger.Info("recovered configuration %s from backup", doc.Version)
	return doc, nil
}

// ClearAll empties the cache and deletes the active slot and all backups.
// This is the nuke-and-refetch escape hatch for schema changes that make
// stored documents permanently undecodable, not a routine operation.
func (s *ConfigStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil

	if err := s.blobs.Delete(ctx, ActiveConfigKey); err != nil {
		return fmt.Errorf("delete active configuration: %w", err)
	}
	keys, err := s.blobs.List(ctx, BackupKeyPrefix)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete backup %s: %w", key, err)
		}
	}
	logger.Info("configuration storage cleared")
	return nil
}

// PurgeCache drops the in-memory cache. Safe at any time; only costs a
// re-read on the next Load.
func (s *ConfigStore) PurgeCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

// WatchActive reports external changes to the active configuration slot,
// dropping the cache so the next Load re-reads storage. Returns (nil, nil)
// when the underlying blob store cannot watch.
func (s *ConfigStore) WatchActive(ctx context.Context) (<-chan struct{}, error) {
	watchable, ok := s.blobs.(driven.WatchableBlobStore)
	if !ok {
		return nil, nil
	}
	keys, err := watchable.Watch(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch configuration storage: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for key := range keys {
			if key != ActiveConfigKey {
				continue
			}
			s.PurgeCache()
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, nil
}

// loadFromBackups tries each backup slot newest-first and returns the
// first document that decodes and validates.
func (s *ConfigStore) loadFromBackups(ctx context.Context) (*domain.ConfigurationDocument, error) {
	keys, err := s.blobs.List(ctx, BackupKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	sortBackupKeys(keys)

	for _, key := range keys {
		data, err := s.blobs.Get(ctx, key)
		if err != nil {
			continue
		}
		doc, err := decodeDocument(data)
		if err != nil {
			logger.Debug("backup %s unusable: %v", key, err)
			continue
		}
		return doc, nil
	}
	return nil, domain.ErrLoadFailed
}

// pruneBackups keeps only the newest maxBackups backup slots.
func (s *ConfigStore) pruneBackups(ctx context.Context) error {
	keys, err := s.blobs.List(ctx, BackupKeyPrefix)
	if err != nil {
		return err
	}
	if len(keys) <= maxBackups {
		return nil
	}
	sortBackupKeys(keys)
	for _, key := range keys[maxBackups:] {
		if err := s.blobs.Delete(ctx, key); err != nil {
			return err
		}
		logger.Debug("pruned backup %s", key)
	}
	return nil
}

// decodeDocument unmarshals and validates a stored configuration blob.
func decodeDocument(data []byte) (*domain.ConfigurationDocument, error) {
	var doc domain.ConfigurationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// sortBackupKeys orders backup keys newest-first by their timestamp suffix.
func sortBackupKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		return backupTimestamp(keys[i]) > backupTimestamp(keys[j])
	})
}

func backupTimestamp(key string) int64 {
	ts, _ := strconv.ParseInt(strings.TrimPrefix(key, BackupKeyPrefix), 10, 64)
	return ts
}
