package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// Defaults for remote synchronisation.
const (
	// DefaultFetchTimeout bounds a single remote fetch.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3

	// DefaultUpdateInterval is the periodic fetch interval when the
	// remote supplies no override.
	DefaultUpdateInterval = time.Hour

	// maxBackoff caps the exponential retry delay.
	maxBackoff = 30 * time.Second
)

// RemoteSyncConfig holds the static inputs to update gating.
type RemoteSyncConfig struct {
	// AppVersion is the running application version, compared numerically
	// against the remote minimum.
	AppVersion string

	// InstallationID is the stable per-installation identifier used for
	// rollout bucketing.
	InstallationID string

	// FetchTimeout bounds a single fetch (default 30s).
	FetchTimeout time.Duration

	// MaxRetries is the transient-failure retry budget (default 3).
	MaxRetries int
}

// fetchCall is a shared in-flight fetch. Concurrent callers wait on done
// and receive the same result instead of issuing duplicate network calls.
type fetchCall struct {
	done chan struct{}
	doc  *domain.ConfigurationDocument
	err  error
}

// RemoteSync fetches candidate configurations from the remote source,
// validates and gates them, and publishes accepted documents.
type RemoteSync struct {
	source driven.RemoteSource
	reach  driven.Reachability
	cfg    RemoteSyncConfig

	mu       sync.Mutex
	inflight *fetchCall
	interval time.Duration

	updates chan *domain.ConfigurationDocument

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRemoteSync creates a remote sync service. reach may be nil, in which
// case the network is assumed reachable.
func NewRemoteSync(source driven.RemoteSource, reach driven.Reachability, cfg RemoteSyncConfig) *RemoteSync {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &RemoteSync{
		source:   source,
		reach:    reach,
		cfg:      cfg,
		interval: DefaultUpdateInterval,
		updates:  make(chan *domain.ConfigurationDocument, 1),
		sleep:    sleepCtx,
	}
}

// Updates returns the single-slot channel of accepted documents. A new
// accepted document always supersedes a pending one; nothing queues
// unboundedly.
func (r *RemoteSync) Updates() <-chan *domain.ConfigurationDocument {
	return r.updates
}

// CurrentInterval returns the periodic fetch interval, which the remote
// may have overridden via the update_interval key.
func (r *RemoteSync) CurrentInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// FetchLatest fetches, validates, and gates the latest remote
// configuration. A fetch already in flight is shared: concurrent callers
// receive its result rather than issuing duplicate network calls.
// Transient failures are retried with exponential backoff; format,
// gating, and compatibility failures propagate immediately.
func (r *RemoteSync) FetchLatest(ctx context.Context) (*domain.ConfigurationDocument, error) {
	r.mu.Lock()
	if call := r.inflight; call != nil {
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.doc, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &fetchCall{done: make(chan struct{})}
	r.inflight = call
	r.mu.Unlock()

	doc, err := r.fetchWithRetry(ctx)
	call.doc, call.err = doc, err
	close(call.done)

	r.mu.Lock()
	r.inflight = nil
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	r.publish(doc)
	return doc, nil
}

// fetchWithRetry runs the fetch pipeline with the transient-failure retry
// budget. Cancelling ctx aborts the backoff wait immediately.
func (r *RemoteSync) fetchWithRetry(ctx context.Context) (*domain.ConfigurationDocument, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		doc, err := r.fetchOnce(ctx)
		if err == nil {
			return doc, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt >= r.cfg.MaxRetries {
			break
		}
		delay := BackoffDelay(attempt)
		logger.Debug("fetch attempt %d failed (%v), retrying in %s", attempt, err, delay)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrMaxRetriesExceeded, lastErr)
}

// fetchOnce performs one fetch/parse/validate/gate pass.
func (r *RemoteSync) fetchOnce(ctx context.Context) (*domain.ConfigurationDocument, error) {
	if r.reach != nil && !r.reach.Online() {
		return nil, domain.ErrNetworkUnavailable
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	snap, err := r.source.Fetch(fetchCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", domain.ErrFetchTimeout, r.cfg.FetchTimeout)
		}
		if errors.Is(err, domain.ErrNetworkUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	doc, err := assembleDocument(snap)
	if err != nil {
		return nil, err
	}

	if minVersion, ok := snap.Value(domain.RemoteKeyMinAppVersion); ok && minVersion != "" {
		if domain.CompareVersions(r.cfg.AppVersion, minVersion) < 0 {
			return nil, fmt.Errorf("%w: app %s below minimum %s", domain.ErrVersionIncompatible, r.cfg.AppVersion, minVersion)
		}
	}

	if size := doc.EstimatedSize(); size > domain.MaxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrConfigTooLarge, size)
	}

	if pct, ok := snap.Number(domain.RemoteKeyRolloutPercentage); ok {
		bucket := RolloutBucket(r.cfg.InstallationID)
		if bucket >= int(pct) {
			return nil, fmt.Errorf("%w: bucket %d, rollout %d%%", domain.ErrNotInRollout, bucket, int(pct))
		}
	}

	if secs, ok := snap.Number(domain.RemoteKeyUpdateInterval); ok && secs > 0 {
		r.setInterval(time.Duration(secs) * time.Second)
	}

	logger.Info("accepted remote configuration %s (%d templates)", doc.Version, len(doc.Templates))
	return doc, nil
}

func (r *RemoteSync) setInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d != r.interval {
		logger.Debug("update interval overridden to %s", d)
		r.interval = d
	}
}

// publish places doc in the single update slot, displacing any pending one.
func (r *RemoteSync) publish(doc *domain.ConfigurationDocument) {
	clone := doc.Clone()
	for {
		select {
		case r.updates <- clone:
			return
		default:
			select {
			case <-r.updates:
			default:
			}
		}
	}
}

// assembleDocument builds a configuration document from the raw snapshot.
// Required keys fail with a format error on malformed JSON; the optional
// tone_descriptions and feature_flags keys are logged and skipped instead.
func assembleDocument(snap domain.RemoteSnapshot) (*domain.ConfigurationDocument, error) {
	version, ok := snap.Value(domain.RemoteKeyVersion)
	if !ok || version == "" {
		return nil, domain.NewFormatError(domain.RemoteKeyVersion, "missing or empty", "")
	}

	templates, err := parseStringMap(snap, domain.RemoteKeyTemplates, true)
	if err != nil {
		return nil, err
	}
	languages, err := parseStringArray(snap, domain.RemoteKeySupportedLanguages)
	if err != nil {
		return nil, err
	}
	tones, err := parseStringArray(snap, domain.RemoteKeySupportedTones)
	if err != nil {
		return nil, err
	}

	// Optional: failures degrade to absence, never fail the fetch.
	toneDescriptions, _ := parseStringMap(snap, domain.RemoteKeyToneDescriptions, false)
	metadata := parseMetadata(snap)

	doc := &domain.ConfigurationDocument{
		Version:            version,
		LastModified:       time.Now(),
		Templates:          templates,
		SupportedLanguages: languages,
		SupportedTones:     tones,
		ToneDescriptions:   toneDescriptions,
		Metadata:           metadata,
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigFormat, err)
	}
	return doc, nil
}

// parseStringMap decodes a string-encoded JSON object of strings.
func parseStringMap(snap domain.RemoteSnapshot, key string, required bool) (map[string]string, error) {
	raw, ok := snap.Value(key)
	if !ok || raw == "" {
		if required {
			return nil, domain.NewFormatError(key, "missing required key", "")
		}
		return nil, nil
	}
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		if required {
			return nil, domain.NewFormatError(key, "not a JSON object", raw)
		}
		logger.Warn("ignoring malformed optional key %s", key)
		return nil, nil
	}

	out := make(map[string]string)
	gjson.Parse(raw).ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = v.String()
		return true
	})
	return out, nil
}

// parseStringArray decodes a required string-encoded JSON array of strings.
func parseStringArray(snap domain.RemoteSnapshot, key string) ([]string, error) {
	raw, ok := snap.Value(key)
	if !ok || raw == "" {
		return nil, domain.NewFormatError(key, "missing required key", "")
	}
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		return nil, domain.NewFormatError(key, "not a JSON array", raw)
	}

	var out []string
	for _, item := range gjson.Parse(raw).Array() {
		out = append(out, item.String())
	}
	return out, nil
}

// parseMetadata coerces the mixed-type feature_flags object into tagged
// metadata values. Malformed payloads degrade to no metadata.
func parseMetadata(snap domain.RemoteSnapshot) map[string]domain.MetaValue {
	raw, ok := snap.Value(domain.RemoteKeyFeatureFlags)
	if !ok || raw == "" {
		return nil
	}
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		logger.Warn("ignoring malformed %s payload", domain.RemoteKeyFeatureFlags)
		return nil
	}

	out := make(map[string]domain.MetaValue)
	gjson.Parse(raw).ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = metaValueFromResult(v)
		return true
	})
	return out
}

func metaValueFromResult(v gjson.Result) domain.MetaValue {
	switch v.Type {
	case gjson.String:
		return domain.MetaValue{Kind: domain.MetaString, Str: v.Str}
	case gjson.Number:
		return domain.MetaValue{Kind: domain.MetaNumber, Num: v.Num}
	case gjson.True, gjson.False:
		return domain.MetaValue{Kind: domain.MetaBool, Bool: v.Bool()}
	case gjson.Null:
		return domain.MetaValue{Kind: domain.MetaNull}
	default:
		return domain.MetaValue{Kind: domain.MetaRaw, Raw: []byte(v.Raw)}
	}
}

// isTransient reports whether an error qualifies for the retry budget.
// Gating and format errors are deliberately excluded: in particular, a
// not-in-rollout outcome is final for this fetch and must not consume
// retry attempts.
func isTransient(err error) bool {
	return errors.Is(err, domain.ErrNetworkUnavailable) ||
		errors.Is(err, domain.ErrFetchTimeout) ||
		errors.Is(err, domain.ErrFetchFailed)
}

// BackoffDelay returns the retry delay for a zero-based attempt number:
// 2^attempt seconds, capped at 30s.
func BackoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 10 {
		attempt = 10
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// RolloutBucket derives the stable 0-99 rollout bucket for an
// installation. The same identifier always maps to the same bucket.
func RolloutBucket(installationID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(installationID))
	return int(h.Sum32() % 100)
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
