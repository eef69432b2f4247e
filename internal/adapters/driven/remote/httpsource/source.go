// Package httpsource fetches configuration snapshots from the remote
// configuration service over HTTP.
package httpsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.RemoteSource = (*Source)(nil)

const snapshotPath = "/v1/config/snapshot"

// Source fetches parameter snapshots from the configuration service. It
// remembers the last ETag and replays the cached snapshot on a 304, so
// unchanged configurations cost a header exchange only.
type Source struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu     sync.Mutex
	etag   string
	cached domain.RemoteSnapshot
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient overrides the HTTP client, e.g. for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) { s.client = client }
}

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) Option {
	return func(s *Source) { s.apiKey = key }
}

// NewSource creates a source pointed at the service base URL.
func NewSource(baseURL string, opts ...Option) *Source {
	s := &Source{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch retrieves the current parameter snapshot.
func (s *Source) Fetch(ctx context.Context) (domain.RemoteSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+snapshotPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	s.mu.Lock()
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}
	s.mu.Unlock()

	resp, err := s.client.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrNetworkUnavailable, err)
		}
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		s.mu.Lock()
		cached := s.cached
		s.mu.Unlock()
		if cached == nil {
			return nil, fmt.Errorf("%w: 304 with no cached snapshot", domain.ErrFetchFailed)
		}
		logger.Debug("configuration snapshot unchanged")
		return cached, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: snapshot endpoint returned %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, domain.MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	if len(body) > domain.MaxDocumentSize {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", domain.ErrConfigTooLarge, domain.MaxDocumentSize)
	}

	snapshot, err := parseSnapshot(body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.etag = resp.Header.Get("ETag")
	s.cached = snapshot
	s.mu.Unlock()

	return snapshot, nil
}

// parseSnapshot flattens the service's parameter envelope into a
// key-value map. The envelope looks like:
//
//	{"parameters": {"prompt_config_version": {"value": "1.2.0"}, ...}}
func parseSnapshot(body []byte) (domain.RemoteSnapshot, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: snapshot is not valid JSON", domain.ErrFetchFailed)
	}
	params := gjson.GetBytes(body, "parameters")
	if !params.Exists() || !params.IsObject() {
		return nil, fmt.Errorf("%w: snapshot has no parameters object", domain.ErrFetchFailed)
	}

	snapshot := make(domain.RemoteSnapshot)
	params.ForEach(func(key, param gjson.Result) bool {
		value := param.Get("value")
		if value.Exists() {
			snapshot[key.String()] = value.String()
		}
		return true
	})
	return snapshot, nil
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
