package driving

import (
	"context"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
)

// BuildOptions tunes a single BuildPrompt call.
type BuildOptions struct {
	// IncludePersonalization enables the best-effort profile lookup.
	// Defaults to true.
	IncludePersonalization bool
}

// DefaultBuildOptions returns the options used when none are supplied.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{IncludePersonalization: true}
}

// PromptService is the caller-facing surface of the prompt configuration
// subsystem.
type PromptService interface {
	// Initialize prepares the service: loads the stored configuration or
	// falls back to the built-in default, and starts background updates.
	// Idempotent; safe to call concurrently.
	Initialize(ctx context.Context) error

	// BuildPrompt renders the prompt for an entry in the given tone and
	// language. The built-in default configuration guarantees a rendering
	// path even when no update has ever succeeded.
	BuildPrompt(ctx context.Context, entry *domain.EmotionEntry, tone domain.Tone, lang domain.Language, opts BuildOptions) (string, error)

	// UpdateFromRemote explicitly fetches, persists, and activates the
	// latest remote configuration. A remote version equal to the active
	// one is a no-op success, as is a not-in-rollout outcome.
	UpdateFromRemote(ctx context.Context) (domain.UpdateState, error)

	// ConfigInfo returns a snapshot describing the active configuration.
	ConfigInfo() domain.ConfigInfo

	// Close stops background work and releases resources.
	Close() error
}

// ConfigUpdater is the narrow surface the update scheduler drives.
type ConfigUpdater interface {
	UpdateFromRemote(ctx context.Context) (domain.UpdateState, error)
}
