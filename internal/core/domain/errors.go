package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// Storage errors.

	// ErrBlobNotFound indicates a requested blob does not exist in the store.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidConfiguration indicates a configuration document violates
	// its invariants and must not be persisted or loaded.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrLoadFailed indicates the active configuration slot and every
	// backup slot failed to decode or validate.
	ErrLoadFailed = errors.New("configuration load failed")

	// Transport/availability errors. RemoteSync retries these automatically.

	// ErrNetworkUnavailable indicates no network reachability.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrFetchTimeout indicates the remote fetch exceeded its deadline.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrFetchFailed indicates a generic remote fetch failure.
	ErrFetchFailed = errors.New("fetch failed")

	// Format/validation errors. Never retried.

	// ErrConfigFormat indicates a malformed remote configuration payload.
	ErrConfigFormat = errors.New("configuration format error")

	// ErrVersionIncompatible indicates the running app version is below
	// the remote-supplied minimum.
	ErrVersionIncompatible = errors.New("app version incompatible")

	// ErrConfigTooLarge indicates the document exceeds the size budget.
	ErrConfigTooLarge = errors.New("configuration too large")

	// Gating. An expected non-error outcome, never surfaced to the user.

	// ErrNotInRollout indicates this installation falls outside the
	// remote-supplied rollout percentage.
	ErrNotInRollout = errors.New("installation not in rollout")

	// ErrMaxRetriesExceeded wraps the last transient error after the
	// retry budget is exhausted.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// Template errors.

	// ErrTemplateNotFound indicates no template, built-in or configured,
	// could be resolved for a key.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateSyntax indicates unbalanced markers or a denied substring.
	ErrTemplateSyntax = errors.New("template syntax error")

	// ErrTemplateTooLarge indicates a template body exceeds the length cap.
	ErrTemplateTooLarge = errors.New("template too large")

	// ErrOutputTooShort indicates a rendered prompt below the minimum length.
	ErrOutputTooShort = errors.New("rendered prompt too short")

	// ErrOutputTooLong indicates a rendered prompt above the maximum length.
	ErrOutputTooLong = errors.New("rendered prompt too long")

	// ErrMissingVariables indicates unresolved variables survived rendering.
	ErrMissingVariables = errors.New("unresolved template variables")

	// Coordinator errors.

	// ErrConfigurationMissing indicates no configuration is active.
	ErrConfigurationMissing = errors.New("no active configuration")

	// ErrInitializationFailed indicates startup could not complete fully.
	// The hardcoded default is still loaded, so prompt building works.
	ErrInitializationFailed = errors.New("initialization failed")

	// ErrPromptBuildFailed wraps any template engine failure surfaced
	// through the coordinator.
	ErrPromptBuildFailed = errors.New("prompt build failed")

	// Generation backend errors.

	// ErrGenerationRateLimited indicates the backend rejected the request
	// due to rate limiting.
	ErrGenerationRateLimited = errors.New("generation rate limited")

	// ErrContentFiltered indicates the backend filtered the response.
	ErrContentFiltered = errors.New("generation content filtered")

	// ErrResponseTruncated indicates the backend hit its token limit.
	// Partial text is still returned alongside this error.
	ErrResponseTruncated = errors.New("generation response truncated")
)

// ValidationError reports every invariant a configuration document
// violates, not just the first.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Unwrap allows errors.Is(err, ErrInvalidConfiguration).
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// FormatError reports a malformed remote configuration value, carrying a
// diagnostic fragment of the offending payload.
type FormatError struct {
	Key      string
	Detail   string
	Fragment string
}

func (e *FormatError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("configuration format error: key %q: %s", e.Key, e.Detail)
	}
	return fmt.Sprintf("configuration format error: key %q: %s (payload: %s)", e.Key, e.Detail, e.Fragment)
}

// Unwrap allows errors.Is(err, ErrConfigFormat).
func (e *FormatError) Unwrap() error { return ErrConfigFormat }

// NewFormatError builds a FormatError, truncating the payload to a short
// diagnostic fragment.
func NewFormatError(key, detail, payload string) *FormatError {
	const maxFragment = 120
	fragment := payload
	if len(fragment) > maxFragment {
		fragment = fragment[:maxFragment] + "..."
	}
	return &FormatError{Key: key, Detail: detail, Fragment: fragment}
}
