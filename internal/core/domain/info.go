package domain

import "time"

// UpdateState tracks the lifecycle of a configuration update.
type UpdateState string

// Update states.
const (
	// UpdateStateIdle means no update has been attempted yet.
	UpdateStateIdle UpdateState = "idle"

	// UpdateStateUpdating means a fetch is in flight.
	UpdateStateUpdating UpdateState = "updating"

	// UpdateStateSuccess means the last update completed, possibly as a
	// no-op when the remote version matched the active one.
	UpdateStateSuccess UpdateState = "success"

	// UpdateStateFailed means the last update ended in an error.
	UpdateStateFailed UpdateState = "failed"
)

// String returns the string representation.
func (s UpdateState) String() string {
	return string(s)
}

// ConfigInfo is a read-only snapshot of the active configuration, exposed
// for diagnostics and the info command.
type ConfigInfo struct {
	// Version is the active document's version tag.
	Version string `json:"version"`

	// LastUpdate is the active document's LastModified timestamp.
	LastUpdate time.Time `json:"last_update"`

	// Languages are the supported language tags.
	Languages []string `json:"languages"`

	// Tones are the supported tone tags.
	Tones []string `json:"tones"`

	// TemplateCount is the number of templates in the active document.
	TemplateCount int `json:"template_count"`

	// Status is the state of the most recent update attempt.
	Status UpdateState `json:"status"`
}
