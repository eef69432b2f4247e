package domain

import (
	"fmt"
	"time"
)

// Size limits for configuration content.
const (
	// MaxDocumentSize bounds a document's estimated in-memory footprint (1 MiB).
	MaxDocumentSize = 1 << 20

	// MaxTemplateLength bounds a single template body.
	MaxTemplateLength = 50000
)

// CanonicalTemplateKeys are the template keys every valid configuration
// must provide, in the document itself or through the built-in defaults.
var CanonicalTemplateKeys = []string{"zh_warm", "en_warm"}

// ConfigurationDocument is the unit of versioned prompt configuration.
// Documents are replaced whole on update, never mutated in place.
type ConfigurationDocument struct {
	// Version is an informational ordering key, compared as a string only.
	Version string `json:"version"`

	// LastModified is when this document was produced or accepted.
	LastModified time.Time `json:"last_modified"`

	// Templates maps "<language>_<tone>[_<style>]" keys to template bodies.
	Templates map[string]string `json:"templates"`

	// SupportedLanguages is the non-empty set of language tags.
	SupportedLanguages []string `json:"supported_languages"`

	// SupportedTones is the non-empty set of tone tags.
	SupportedTones []string `json:"supported_tones"`

	// ToneDescriptions optionally overrides the hardcoded tone voices,
	// keyed by "<language>_<tone>".
	ToneDescriptions map[string]string `json:"tone_descriptions,omitempty"`

	// Metadata is free-form provenance, never interpreted by the engine.
	Metadata map[string]MetaValue `json:"metadata,omitempty"`
}

// Validate checks the document invariants and reports every violation.
// Returns a *ValidationError wrapping ErrInvalidConfiguration on failure.
func (d *ConfigurationDocument) Validate() error {
	var problems []string

	if d.Version == "" {
		problems = append(problems, "version is empty")
	}
	if len(d.Templates) == 0 {
		problems = append(problems, "no templates")
	} else {
		for _, key := range CanonicalTemplateKeys {
			if body, ok := d.Templates[key]; !ok || body == "" {
				problems = append(problems, fmt.Sprintf("missing canonical template %q", key))
			}
		}
	}
	if len(d.SupportedLanguages) == 0 {
		problems = append(problems, "no supported languages")
	}
	if len(d.SupportedTones) == 0 {
		problems = append(problems, "no supported tones")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ContentHash is a cheap content fingerprint derived from the version and
// template count, used to skip redundant persistence.
func (d *ConfigurationDocument) ContentHash() string {
	return fmt.Sprintf("%s_%d", d.Version, len(d.Templates))
}

// EstimatedSize approximates the document's in-memory footprint in bytes.
func (d *ConfigurationDocument) EstimatedSize() int {
	size := len(d.Version)
	for key, body := range d.Templates {
		size += len(key) + len(body)
	}
	for key, desc := range d.ToneDescriptions {
		size += len(key) + len(desc)
	}
	for key, val := range d.Metadata {
		size += len(key) + len(val.String())
	}
	for _, lang := range d.SupportedLanguages {
		size += len(lang)
	}
	for _, tone := range d.SupportedTones {
		size += len(tone)
	}
	return size
}

// Template returns the template body for key, if present.
func (d *ConfigurationDocument) Template(key string) (string, bool) {
	body, ok := d.Templates[key]
	return body, ok
}

// HasTemplate reports whether the document carries a body for key.
func (d *ConfigurationDocument) HasTemplate(key string) bool {
	_, ok := d.Templates[key]
	return ok
}

// Clone returns a deep copy. Stored and published documents are cloned so
// no caller can mutate a document another component holds.
func (d *ConfigurationDocument) Clone() *ConfigurationDocument {
	clone := &ConfigurationDocument{
		Version:            d.Version,
		LastModified:       d.LastModified,
		Templates:          make(map[string]string, len(d.Templates)),
		SupportedLanguages: append([]string(nil), d.SupportedLanguages...),
		SupportedTones:     append([]string(nil), d.SupportedTones...),
	}
	for k, v := range d.Templates {
		clone.Templates[k] = v
	}
	if d.ToneDescriptions != nil {
		clone.ToneDescriptions = make(map[string]string, len(d.ToneDescriptions))
		for k, v := range d.ToneDescriptions {
			clone.ToneDescriptions[k] = v
		}
	}
	if d.Metadata != nil {
		clone.Metadata = make(map[string]MetaValue, len(d.Metadata))
		for k, v := range d.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// ToneDescription resolves the voice description for a language/tone pair:
// the document's override first, then the hardcoded fallbacks.
func (d *ConfigurationDocument) ToneDescription(lang Language, tone Tone) string {
	if desc, ok := d.ToneDescriptions[TemplateKey(lang, tone)]; ok && desc != "" {
		return desc
	}
	return FallbackToneDescription(lang, tone)
}
