package domain

import "strconv"

// Remote configuration keys consumed by RemoteSync. All values arrive as
// strings; JSON-typed values are string-encoded JSON.
const (
	// RemoteKeyVersion is the version tag of the candidate document.
	RemoteKeyVersion = "prompt_config_version"

	// RemoteKeyTemplates is a JSON object of template bodies.
	RemoteKeyTemplates = "prompt_templates"

	// RemoteKeyToneDescriptions is an optional JSON object of tone voices.
	RemoteKeyToneDescriptions = "tone_descriptions"

	// RemoteKeySupportedLanguages is a JSON array of language tags.
	RemoteKeySupportedLanguages = "supported_languages"

	// RemoteKeySupportedTones is a JSON array of tone tags.
	RemoteKeySupportedTones = "supported_tones"

	// RemoteKeyFeatureFlags is an optional mixed-type JSON object,
	// coerced into document metadata.
	RemoteKeyFeatureFlags = "feature_flags"

	// RemoteKeyUpdateInterval optionally overrides the periodic fetch
	// interval, in seconds.
	RemoteKeyUpdateInterval = "update_interval"

	// RemoteKeyMinAppVersion optionally gates the update to app versions
	// at or above this value.
	RemoteKeyMinAppVersion = "min_app_version"

	// RemoteKeyRolloutPercentage optionally stages the rollout, 0-100.
	RemoteKeyRolloutPercentage = "rollout_percentage"
)

// RemoteSnapshot is the raw key/value reply from the remote configuration
// source after a fetch/activate cycle.
type RemoteSnapshot map[string]string

// Value returns the raw string for key and whether it was present.
func (s RemoteSnapshot) Value(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// Number parses key as a number, accepting integer and decimal forms.
func (s RemoteSnapshot) Number(key string) (float64, bool) {
	raw, ok := s[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
