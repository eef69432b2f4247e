package domain

import "time"

// EmotionEntry is the journal entry a prompt is rendered from.
// Fields are read-only input to this subsystem and are never persisted here.
type EmotionEntry struct {
	// Date is when the entry was written.
	Date time.Time `json:"date"`

	// Place is where the moment happened.
	Place string `json:"place"`

	// People names who was involved.
	People string `json:"people"`

	// Record stage: captured in the moment.

	// WhatHappened is the free-text account of the event.
	WhatHappened string `json:"what_happened"`

	// Feelings is the free-text description of the emotion.
	Feelings string `json:"feelings"`

	// Why is the free-text reflection on the cause.
	Why string `json:"why"`

	// RecordSeverity is the felt intensity when recording, 1-5.
	RecordSeverity int `json:"record_severity"`

	// Process stage: revisiting the entry later. May be entirely empty.

	// Reframe is the alternative reading of the event.
	Reframe string `json:"reframe"`

	// SelfTalk is what the writer wants to tell themselves.
	SelfTalk string `json:"self_talk"`

	// Release is what the writer wants to let go of.
	Release string `json:"release"`

	// ProcessSeverity is the intensity after processing, 1-5, 0 if unset.
	ProcessSeverity int `json:"process_severity"`
}

// HasProcessContent reports whether any processing-stage field was filled.
func (e *EmotionEntry) HasProcessContent() bool {
	return !IsPlaceholder(e.Reframe) || !IsPlaceholder(e.SelfTalk) || !IsPlaceholder(e.Release)
}

// SeverityChanged reports whether the record and process severities are
// both set and differ.
func (e *EmotionEntry) SeverityChanged() bool {
	return e.RecordSeverity > 0 && e.ProcessSeverity > 0 && e.RecordSeverity != e.ProcessSeverity
}

// UserContext carries optional personalisation from the user profile.
// It is best-effort input: a missing profile never blocks prompt building.
type UserContext struct {
	// DisplayName is how the user wants to be addressed.
	DisplayName string `json:"display_name"`

	// TopTags are the user's most frequent personal tags.
	TopTags []string `json:"top_tags"`

	// TopicPreferences are topics the user cares about.
	TopicPreferences []string `json:"topic_preferences"`

	// CommunicationStyle selects a template variant, e.g. "direct".
	CommunicationStyle string `json:"communication_style"`
}
