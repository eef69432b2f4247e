package domain

import (
	"strconv"
	"strings"
)

// Placeholder text substituted for journal fields the user left blank.
const (
	NotFilledZH = "未填写"
	NotFilledEN = "Not filled"
)

// NotFilled returns the language-appropriate placeholder for a blank field.
func NotFilled(lang Language) string {
	if lang == LanguageChinese {
		return NotFilledZH
	}
	return NotFilledEN
}

// IsPlaceholder reports whether a value is blank or one of the "not filled"
// placeholders. Optional markers and conditions treat such values as absent.
func IsPlaceholder(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed == "" || trimmed == NotFilledZH || trimmed == NotFilledEN
}

// BuildVariables assembles the flat variable context for one render:
// entry fields with language-appropriate placeholders, tone identity and
// description, and optional personalisation variables.
func BuildVariables(entry *EmotionEntry, tone Tone, lang Language, toneDescription string, user *UserContext) map[string]string {
	orPlaceholder := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return NotFilled(lang)
		}
		return strings.TrimSpace(s)
	}

	date := entry.Date.Format("January 2, 2006")
	if lang == LanguageChinese {
		date = entry.Date.Format("2006年1月2日")
	}

	vars := map[string]string{
		"date":             date,
		"place":            orPlaceholder(entry.Place),
		"people":           orPlaceholder(entry.People),
		"what_happened":    orPlaceholder(entry.WhatHappened),
		"feelings":         orPlaceholder(entry.Feelings),
		"why":              orPlaceholder(entry.Why),
		"reframe":          orPlaceholder(entry.Reframe),
		"self_talk":        orPlaceholder(entry.SelfTalk),
		"release":          orPlaceholder(entry.Release),
		"record_severity":  strconv.Itoa(entry.RecordSeverity),
		"tone_name":        string(tone),
		"tone_description": toneDescription,
		"language":         string(lang),
	}

	if entry.ProcessSeverity > 0 {
		vars["process_severity"] = strconv.Itoa(entry.ProcessSeverity)
	} else {
		vars["process_severity"] = NotFilled(lang)
	}

	if user != nil {
		if user.DisplayName != "" {
			vars["user_name"] = user.DisplayName
		}
		if len(user.TopTags) > 0 {
			vars["user_tags"] = strings.Join(user.TopTags, ", ")
		}
		if len(user.TopicPreferences) > 0 {
			vars["user_topics"] = strings.Join(user.TopicPreferences, ", ")
		}
		if user.CommunicationStyle != "" {
			vars["communication_style"] = user.CommunicationStyle
		}
	}

	return vars
}
