package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
)

func testEntry() *domain.EmotionEntry {
	return &domain.EmotionEntry{
		Date:           time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC),
		Place:          "office",
		WhatHappened:   "A deadline slipped",
		Feelings:       "frustrated",
		RecordSeverity: 3,
	}
}

func engineWith(t *testing.T, templates map[string]string) *TemplateEngine {
	t.Helper()
	doc := testDocument("2.0.0")
	for key, body := range templates {
		doc.Templates[key] = body
	}
	engine := NewTemplateEngine()
	require.NoError(t, engine.LoadConfiguration(doc))
	return engine
}

func TestTemplateEngine_BuildPrompt_Substitution(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "Hello {{user_name}}, on {{date}} you felt {{feelings}}, severity {{record_severity}}/5.",
	})
	user := &domain.UserContext{DisplayName: "Alex"}

	out, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, user)

	require.NoError(t, err)
	assert.Equal(t, "Hello Alex, on March 14, 2026 you felt frustrated, severity 3/5.", out)
}

func TestTemplateEngine_BuildPrompt_MissingVariableFails(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "Dear {{no_such_variable}}, today was {{what_happened}} and more text here.",
	})

	_, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingVariables)
	assert.Contains(t, err.Error(), "no_such_variable")
}

func TestTemplateEngine_BuildPrompt_OptionalBlockElided(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "What happened: {{what_happened}}\n{{?why}}Reason: {{why}}\n{{/why}}Severity: {{record_severity}}/5",
	})

	entry := testEntry() // Why is empty
	out, err := engine.BuildPrompt("en_warm", entry, domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "Reason:")

	entry.Why = "because it mattered"
	out, err = engine.BuildPrompt("en_warm", entry, domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Reason: because it mattered")
}

func TestTemplateEngine_BuildPrompt_OptionalInlineValueOrEmpty(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "Entry by {{?user_name}} about {{what_happened}}, severity {{record_severity}}/5.",
	})

	out, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Entry by  about")

	out, err = engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish,
		&domain.UserContext{DisplayName: "Alex"})
	require.NoError(t, err)
	assert.Contains(t, out, "Entry by Alex about")
}

func TestTemplateEngine_BuildPrompt_Conditionals(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "Felt {{feelings}} at severity {{record_severity}}/5.\n" +
			"{{#has_process_content}}Later: {{reframe}}\n{{/has_process_content}}" +
			"{{#severity_changed}}The intensity shifted.{{/severity_changed}}",
	})

	entry := testEntry()
	out, err := engine.BuildPrompt("en_warm", entry, domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "Later:")
	assert.NotContains(t, out, "shifted")

	entry.Reframe = "one deadline is not the project"
	entry.ProcessSeverity = 1
	out, err = engine.BuildPrompt("en_warm", entry, domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Later: one deadline is not the project")
	assert.Contains(t, out, "The intensity shifted.")
}

func TestTemplateEngine_BuildPrompt_ConditionalOnVariablePresence(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "About {{what_happened}}, severity {{record_severity}}/5. {{#user_name}}For {{user_name}}.{{/user_name}}",
	})

	out, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "For ")

	out, err = engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish,
		&domain.UserContext{DisplayName: "Sam"})
	require.NoError(t, err)
	assert.Contains(t, out, "For Sam.")
}

func TestTemplateEngine_BuildPrompt_PostProcessing(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "  First line about {{what_happened}}.   \n\n\n\n\nSecond line, severity {{record_severity}}/5.  \n\n",
	})

	out, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)

	require.NoError(t, err)
	assert.Equal(t, "First line about A deadline slipped.\n\nSecond line, severity 3/5.", out)
}

func TestTemplateEngine_BuildPrompt_OutputTooShort(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "{{?why}}padding that disappears{{/why}}ok",
	})

	_, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)

	assert.ErrorIs(t, err, domain.ErrOutputTooShort)
}

func TestTemplateEngine_BuildPrompt_OutputTooLong(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": strings.Repeat("padding words here ", 600) + "{{what_happened}}",
	})

	_, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)

	assert.ErrorIs(t, err, domain.ErrOutputTooLong)
}

func TestTemplateEngine_BuildPrompt_FallbackChain(t *testing.T) {
	engine := NewTemplateEngine()
	require.NoError(t, engine.LoadConfiguration(testDocument("2.0.0")))

	// en_healing is not in the document or the builtins; the chain lands on
	// the per-language default.
	out, err := engine.BuildPrompt(
		domain.TemplateKey(domain.LanguageEnglish, domain.ToneHealing),
		testEntry(), domain.ToneHealing, domain.LanguageEnglish, nil)

	require.NoError(t, err)
	assert.Contains(t, out, "A deadline slipped")
}

func TestTemplateEngine_BuildPrompt_NoConfigurationUsesBuiltins(t *testing.T) {
	engine := NewTemplateEngine()

	out, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)

	require.NoError(t, err)
	assert.Contains(t, out, "A deadline slipped")
}

func TestTemplateEngine_LoadConfiguration_RejectsInvalid(t *testing.T) {
	engine := NewTemplateEngine()
	require.NoError(t, engine.LoadConfiguration(testDocument("2.0.0")))

	bad := testDocument("3.0.0")
	delete(bad.Templates, "zh_warm")
	err := engine.LoadConfiguration(bad)

	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	// The previous configuration stays active.
	assert.Equal(t, "2.0.0", engine.ActiveVersion())
}

func TestTemplateEngine_LoadConfiguration_RejectsBadSyntax(t *testing.T) {
	engine := NewTemplateEngine()
	doc := testDocument("2.0.0")
	doc.Templates["en_warm"] = "Unbalanced {{what_happened} marker"

	err := engine.LoadConfiguration(doc)

	assert.ErrorIs(t, err, domain.ErrTemplateSyntax)
	assert.Equal(t, "", engine.ActiveVersion())
}

func TestTemplateEngine_LoadConfiguration_RejectsDeniedContent(t *testing.T) {
	engine := NewTemplateEngine()
	doc := testDocument("2.0.0")
	doc.Templates["en_warm"] = "Harmless text <SCRIPT>alert(1)</SCRIPT> more text"

	err := engine.LoadConfiguration(doc)

	assert.ErrorIs(t, err, domain.ErrTemplateSyntax)
}

func TestValidateTemplateSyntax(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"plain text", "no markers at all", false},
		{"variables", "{{a}} and {{b}}", false},
		{"section with close", "{{#x}}inner{{/x}}", false},
		{"optional inline without close", "{{?x}} trailing", false},
		{"optional block", "{{?x}}inner{{/x}}", false},
		{"unclosed section", "{{#x}}inner", true},
		{"close without opener", "inner{{/x}}", true},
		{"unbalanced braces", "{{a}} {{b}", true},
		{"too large", strings.Repeat("x", domain.MaxTemplateLength+1), true},
		{"javascript scheme", "click javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTemplateSyntax(tt.body)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTemplateEngine_SnapshotIsACopy(t *testing.T) {
	engine := NewTemplateEngine()
	require.NoError(t, engine.LoadConfiguration(testDocument("2.0.0")))

	snap := engine.Snapshot()
	snap.Templates["en_warm"] = "mutated"

	fresh := engine.Snapshot()
	assert.NotEqual(t, "mutated", fresh.Templates["en_warm"])
}

func TestTemplateEngine_CacheClearedOnReload(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "First body about {{what_happened}}, severity {{record_severity}}/5.",
	})

	out, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "First body")

	doc := testDocument("3.0.0")
	doc.Templates["en_warm"] = "Second body about {{what_happened}}, severity {{record_severity}}/5."
	require.NoError(t, engine.LoadConfiguration(doc))

	out, err = engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Second body")
}

func TestTemplateEngine_RenderRacingReloadCannotResurrectOldTemplate(t *testing.T) {
	engine := engineWith(t, map[string]string{
		"en_warm": "Old body about {{what_happened}}, severity {{record_severity}}/5.",
	})

	// A render in flight holds the pre-reload document while the reload
	// completes and purges the cache.
	stale := engine.Snapshot()

	doc := testDocument("3.0.0")
	doc.Templates["en_warm"] = "New body about {{what_happened}}, severity {{record_severity}}/5."
	require.NoError(t, engine.LoadConfiguration(doc))

	// The stale render resolves and caches its template after the purge.
	body, err := engine.resolveTemplate(stale, "en_warm", domain.ToneWarm, domain.LanguageEnglish)
	require.NoError(t, err)
	assert.Contains(t, body, "Old body")

	out, err := engine.BuildPrompt("en_warm", testEntry(), domain.ToneWarm, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "New body")
	assert.NotContains(t, out, "Old body")
}

func TestTemplateEngine_BuildPrompt_NilEntry(t *testing.T) {
	engine := engineWith(t, nil)

	_, err := engine.BuildPrompt("en_warm", nil, domain.ToneWarm, domain.LanguageEnglish, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPromptBuildFailed)
}

func TestTemplateEngine_BuiltinTemplatesRender(t *testing.T) {
	engine := NewTemplateEngine()
	require.NoError(t, engine.LoadConfiguration(domain.DefaultDocument()))

	entry := testEntry()
	entry.Why = "the plan was too tight"
	entry.Reframe = "one slip is recoverable"
	entry.SelfTalk = "I did what I could"
	entry.Release = "the need to be perfect"
	entry.ProcessSeverity = 2

	for _, tc := range []struct {
		lang domain.Language
		tone domain.Tone
	}{
		{domain.LanguageChinese, domain.ToneWarm},
		{domain.LanguageEnglish, domain.ToneWarm},
	} {
		out, err := engine.BuildPrompt(domain.TemplateKey(tc.lang, tc.tone), entry, tc.tone, tc.lang, nil)
		require.NoError(t, err, "%s_%s", tc.lang, tc.tone)
		assert.Contains(t, out, "A deadline slipped")
		assert.NotContains(t, out, "{{")
	}
}
