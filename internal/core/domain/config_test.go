package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *ConfigurationDocument {
	return &ConfigurationDocument{
		Version: "2.0.0",
		Templates: map[string]string{
			"zh_warm": "模板正文 {{what_happened}} 与 {{feelings}} 的内容",
			"en_warm": "Template body with {{what_happened}} and {{feelings}}",
		},
		SupportedLanguages: []string{"zh", "en"},
		SupportedTones:     []string{"warm", "healing", "rational"},
	}
}

func TestConfigurationDocument_Validate_Success(t *testing.T) {
	require.NoError(t, validDocument().Validate())
}

func TestConfigurationDocument_Validate_CollectsAllProblems(t *testing.T) {
	doc := &ConfigurationDocument{}

	err := doc.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Len(t, vErr.Problems, 4)
}

func TestConfigurationDocument_Validate_MissingCanonicalTemplate(t *testing.T) {
	doc := validDocument()
	delete(doc.Templates, "en_warm")

	err := doc.Validate()

	require.Error(t, err)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Problems, 1)
	assert.Contains(t, vErr.Problems[0], "en_warm")
}

func TestConfigurationDocument_Validate_EmptyCanonicalBody(t *testing.T) {
	doc := validDocument()
	doc.Templates["zh_warm"] = ""

	err := doc.Validate()

	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestConfigurationDocument_ContentHash(t *testing.T) {
	doc := validDocument()
	assert.Equal(t, "2.0.0_2", doc.ContentHash())

	doc.Templates["en_healing"] = "one more {{feelings}} template body"
	assert.Equal(t, "2.0.0_3", doc.ContentHash())
}

func TestConfigurationDocument_Clone_Independent(t *testing.T) {
	doc := validDocument()
	doc.ToneDescriptions = map[string]string{"zh_warm": "voice"}
	doc.Metadata = map[string]MetaValue{"source": {Kind: MetaString, Str: "remote"}}

	clone := doc.Clone()
	clone.Templates["zh_warm"] = "changed"
	clone.SupportedLanguages[0] = "ja"
	clone.ToneDescriptions["zh_warm"] = "changed"

	assert.NotEqual(t, doc.Templates["zh_warm"], clone.Templates["zh_warm"])
	assert.Equal(t, "zh", doc.SupportedLanguages[0])
	assert.Equal(t, "voice", doc.ToneDescriptions["zh_warm"])
}

func TestConfigurationDocument_ToneDescription(t *testing.T) {
	doc := validDocument()
	doc.ToneDescriptions = map[string]string{"en_warm": "custom warm voice"}

	assert.Equal(t, "custom warm voice", doc.ToneDescription(LanguageEnglish, ToneWarm))

	// No override falls back to the hardcoded description.
	assert.Equal(t, FallbackToneDescription(LanguageEnglish, ToneHealing),
		doc.ToneDescription(LanguageEnglish, ToneHealing))
}

func TestFallbackToneDescription_UnknownLanguageUsesEnglish(t *testing.T) {
	desc := FallbackToneDescription(Language("ja"), ToneWarm)
	assert.Equal(t, toneFallbacks["en_warm"], desc)
}

func TestConfigurationDocument_EstimatedSize(t *testing.T) {
	doc := validDocument()
	size := doc.EstimatedSize()

	assert.Greater(t, size, 0)

	doc.Templates["en_extra"] = "0123456789"
	assert.Equal(t, size+len("en_extra")+10, doc.EstimatedSize())
}
