package domain

// Language is a supported journal language tag.
type Language string

// Supported languages.
const (
	// LanguageChinese is Simplified Chinese.
	LanguageChinese Language = "zh"

	// LanguageEnglish is English.
	LanguageEnglish Language = "en"
)

// DefaultLanguage is used when the entry language cannot be determined.
const DefaultLanguage = LanguageChinese

// IsValid returns true if the language tag is recognised.
func (l Language) IsValid() bool {
	switch l {
	case LanguageChinese, LanguageEnglish:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (l Language) String() string {
	return string(l)
}

// Tone is a reply voice for generated journal responses.
type Tone string

// Available tones.
const (
	// ToneWarm responds like a gentle, accepting friend.
	ToneWarm Tone = "warm"

	// ToneHealing responds like a quiet, soothing companion.
	ToneHealing Tone = "healing"

	// ToneRational responds like a calm, objective listener.
	ToneRational Tone = "rational"
)

// DefaultTone is the tone used when none is requested.
const DefaultTone = ToneWarm

// IsValid returns true if the tone tag is recognised.
func (t Tone) IsValid() bool {
	switch t {
	case ToneWarm, ToneHealing, ToneRational:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t Tone) String() string {
	return string(t)
}

// TemplateKey builds the composite template key "<language>_<tone>".
func TemplateKey(lang Language, tone Tone) string {
	return string(lang) + "_" + string(tone)
}

// WidenedTemplateKey builds "<language>_<tone>_<style>" for
// personalisation-specific template variants.
func WidenedTemplateKey(lang Language, tone Tone, style string) string {
	return TemplateKey(lang, tone) + "_" + style
}

// toneFallbacks holds the hardcoded per-language tone voice descriptions
// used when a document supplies no override.
var toneFallbacks = map[string]string{
	"zh_warm":     "像一位温柔的朋友:语气温暖、包容,先共情,再轻轻给出一个新的视角。",
	"zh_healing":  "像一位安静的陪伴者:语气舒缓、治愈,帮助写日记的人与自己的情绪和解。",
	"zh_rational": "像一位冷静的倾听者:条理清晰、客观中立,帮助写日记的人梳理事实与感受。",
	"en_warm":     "Like a gentle friend: warm and accepting, empathise first, then softly offer a new perspective.",
	"en_healing":  "Like a quiet companion: soothing and restorative, helping the writer make peace with the feeling.",
	"en_rational": "Like a calm listener: clear and objective, helping the writer untangle facts from feelings.",
}

// FallbackToneDescription returns the hardcoded voice description for a
// language/tone pair. Falls back to the English entry, then to the tone
// name itself, so the result is never empty for a valid tone.
func FallbackToneDescription(lang Language, tone Tone) string {
	if desc, ok := toneFallbacks[TemplateKey(lang, tone)]; ok {
		return desc
	}
	if desc, ok := toneFallbacks[TemplateKey(LanguageEnglish, tone)]; ok {
		return desc
	}
	return string(tone)
}
