package domain

import "time"

// DefaultConfigVersion is the version tag of the built-in bootstrap document.
const DefaultConfigVersion = "1.0.0"

// Built-in template bodies. These ship with the binary and back the
// fallback chain: a configuration update can override them but can never
// leave the system without a renderable template.
//
//nolint:lll // Template content is intentionally long and should not be wrapped.
var builtinTemplates = map[string]string{
	"zh_warm": `你是一个回应情绪日记的 AI。你的声音:{{tone_description}}

这是一篇 {{date}} 写下的情绪日记,请以"{{tone_name}}"的语气,用中文写一段 150-200 字的回应。
{{#user_name}}写日记的人希望被称作 {{user_name}}。{{/user_name}}

日记内容:
- 地点:{{place}}
- 相关的人:{{people}}
- 发生了什么:{{what_happened}}
- 当时的感受:{{feelings}}
- 情绪强度:{{record_severity}}/5
{{?why}}- 为什么会有这样的感受:{{why}}
{{/why}}
{{#has_process_content}}
后来,写日记的人重新梳理了这件事:
- 换个角度看:{{reframe}}
- 想对自己说:{{self_talk}}
- 想要放下的:{{release}}
- 梳理后的情绪强度:{{process_severity}}/5
{{/has_process_content}}
{{#severity_changed}}
情绪强度前后发生了变化,请在回应里自然地肯定这种变化。
{{/severity_changed}}

要求:先共情,再轻轻给出一个新的视角。不要说教,不要使用列表或标题,像写一封短信一样。`,

	"en_warm": `You are an AI responding to an emotional journal entry. Your voice: {{tone_description}}

This entry was written on {{date}}. Reply in English, in a "{{tone_name}}" tone, in 120-180 words.
{{#user_name}}The writer likes to be called {{user_name}}.{{/user_name}}

The entry:
- Place: {{place}}
- People involved: {{people}}
- What happened: {{what_happened}}
- How it felt: {{feelings}}
- Intensity: {{record_severity}}/5
{{?why}}- Why it felt that way: {{why}}
{{/why}}
{{#has_process_content}}
Later, the writer revisited the moment:
- Seen another way: {{reframe}}
- What they want to tell themselves: {{self_talk}}
- What they want to let go of: {{release}}
- Intensity after processing: {{process_severity}}/5
{{/has_process_content}}
{{#severity_changed}}
The intensity changed between recording and processing. Acknowledge that shift naturally.
{{/severity_changed}}

Empathise first, then gently offer one new perspective. No lecturing, no lists, no headings. Write it like a short letter.`,

	"zh_default": `你是一个温柔的情绪日记回应者。请阅读下面这篇 {{date}} 的日记,用中文写一段 150 字左右的回应,先共情,再给出一个温柔的视角。

发生了什么:{{what_happened}}
当时的感受:{{feelings}}
情绪强度:{{record_severity}}/5`,

	"en_default": `You are a gentle companion responding to a journal entry from {{date}}. Reply in English in about 150 words. Empathise first, then offer one kind perspective.

What happened: {{what_happened}}
How it felt: {{feelings}}
Intensity: {{record_severity}}/5`,

	"default": `You are a kind companion responding to a personal journal entry written on {{date}}.

What happened: {{what_happened}}
How it felt: {{feelings}}
Intensity: {{record_severity}}/5

Reply with empathy in about 150 words.`,
}

// BuiltinTemplate returns the built-in fallback body for key, if any.
func BuiltinTemplate(key string) (string, bool) {
	body, ok := builtinTemplates[key]
	return body, ok
}

// GenericTemplateKey is the last resort of the template fallback chain.
const GenericTemplateKey = "default"

// DefaultTemplateKey returns the per-language fallback key "<lang>_default".
func DefaultTemplateKey(lang Language) string {
	return string(lang) + "_default"
}

// DefaultDocument constructs the hardcoded bootstrap configuration.
// It is used when no stored document exists and as the floor the system
// degrades to when everything else fails.
func DefaultDocument() *ConfigurationDocument {
	templates := make(map[string]string, len(builtinTemplates))
	for key, body := range builtinTemplates {
		templates[key] = body
	}
	return &ConfigurationDocument{
		Version:            DefaultConfigVersion,
		LastModified:       time.Now(),
		Templates:          templates,
		SupportedLanguages: []string{string(LanguageChinese), string(LanguageEnglish)},
		SupportedTones:     []string{string(ToneWarm), string(ToneHealing), string(ToneRational)},
		Metadata: map[string]MetaValue{
			"source": MetaStringValue("builtin"),
		},
	}
}
