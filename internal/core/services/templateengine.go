package services

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// Rendering limits.
const (
	// maxRenderRounds bounds the iterative substitution loop.
	maxRenderRounds = 10

	// minPromptLength and maxPromptLength bound the rendered output,
	// exclusive on both ends.
	minPromptLength = 10
	maxPromptLength = 10000
)

// Template marker patterns. Go regexp has no backreferences, so block
// patterns capture the closing name and the callback verifies it matches.
var (
	varPattern       = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)
	optBlockPattern  = regexp.MustCompile(`(?s)\{\{\?([a-zA-Z0-9_]+)\}\}(.*?)\{\{/([a-zA-Z0-9_]+)\}\}`)
	optInlinePattern = regexp.MustCompile(`\{\{\?([a-zA-Z0-9_]+)\}\}`)
	condPattern      = regexp.MustCompile(`(?s)\{\{#([a-zA-Z0-9_]+)\}\}(.*?)\{\{/([a-zA-Z0-9_]+)\}\}`)
	missingPattern   = regexp.MustCompile(`\{\{MISSING:([a-zA-Z0-9_]+)\}\}`)
	sectionOpen      = regexp.MustCompile(`\{\{#([a-zA-Z0-9_]+)\}\}`)
	optionalOpen     = regexp.MustCompile(`\{\{\?([a-zA-Z0-9_]+)\}\}`)
	sectionClose     = regexp.MustCompile(`\{\{/([a-zA-Z0-9_]+)\}\}`)
	excessNewlines   = regexp.MustCompile(`\n{3,}`)
	trailingSpace    = regexp.MustCompile(`(?m)[ \t]+$`)
)

// deniedSubstrings are rejected anywhere in a template body, case
// insensitively. Templates come from remote configuration and must never
// smuggle markup that downstream surfaces could interpret.
var deniedSubstrings = []string{
	"<script",
	"</script",
	"javascript:",
	"onerror=",
	"onload=",
	"eval(",
}

// TemplateEngine compiles and renders prompt templates from the active
// configuration document. Rendering is synchronous and CPU-bound; the
// only shared state is the active document and the compiled-template
// cache, both guarded here.
type TemplateEngine struct {
	mu    sync.RWMutex
	doc   *domain.ConfigurationDocument
	cache *templateCache
}

// NewTemplateEngine creates an engine with no configuration loaded.
// Callers load a document before rendering; the coordinator guarantees at
// minimum the built-in default.
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{
		cache: newTemplateCache(defaultCacheEntries, defaultCacheCost),
	}
}

// LoadConfiguration validates doc and makes it the active configuration.
// On any failure the previously loaded configuration stays active and the
// compiled-template cache is untouched. On success the cache is cleared.
func (e *TemplateEngine) LoadConfiguration(doc *domain.ConfigurationDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", domain.ErrInvalidConfiguration)
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	for key, body := range doc.Templates {
		if err := validateTemplateSyntax(body); err != nil {
			return fmt.Errorf("template %q: %w", key, err)
		}
	}

	e.mu.Lock()
	e.doc = doc.Clone()
	e.mu.Unlock()
	e.cache.Purge()

	logger.Info("template engine loaded configuration %s (%d templates)", doc.Version, len(doc.Templates))
	return nil
}

// ActiveVersion returns the loaded document's version, or "" if none.
func (e *TemplateEngine) ActiveVersion() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.doc == nil {
		return ""
	}
	return e.doc.Version
}

// HasTemplate reports whether the active document carries key.
func (e *TemplateEngine) HasTemplate(key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc != nil && e.doc.HasTemplate(key)
}

// Snapshot returns a copy of the active document, or nil if none loaded.
func (e *TemplateEngine) Snapshot() *domain.ConfigurationDocument {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.doc == nil {
		return nil
	}
	return e.doc.Clone()
}

// PurgeCache drops the compiled-template cache, e.g. on memory pressure.
// Only performance is affected.
func (e *TemplateEngine) PurgeCache() {
	e.cache.Purge()
}

// BuildPrompt renders the template identified by templateKey for an entry.
// Resolution falls back from the active document to the built-in defaults
// (exact key, then "<language>_default", then the generic default).
func (e *TemplateEngine) BuildPrompt(templateKey string, entry *domain.EmotionEntry, tone domain.Tone, lang domain.Language, user *domain.UserContext) (string, error) {
	if entry == nil {
		return "", fmt.Errorf("%w: nil entry", domain.ErrPromptBuildFailed)
	}

	e.mu.RLock()
	doc := e.doc
	e.mu.RUnlock()

	body, err := e.resolveTemplate(doc, templateKey, tone, lang)
	if err != nil {
		return "", err
	}

	toneDescription := domain.FallbackToneDescription(lang, tone)
	if doc != nil {
		toneDescription = doc.ToneDescription(lang, tone)
	}
	vars := domain.BuildVariables(entry, tone, lang, toneDescription, user)

	rendered := renderTemplate(body, vars, entry)
	rendered = postProcess(rendered)
	if err := validateOutput(rendered); err != nil {
		return "", err
	}
	return rendered, nil
}

// resolveTemplate finds the raw template body for a key, consulting the
// compiled-template cache first. The cache only short-circuits lookup;
// rendering and output validation always run. Cache keys carry the source
// document's version: a render holding a pre-reload snapshot can only
// insert under the superseded version, never under a key the newly loaded
// configuration serves.
func (e *TemplateEngine) resolveTemplate(doc *domain.ConfigurationDocument, templateKey string, tone domain.Tone, lang domain.Language) (string, error) {
	version := ""
	if doc != nil {
		version = doc.Version
	}
	cacheKey := version + "|" + templateKey + "_" + string(tone) + "_" + string(lang)
	if body, ok := e.cache.Get(cacheKey); ok {
		return body, nil
	}

	body, ok := "", false
	if doc != nil {
		body, ok = doc.Template(templateKey)
	}
	if !ok {
		body, ok = domain.BuiltinTemplate(templateKey)
	}
	if !ok {
		body, ok = domain.BuiltinTemplate(domain.DefaultTemplateKey(lang))
	}
	if !ok {
		body, ok = domain.BuiltinTemplate(domain.GenericTemplateKey)
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, templateKey)
	}

	e.cache.Put(cacheKey, body)
	return body, nil
}

// renderTemplate iteratively applies the three substitution passes until
// a round produces no change, bounded by maxRenderRounds.
func renderTemplate(body string, vars map[string]string, entry *domain.EmotionEntry) string {
	out := body
	for round := 0; round < maxRenderRounds; round++ {
		next := substituteVariables(out, vars)
		next = applyOptionals(next, vars)
		next = applyConditionals(next, vars, entry)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// substituteVariables replaces {{name}} markers with context values, and
// absent variables with a visible {{MISSING:name}} marker. The marker's
// colon keeps it out of reach of later substitution rounds.
func substituteVariables(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-2]
		if val, ok := vars[name]; ok {
			return val
		}
		return "{{MISSING:" + name + "}}"
	})
}

// applyOptionals handles {{?name}} markers. The block form
// {{?name}}...{{/name}} keeps its inner content only when the variable is
// present and not a placeholder; the inline form substitutes the value or
// the empty string.
func applyOptionals(s string, vars map[string]string) string {
	s = optBlockPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := optBlockPattern.FindStringSubmatch(m)
		name, inner, closeName := sub[1], sub[2], sub[3]
		if name != closeName {
			return m
		}
		if val, ok := vars[name]; ok && !domain.IsPlaceholder(val) {
			return inner
		}
		return ""
	})
	return optInlinePattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[3 : len(m)-2]
		if val, ok := vars[name]; ok && !domain.IsPlaceholder(val) {
			return val
		}
		return ""
	})
}

// applyConditionals evaluates {{#name}}...{{/name}} blocks: the named
// domain predicates first, then variable presence for unrecognised names.
func applyConditionals(s string, vars map[string]string, entry *domain.EmotionEntry) string {
	return condPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := condPattern.FindStringSubmatch(m)
		name, inner, closeName := sub[1], sub[2], sub[3]
		if name != closeName {
			return m
		}
		if evalCondition(name, vars, entry) {
			return inner
		}
		return ""
	})
}

// evalCondition resolves a conditional block name.
func evalCondition(name string, vars map[string]string, entry *domain.EmotionEntry) bool {
	switch name {
	case "has_process_content":
		return entry != nil && entry.HasProcessContent()
	case "severity_changed":
		return entry != nil && entry.SeverityChanged()
	default:
		val, ok := vars[name]
		return ok && !domain.IsPlaceholder(val)
	}
}

// postProcess collapses runs of 3+ newlines to 2, strips trailing line
// whitespace, and trims the whole output.
func postProcess(s string) string {
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	s = trailingSpace.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// validateOutput enforces the rendered length bounds and rejects any
// surviving {{MISSING:...}} markers.
func validateOutput(s string) error {
	length := utf8.RuneCountInString(s)
	if length <= minPromptLength {
		return fmt.Errorf("%w: %d characters", domain.ErrOutputTooShort, length)
	}
	if length >= maxPromptLength {
		return fmt.Errorf("%w: %d characters", domain.ErrOutputTooLong, length)
	}
	if matches := missingPattern.FindAllStringSubmatch(s, -1); len(matches) > 0 {
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m[1])
		}
		return fmt.Errorf("%w: %s", domain.ErrMissingVariables, strings.Join(names, ", "))
	}
	return nil
}

// validateTemplateSyntax checks one template body: the length cap, the
// denied substrings, balanced {{ }} markers, and balanced section blocks.
// Optional {{?name}} markers may appear without a closing tag (the inline
// form), but a {{/name}} without any opener is an error.
func validateTemplateSyntax(body string) error {
	if len(body) > domain.MaxTemplateLength {
		return fmt.Errorf("%w: %d bytes", domain.ErrTemplateTooLarge, len(body))
	}

	lower := strings.ToLower(body)
	for _, denied := range deniedSubstrings {
		if strings.Contains(lower, denied) {
			return fmt.Errorf("%w: contains %q", domain.ErrTemplateSyntax, denied)
		}
	}

	if opens, closes := strings.Count(body, "{{"), strings.Count(body, "}}"); opens != closes {
		return fmt.Errorf("%w: %d \"{{\" markers vs %d \"}}\"", domain.ErrTemplateSyntax, opens, closes)
	}

	sections := make(map[string]int)
	optionals := make(map[string]int)
	for _, m := range sectionOpen.FindAllStringSubmatch(body, -1) {
		sections[m[1]]++
	}
	for _, m := range optionalOpen.FindAllStringSubmatch(body, -1) {
		optionals[m[1]]++
	}
	closes := make(map[string]int)
	for _, m := range sectionClose.FindAllStringSubmatch(body, -1) {
		closes[m[1]]++
	}

	for name, n := range sections {
		if closes[name] < n {
			return fmt.Errorf("%w: unclosed section %q", domain.ErrTemplateSyntax, name)
		}
	}
	for name, n := range closes {
		if n > sections[name]+optionals[name] {
			return fmt.Errorf("%w: unmatched close %q", domain.ErrTemplateSyntax, name)
		}
	}
	return nil
}
