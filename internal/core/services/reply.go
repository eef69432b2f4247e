package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driving"
	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// ReplyService turns an emotion entry into a generated reply. The
// guarantee to callers is that GenerateReply always returns usable text:
// prompt construction falls back to a minimal inline prompt, a truncated
// generation returns the partial text, and a failed generation returns a
// canned supportive reply. Only context cancellation propagates as an
// error.
type ReplyService struct {
	prompts   driving.PromptService
	generator driven.TextGenerator
}

// NewReplyService wires a reply service.
func NewReplyService(prompts driving.PromptService, generator driven.TextGenerator) *ReplyService {
	return &ReplyService{prompts: prompts, generator: generator}
}

// GenerateReply builds the prompt for the entry and asks the generation
// backend for a reply.
func (r *ReplyService) GenerateReply(ctx context.Context, entry *domain.EmotionEntry, tone domain.Tone, lang domain.Language) (string, error) {
	prompt, err := r.prompts.BuildPrompt(ctx, entry, tone, lang, driving.DefaultBuildOptions())
	if err != nil {
		logger.Warn("prompt construction failed, using inline fallback: %v", err)
		prompt = legacyPrompt(entry, tone, lang)
	}

	text, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, domain.ErrResponseTruncated) && strings.TrimSpace(text) != "" {
			logger.Warn("generation truncated, returning partial reply")
			return text, nil
		}
		logger.Warn("generation failed, returning canned reply: %v", err)
		return FallbackReply(lang), nil
	}
	return text, nil
}

// legacyPrompt is the minimal inline prompt used when the template
// pipeline is unavailable. It covers the essential fields only.
func legacyPrompt(entry *domain.EmotionEntry, tone domain.Tone, lang domain.Language) string {
	var b strings.Builder
	if lang == domain.LanguageChinese {
		fmt.Fprintf(&b, "请以%s的语气回应以下情绪记录。\n", domain.FallbackToneDescription(lang, tone))
		fmt.Fprintf(&b, "发生了什么：%s\n", orNotFilled(entry.WhatHappened, lang))
		fmt.Fprintf(&b, "感受：%s\n", orNotFilled(entry.Feelings, lang))
		fmt.Fprintf(&b, "情绪强度：%d/5\n", entry.RecordSeverity)
		b.WriteString("请给出一段温和、支持性的回应。")
	} else {
		fmt.Fprintf(&b, "Respond to the following emotion entry in a %s tone.\n", domain.FallbackToneDescription(lang, tone))
		fmt.Fprintf(&b, "What happened: %s\n", orNotFilled(entry.WhatHappened, lang))
		fmt.Fprintf(&b, "Feelings: %s\n", orNotFilled(entry.Feelings, lang))
		fmt.Fprintf(&b, "Severity: %d/5\n", entry.RecordSeverity)
		b.WriteString("Write a short, supportive reply.")
	}
	return b.String()
}

// FallbackReply is the canned reply returned when generation fails
// outright.
func FallbackReply(lang domain.Language) string {
	if lang == domain.LanguageChinese {
		return "谢谢你记录下这些感受。无论此刻多么艰难，愿意面对情绪本身就是一种勇气。给自己一点时间，温柔地对待自己。"
	}
	return "Thank you for writing this down. However hard this moment feels, facing your emotions takes real courage. Give yourself some time, and be gentle with yourself."
}

func orNotFilled(s string, lang domain.Language) string {
	if strings.TrimSpace(s) == "" {
		return domain.NotFilled(lang)
	}
	return s
}
