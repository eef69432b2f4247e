package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driving"
)

// mockPromptService returns a fixed prompt or error.
type mockPromptService struct {
	prompt string
	err    error
}

func (m *mockPromptService) Initialize(context.Context) error { return nil }

func (m *mockPromptService) BuildPrompt(context.Context, *domain.EmotionEntry, domain.Tone, domain.Language, driving.BuildOptions) (string, error) {
	return m.prompt, m.err
}

func (m *mockPromptService) UpdateFromRemote(context.Context) (domain.UpdateState, error) {
	return domain.UpdateStateSuccess, nil
}

func (m *mockPromptService) ConfigInfo() domain.ConfigInfo { return domain.ConfigInfo{} }
func (m *mockPromptService) Close() error                  { return nil }

// mockGenerator records the prompt and returns scripted output.
type mockGenerator struct {
	text   string
	err    error
	prompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.text, m.err
}

func TestReplyService_GenerateReply_Success(t *testing.T) {
	prompts := &mockPromptService{prompt: "rendered prompt text"}
	gen := &mockGenerator{text: "a kind reply"}
	r := NewReplyService(prompts, gen)

	out, err := r.GenerateReply(context.Background(), testEntry(), domain.ToneWarm, domain.LanguageEnglish)

	require.NoError(t, err)
	assert.Equal(t, "a kind reply", out)
	assert.Equal(t, "rendered prompt text", gen.prompt)
}

func TestReplyService_GenerateReply_InlineFallbackPrompt(t *testing.T) {
	prompts := &mockPromptService{err: domain.ErrPromptBuildFailed}
	gen := &mockGenerator{text: "a kind reply"}
	r := NewReplyService(prompts, gen)

	out, err := r.GenerateReply(context.Background(), testEntry(), domain.ToneWarm, domain.LanguageEnglish)

	require.NoError(t, err)
	assert.Equal(t, "a kind reply", out)
	// The minimal inline prompt still carries the entry essentials.
	assert.Contains(t, gen.prompt, "A deadline slipped")
	assert.Contains(t, gen.prompt, "3/5")
}

func TestReplyService_GenerateReply_TruncatedReturnsPartialText(t *testing.T) {
	prompts := &mockPromptService{prompt: "rendered prompt text"}
	gen := &mockGenerator{text: "partial but usable reply", err: domain.ErrResponseTruncated}
	r := NewReplyService(prompts, gen)

	out, err := r.GenerateReply(context.Background(), testEntry(), domain.ToneWarm, domain.LanguageEnglish)

	require.NoError(t, err)
	assert.Equal(t, "partial but usable reply", out)
}

func TestReplyService_GenerateReply_CannedFallbackOnFailure(t *testing.T) {
	prompts := &mockPromptService{prompt: "rendered prompt text"}
	gen := &mockGenerator{err: domain.ErrGenerationRateLimited}
	r := NewReplyService(prompts, gen)

	out, err := r.GenerateReply(context.Background(), testEntry(), domain.ToneWarm, domain.LanguageEnglish)

	require.NoError(t, err)
	assert.Equal(t, FallbackReply(domain.LanguageEnglish), out)

	out, err = r.GenerateReply(context.Background(), testEntry(), domain.ToneWarm, domain.LanguageChinese)
	require.NoError(t, err)
	assert.Equal(t, FallbackReply(domain.LanguageChinese), out)
}

func TestReplyService_GenerateReply_ContextCancellationPropagates(t *testing.T) {
	prompts := &mockPromptService{prompt: "rendered prompt text"}
	gen := &mockGenerator{err: context.Canceled}
	r := NewReplyService(prompts, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GenerateReply(ctx, testEntry(), domain.ToneWarm, domain.LanguageEnglish)

	assert.ErrorIs(t, err, context.Canceled)
}
