package driven

import "context"

// TextGenerator is the AI generation backend: one text prompt in, one
// generated text out. Implementations map backend-specific response
// conditions onto the domain errors (rate limiting, content filtering,
// token-limit truncation). On domain.ErrResponseTruncated the partial
// text is returned alongside the error.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
