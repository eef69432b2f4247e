package driven

import (
	"context"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
)

// ProfileProvider supplies the optional personalisation payload.
// A nil UserContext with a nil error means "no profile available";
// callers treat any error as best-effort and continue without
// personalisation.
type ProfileProvider interface {
	Profile(ctx context.Context) (*domain.UserContext, error)
}
