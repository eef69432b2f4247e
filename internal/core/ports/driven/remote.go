package driven

import (
	"context"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
)

// RemoteSource fetches the raw key/value configuration snapshot from the
// remote configuration service. Implementations perform the service's
// fetch/activate protocol and return the activated values.
type RemoteSource interface {
	// Fetch retrieves the current snapshot. It must honour ctx deadlines.
	Fetch(ctx context.Context) (domain.RemoteSnapshot, error)
}

// Reachability reports network availability.
type Reachability interface {
	// Online returns true if the network is currently reachable.
	Online() bool

	// Changes emits true/false on reachability transitions. May return nil
	// if the implementation cannot observe transitions.
	Changes() <-chan bool
}
