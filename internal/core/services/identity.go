package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
)

// InstallationIDKey is the blob key holding the per-install identifier
// used for rollout bucketing.
const InstallationIDKey = "installation_id"

// EnsureInstallationID returns the stored installation identifier,
// generating and persisting a new one on first run. The identifier is
// stable for the lifetime of the installation so rollout bucketing stays
// deterministic.
func EnsureInstallationID(ctx context.Context, blobs driven.BlobStore) (string, error) {
	data, err := blobs.Get(ctx, InstallationIDKey)
	if err == nil && len(data) > 0 {
		return string(data), nil
	}
	if err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
		return "", fmt.Errorf("read installation id: %w", err)
	}

	id := uuid.NewString()
	if err := blobs.Put(ctx, InstallationIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("persist installation id: %w", err)
	}
	return id, nil
}
