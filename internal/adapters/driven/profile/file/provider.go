// Package file reads the user profile from a JSON file on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.ProfileProvider = (*Provider)(nil)

// ProfileFileName is the profile file looked up in the data directory.
const ProfileFileName = "profile.json"

// Provider loads personalisation data from a profile.json next to the
// configuration blobs. A missing file means no profile, not an error.
type Provider struct {
	path string
}

// NewProvider creates a provider reading dataDir/profile.json.
func NewProvider(dataDir string) *Provider {
	return &Provider{path: filepath.Join(dataDir, ProfileFileName)}
}

// Profile reads the profile file. Returns (nil, nil) when no profile
// exists or it is effectively empty.
func (p *Provider) Profile(_ context.Context) (*domain.UserContext, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var user domain.UserContext
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	if isEmpty(&user) {
		return nil, nil
	}
	return &user, nil
}

func isEmpty(u *domain.UserContext) bool {
	return strings.TrimSpace(u.DisplayName) == "" &&
		len(u.TopTags) == 0 &&
		len(u.TopicPreferences) == 0 &&
		strings.TrimSpace(u.CommunicationStyle) == ""
}
