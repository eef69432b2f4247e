package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
)

func TestSource_FetchReturnsSnapshotCopy(t *testing.T) {
	source := NewSource(domain.RemoteSnapshot{"prompt_config_version": "1.0.0"})

	snap, err := source.Fetch(context.Background())

	require.NoError(t, err)
	snap["prompt_config_version"] = "mutated"

	again, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", again["prompt_config_version"])
	assert.Equal(t, 2, source.Fetches())
}

func TestSource_ScriptedErrorsDrainInOrder(t *testing.T) {
	source := NewSource(domain.RemoteSnapshot{"prompt_config_version": "1.0.0"})
	source.FailWith(domain.ErrNetworkUnavailable, domain.ErrFetchFailed)

	_, err := source.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetworkUnavailable)

	_, err = source.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrFetchFailed)

	snap, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", snap["prompt_config_version"])
}

func TestSource_FetchHonoursContext(t *testing.T) {
	source := NewSource(domain.RemoteSnapshot{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.Fetch(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, source.Fetches())
}

func TestReachability_EmitsOnTransition(t *testing.T) {
	reach := NewReachability(true)
	assert.True(t, reach.Online())

	reach.SetOnline(false)
	reach.SetOnline(false)
	reach.SetOnline(true)

	assert.False(t, <-reach.Changes())
	assert.True(t, <-reach.Changes())
	assert.True(t, reach.Online())
}
