package cache

import (
	"context"
	"testing"

	"savor-core-square-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProgressCacheRoundTrip(t *testing.T) {
	c := NewMemoryProgressCache()
	ctx := context.Background()

	got, err := c.Get(ctx, "M1")
	require.NoError(t, err)
	assert.Nil(t, got)

	state := &domain.SyncState{TaskID: "task-1", Stage: domain.SyncStageSyncingCatalog, Progress: 45}
	require.NoError(t, c.Put(ctx, "M1", state))

	got, err = c.Get(ctx, "M1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, 45, got.Progress)

	// Mutating the returned copy must not affect the stored entry
	got.Progress = 99
	again, err := c.Get(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, 45, again.Progress)

	require.NoError(t, c.Delete(ctx, "M1"))
	got, err = c.Get(ctx, "M1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
