package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/copilot/pkg/store"
)

func TestMemoryIndex_QueryRanksByCosine(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex()

	require.NoError(t, idx.Upsert(ctx, "far", []float32{0, 1}, map[string]interface{}{"url": "far"}))
	require.NoError(t, idx.Upsert(ctx, "near", []float32{1, 0.1}, map[string]interface{}{"url": "near"}))
	require.NoError(t, idx.Upsert(ctx, "mid", []float32{1, 1}, map[string]interface{}{"url": "mid"}))
	require.NoError(t, idx.Upsert(ctx, "wrong-dim", []float32{1, 0, 0}, nil))

	matches, err := idx.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].ID)
	assert.Equal(t, "mid", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex()

	require.NoError(t, idx.Upsert(ctx, "t1", []float32{1, 0}, map[string]interface{}{"topic": "SSO", "extra": 1}))
	require.NoError(t, idx.Upsert(ctx, "t1", []float32{0, 1}, map[string]interface{}{"topic": "API/SDK"}))

	assert.Equal(t, 1, idx.Len())
	listed, err := idx.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "API/SDK", listed[0].Metadata["topic"])
	assert.NotContains(t, listed[0].Metadata, "extra")
}

func TestMemoryIndex_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, idx.Upsert(ctx, id, []float32{1}, nil))
	}

	listed, err := idx.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "c", listed[0].ID)
	assert.Equal(t, "b", listed[1].ID)
}

func TestMemoryIndex_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryIndex()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = idx.Upsert(ctx, "same", []float32{float32(i), 1}, map[string]interface{}{"i": i})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, idx.Len())
}

func TestMemoryIndex_RejectsEmptyID(t *testing.T) {
	err := store.NewMemoryIndex().Upsert(context.Background(), "", []float32{1}, nil)
	assert.Error(t, err)
}
