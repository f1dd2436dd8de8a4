package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/twieo/pkg/logger"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("", logger.NewNop())
	assert.Error(t, err)

	_, err = NewClient("not-a-url", logger.NewNop())
	assert.Error(t, err)
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient("redis://"+addr+"/0", logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestClient_ListHelpers(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient("redis://"+mr.Addr()+"/0", logger.NewNop())
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.HealthCheck(ctx))

	n, err := client.RPushWithLogging(ctx, "list", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = client.RPushWithLogging(ctx, "list", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	items, err := client.LRangeWithLogging(ctx, "list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)
	assert.Contains(t, client.URL(), mr.Addr())
}

func TestClient_WrongType(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("str", "value"))

	client, err := NewClient("redis://"+mr.Addr()+"/0", logger.NewNop())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.RPushWithLogging(context.Background(), "str", "x")
	assert.Error(t, err)

	_, err = client.LRangeWithLogging(context.Background(), "str", 0, -1)
	assert.Error(t, err)
}
