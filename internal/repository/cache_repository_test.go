package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

func TestCacheRepositoryOffline(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	require.ErrorIs(t, repo.Get(ctx, "studyplan:summary:p1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "studyplan:summary:p1", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "studyplan:summary:p1"))
	assert.NoError(t, repo.Ping(ctx))
}

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, wrapRedis("set", "k", nil))
	err := wrapRedis("set", "k", context.DeadlineExceeded)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "redis set k")
}
