package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/pkg/types"
)

// storeContract runs the behavior every Store implementation shares
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		created, err := store.Create(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.NotNil(t, got.Feedback)
		assert.Nil(t, got.Analysis)
	})

	t.Run("save round trip", func(t *testing.T) {
		state, err := store.Create(ctx)
		require.NoError(t, err)

		state.Input.ProductDescription = "A CRM for freelancers"
		state.IsAnalyzing = true
		state.SetFeedback(types.TargetProductDescription, []types.FeedbackItem{
			{ID: "f1", Text: "CRM", Type: types.FeedbackWarning, StartIndex: 2, EndIndex: 5},
		})
		require.NoError(t, store.Save(ctx, state))

		got, err := store.Get(ctx, state.ID)
		require.NoError(t, err)
		assert.Equal(t, "A CRM for freelancers", got.Input.ProductDescription)
		assert.True(t, got.IsAnalyzing)
		require.Len(t, got.Feedback[types.TargetProductDescription], 1)
		assert.Equal(t, 5, got.Feedback[types.TargetProductDescription][0].EndIndex)
	})

	t.Run("callers do not share memory", func(t *testing.T) {
		state, err := store.Create(ctx)
		require.NoError(t, err)

		first, err := store.Get(ctx, state.ID)
		require.NoError(t, err)
		first.Input.ProductDescription = "changed but not saved"

		second, err := store.Get(ctx, state.ID)
		require.NoError(t, err)
		assert.Empty(t, second.Input.ProductDescription)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.Equal(t, gwerrors.ErrorCodeNotFound, gwerrors.Code(err))
	})

	t.Run("delete", func(t *testing.T) {
		state, err := store.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, state.ID))

		_, err = store.Get(ctx, state.ID)
		assert.Equal(t, gwerrors.ErrorCodeNotFound, gwerrors.Code(err))
	})

	t.Run("save needs an id", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, &State{}))
		_, err := store.Get(ctx, "")
		assert.Equal(t, gwerrors.ErrorCodeRequiredField, gwerrors.Code(err))
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	old, err := store.Create(ctx)
	require.NoError(t, err)
	fresh, err := store.Create(ctx)
	require.NoError(t, err)

	store.mutex.Lock()
	store.access[old.ID] = time.Now().Add(-2 * time.Hour)
	store.mutex.Unlock()

	assert.Equal(t, 1, store.CleanupExpired(time.Hour))
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_SaveStampsUpdatedAt(t *testing.T) {
	store := NewMemoryStore()
	state := NewState()
	state.UpdatedAt = time.Time{}

	require.NoError(t, store.Save(context.Background(), state))
	assert.False(t, state.UpdatedAt.IsZero())
}

// TestRedisStore runs against a real redis when REDIS_ADDR is set
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	store, err := NewRedisStore(context.Background(), RedisOptions{
		Addr:      addr,
		TTL:       time.Minute,
		KeyPrefix: "strategy:session:test:",
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	storeContract(t, store)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
