//go:build integration

package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attesta/internal/compliance"
	"attesta/internal/records"
	"attesta/pkg/testutil/containers"
)

func TestCachedPolicyStore_Integration(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	defer func() {
		_ = rc.Client.Close()
		_ = rc.Container.Terminate(ctx)
	}()

	policy := &compliance.CompliancePolicy{
		PolicyID:           "annual-training",
		MaxTrainingAgeDays: 365,
		MinScore:           80,
	}

	t.Run("read-through populates the cache", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		inner := records.NewInMemory()
		require.NoError(t, inner.PutPolicy(ctx, policy))
		cached := records.NewCachedPolicyStore(inner, rc.Client, time.Minute, nil)

		found, err := cached.GetPolicy(ctx, "annual-training")
		require.NoError(t, err)
		assert.Equal(t, 365, found.MaxTrainingAgeDays)

		keys, err := rc.Client.Keys(ctx, "attesta:policy:*").Result()
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("cache serves after the inner store changes, until invalidated", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		inner := records.NewInMemory()
		require.NoError(t, inner.PutPolicy(ctx, policy))
		cached := records.NewCachedPolicyStore(inner, rc.Client, time.Minute, nil)

		_, err := cached.GetPolicy(ctx, "annual-training")
		require.NoError(t, err)

		// Mutate the inner store behind the cache's back.
		tightened := *policy
		tightened.MinScore = 95
		require.NoError(t, inner.PutPolicy(ctx, &tightened))

		stale, err := cached.GetPolicy(ctx, "annual-training")
		require.NoError(t, err)
		assert.Equal(t, 80, stale.MinScore)

		// Writing through the decorator invalidates.
		require.NoError(t, cached.PutPolicy(ctx, &tightened))
		fresh, err := cached.GetPolicy(ctx, "annual-training")
		require.NoError(t, err)
		assert.Equal(t, 95, fresh.MinScore)
	})

	t.Run("entries expire after the TTL", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		inner := records.NewInMemory()
		require.NoError(t, inner.PutPolicy(ctx, policy))
		cached := records.NewCachedPolicyStore(inner, rc.Client, time.Second, nil)

		_, err := cached.GetPolicy(ctx, "annual-training")
		require.NoError(t, err)

		ttl, err := rc.Client.TTL(ctx, "attesta:policy:annual-training").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Second)
	})
}
