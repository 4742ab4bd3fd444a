package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("first caller wins", func(t *testing.T) {
		locker := NewMemoryLocker(time.Minute)

		assert.True(t, locker.TryLock(ctx, "key-1"))
		assert.False(t, locker.TryLock(ctx, "key-1"))
		assert.True(t, locker.TryLock(ctx, "key-2"))
	})

	t.Run("lock expires after ttl", func(t *testing.T) {
		locker := NewMemoryLocker(time.Minute)
		now := time.Now()
		locker.nowFunc = func() time.Time { return now }

		assert.True(t, locker.TryLock(ctx, "key-1"))
		assert.False(t, locker.TryLock(ctx, "key-1"))

		now = now.Add(2 * time.Minute)
		assert.True(t, locker.TryLock(ctx, "key-1"))
	})

	t.Run("zero ttl falls back to default", func(t *testing.T) {
		locker := NewMemoryLocker(0)
		assert.Equal(t, defaultTTL, locker.ttl)
	})
}
