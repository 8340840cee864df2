package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/riftword/autocomplete/internal/metrics"
)

func newTestCache() *InMemoryCache {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewInMemoryCache(50*time.Millisecond, 3, logger, metrics.NewMetrics())
}

func TestInMemoryCache_SetAndGet(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "app", []string{"apple", "application"}))

	results, ok := c.Get(ctx, "app")
	assert.True(t, ok)
	assert.Equal(t, []string{"apple", "application"}, results)
}

func TestInMemoryCache_Get_Miss(t *testing.T) {
	c := newTestCache()
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestInMemoryCache_Delete(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	_ = c.Set(ctx, "app", []string{"apple"})

	assert.NoError(t, c.Delete(ctx, "app"))

	_, ok := c.Get(ctx, "app")
	assert.False(t, ok)
}

func TestInMemoryCache_PushHistory_TrimsToBound(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c", "d"} {
		assert.NoError(t, c.PushHistory(ctx, q))
	}

	history, err := c.GetHistory(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b"}, history, "history should keep only the 3 most recent, newest first")
}

func TestInMemoryCache_GetHistory_RespectsLimit(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	_ = c.PushHistory(ctx, "a")
	_ = c.PushHistory(ctx, "b")

	history, err := c.GetHistory(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, []string{"b"}, history)
}
