package cache

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/awap/internal/query"
	"github.com/soaringjerry/awap/internal/services"
)

var (
	_ services.ResponseCache = Noop{}
	_ services.ResponseCache = (*Redis)(nil)
)

func TestKeyIsStableAndScoped(t *testing.T) {
	a := Key(0, "kpis", "industry=Finance")
	assert.Equal(t, a, Key(0, "kpis", "industry=Finance"))
	assert.NotEqual(t, a, Key(1, "kpis", "industry=Finance"))
	assert.NotEqual(t, a, Key(0, "sentiment", "industry=Finance"))
	assert.NotEqual(t, a, Key(0, "kpis", "industry=Retail"))
	assert.Contains(t, a, "awap:analytics:0:kpis:")
}

func TestNoopAlwaysMisses(t *testing.T) {
	var c Noop
	ctx := context.Background()
	c.Store(ctx, 0, "kpis", "", []byte("{}"))
	_, gen, ok := c.Lookup(ctx, "kpis", "")
	assert.False(t, ok)
	assert.Negative(t, gen)
	c.Invalidate(ctx)
}

func TestRedisUnreachableIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisWithClient(client, time.Minute)
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	_, gen, ok := c.Lookup(ctx, "kpis", "")
	assert.False(t, ok)
	assert.Negative(t, gen)
	c.Store(ctx, gen, "kpis", "", []byte("{}"))
	c.Invalidate(ctx)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url", time.Minute)
	require.Error(t, err)
}

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisLookupStoreAndInvalidate(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	_, gen, ok := c.Lookup(ctx, "kpis", "industry=Finance")
	require.False(t, ok)
	require.Equal(t, int64(0), gen)
	c.Store(ctx, gen, "kpis", "industry=Finance", []byte(`{"n":1}`))

	payload, gen, ok := c.Lookup(ctx, "kpis", "industry=Finance")
	require.True(t, ok)
	assert.Equal(t, int64(0), gen)
	assert.JSONEq(t, `{"n":1}`, string(payload))

	c.Invalidate(ctx)
	_, gen, ok = c.Lookup(ctx, "kpis", "industry=Finance")
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
}

func TestRedisStoreUnderStaleGenerationIsUnreachable(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	_, gen, _ := c.Lookup(ctx, "kpis", "")
	c.Invalidate(ctx)
	c.Store(ctx, gen, "kpis", "", []byte(`{"n":1}`))

	_, _, ok := c.Lookup(ctx, "kpis", "")
	assert.False(t, ok)
}

// countingStore changes its answer and invalidates the cache while the first
// count is loading, the way a finishing import does.
type countingStore struct {
	services.AnalyticsStore
	invalidate func(context.Context)
	count      int64
	fired      bool
}

func (s *countingStore) CountRespondents(ctx context.Context, _ query.Criteria) (int64, error) {
	n := s.count
	if !s.fired {
		s.fired = true
		s.count = 20
		s.invalidate(ctx)
	}
	return n, nil
}

func TestAnalyticsResultLoadedBeforeInvalidateIsNotServed(t *testing.T) {
	store := &countingStore{count: 10}
	svc := services.NewAnalyticsService(store, newTestRedis(t))
	store.invalidate = svc.InvalidateCache
	ctx := context.Background()

	first, err := svc.RespondentCount(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), first.Count)

	second, err := svc.RespondentCount(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), second.Count)

	third, err := svc.RespondentCount(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), third.Count)
}
