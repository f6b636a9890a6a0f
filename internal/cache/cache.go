// Package cache holds analytics response caches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spaolacci/murmur3"

	"github.com/soaringjerry/awap/internal/utils"
)

const (
	keyPrefix     = "awap:analytics:"
	generationKey = keyPrefix + "gen"
)

// Noop never stores anything.
type Noop struct{}

func (Noop) Lookup(context.Context, string, string) ([]byte, int64, bool) { return nil, -1, false }
func (Noop) Store(context.Context, int64, string, string, []byte)         {}
func (Noop) Invalidate(context.Context)                                   {}

// Redis caches payloads under a generation counter. Invalidate bumps the
// counter so every earlier entry becomes unreachable and expires on its own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to url and verifies the server answers a PING.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	utils.Info("Redis cache initialized", utils.String("addr", opts.Addr), utils.Duration("ttl", ttl))
	return &Redis{client: client, ttl: ttl}, nil
}

// NewRedisWithClient wraps an existing client without pinging it.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) generation(ctx context.Context) (int64, error) {
	v, err := r.client.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// Lookup returns the payload cached for the current generation along with
// that generation, or -1 when the generation cannot be read.
func (r *Redis) Lookup(ctx context.Context, endpoint, criteria string) ([]byte, int64, bool) {
	gen, err := r.generation(ctx)
	if err != nil {
		utils.Debug("cache generation lookup failed", utils.ErrorField(err))
		return nil, -1, false
	}
	payload, err := r.client.Get(ctx, Key(gen, endpoint, criteria)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			utils.Debug("cache get failed", utils.String("endpoint", endpoint), utils.ErrorField(err))
		}
		return nil, gen, false
	}
	return payload, gen, true
}

// Store writes payload under gen. If Invalidate ran since gen was read the
// entry is already unreachable and just expires.
func (r *Redis) Store(ctx context.Context, gen int64, endpoint, criteria string, payload []byte) {
	if gen < 0 {
		return
	}
	if err := r.client.Set(ctx, Key(gen, endpoint, criteria), payload, r.ttl).Err(); err != nil {
		utils.Debug("cache set failed", utils.String("endpoint", endpoint), utils.ErrorField(err))
	}
}

func (r *Redis) Invalidate(ctx context.Context) {
	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		utils.Warn("cache invalidation failed", utils.ErrorField(err))
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Key is the Redis key for one endpoint and canonical criteria string.
func Key(gen int64, endpoint, criteria string) string {
	h := murmur3.Sum64([]byte(endpoint + "\x00" + criteria))
	return keyPrefix + strconv.FormatInt(gen, 10) + ":" + endpoint + ":" + strconv.FormatUint(h, 16)
}
