// Package cache wraps Redis for purchase idempotency and published results.
// A nil *Cache is valid and behaves as an always-empty cache that grants every lock.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idemLockTTL    = 30 * time.Second
	idemResultTTL  = 24 * time.Hour
	drawResultsTTL = 10 * time.Minute
)

// ErrInFlight is returned when another request holds the idempotency lock.
var ErrInFlight = errors.New("request with the same idempotency key is in progress")

var unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// Cache is a thin Redis client.
type Cache struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis. An empty address disables caching and returns nil.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Cache, error) {
	if opts.Addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	c := &Cache{rdb: rdb, logger: logger}
	if err := c.Ping(ctx, 3*time.Second); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

// Ping probes the connection within timeout.
func (c *Cache) Ping(ctx context.Context, timeout time.Duration) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close closes the client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// Lock is a held idempotency lock.
type Lock struct {
	c     *Cache
	key   string
	value string
}

// Release deletes the lock if it is still ours.
func (l *Lock) Release(ctx context.Context) {
	if l == nil || l.c == nil {
		return
	}
	res, err := unlockScript.Run(ctx, l.c.rdb, []string{l.key}, l.value).Int()
	if err != nil {
		l.c.logger.Warn("release idempotency lock", zap.String("key", l.key), zap.Error(err))
		return
	}
	if res == 0 {
		l.c.logger.Warn("idempotency lock expired before release", zap.String("key", l.key))
	}
}

// AcquireIdempotency takes the in-flight lock for (userID, key). If a result is
// already cached it is decoded into out and found is true. ErrInFlight means a
// concurrent request holds the lock.
func (c *Cache) AcquireIdempotency(ctx context.Context, userID int64, key string, out any) (lock *Lock, found bool, err error) {
	if c == nil || key == "" {
		return nil, false, nil
	}

	if ok, err := c.getJSON(ctx, IdemResultKey(userID, key), out); err != nil || ok {
		return nil, ok, err
	}

	l := &Lock{c: c, key: IdemLockKey(userID, key), value: uuid.New().String()}
	ok, err := c.rdb.SetNX(ctx, l.key, l.value, idemLockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire idempotency lock: %w", err)
	}
	if !ok {
		if found, err := c.getJSON(ctx, IdemResultKey(userID, key), out); err != nil || found {
			return nil, found, err
		}
		return nil, false, ErrInFlight
	}
	return l, false, nil
}

// StoreIdempotentResult caches the response for (userID, key).
func (c *Cache) StoreIdempotentResult(ctx context.Context, userID int64, key string, v any) error {
	if c == nil || key == "" {
		return nil
	}
	return c.setJSON(ctx, IdemResultKey(userID, key), v, idemResultTTL)
}

// DrawResults loads cached published results into out.
func (c *Cache) DrawResults(ctx context.Context, drawID int64, out any) (bool, error) {
	if c == nil {
		return false, nil
	}
	return c.getJSON(ctx, DrawResultsKey(drawID), out)
}

// StoreDrawResults caches the published results of a draw.
func (c *Cache) StoreDrawResults(ctx context.Context, drawID int64, v any) error {
	if c == nil {
		return nil
	}
	return c.setJSON(ctx, DrawResultsKey(drawID), v, drawResultsTTL)
}

func (c *Cache) getJSON(ctx context.Context, key string, out any) (bool, error) {
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(bs, out); err != nil {
		c.logger.Warn("drop undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, bs, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// RevokeToken blacklists a session token until it would have expired anyway.
func (c *Cache) RevokeToken(ctx context.Context, token string, expiresAt time.Time) error {
	if c == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := c.rdb.SetEx(ctx, TokenBlacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether token was signed out. Redis errors count as not revoked.
func (c *Cache) IsRevoked(ctx context.Context, token string) bool {
	if c == nil {
		return false
	}
	n, err := c.rdb.Exists(ctx, TokenBlacklistKey(token)).Result()
	if err != nil {
		c.logger.Warn("check token blacklist", zap.Error(err))
		return false
	}
	return n > 0
}
