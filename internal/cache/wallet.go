package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	jitter = 300 * time.Millisecond
	// versionTTL outlives any fill that could race an invalidation.
	versionTTL = 24 * time.Hour
)

// NoFill is the version Get reports when the cache could not be read; Set
// ignores it.
const NoFill int64 = -1

// fillScript writes the balance only while the per-user version still equals
// the one read before loading it from the database.
// KEYS[1]: balance key, KEYS[2]: version key
// ARGV[1]: coins, ARGV[2]: expected version, ARGV[3]: ttl in ms
const fillScript = `
local v = redis.call("get", KEYS[2])
if not v then v = "0" end
if v ~= ARGV[2] then
    return 0
end
redis.call("set", KEYS[1], ARGV[1], "px", ARGV[3])
return 1
`

// WalletCache keeps user balances in redis for the read path. Failures are
// logged and treated as misses; the database stays authoritative. A nil
// *WalletCache is a disabled cache.
//
// Every invalidation bumps a per-user version, and a fill only lands if the
// version it started from is unchanged, so a balance read before a grant
// committed is never cached after it.
type WalletCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWalletCache(client *redis.Client, ttl time.Duration) *WalletCache {
	return &WalletCache{client: client, ttl: ttl}
}

// Get returns the cached balance. On a miss it returns the version to hand
// to Set after loading the balance.
func (c *WalletCache) Get(ctx context.Context, userID int64) (coins int64, version int64, ok bool) {
	if c == nil {
		return 0, NoFill, false
	}
	vals, err := c.client.MGet(ctx, walletKey(userID), versionKey(userID)).Result()
	if err != nil {
		zap.L().Warn("wallet cache read failed", zap.Int64("userID", userID), zap.Error(err))
		return 0, NoFill, false
	}
	version, err = parseVersion(vals[1])
	if err != nil {
		return 0, NoFill, false
	}
	raw, hit := vals[0].(string)
	if !hit {
		return 0, version, false
	}
	coins, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		_ = c.client.Del(ctx, walletKey(userID)).Err()
		return 0, version, false
	}
	return coins, version, true
}

// Set caches coins if no invalidation happened since Get reported version.
func (c *WalletCache) Set(ctx context.Context, userID int64, coins int64, version int64) {
	if c == nil || version == NoFill {
		return
	}
	ttl := withJitter(c.ttl, jitter)
	err := c.client.Eval(ctx, fillScript, []string{walletKey(userID), versionKey(userID)},
		coins, version, ttl.Milliseconds()).Err()
	if err != nil {
		zap.L().Warn("wallet cache write failed", zap.Int64("userID", userID), zap.Error(err))
	}
}

func (c *WalletCache) Invalidate(ctx context.Context, userID int64) {
	if c == nil {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Expire(ctx, versionKey(userID), versionTTL)
		pipe.Del(ctx, walletKey(userID))
		return nil
	})
	if err != nil {
		zap.L().Warn("wallet cache invalidation failed", zap.Int64("userID", userID), zap.Error(err))
	}
}

func parseVersion(v any) (int64, error) {
	switch raw := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(raw, 10, 64)
	default:
		return 0, errors.New("unexpected wallet version type")
	}
}

func walletKey(userID int64) string {
	return fmt.Sprintf("spinearn:wallet:%d", userID)
}

func versionKey(userID int64) string {
	return fmt.Sprintf("spinearn:wallet:%d:v", userID)
}

func withJitter(ttl, jitter time.Duration) time.Duration {
	if ttl <= 0 || jitter <= 0 {
		return ttl
	}
	return ttl + rand.N(jitter)
}
