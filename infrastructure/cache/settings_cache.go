package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"betledger/domain/entities"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a client and checks the server answers
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// SettingsCache keeps game settings snapshots in Redis. Each entry is a hash
// of the snapshot and its version, so a slow reader can never replace a newer
// snapshot with the one it loaded earlier.
type SettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSettingsCache creates a settings cache with the given entry TTL
func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	return &SettingsCache{client: client, ttl: ttl}
}

func key(gameType entities.GameType) string { return "betledger:settings:" + string(gameType) }

const (
	fieldVersion  = "version"
	fieldSnapshot = "snapshot"
)

// KEYS[1] entry; ARGV version, snapshot, ttl in ms (0 keeps no expiry)
var setIfNotOlder = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], 'version'))
if current and current > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'snapshot', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// Get returns the cached snapshot and whether there was one
func (c *SettingsCache) Get(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, bool, error) {
	b, err := c.client.HGet(ctx, key(gameType), fieldSnapshot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached %s settings: %w", gameType, err)
	}

	var snapshot entities.GameSettings
	if err := json.Unmarshal(b, &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached %s settings: %w", gameType, err)
	}
	return &snapshot, true, nil
}

// Set stores a snapshot unless a newer version is already cached
func (c *SettingsCache) Set(ctx context.Context, settings *entities.GameSettings) error {
	b, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode %s settings: %w", settings.GameType, err)
	}

	err = setIfNotOlder.Run(ctx, c.client,
		[]string{key(settings.GameType)},
		settings.Version, b, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to cache %s settings: %w", settings.GameType, err)
	}
	return nil
}

// Invalidate drops a snapshot so the next read goes to the database
func (c *SettingsCache) Invalidate(ctx context.Context, gameType entities.GameType) error {
	if err := c.client.Del(ctx, key(gameType)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %s settings: %w", gameType, err)
	}
	return nil
}
