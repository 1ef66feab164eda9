package data

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/features"
	"github.com/ducminhle1904/crypto-gym/pkg/types"
)

// FeatureCacheKey builds the cache key for candles processed with cfg. The file stem keeps
// keys readable; the fingerprint over every candle and engine parameter is what separates
// same-named files and edited files.
func FeatureCacheKey(source string, cfg features.EngineConfig, candles []types.OHLCV) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return fmt.Sprintf("gym:features:%s:%d:%016x", strings.ToLower(name), cfg.Rows, fingerprint(cfg, candles))
}

func fingerprint(cfg features.EngineConfig, candles []types.OHLCV) uint64 {
	d := xxhash.New()
	fmt.Fprintf(d, "%+v|%d|", cfg, len(candles))

	buf := make([]byte, 0, 48)
	for _, c := range candles {
		buf = buf[:0]
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		var ts int64
		if !c.Timestamp.IsZero() {
			ts = c.Timestamp.UnixNano()
		}
		buf = binary.LittleEndian.AppendUint64(buf, uint64(ts))
		d.Write(buf)
	}
	return d.Sum64()
}

// BuildCached returns the dataset stored under key, building and storing it on a miss.
// Cache failures are logged and fall back to building; a nil cache always builds.
func BuildCached(ctx context.Context, cache FeatureCache, key string, pipeline *features.Pipeline, candles []types.OHLCV) (*features.Dataset, bool, error) {
	if cache != nil {
		ds, ok, err := cache.Get(ctx, key)
		if err != nil {
			log.Printf("[cache] get %s failed: %v", key, err)
		} else if ok {
			return ds, true, nil
		}
	}

	ds, err := pipeline.Build(ctx, candles)
	if err != nil {
		return nil, false, err
	}

	if cache != nil {
		if err := cache.Set(ctx, key, ds); err != nil {
			log.Printf("[cache] set %s failed: %v", key, err)
		}
	}
	return ds, false, nil
}

// MemoryFeatureCache keeps datasets in process memory
type MemoryFeatureCache struct {
	mu       sync.RWMutex
	datasets map[string]*features.Dataset
}

// NewMemoryFeatureCache creates an empty in-memory feature cache
func NewMemoryFeatureCache() *MemoryFeatureCache {
	return &MemoryFeatureCache{datasets: make(map[string]*features.Dataset)}
}

// Get returns the cached dataset. Datasets are treated as immutable so no copy is made.
func (c *MemoryFeatureCache) Get(_ context.Context, key string) (*features.Dataset, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.datasets[key]
	return ds, ok, nil
}

// Set stores ds under key
func (c *MemoryFeatureCache) Set(_ context.Context, key string, ds *features.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasets[key] = ds
	return nil
}

// Size returns the number of cached datasets
func (c *MemoryFeatureCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.datasets)
}

// RedisFeatureCache stores datasets as JSON in redis
type RedisFeatureCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFeatureCache connects to redis at addr. A zero ttl keeps entries forever.
func NewRedisFeatureCache(addr, password string, db int, ttl time.Duration) *RedisFeatureCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisFeatureCache{client: client, ttl: ttl}
}

// NewRedisFeatureCacheWithClient wraps an existing client
func NewRedisFeatureCacheWithClient(client *redis.Client, ttl time.Duration) *RedisFeatureCache {
	return &RedisFeatureCache{client: client, ttl: ttl}
}

// Ping checks the redis connection
func (c *RedisFeatureCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return simerrors.NewStorageError("redis", "Ping", err)
	}
	return nil
}

// Get fetches and decodes the dataset stored under key
func (c *RedisFeatureCache) Get(ctx context.Context, key string) (*features.Dataset, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, simerrors.NewStorageError("redis", "Get", err).WithContext("key", key)
	}

	var ds features.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, false, simerrors.NewStorageError("redis", "Get", err).WithContext("key", key)
	}
	return &ds, true, nil
}

// Set encodes and stores ds under key
func (c *RedisFeatureCache) Set(ctx context.Context, key string, ds *features.Dataset) error {
	raw, err := json.Marshal(ds)
	if err != nil {
		return simerrors.NewStorageError("redis", "Set", err).WithContext("key", key)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return simerrors.NewStorageError("redis", "Set", err).WithContext("key", key)
	}
	return nil
}

// Close closes the redis client
func (c *RedisFeatureCache) Close() error {
	return c.client.Close()
}
