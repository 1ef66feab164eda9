package data

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ducminhle1904/crypto-gym/pkg/types"
)

// MemoryCache keeps candle slices by key. Slices are copied in and out.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]types.OHLCV
}

// NewMemoryCache creates an empty candle cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]types.OHLCV)}
}

func (c *MemoryCache) Get(key string) ([]types.OHLCV, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candles, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return append([]types.OHLCV(nil), candles...), true
}

func (c *MemoryCache) Set(key string, candles []types.OHLCV) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]types.OHLCV(nil), candles...)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]types.OHLCV)
}

func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedProvider memoizes another provider. Entries are keyed by path, size and
// modification time, so an edited file is read again.
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
	hits     atomic.Int64
	misses   atomic.Int64
}

// NewCachedProvider wraps provider with an in-memory cache
func NewCachedProvider(provider DataProvider) *CachedProvider {
	return NewCachedProviderWithCache(provider, NewMemoryCache())
}

// NewCachedProviderWithCache wraps provider with cache
func NewCachedProviderWithCache(provider DataProvider, cache DataCache) *CachedProvider {
	return &CachedProvider{provider: provider, cache: cache}
}

func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData returns cached candles for source or loads them through the wrapped provider
func (p *CachedProvider) LoadData(source string) ([]types.OHLCV, error) {
	key := sourceKey(source)
	if candles, ok := p.cache.Get(key); ok {
		p.hits.Add(1)
		return candles, nil
	}
	p.misses.Add(1)

	candles, err := p.provider.LoadData(source)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, candles)
	log.Printf("[data] cached %s (%d candles)", filepath.Base(source), len(candles))
	return candles, nil
}

func (p *CachedProvider) ValidateData(candles []types.OHLCV) error {
	return p.provider.ValidateData(candles)
}

// GetCacheSize returns the number of cached entries
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}

// Stats returns cache hits and misses since creation
func (p *CachedProvider) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

func sourceKey(source string) string {
	info, err := os.Stat(source)
	if err != nil {
		return source
	}
	return fmt.Sprintf("%s|%d|%d", source, info.ModTime().UnixNano(), info.Size())
}
