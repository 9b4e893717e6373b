package inventory

import (
	"sync"
	"time"

	"fridge-chef/internal/pkg/common"

	"go.uber.org/zap"
)

// SnapshotCache 以使用者為鍵的食材快照快取（TTL + LRU）
type SnapshotCache struct {
	maxSize int
	ttl     time.Duration

	mu       sync.Mutex
	store    map[string]cacheEntry
	versions map[string]uint64
	stats    cacheStats

	stop     chan struct{}
	stopOnce sync.Once
}

// cacheEntry 快取條目
type cacheEntry struct {
	items       []common.Ingredient
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 快取統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// CacheStats 對外的統計快照
type CacheStats struct {
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// NewSnapshotCache 創建快取；cleanupInterval > 0 時啟動背景清理
func NewSnapshotCache(maxSize int, ttl, cleanupInterval time.Duration) *SnapshotCache {
	c := &SnapshotCache{
		maxSize:  maxSize,
		ttl:      ttl,
		store:    make(map[string]cacheEntry),
		versions: make(map[string]uint64),
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.startCleanup(cleanupInterval)
	}
	return c
}

// Get 取得快照副本
func (c *SnapshotCache) Get(userID string) ([]common.Ingredient, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.store[userID]
	if !ok {
		c.stats.misses++
		common.LogCacheMiss("inventory", userID)
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.store, userID)
		c.stats.evictions++
		c.stats.misses++
		common.LogCacheMiss("inventory", userID)
		return nil, false
	}

	entry.lastAccess = time.Now()
	entry.accessCount++
	c.store[userID] = entry
	c.stats.hits++
	common.LogCacheHit("inventory", userID)

	return cloneIngredients(entry.items), true
}

// Set 寫入快照；滿了先清過期再做 LRU 淘汰
func (c *SnapshotCache) Set(userID string, items []common.Ingredient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(userID, items)
}

// Version 目前的失效版本，每次 Invalidate 遞增
func (c *SnapshotCache) Version(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[userID]
}

// SetIfVersion 僅在讀取期間未被 Invalidate 時寫入，回傳是否寫入
func (c *SnapshotCache) SetIfVersion(userID string, version uint64, items []common.Ingredient) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[userID] != version {
		return false
	}
	c.set(userID, items)
	return true
}

// set 呼叫端需持有鎖
func (c *SnapshotCache) set(userID string, items []common.Ingredient) {
	if _, exists := c.store[userID]; !exists && len(c.store) >= c.maxSize {
		c.cleanup()
		if len(c.store) >= c.maxSize {
			c.evictLRU()
		}
	}

	now := time.Now()
	c.store[userID] = cacheEntry{
		items:      cloneIngredients(items),
		expiresAt:  now.Add(c.ttl),
		lastAccess: now,
	}
}

// Invalidate 移除某使用者的快照
func (c *SnapshotCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.store, userID)
	c.versions[userID]++
	c.mu.Unlock()
}

// Stats 取得統計
func (c *SnapshotCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Size:      len(c.store),
		MaxSize:   c.maxSize,
		Hits:      c.stats.hits,
		Misses:    c.stats.misses,
		Evictions: c.stats.evictions,
	}
}

// Close 停止背景清理並清空快取
func (c *SnapshotCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]cacheEntry)
	common.LogDebug("Inventory cache closed",
		zap.Int64("hits", c.stats.hits),
		zap.Int64("misses", c.stats.misses),
		zap.Int64("evictions", c.stats.evictions),
	)
}

func (c *SnapshotCache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.cleanup()
			c.mu.Unlock()
		}
	}
}

// cleanup 清理過期條目，呼叫端需持有鎖
func (c *SnapshotCache) cleanup() int {
	now := time.Now()
	count := 0
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
			count++
			c.stats.evictions++
		}
	}
	if count > 0 {
		common.LogDebug("Cleaned up expired inventory snapshots",
			zap.Int("count", count),
			zap.Int("remaining_size", len(c.store)),
		)
	}
	return count
}

// evictLRU 淘汰最少使用的條目，呼叫端需持有鎖
func (c *SnapshotCache) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	lowestCount := 0

	for key, entry := range c.store {
		if oldestKey == "" ||
			entry.accessCount < lowestCount ||
			(entry.accessCount == lowestCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(c.store, oldestKey)
		c.stats.evictions++
	}
}

func cloneIngredients(in []common.Ingredient) []common.Ingredient {
	out := make([]common.Ingredient, len(in))
	copy(out, in)
	return out
}
