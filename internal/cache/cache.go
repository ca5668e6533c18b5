package cache

import (
	"math"
	"sync"
	"time"
)

type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
	Close()
}

type MemoryCache struct {
	items   map[string]*cacheItem
	maxSize int
	mu      sync.RWMutex
	stop    chan struct{}
	once    sync.Once
}

type cacheItem struct {
	value      interface{}
	expiration int64
}

// NewMemoryCache maxSize <= 0 表示不限条目数
func NewMemoryCache(maxSize int) Cache {
	cache := &MemoryCache{
		items:   make(map[string]*cacheItem),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}

	// 启动清理协程
	go cache.cleanup(time.Minute)

	return cache
}

func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		return nil, false
	}

	if item.expiration > 0 && time.Now().UnixNano() > item.expiration {
		return nil, false
	}

	return item.value, true
}

func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	if _, exists := c.items[key]; !exists && c.maxSize > 0 && len(c.items) >= c.maxSize {
		c.evictLocked()
	}

	c.items[key] = &cacheItem{
		value:      value,
		expiration: expiration,
	}
}

// evictLocked 先清过期项，仍然满时删掉最早过期的一项
func (c *MemoryCache) evictLocked() {
	now := time.Now().UnixNano()
	var victim string
	soonest := int64(math.MaxInt64)
	for key, item := range c.items {
		if item.expiration > 0 && now > item.expiration {
			delete(c.items, key)
			continue
		}
		exp := item.expiration
		if exp == 0 {
			exp = math.MaxInt64
		}
		if victim == "" || exp < soonest {
			victim, soonest = key, exp
		}
	}
	if len(c.items) >= c.maxSize && victim != "" {
		delete(c.items, victim)
	}
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*cacheItem)
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close 停止清理协程
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now().UnixNano()
			for key, item := range c.items {
				if item.expiration > 0 && now > item.expiration {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}
