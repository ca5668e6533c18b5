package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_Get(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()

	// 测试获取不存在的键
	if _, exists := cache.Get("nonexistent"); exists {
		t.Error("Expected Get of nonexistent key to return false")
	}

	// 测试设置和获取
	cache.Set("key1", "value1", 0)
	value, exists := cache.Get("key1")
	if !exists {
		t.Error("Expected Get of existing key to return true")
	}
	if value != "value1" {
		t.Errorf("Expected value to be 'value1', got %v", value)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()

	// 测试覆盖已存在的项
	cache.Set("key1", "value1", 0)
	cache.Set("key1", "value2", 0)
	if value, exists := cache.Get("key1"); !exists || value != "value2" {
		t.Error("Failed to override existing item")
	}

	// 测试设置带过期时间的项
	cache.Set("key2", "value2", 50*time.Millisecond)
	if value, exists := cache.Get("key2"); !exists || value != "value2" {
		t.Error("Failed to set and retrieve item with expiration")
	}

	// 等待过期
	time.Sleep(100 * time.Millisecond)
	if _, exists := cache.Get("key2"); exists {
		t.Error("Item should have expired")
	}
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()

	cache.Set("key1", "value1", 0)
	cache.Set("key2", "value2", 0)

	cache.Delete("key1")
	if _, exists := cache.Get("key1"); exists {
		t.Error("Item should have been deleted")
	}
	// 删除不存在的项不应该报错
	cache.Delete("nonexistent")

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Cache should be empty after Clear, got %d items", cache.Len())
	}
}

func TestMemoryCache_MaxSize(t *testing.T) {
	cache := NewMemoryCache(2)
	defer cache.Close()

	cache.Set("a", 1, time.Minute)
	cache.Set("b", 2, time.Hour)
	cache.Set("c", 3, time.Hour)

	if cache.Len() != 2 {
		t.Fatalf("Expected 2 items, got %d", cache.Len())
	}
	// 最早过期的 a 被淘汰
	if _, exists := cache.Get("a"); exists {
		t.Error("Expected the soonest-expiring item to be evicted")
	}

	// 覆盖已有键不触发淘汰
	cache.Set("b", 20, time.Hour)
	if _, exists := cache.Get("c"); !exists {
		t.Error("Overwriting an existing key should not evict others")
	}
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	cache := NewMemoryCache(0)
	cache.Close()
	cache.Close()
}

func TestConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(5)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set("key"+strconv.Itoa(idx), j, 0)
			}
		}(i)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				cache.Get("key" + strconv.Itoa(k%10))
			}
		}()
	}
	wg.Wait()

	if cache.Len() > 5 {
		t.Errorf("Cache exceeded max size: %d", cache.Len())
	}
}
