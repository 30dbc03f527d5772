package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// CacheConfig 用于配置LRU缓存的行为。
type CacheConfig struct {
	// Capacity 是缓存的最大元素数量，必须大于0。
	Capacity int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
	// Now 是时间来源，为空时使用 time.Now。
	Now func() time.Time
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// LRUCache 是一个支持泛型、线程安全的LRU缓存。
// Kafka 任务请求消费者用它记住最近处理过的请求ID，实现幂等。
type LRUCache[K comparable, V any] struct {
	cfg   CacheConfig
	ll    *list.List
	items map[K]*list.Element
	mu    sync.Mutex
}

// NewLRU 使用指定的配置创建一个LRU缓存实例。
func NewLRU[K comparable, V any](cfg CacheConfig) (*LRUCache[K, V], error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("LRU 缓存容量必须大于0，当前为 %d", cfg.Capacity)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LRUCache[K, V]{
		cfg:   cfg,
		ll:    list.New(),
		items: make(map[K]*list.Element, cfg.Capacity),
	}, nil
}

// Get 根据键获取一个值，并把它标记为最近使用。过期的元素会被顺带移除。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.lookupLocked(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Put 添加或更新一个键值对，并刷新其过期时间。
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = c.expiryLocked()
		c.ll.MoveToFront(el)
		return
	}
	c.insertLocked(key, value)
}

// AddIfAbsent 仅在键不存在 (或已过期) 时写入，返回是否写入成功。
// 检查与写入在同一把锁内完成，两个并发调用只有一个会返回 true。
func (c *LRUCache[K, V]) AddIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookupLocked(key); ok {
		return false
	}
	c.insertLocked(key, value)
	return true
}

// Remove 删除一个键。
func (c *LRUCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Len 返回当前缓存中的条目数量 (可能包含尚未被访问到的过期条目)。
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *LRUCache[K, V]) lookupLocked(key K) (*list.Element, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[K, V])
	if !e.expiresAt.IsZero() && !c.cfg.Now().Before(e.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}
	return el, true
}

func (c *LRUCache[K, V]) insertLocked(key K, value V) {
	el := c.ll.PushFront(&entry[K, V]{key: key, value: value, expiresAt: c.expiryLocked()})
	c.items[key] = el
	for c.ll.Len() > c.cfg.Capacity {
		c.removeLocked(c.ll.Back())
	}
}

func (c *LRUCache[K, V]) expiryLocked() time.Time {
	if c.cfg.TTL <= 0 {
		return time.Time{}
	}
	return c.cfg.Now().Add(c.cfg.TTL)
}

func (c *LRUCache[K, V]) removeLocked(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
