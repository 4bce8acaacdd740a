// Package lru 带 TTL 的进程内 LRU 表，用于按键维护的短生命周期对象（如限流器）。
package lru

import (
	"container/list"
	"sync"
	"time"
)

// Config LRU 配置
type Config struct {
	// MaxSize 最大条目数，超出时淘汰最久未使用的条目
	MaxSize int `mapstructure:"max_size"`
	// TTL 条目自最后一次写入起的存活时间
	TTL time.Duration `mapstructure:"ttl"`
	// CleanupInterval 后台清理间隔；为 0 时只在访问时惰性淘汰
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LRU 并发安全的 LRU 表
type LRU[K comparable, V any] struct {
	config Config
	order  *list.List
	items  map[K]*list.Element
	mu     sync.Mutex
	now    func() time.Time

	onEvict func(key K, value V)

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Option LRU 选项
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict 淘汰回调，在持锁状态下调用，回调内不可访问本表
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// WithClock 注入时钟
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRU[K, V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New 创建 LRU 表
func New[K comparable, V any](cfg Config, opts ...Option[K, V]) *LRU[K, V] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	c := &LRU[K, V]{
		config: cfg,
		order:  list.New(),
		items:  make(map[K]*list.Element),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupLoop()
	}
	return c
}

func (c *LRU[K, V]) cleanupLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.RemoveExpired()
		case <-c.stopCh:
			return
		}
	}
}

// RemoveExpired 清除所有过期条目，返回清除数量
func (c *LRU[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for e := c.order.Back(); e != nil; {
		prev := e.Prev()
		if now.After(e.Value.(*entry[K, V]).expiresAt) {
			c.removeElement(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Get 获取值；过期条目视为不存在
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		if !c.now().After(ent.expiresAt) {
			c.order.MoveToFront(elem)
			return ent.value, true
		}
		c.removeElement(elem)
	}
	var zero V
	return zero, false
}

// Set 写入值并刷新过期时间
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = c.now().Add(c.config.TTL)
		c.order.MoveToFront(elem)
		return
	}
	c.insert(key, value)
}

// GetOrCreate 原子地获取或创建
func (c *LRU[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		if !c.now().After(ent.expiresAt) {
			c.order.MoveToFront(elem)
			return ent.value
		}
		c.removeElement(elem)
	}
	value := create()
	c.insert(key, value)
	return value
}

// Delete 删除
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Len 当前条目数（含尚未清理的过期条目）
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Close 停止后台清理，可重复调用
func (c *LRU[K, V]) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	return nil
}

func (c *LRU[K, V]) insert(key K, value V) {
	elem := c.order.PushFront(&entry[K, V]{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.config.TTL),
	})
	c.items[key] = elem
	for c.order.Len() > c.config.MaxSize {
		c.removeElement(c.order.Back())
	}
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
