// Package cache 提供按 key 合并并发加载的 TTL 记忆化缓存。
// 同一 key 的并发 Get 只触发一次加载，其余调用等待同一结果；
// 结果在 TTL 内复用，加载失败的结果不缓存。与具体后端无关。
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	ready     chan struct{}
	value     V
	err       error
	expiresAt time.Time
}

// Loader 是并发安全的 load-once-per-key 缓存。
type Loader[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewLoader 构造 Loader。ttl 必须为正。
func NewLoader[V any](ttl time.Duration) *Loader[V] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Loader[V]{
		entries: make(map[string]*entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get 返回 key 对应的值；缓存未命中或已过期时调用 load 加载一次。
// 并发的未命中调用共享同一次加载的结果。
func (l *Loader[V]) Get(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	l.mu.Lock()
	if e, ok := l.entries[key]; ok {
		select {
		case <-e.ready:
			if e.err == nil && l.now().Before(e.expiresAt) {
				l.mu.Unlock()
				return e.value, nil
			}
			// 过期或失败的条目：继续走重建路径。
		default:
			// 加载进行中：等待同一结果。
			l.mu.Unlock()
			select {
			case <-e.ready:
				return e.value, e.err
			case <-ctx.Done():
				var zero V
				return zero, ctx.Err()
			}
		}
	}

	e := &entry[V]{ready: make(chan struct{})}
	l.entries[key] = e
	l.mu.Unlock()

	e.value, e.err = load(ctx)
	e.expiresAt = l.now().Add(l.ttl)
	close(e.ready)

	if e.err != nil {
		l.mu.Lock()
		if l.entries[key] == e {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
	return e.value, e.err
}

// Invalidate 删除 key 的缓存条目（若加载进行中则由等待者收尾）。
func (l *Loader[V]) Invalidate(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}
