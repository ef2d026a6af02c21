package eventbus

import (
	"context"
	"sync"
)

// MemoryBus 是进程内总线实现，供单元测试与本地运行使用。
// 投递语义与真实总线一致：同一订阅内 handler 失败即重投（有限次）。
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string][]*memorySubscription
}

const memoryRedeliveryLimit = 5

// NewMemoryBus 创建空的进程内总线。
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{topics: make(map[string][]*memorySubscription)}
}

// Topic 返回绑定到指定主题的 Publisher。
func (b *MemoryBus) Topic(name string) Publisher {
	return &memoryPublisher{bus: b, topic: name}
}

// Subscribe 在主题上创建一个新的订阅并返回其 Subscriber。
func (b *MemoryBus) Subscribe(topic string) Subscriber {
	sub := &memorySubscription{ch: make(chan Message, 128)}
	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()
	return sub
}

type memoryPublisher struct {
	bus   *MemoryBus
	topic string
}

func (p *memoryPublisher) Publish(ctx context.Context, msg Message) error {
	p.bus.mu.Lock()
	subs := append([]*memorySubscription(nil), p.bus.topics[p.topic]...)
	p.bus.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

type memorySubscription struct {
	ch chan Message
}

func (s *memorySubscription) Receive(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.ch:
			for attempt := 0; attempt < memoryRedeliveryLimit; attempt++ {
				if err := handler(ctx, msg); err == nil {
					break
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		}
	}
}
