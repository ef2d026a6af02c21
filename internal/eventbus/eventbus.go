// Package eventbus 定义服务内部对消息总线的最小契约：按主题发布、按订阅消费。
// 传输层（Pub/Sub）只承诺 at-least-once 投递，不保证顺序；所有消费方必须幂等。
package eventbus

import "context"

// Message 是一条总线消息：载荷加上用于路由/追踪的属性。
type Message struct {
	Data       []byte
	Attributes map[string]string
}

// Publisher 将消息发布到构造时绑定的主题。
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler 处理一条投递的消息。返回非 nil 错误会触发重投。
type Handler func(ctx context.Context, msg Message) error

// Subscriber 以 at-least-once 语义消费构造时绑定的订阅。
// Receive 阻塞直到 ctx 取消或消费循环出错。
type Subscriber interface {
	Receive(ctx context.Context, handler Handler) error
}
