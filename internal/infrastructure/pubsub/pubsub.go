// Package pubsub 把 Cloud Pub/Sub 适配为进程内的事件总线接口。
package pubsub

import (
	"context"
	"fmt"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"

	"github.com/go-kratos/kratos/v2/log"
)

// NewClient 创建 Pub/Sub 客户端。
func NewClient(ctx context.Context, cfg loader.PubSub, logger log.Logger) (*gpubsub.Client, func(), error) {
	helper := log.NewHelper(logger)
	if cfg.ProjectID == "" {
		return nil, nil, fmt.Errorf("pubsub project_id is required (set PUBSUB_PROJECT)")
	}

	client, err := gpubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}

	cleanup := func() {
		helper.Info("closing pubsub client")
		if err := client.Close(); err != nil {
			helper.Warnf("close pubsub client: %v", err)
		}
	}
	return client, cleanup, nil
}

// TopicPublisher 把单个 topic 封装为 eventbus.Publisher。
type TopicPublisher struct {
	topic *gpubsub.Topic
}

// NewPublisher 构造面向配置 topic 的发布器，cleanup 等待在途消息发完。
func NewPublisher(client *gpubsub.Client, cfg loader.PubSub) (*TopicPublisher, func(), error) {
	if cfg.Topic == "" {
		return nil, nil, fmt.Errorf("pubsub topic is required")
	}
	topic := client.Topic(cfg.Topic)
	return &TopicPublisher{topic: topic}, topic.Stop, nil
}

// Publish 同步发布一条消息，等待服务端确认。
func (p *TopicPublisher) Publish(ctx context.Context, msg eventbus.Message) error {
	result := p.topic.Publish(ctx, &gpubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic.ID(), err)
	}
	return nil
}

// SubscriptionSubscriber 把单个 subscription 封装为 eventbus.Subscriber。
type SubscriptionSubscriber struct {
	sub *gpubsub.Subscription
	log *log.Helper
}

// NewSubscriber 构造面向指定 subscription 的消费器。
func NewSubscriber(client *gpubsub.Client, subscription string, logger log.Logger) (*SubscriptionSubscriber, error) {
	if subscription == "" {
		return nil, fmt.Errorf("pubsub subscription is required")
	}
	return &SubscriptionSubscriber{
		sub: client.Subscription(subscription),
		log: log.NewHelper(logger),
	}, nil
}

// Receive 启动 StreamingPull 循环。handler 返回错误时 Nack 触发重投。
func (s *SubscriptionSubscriber) Receive(ctx context.Context, handler eventbus.Handler) error {
	return s.sub.Receive(ctx, func(ctx context.Context, m *gpubsub.Message) {
		err := handler(ctx, eventbus.Message{Data: m.Data, Attributes: m.Attributes})
		if err != nil {
			s.log.WithContext(ctx).Warnf("pubsub: handler failed, nack: %v", err)
			m.Nack()
			return
		}
		m.Ack()
	})
}
