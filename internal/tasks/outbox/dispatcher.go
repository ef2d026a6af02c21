// Package outbox 把发件箱中的事件搬运到事件总线。
// 业务事务只负责入箱；本任务轮询未发布事件、逐条发布并标记，
// 提供 at-least-once 语义（崩溃后重发，消费端需幂等）。
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Config 控制轮询节奏与批大小。
type Config struct {
	PollInterval time.Duration
	BatchSize    int32
}

// pendingStore 是调度器对发件箱仓储的依赖子集。
type pendingStore interface {
	ListPending(ctx context.Context, limit int32) ([]repositories.OutboxEvent, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID) error
}

// Dispatcher 是发件箱调度循环。
type Dispatcher struct {
	repo      pendingStore
	publisher eventbus.Publisher
	cfg       Config
	log       *log.Helper
}

// NewDispatcher 构造调度器。
func NewDispatcher(repo pendingStore, publisher eventbus.Publisher, cfg Config, logger log.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox: repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox: publisher is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Dispatcher{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		log:       log.NewHelper(logger),
	}, nil
}

// Run 启动轮询循环，直到 context 取消。
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := d.DispatchPending(ctx); err != nil {
			d.log.WithContext(ctx).Errorf("outbox: dispatch round failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DispatchPending 发布一批未发布事件。单条失败即停止本轮，
// 保持同一聚合内事件的发布顺序。
func (d *Dispatcher) DispatchPending(ctx context.Context) error {
	pending, err := d.repo.ListPending(ctx, d.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, evt := range pending {
		if err := d.publisher.Publish(ctx, evt.Message()); err != nil {
			return fmt.Errorf("publish outbox event %s: %w", evt.ID, err)
		}
		if err := d.repo.MarkPublished(ctx, evt.ID); err != nil {
			return err
		}
		d.log.WithContext(ctx).Debugf("outbox: published event_id=%s type=%s", evt.ID, evt.EventType)
	}
	return nil
}
