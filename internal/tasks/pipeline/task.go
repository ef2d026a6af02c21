// Package pipeline 实现两阶段转码流水线：
// 第一阶段消费 upload.finished，探测源文件并发布转码计划；
// 第二阶段消费 renditions.identified，执行编码并上传全部产物。
// 两个阶段都是重投安全的：产物写入按 key 覆盖，事件重复消费只产生重复覆盖。
package pipeline

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	"github.com/bionicotaku/lingo-services-media/internal/media"
	"github.com/bionicotaku/lingo-services-media/internal/models/events"

	"github.com/go-kratos/kratos/v2/log"
)

// Task 是转码流水线的消费循环。
type Task struct {
	subscriber eventbus.Subscriber
	handler    *stageHandler
	log        *log.Helper
}

// Params 注入 Task 所需依赖。
type Params struct {
	Subscriber eventbus.Subscriber
	Publisher  eventbus.Publisher
	Store      ContentSource
	Prober     *media.Prober
	Encoder    *media.Encoder
	Policy     media.PlannerPolicy
	Logger     log.Logger
}

// NewTask 构造流水线任务。
func NewTask(params Params) (*Task, error) {
	switch {
	case params.Subscriber == nil:
		return nil, fmt.Errorf("pipeline: subscriber is required")
	case params.Publisher == nil:
		return nil, fmt.Errorf("pipeline: publisher is required")
	case params.Store == nil:
		return nil, fmt.Errorf("pipeline: content store is required")
	case params.Prober == nil:
		return nil, fmt.Errorf("pipeline: prober is required")
	case params.Encoder == nil:
		return nil, fmt.Errorf("pipeline: encoder is required")
	}
	if len(params.Policy.Ladder) == 0 {
		params.Policy = media.DefaultPlannerPolicy()
	}
	return &Task{
		subscriber: params.Subscriber,
		handler:    newStageHandler(params),
		log:        log.NewHelper(params.Logger),
	}, nil
}

// Run 启动消费循环，直到 context 取消。
func (t *Task) Run(ctx context.Context) error {
	if t == nil || t.subscriber == nil {
		return nil
	}
	return t.subscriber.Receive(ctx, t.process)
}

func (t *Task) process(ctx context.Context, msg eventbus.Message) error {
	kind, err := events.KindFromAttributes(msg.Attributes)
	if err != nil {
		// 无法路由的消息重投也不会成功，记录后丢弃。
		t.log.WithContext(ctx).Warnf("pipeline: drop unroutable message: %v", err)
		return nil
	}

	switch kind {
	case events.KindUploadFinished:
		evt, err := events.Decode[events.UploadFinished](msg)
		if err != nil {
			t.log.WithContext(ctx).Warnf("pipeline: drop malformed %s: %v", kind, err)
			return nil
		}
		return t.handler.identifyRenditions(ctx, evt)
	case events.KindRenditionsIdentified:
		evt, err := events.Decode[events.RenditionsIdentified](msg)
		if err != nil {
			t.log.WithContext(ctx).Warnf("pipeline: drop malformed %s: %v", kind, err)
			return nil
		}
		return t.handler.transcode(ctx, evt)
	default:
		return nil
	}
}
