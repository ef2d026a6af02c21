// Package projection 消费流水线事件并把结果投影到 media.videos 及轨道表。
package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
)

// VideoStateStore 是投影对视频仓储的依赖子集。
type VideoStateStore interface {
	SetRenditions(ctx context.Context, tx pgx.Tx, videoID uuid.UUID, durationMicros int64, videoTracks []po.VideoTrack, audioTracks []po.AudioTrack) error
	UpdateProgress(ctx context.Context, videoID uuid.UUID, processedMicros int64) error
	MarkReady(ctx context.Context, videoID uuid.UUID) error
}

// Task 负责消费事件并更新视频投影。
type Task struct {
	subscriber eventbus.Subscriber
	handler    *eventHandler
	log        *log.Helper
}

// Params 注入 Task 所需依赖。
type Params struct {
	Subscriber eventbus.Subscriber
	Videos     VideoStateStore
	TxManager  repositories.TxManager
	Logger     log.Logger
}

// NewTask 构造投影消费任务。
func NewTask(params Params) (*Task, error) {
	switch {
	case params.Subscriber == nil:
		return nil, fmt.Errorf("projection: subscriber is required")
	case params.Videos == nil:
		return nil, fmt.Errorf("projection: video repository is required")
	case params.TxManager == nil:
		return nil, fmt.Errorf("projection: tx manager is required")
	}

	helper := log.NewHelper(params.Logger)
	meter := otel.GetMeterProvider().Meter("lingo-services-media.projection")
	return &Task{
		subscriber: params.Subscriber,
		handler: &eventHandler{
			videos:  params.Videos,
			txm:     params.TxManager,
			metrics: newProjectionMetrics(meter, helper),
			log:     helper,
			clock:   time.Now,
		},
		log: helper,
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
		t.log.WithContext(ctx).Warnf("projection: drop unroutable message: %v", err)
		return nil
	}
	return t.handler.handle(ctx, kind, msg)
}

type eventHandler struct {
	videos  VideoStateStore
	txm     repositories.TxManager
	metrics *projectionMetrics
	log     *log.Helper
	clock   func() time.Time
}

func (h *eventHandler) handle(ctx context.Context, kind events.Kind, msg eventbus.Message) error {
	var err error
	switch kind {
	case events.KindRenditionsIdentified:
		err = h.applyRenditions(ctx, msg)
	case events.KindTranscodeProgress:
		err = h.applyProgress(ctx, msg)
	case events.KindTranscodingFinished:
		err = h.applyFinished(ctx, msg)
	default:
		// upload.finished 的视频行由 FinishUpload 事务创建，这里无事可做。
		return nil
	}

	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			// 视频行可能已被删除，重投不会改变结果。
			h.log.WithContext(ctx).Warnf("projection: skip %s for unknown video", kind)
			return nil
		}
		h.metrics.recordFailure(ctx, string(kind), err)
		return err
	}
	h.metrics.recordSuccess(ctx, string(kind), occurredAt(msg.Attributes), h.clock())
	return nil
}

// applyRenditions 写入总时长并整体替换轨道。重投只是再次整体替换，幂等。
func (h *eventHandler) applyRenditions(ctx context.Context, msg eventbus.Message) error {
	evt, err := events.Decode[events.RenditionsIdentified](msg)
	if err != nil {
		h.log.WithContext(ctx).Warnf("projection: drop malformed renditions event: %v", err)
		return nil
	}

	var videoTracks []po.VideoTrack
	var audioTracks []po.AudioTrack
	for _, r := range evt.Renditions {
		switch r.Type {
		case events.RenditionTypeVideo:
			videoTracks = append(videoTracks, po.VideoTrack{
				ID:        uuid.New(),
				VideoID:   evt.VideoID,
				Height:    r.Height,
				FrameRate: r.FrameRate,
			})
		case events.RenditionTypeAudio:
			audioTracks = append(audioTracks, po.AudioTrack{
				ID:      uuid.New(),
				VideoID: evt.VideoID,
				Name:    r.Name,
				Index:   r.StreamIndex,
			})
		}
	}

	return h.txm.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return h.videos.SetRenditions(ctx, tx, evt.VideoID, evt.DurationMicros, videoTracks, audioTracks)
	})
}

func (h *eventHandler) applyProgress(ctx context.Context, msg eventbus.Message) error {
	evt, err := events.Decode[events.TranscodeProgress](msg)
	if err != nil {
		h.log.WithContext(ctx).Warnf("projection: drop malformed progress event: %v", err)
		return nil
	}
	return h.videos.UpdateProgress(ctx, evt.VideoID, evt.ElapsedMicros)
}

func (h *eventHandler) applyFinished(ctx context.Context, msg eventbus.Message) error {
	evt, err := events.Decode[events.TranscodingFinished](msg)
	if err != nil {
		h.log.WithContext(ctx).Warnf("projection: drop malformed finished event: %v", err)
		return nil
	}
	return h.videos.MarkReady(ctx, evt.VideoID)
}

func occurredAt(attrs map[string]string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, attrs["occurred_at"])
	if err != nil {
		return time.Time{}
	}
	return ts
}
