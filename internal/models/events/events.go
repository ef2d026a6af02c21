// Package events 定义上传/转码边界上流转的领域事件及其编解码，统一事件命名与属性。
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind 标识领域事件类型。
type Kind string

const (
	// KindUploadFinished 表示分块上传合并完成，源文件已落存储。
	KindUploadFinished Kind = "upload.finished"
	// KindRenditionsIdentified 表示探测与规划完成，转码目标已确定。
	KindRenditionsIdentified Kind = "renditions.identified"
	// KindTranscodeProgress 表示编码器上报的增量进度。
	KindTranscodeProgress Kind = "transcode.progress"
	// KindTranscodingFinished 表示全部 rendition 已产出并上传。
	KindTranscodingFinished Kind = "transcoding.finished"
)

const (
	// AggregateTypeVideo 标识视频聚合类型，供 outbox headers / 总线属性使用。
	AggregateTypeVideo = "video"
	// SchemaVersionV1 描述事件载荷的当前 schema 版本。
	SchemaVersionV1 = "v1"
)

// UploadFinished 在 FinishUpload 事务提交后经 outbox 发布。
type UploadFinished struct {
	ChannelID             uuid.UUID `json:"channel_id"`
	VideoID               uuid.UUID `json:"video_id"`
	OriginalFileExtension string    `json:"original_file_extension"`
}

// RenditionsIdentified 由流水线第一阶段发布，携带完整转码计划与总时长。
type RenditionsIdentified struct {
	ChannelID             uuid.UUID   `json:"channel_id"`
	VideoID               uuid.UUID   `json:"video_id"`
	OriginalFileExtension string      `json:"original_file_extension"`
	DurationMicros        int64       `json:"duration_micros"`
	Renditions            []Rendition `json:"renditions"`
}

// TranscodeProgress 在编码器运行期间按 progress 行发布，不经过 outbox。
type TranscodeProgress struct {
	VideoID       uuid.UUID `json:"video_id"`
	ElapsedMicros int64     `json:"elapsed_micros"`
}

// TranscodingFinished 由流水线第二阶段在所有产物上传完成后发布。
type TranscodingFinished struct {
	ChannelID uuid.UUID `json:"channel_id"`
	VideoID   uuid.UUID `json:"video_id"`
}

// BuildAttributes 构造总线消息属性。消费方按 event_type 路由。
func BuildAttributes(kind Kind, eventID uuid.UUID, aggregateID uuid.UUID, occurredAt time.Time) map[string]string {
	return map[string]string{
		"event_id":       eventID.String(),
		"event_type":     string(kind),
		"aggregate_id":   aggregateID.String(),
		"aggregate_type": AggregateTypeVideo,
		"occurred_at":    occurredAt.UTC().Format(time.RFC3339Nano),
		"schema_version": SchemaVersionV1,
	}
}

// KindFromAttributes 从消息属性解析事件类型。
func KindFromAttributes(attrs map[string]string) (Kind, error) {
	raw, ok := attrs["event_type"]
	if !ok || raw == "" {
		return "", fmt.Errorf("events: missing event_type attribute")
	}
	switch k := Kind(raw); k {
	case KindUploadFinished, KindRenditionsIdentified, KindTranscodeProgress, KindTranscodingFinished:
		return k, nil
	default:
		return "", fmt.Errorf("events: unknown event_type %q", raw)
	}
}
