package po

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingState 表示视频转码流水线的可见状态。
// 状态只会从 processing 流转到 ready 一次，由 transcoding.finished 事件驱动。
type ProcessingState string

const (
	ProcessingStateProcessing ProcessingState = "processing"
	ProcessingStateReady      ProcessingState = "ready"
)

// Video 描述 media.videos 表中的一条视频记录。
// 由 FinishUpload 以上传会话的 ID 创建，之后只被流水线投影更新。
type Video struct {
	ID                      uuid.UUID
	ChannelID               uuid.UUID
	Name                    string
	UploadDate              time.Time
	PublishDate             *time.Time
	ProcessingState         ProcessingState
	DurationMicros          int64
	ProcessedDurationMicros int64
	VideoTracks             []VideoTrack
	AudioTracks             []AudioTrack
}

// VideoTrack 是转码产出的一路视频 rendition 的元数据。
type VideoTrack struct {
	ID        uuid.UUID
	VideoID   uuid.UUID
	Height    int32
	FrameRate int32
}

// AudioTrack 是转码产出的一路音轨的元数据。Index 为源文件内音频流的序号（按类型归零）。
type AudioTrack struct {
	ID      uuid.UUID
	VideoID uuid.UUID
	Name    string
	Index   int32
}
