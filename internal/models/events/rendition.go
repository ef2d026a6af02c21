package events

import (
	"encoding/json"
	"fmt"
)

// RenditionType 是 Rendition 变体的判别标签。
type RenditionType string

const (
	RenditionTypeVideo RenditionType = "video"
	RenditionTypeAudio RenditionType = "audio"
)

// Rendition 是转码计划中的一个目标产物：视频档位或音轨，二选一。
// 只在事件载荷中短暂存在，没有持久化身份。
type Rendition struct {
	Type RenditionType `json:"type"`

	// video 变体字段。
	Height    int32 `json:"height,omitempty"`
	FrameRate int32 `json:"frame_rate,omitempty"`

	// audio 变体字段。
	Name        string `json:"name,omitempty"`
	StreamIndex int32  `json:"stream_index,omitempty"`
}

// VideoRendition 构造视频档位变体。
func VideoRendition(height, frameRate int32) Rendition {
	return Rendition{Type: RenditionTypeVideo, Height: height, FrameRate: frameRate}
}

// AudioRendition 构造音轨变体。streamIndex 是源文件内音频流的按类型序号。
func AudioRendition(name string, streamIndex int32) Rendition {
	return Rendition{Type: RenditionTypeAudio, Name: name, StreamIndex: streamIndex}
}

// UnmarshalJSON 在标准解码之上校验判别标签，拒绝未知变体。
func (r *Rendition) UnmarshalJSON(data []byte) error {
	type plain Rendition
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	switch decoded.Type {
	case RenditionTypeVideo, RenditionTypeAudio:
	default:
		return fmt.Errorf("events: unknown rendition type %q", decoded.Type)
	}
	*r = Rendition(decoded)
	return nil
}
