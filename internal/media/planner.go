package media

import (
	"github.com/bionicotaku/lingo-services-media/internal/models/events"
)

// PlannerPolicy 决定阶梯与低帧率档位。
type PlannerPolicy struct {
	// Ladder 是候选输出高度，必须升序。
	Ladder []int32
	// LowFPSHeights 中的档位在源帧率超过 LowFPSThreshold 时只输出半帧率版本。
	LowFPSHeights   map[int32]bool
	LowFPSThreshold int32
}

// DefaultPlannerPolicy 返回标准 16:9 阶梯策略。
func DefaultPlannerPolicy() PlannerPolicy {
	return PlannerPolicy{
		Ladder:          []int32{480, 720, 1080, 1440, 2160, 4320},
		LowFPSHeights:   map[int32]bool{480: true},
		LowFPSThreshold: 30,
	}
}

// PlanRenditions 根据探测结果生成确定性的输出清单。
// 音频轨按源顺序在前；视频档位按高度升序，只保留不超过源高度的档位。
// 源帧率超过阈值时，低帧率档位取半帧率，其余档位保留源帧率。
func PlanRenditions(info *MediaInfo, policy PlannerPolicy) []events.Rendition {
	var renditions []events.Rendition

	for _, audio := range info.AudioStreams() {
		renditions = append(renditions, events.AudioRendition(audio.Title, audio.Index))
	}

	maxHeight := info.MaxVideoHeight()
	maxFrameRate := info.MaxFrameRate()

	for _, height := range policy.Ladder {
		if height > maxHeight {
			break
		}
		frameRate := maxFrameRate
		if maxFrameRate > policy.LowFPSThreshold && policy.LowFPSHeights[height] {
			frameRate = maxFrameRate / 2
		}
		renditions = append(renditions, events.VideoRendition(height, frameRate))
	}

	return renditions
}
