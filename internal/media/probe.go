// Package media 封装外部音视频工具：ffprobe 探测、转码计划、ffmpeg 命令构建与执行。
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// StreamType 标识媒体流类型。
type StreamType string

const (
	StreamTypeVideo StreamType = "video"
	StreamTypeAudio StreamType = "audio"
)

// StreamInfo 是探测出的一路媒体流。
// Index 是该流在同类型流中的零基序号，与容器内的原始序号无关，
// 这样才能直接用于 ffmpeg 的 a:N / v:N 寻址。
type StreamInfo struct {
	Title     string
	Type      StreamType
	Codec     string
	Width     int32
	Height    int32
	Index     int32
	FrameRate int32
}

// MediaInfo 是一次探测的完整结果。
type MediaInfo struct {
	Streams  []StreamInfo
	Duration time.Duration
}

// MaxVideoHeight 返回视频流的最大高度，没有视频流时为 0。
func (m *MediaInfo) MaxVideoHeight() int32 {
	var max int32
	for _, s := range m.Streams {
		if s.Type == StreamTypeVideo && s.Height > max {
			max = s.Height
		}
	}
	return max
}

// MaxFrameRate 返回所有流的最大帧率。
func (m *MediaInfo) MaxFrameRate() int32 {
	var max int32
	for _, s := range m.Streams {
		if s.FrameRate > max {
			max = s.FrameRate
		}
	}
	return max
}

// AudioStreams 按源顺序返回音频流。
func (m *MediaInfo) AudioStreams() []StreamInfo {
	var out []StreamInfo
	for _, s := range m.Streams {
		if s.Type == StreamTypeAudio {
			out = append(out, s)
		}
	}
	return out
}

// Prober 调用 ffprobe 获取媒体流元数据。
type Prober struct {
	runner      *Runner
	ffprobePath string
	log         *log.Helper
}

// NewProber 构造 Prober。ffprobePath 为空时使用 PATH 中的 ffprobe。
func NewProber(runner *Runner, ffprobePath string, logger log.Logger) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{
		runner:      runner,
		ffprobePath: ffprobePath,
		log:         log.NewHelper(logger),
	}
}

// Probe 探测本地文件的流信息与时长。
func (p *Prober) Probe(ctx context.Context, filePath string) (*MediaInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		"-i", filePath,
	}
	out, err := p.runner.Run(ctx, p.ffprobePath, args)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filePath, err)
	}
	info, err := ParseProbeOutput(out)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filePath, err)
	}
	p.log.WithContext(ctx).Infof("probed media: path=%s streams=%d duration=%s", filePath, len(info.Streams), info.Duration)
	return info, nil
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  *probeFormat  `json:"format"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	Index      int32      `json:"index"`
	CodecName  string     `json:"codec_name"`
	CodecType  string     `json:"codec_type"`
	Width      int32      `json:"width"`
	Height     int32      `json:"height"`
	RFrameRate string     `json:"r_frame_rate"`
	Duration   string     `json:"duration"`
	Tags       *probeTags `json:"tags"`
}

type probeTags struct {
	Title string `json:"title"`
}

// ParseProbeOutput 解析 ffprobe 的 JSON 输出。
// 容器级时长缺失时回退到各流时长的最大值；帧率分数四舍五入为整数。
func ParseProbeOutput(data []byte) (*MediaInfo, error) {
	var result probeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(result.Streams) == 0 {
		return nil, fmt.Errorf("no streams in file")
	}

	typeCounts := make(map[StreamType]int32)
	streams := make([]StreamInfo, 0, len(result.Streams))
	var maxStreamDuration float64

	for _, raw := range result.Streams {
		streamType := StreamType(strings.ToLower(raw.CodecType))
		switch streamType {
		case StreamTypeVideo, StreamTypeAudio:
		default:
			// 字幕、附件等流不参与转码计划。
			continue
		}

		title := ""
		if raw.Tags != nil {
			title = raw.Tags.Title
		}
		if title == "" {
			title = fmt.Sprintf("%s-stream-%d", raw.CodecType, raw.Index)
		}

		streams = append(streams, StreamInfo{
			Title:     title,
			Type:      streamType,
			Codec:     raw.CodecName,
			Width:     raw.Width,
			Height:    raw.Height,
			Index:     typeCounts[streamType],
			FrameRate: parseFrameRate(raw.RFrameRate),
		})
		typeCounts[streamType]++

		if d := parseSeconds(raw.Duration); d > maxStreamDuration {
			maxStreamDuration = d
		}
	}

	if len(streams) == 0 {
		return nil, fmt.Errorf("no usable video/audio streams in file")
	}

	duration := maxStreamDuration
	if result.Format != nil {
		if d := parseSeconds(result.Format.Duration); d > 0 {
			duration = d
		}
	}

	return &MediaInfo{
		Streams:  streams,
		Duration: time.Duration(duration * float64(time.Second)),
	}, nil
}

// parseFrameRate 将 "30000/1001" 形式的分数四舍五入为整数帧率。
func parseFrameRate(value string) int32 {
	num, den, ok := strings.Cut(value, "/")
	if !ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return int32(math.Round(f))
		}
		return 0
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return int32(math.Round(n / d))
}

func parseSeconds(value string) float64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
