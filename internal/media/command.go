package media

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
)

// bitsPerPixel 决定视频码率：像素数 × 0.3 bit。
const bitsPerPixel = 0.3

// audioBitrateKbps 按档位高度给出音频码率（kbit/s）。
var audioBitrateKbps = map[int32]int32{
	480:  48,
	720:  64,
	1080: 96,
	1440: 128,
	2160: 192,
	4320: 192,
}

// EncodeJob 描述一次 HLS 转码。
type EncodeJob struct {
	InputPath      string
	OutputDir      string
	SegmentSeconds int32
	// Videos 是视频档位（type=video），顺序决定 stream_%v 的编号。
	Videos []events.Rendition
	// Audios 是音频轨（type=audio），每个视频档位都会带上全部音轨。
	Audios []events.Rendition
}

// renditionName 生成档位名：高度加 p，帧率超过 30 时追加帧率后缀。
// 该名字同时用于 var_stream_map 与播放器展示。
func renditionName(r events.Rendition) string {
	name := fmt.Sprintf("%dp", r.Height)
	if r.FrameRate > 30 {
		name += fmt.Sprintf("%dfps", r.FrameRate)
	}
	return name
}

// widthFor 按 16:9 从高度推宽度，向上取整避免奇数像素截断。
func widthFor(height int32) int32 {
	return int32(math.Ceil(float64(height) * 16.0 / 9.0))
}

// videoBitrateKbps 返回该档位的视频码率（kbit/s）。
func videoBitrateKbps(height int32) int32 {
	pixels := float64(widthFor(height)) * float64(height)
	return int32(pixels * bitsPerPixel / 1000.0)
}

// buildFilterGraph 生成 -filter_complex 表达式：
// 输入拆成 N 路，逐路缩放到目标高度并按 16:9 黑边填充。
func buildFilterGraph(videos []events.Rendition) string {
	var split strings.Builder
	split.WriteString(fmt.Sprintf("[0]split=%d", len(videos)))
	for _, v := range videos {
		split.WriteString(fmt.Sprintf("[v%dp]", v.Height))
	}

	parts := []string{split.String()}
	for _, v := range videos {
		width := widthFor(v.Height)
		parts = append(parts, fmt.Sprintf(
			"[v%dp]scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2[v%dpOut]",
			v.Height, width, v.Height, width, v.Height, v.Height,
		))
	}
	return strings.Join(parts, "; ")
}

// BuildEncodeArgs 生成一次性产出全部 HLS 档位的 ffmpeg 参数。
// 进度写到 stdout（-progress -），由调用方解析。
func BuildEncodeArgs(job EncodeJob) []string {
	segmentSeconds := job.SegmentSeconds
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}

	args := []string{
		"-hide_banner",
		"-nostats",
		"-nostdin",
		"-progress", "-",
		"-i", job.InputPath,
		"-filter_complex", buildFilterGraph(job.Videos),
	}

	for i, v := range job.Videos {
		bitrate := fmt.Sprintf("%dk", videoBitrateKbps(v.Height))
		keyint := fmt.Sprintf("%d", v.FrameRate*segmentSeconds)
		args = append(args,
			"-map", fmt.Sprintf("[v%dpOut]", v.Height),
			fmt.Sprintf("-c:v:%d", i), "libx264",
			fmt.Sprintf("-x264-params:v:%d", i), "nal-hrd=cbr:force-cfr=1",
			fmt.Sprintf("-b:v:%d", i), bitrate,
			fmt.Sprintf("-maxrate:v:%d", i), bitrate,
			fmt.Sprintf("-minrate:v:%d", i), bitrate,
			fmt.Sprintf("-bufsize:v:%d", i), bitrate,
			fmt.Sprintf("-preset:v:%d", i), "slow",
			fmt.Sprintf("-r:v:%d", i), fmt.Sprintf("%d", v.FrameRate),
			fmt.Sprintf("-g:v:%d", i), keyint,
			fmt.Sprintf("-keyint_min:v:%d", i), keyint,
			"-sc_threshold", "0",
		)
	}

	// 每个视频档位都映射全部音轨，各自按档位码率重编。
	outputAudio := 0
	for _, v := range job.Videos {
		audioBitrate := audioBitrateKbps[v.Height]
		if audioBitrate == 0 {
			audioBitrate = 96
		}
		for _, a := range job.Audios {
			args = append(args,
				"-map", fmt.Sprintf("a:%d", a.StreamIndex),
				fmt.Sprintf("-c:a:%d", outputAudio), "aac",
				fmt.Sprintf("-b:a:%d", outputAudio), fmt.Sprintf("%dk", audioBitrate),
			)
			outputAudio++
		}
	}

	args = append(args,
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_type", "mpegts",
		"-hls_segment_filename", filepath.Join(job.OutputDir, "stream_%v", "data%04d.ts"),
		"-master_pl_name", "master.m3u8",
		"-var_stream_map", buildVarStreamMap(job),
		filepath.Join(job.OutputDir, "stream_%v", "info.m3u8"),
	)
	return args
}

// buildVarStreamMap 把每个视频档位与其全部音轨分为一个变体。
func buildVarStreamMap(job EncodeJob) string {
	groups := make([]string, 0, len(job.Videos))
	outputAudio := 0
	for i, v := range job.Videos {
		elems := []string{fmt.Sprintf("v:%d", i)}
		for range job.Audios {
			elems = append(elems, fmt.Sprintf("a:%d", outputAudio))
			outputAudio++
		}
		elems = append(elems, "name:"+renditionName(v))
		groups = append(groups, strings.Join(elems, ","))
	}
	return strings.Join(groups, " ")
}
