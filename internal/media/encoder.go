package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kratos/kratos/v2/log"
)

// Encoder 运行 ffmpeg 做多档位 HLS 转码。
type Encoder struct {
	runner         *Runner
	ffmpegPath     string
	segmentSeconds int32
	log            *log.Helper
}

// NewEncoder 构造 Encoder。ffmpegPath 为空时使用 PATH 中的 ffmpeg。
func NewEncoder(runner *Runner, ffmpegPath string, segmentSeconds int32, logger log.Logger) *Encoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}
	return &Encoder{
		runner:         runner,
		ffmpegPath:     ffmpegPath,
		segmentSeconds: segmentSeconds,
		log:            log.NewHelper(logger),
	}
}

// Encode 执行转码。onProgress 在每次 ffmpeg 进度汇报时被调用，可为 nil。
func (e *Encoder) Encode(ctx context.Context, job EncodeJob, onProgress func(Progress) error) error {
	if len(job.Videos) == 0 {
		return fmt.Errorf("encode job has no video renditions")
	}
	job.SegmentSeconds = e.segmentSeconds

	// hls muxer 不会创建 stream_%v 子目录，提前建好。
	for i := range job.Videos {
		dir := filepath.Join(job.OutputDir, fmt.Sprintf("stream_%d", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create rendition dir: %w", err)
		}
	}

	args := BuildEncodeArgs(job)
	e.log.WithContext(ctx).Infof("start encode: input=%s renditions=%d audios=%d", job.InputPath, len(job.Videos), len(job.Audios))

	err := e.runner.RunWithStdout(ctx, e.ffmpegPath, args, func(stdout io.Reader) error {
		if onProgress == nil {
			return ParseProgress(stdout, func(Progress) error { return nil })
		}
		return ParseProgress(stdout, onProgress)
	})
	if err != nil {
		return err
	}
	e.log.WithContext(ctx).Infof("encode finished: input=%s", job.InputPath)
	return nil
}
