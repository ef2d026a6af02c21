package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	"github.com/bionicotaku/lingo-services-media/internal/media"
	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/storage"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ContentSource 是流水线对对象存储的依赖子集。
type ContentSource interface {
	Upload(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type stageHandler struct {
	store     ContentSource
	prober    *media.Prober
	encoder   *media.Encoder
	policy    media.PlannerPolicy
	publisher eventbus.Publisher
	log       *log.Helper
}

func newStageHandler(params Params) *stageHandler {
	return &stageHandler{
		store:     params.Store,
		prober:    params.Prober,
		encoder:   params.Encoder,
		policy:    params.Policy,
		publisher: params.Publisher,
		log:       log.NewHelper(params.Logger),
	}
}

// identifyRenditions 是第一阶段：下载源文件、探测、生成计划并发布。
func (h *stageHandler) identifyRenditions(ctx context.Context, evt *events.UploadFinished) error {
	scratch, err := media.NewScratch()
	if err != nil {
		return err
	}
	defer func() {
		if err := scratch.Close(); err != nil {
			h.log.WithContext(ctx).Warnf("pipeline: remove scratch dir: %v", err)
		}
	}()

	srcPath, err := h.downloadSource(ctx, scratch, evt.ChannelID, evt.VideoID, evt.OriginalFileExtension)
	if err != nil {
		return err
	}

	info, err := h.prober.Probe(ctx, srcPath)
	if err != nil {
		return err
	}
	renditions := media.PlanRenditions(info, h.policy)

	msg, err := events.Encode(events.KindRenditionsIdentified, evt.VideoID, events.RenditionsIdentified{
		ChannelID:             evt.ChannelID,
		VideoID:               evt.VideoID,
		OriginalFileExtension: evt.OriginalFileExtension,
		DurationMicros:        info.Duration.Microseconds(),
		Renditions:            renditions,
	})
	if err != nil {
		return err
	}
	if err := h.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish renditions identified: %w", err)
	}

	h.log.WithContext(ctx).Infof("renditions identified: video_id=%s renditions=%d duration=%s",
		evt.VideoID, len(renditions), info.Duration)
	return nil
}

// transcode 是第二阶段：重新下载源文件、编码、把产物目录整体上传。
func (h *stageHandler) transcode(ctx context.Context, evt *events.RenditionsIdentified) error {
	scratch, err := media.NewScratch()
	if err != nil {
		return err
	}
	defer func() {
		if err := scratch.Close(); err != nil {
			h.log.WithContext(ctx).Warnf("pipeline: remove scratch dir: %v", err)
		}
	}()

	srcPath, err := h.downloadSource(ctx, scratch, evt.ChannelID, evt.VideoID, evt.OriginalFileExtension)
	if err != nil {
		return err
	}
	outDir, err := scratch.Dir()
	if err != nil {
		return err
	}

	var videos, audios []events.Rendition
	for _, r := range evt.Renditions {
		switch r.Type {
		case events.RenditionTypeVideo:
			videos = append(videos, r)
		case events.RenditionTypeAudio:
			audios = append(audios, r)
		}
	}

	job := media.EncodeJob{
		InputPath: srcPath,
		OutputDir: outDir,
		Videos:    videos,
		Audios:    audios,
	}
	err = h.encoder.Encode(ctx, job, func(p media.Progress) error {
		h.publishProgress(ctx, evt.VideoID, p.Elapsed)
		return nil
	})
	if err != nil {
		return fmt.Errorf("transcode video %s: %w", evt.VideoID, err)
	}

	if err := h.uploadStreams(ctx, outDir, evt.ChannelID, evt.VideoID); err != nil {
		return err
	}

	msg, err := events.Encode(events.KindTranscodingFinished, evt.VideoID, events.TranscodingFinished{
		ChannelID: evt.ChannelID,
		VideoID:   evt.VideoID,
	})
	if err != nil {
		return err
	}
	if err := h.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish transcoding finished: %w", err)
	}

	h.log.WithContext(ctx).Infof("transcoding finished: video_id=%s", evt.VideoID)
	return nil
}

// publishProgress 尽力发布进度。进度只求指示性，发布失败不终止编码。
func (h *stageHandler) publishProgress(ctx context.Context, videoID uuid.UUID, elapsed time.Duration) {
	msg, err := events.Encode(events.KindTranscodeProgress, videoID, events.TranscodeProgress{
		VideoID:       videoID,
		ElapsedMicros: elapsed.Microseconds(),
	})
	if err != nil {
		h.log.WithContext(ctx).Warnf("pipeline: encode progress event: %v", err)
		return
	}
	if err := h.publisher.Publish(ctx, msg); err != nil {
		h.log.WithContext(ctx).Warnf("pipeline: publish progress: %v", err)
	}
}

// downloadSource 把源对象拉到工作目录，保留原扩展名方便 ffmpeg 识别容器。
func (h *stageHandler) downloadSource(ctx context.Context, scratch *media.Scratch, channelID, videoID uuid.UUID, ext string) (string, error) {
	if ext != "" {
		ext = "." + ext
	}
	path := scratch.FilePath(ext)

	src, err := h.store.Open(ctx, storage.SourcePath(channelID, videoID))
	if err != nil {
		return "", fmt.Errorf("open source for video %s: %w", videoID, err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("download source for video %s: %w", videoID, err)
	}
	return path, nil
}

// uploadStreams 把编码产物目录按相对路径镜像到 streams/ 前缀下。
func (h *stageHandler) uploadStreams(ctx context.Context, outDir string, channelID, videoID uuid.UUID) error {
	return filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outDir, path)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open encoded file %s: %w", rel, err)
		}
		defer f.Close()

		key := storage.StreamPath(channelID, videoID, filepath.ToSlash(rel))
		if err := h.store.Upload(ctx, key, f); err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}
		return nil
	})
}
