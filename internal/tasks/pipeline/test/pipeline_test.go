package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	"github.com/bionicotaku/lingo-services-media/internal/media"
	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/storage"
	"github.com/bionicotaku/lingo-services-media/internal/tasks/pipeline"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const fakeProbeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720, "r_frame_rate": "60/1"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "r_frame_rate": "0/0", "tags": {"title": "English"}}
  ],
  "format": {"duration": "42.0"}
}`

// writeFakeTool 生成一个可执行 shell 脚本充当外部工具。
func writeFakeTool(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

// fakeFFprobe 忽略参数，输出固定的探测 JSON。
func fakeFFprobe(t *testing.T, dir string) string {
	return writeFakeTool(t, dir, "ffprobe", fmt.Sprintf("cat <<'EOF'\n%s\nEOF\n", fakeProbeJSON))
}

// fakeFFmpeg 从最后一个参数推导输出目录，落一组产物并汇报进度。
func fakeFFmpeg(t *testing.T, dir string) string {
	script := `for last; do :; done
out=$(dirname "$(dirname "$last")")
printf 'master line\n' > "$out/master.m3u8"
mkdir -p "$out/stream_0" "$out/stream_1"
printf 'playlist\n' > "$out/stream_0/info.m3u8"
printf 'segment\n' > "$out/stream_0/data0000.ts"
printf 'playlist\n' > "$out/stream_1/info.m3u8"
printf 'out_time_us=21000000\nout_time=00:00:21.000000\nprogress=continue\n'
printf 'out_time_us=42000000\nout_time=00:00:42.000000\nprogress=end\n'
`
	return writeFakeTool(t, dir, "ffmpeg", script)
}

type capturingPublisher struct {
	messages []eventbus.Message
}

func (p *capturingPublisher) Publish(_ context.Context, msg eventbus.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

type oneshotSubscriber struct {
	msg eventbus.Message
}

func (s *oneshotSubscriber) Receive(ctx context.Context, handler eventbus.Handler) error {
	return handler(ctx, s.msg)
}

func newPipelineTask(t *testing.T, sub eventbus.Subscriber, pub eventbus.Publisher, store pipeline.ContentSource) *pipeline.Task {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	logger := log.NewStdLogger(io.Discard)
	toolDir := t.TempDir()
	runner := media.NewRunner(logger)

	task, err := pipeline.NewTask(pipeline.Params{
		Subscriber: sub,
		Publisher:  pub,
		Store:      store,
		Prober:     media.NewProber(runner, fakeFFprobe(t, toolDir), logger),
		Encoder:    media.NewEncoder(runner, fakeFFmpeg(t, toolDir), 10, logger),
		Logger:     logger,
	})
	require.NoError(t, err)
	return task
}

func mustEncode(t *testing.T, kind events.Kind, aggregateID uuid.UUID, payload any) eventbus.Message {
	t.Helper()
	msg, err := events.Encode(kind, aggregateID, payload)
	require.NoError(t, err)
	return msg
}

func TestPipelineIdentifyStage(t *testing.T) {
	channelID := uuid.New()
	videoID := uuid.New()

	store := storage.NewMemoryStore()
	require.NoError(t, store.Upload(context.Background(), storage.SourcePath(channelID, videoID), io.LimitReader(neverEnding('x'), 1024)))

	pub := &capturingPublisher{}
	sub := &oneshotSubscriber{msg: mustEncode(t, events.KindUploadFinished, videoID, events.UploadFinished{
		ChannelID:             channelID,
		VideoID:               videoID,
		OriginalFileExtension: "mp4",
	})}

	task := newPipelineTask(t, sub, pub, store)
	require.NoError(t, task.Run(context.Background()))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	require.Equal(t, string(events.KindRenditionsIdentified), msg.Attributes["event_type"])

	evt, err := events.Decode[events.RenditionsIdentified](msg)
	require.NoError(t, err)
	require.Equal(t, videoID, evt.VideoID)
	require.Equal(t, int64(42_000_000), evt.DurationMicros)
	require.Equal(t, []events.Rendition{
		events.AudioRendition("English", 0),
		events.VideoRendition(480, 30),
		events.VideoRendition(720, 60),
	}, evt.Renditions)
}

func TestPipelineTranscodeStage(t *testing.T) {
	channelID := uuid.New()
	videoID := uuid.New()

	store := storage.NewMemoryStore()
	require.NoError(t, store.Upload(context.Background(), storage.SourcePath(channelID, videoID), io.LimitReader(neverEnding('x'), 1024)))

	pub := &capturingPublisher{}
	sub := &oneshotSubscriber{msg: mustEncode(t, events.KindRenditionsIdentified, videoID, events.RenditionsIdentified{
		ChannelID:             channelID,
		VideoID:               videoID,
		OriginalFileExtension: "mp4",
		DurationMicros:        42_000_000,
		Renditions: []events.Rendition{
			events.AudioRendition("English", 0),
			events.VideoRendition(480, 30),
			events.VideoRendition(720, 60),
		},
	})}

	task := newPipelineTask(t, sub, pub, store)
	require.NoError(t, task.Run(context.Background()))

	// 进度事件在前，最后一条是 transcoding.finished。
	require.NotEmpty(t, pub.messages)
	last := pub.messages[len(pub.messages)-1]
	require.Equal(t, string(events.KindTranscodingFinished), last.Attributes["event_type"])

	var progressed bool
	for _, msg := range pub.messages[:len(pub.messages)-1] {
		require.Equal(t, string(events.KindTranscodeProgress), msg.Attributes["event_type"])
		progressed = true
	}
	require.True(t, progressed)

	// 产物目录按相对路径镜像到 streams/ 前缀。
	prefix := storage.StreamPath(channelID, videoID, "")
	keys := store.Keys(prefix)
	require.Contains(t, keys, storage.StreamPath(channelID, videoID, "master.m3u8"))
	require.Contains(t, keys, storage.StreamPath(channelID, videoID, "stream_0/info.m3u8"))
	require.Contains(t, keys, storage.StreamPath(channelID, videoID, "stream_0/data0000.ts"))
	require.Contains(t, keys, storage.StreamPath(channelID, videoID, "stream_1/info.m3u8"))
}

func TestPipelineDropsUnroutableMessage(t *testing.T) {
	pub := &capturingPublisher{}
	sub := &oneshotSubscriber{msg: eventbus.Message{
		Data:       []byte(`{}`),
		Attributes: map[string]string{"event_type": "nonsense"},
	}}

	task := newPipelineTask(t, sub, pub, storage.NewMemoryStore())
	require.NoError(t, task.Run(context.Background()))
	require.Empty(t, pub.messages)
}

func TestPipelineMissingSourceFails(t *testing.T) {
	pub := &capturingPublisher{}
	sub := &oneshotSubscriber{msg: mustEncode(t, events.KindUploadFinished, uuid.New(), events.UploadFinished{
		ChannelID: uuid.New(),
		VideoID:   uuid.New(),
	})}

	task := newPipelineTask(t, sub, pub, storage.NewMemoryStore())
	require.Error(t, task.Run(context.Background()))
}

// neverEnding 是无限重复单字节的 Reader，配合 LimitReader 生成测试内容。
type neverEnding byte

func (b neverEnding) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}
