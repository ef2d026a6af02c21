package media_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/media"

	"github.com/stretchr/testify/require"
)

const sampleProgress = `frame=120
fps=60.0
out_time_us=2000000
out_time_ms=2000
out_time=00:00:02.000000
speed=2.0x
progress=continue
frame=240
out_time_us=4500000
out_time=00:00:04.500000
progress=continue
frame=360
out_time_us=6000000
out_time=00:00:06.000000
progress=end
`

func TestParseProgressEmitsPerBlock(t *testing.T) {
	var got []media.Progress
	err := media.ParseProgress(strings.NewReader(sampleProgress), func(p media.Progress) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, []media.Progress{
		{Elapsed: 2 * time.Second},
		{Elapsed: 4500 * time.Millisecond},
		{Elapsed: 6 * time.Second, End: true},
	}, got)
}

func TestParseProgressStopsOnEmitError(t *testing.T) {
	sentinel := errors.New("stop")
	calls := 0
	err := media.ParseProgress(strings.NewReader(sampleProgress), func(media.Progress) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestParseProgressOutTimeOnly(t *testing.T) {
	// 老版本 ffmpeg 只输出 out_time。
	input := "out_time=01:02:03.500000\nprogress=end\n"
	var got []media.Progress
	err := media.ParseProgress(strings.NewReader(input), func(p media.Progress) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, time.Hour+2*time.Minute+3*time.Second+500*time.Millisecond, got[0].Elapsed)
	require.True(t, got[0].End)
}

func TestParseProgressIgnoresGarbageLines(t *testing.T) {
	input := "not a pair\n\nout_time=bogus\nout_time_us=-5\nprogress=continue\n"
	var got []media.Progress
	err := media.ParseProgress(strings.NewReader(input), func(p media.Progress) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []media.Progress{{Elapsed: 0}}, got)
}
