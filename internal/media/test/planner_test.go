package media_test

import (
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/media"
	"github.com/bionicotaku/lingo-services-media/internal/models/events"

	"github.com/stretchr/testify/require"
)

func TestPlanRenditions1080p60WithTwoAudioTracks(t *testing.T) {
	info := &media.MediaInfo{Streams: []media.StreamInfo{
		{Type: media.StreamTypeVideo, Height: 1080, FrameRate: 60},
		{Type: media.StreamTypeAudio, Title: "English", Index: 0},
		{Type: media.StreamTypeAudio, Title: "Commentary", Index: 1},
	}}

	got := media.PlanRenditions(info, media.DefaultPlannerPolicy())
	require.Equal(t, []events.Rendition{
		events.AudioRendition("English", 0),
		events.AudioRendition("Commentary", 1),
		// 480 在低帧率档位且源超过 30fps：只输出半帧率版本。
		events.VideoRendition(480, 30),
		events.VideoRendition(720, 60),
		events.VideoRendition(1080, 60),
	}, got)
}

func TestPlanRenditionsLowFrameRateSourceKeepsFullRate(t *testing.T) {
	info := &media.MediaInfo{Streams: []media.StreamInfo{
		{Type: media.StreamTypeVideo, Height: 720, FrameRate: 24},
	}}

	got := media.PlanRenditions(info, media.DefaultPlannerPolicy())
	require.Equal(t, []events.Rendition{
		events.VideoRendition(480, 24),
		events.VideoRendition(720, 24),
	}, got)
}

func TestPlanRenditionsCapsAtSourceHeight(t *testing.T) {
	info := &media.MediaInfo{Streams: []media.StreamInfo{
		{Type: media.StreamTypeVideo, Height: 1440, FrameRate: 30},
		{Type: media.StreamTypeAudio, Title: "Main", Index: 0},
	}}

	got := media.PlanRenditions(info, media.DefaultPlannerPolicy())
	require.Len(t, got, 5)
	last := got[len(got)-1]
	require.Equal(t, events.RenditionTypeVideo, last.Type)
	require.Equal(t, int32(1440), last.Height)
	for _, r := range got {
		if r.Type == events.RenditionTypeVideo {
			require.LessOrEqual(t, r.Height, int32(1440))
		}
	}
}

func TestPlanRenditionsBelowLadderYieldsAudioOnly(t *testing.T) {
	info := &media.MediaInfo{Streams: []media.StreamInfo{
		{Type: media.StreamTypeVideo, Height: 360, FrameRate: 30},
		{Type: media.StreamTypeAudio, Title: "Main", Index: 0},
	}}

	got := media.PlanRenditions(info, media.DefaultPlannerPolicy())
	require.Equal(t, []events.Rendition{events.AudioRendition("Main", 0)}, got)
}

func TestPlanRenditionsDeterministic(t *testing.T) {
	info := &media.MediaInfo{Streams: []media.StreamInfo{
		{Type: media.StreamTypeVideo, Height: 2160, FrameRate: 60},
		{Type: media.StreamTypeAudio, Title: "A", Index: 0},
		{Type: media.StreamTypeAudio, Title: "B", Index: 1},
		{Type: media.StreamTypeAudio, Title: "C", Index: 2},
	}}
	policy := media.DefaultPlannerPolicy()

	first := media.PlanRenditions(info, policy)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, media.PlanRenditions(info, policy))
	}
}
