package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEncodeBuildsRoutableMessage(t *testing.T) {
	videoID := uuid.New()
	msg, err := events.Encode(events.KindUploadFinished, videoID, events.UploadFinished{
		ChannelID:             uuid.New(),
		VideoID:               videoID,
		OriginalFileExtension: "mkv",
	})
	require.NoError(t, err)

	require.Equal(t, string(events.KindUploadFinished), msg.Attributes["event_type"])
	require.Equal(t, videoID.String(), msg.Attributes["aggregate_id"])
	require.Equal(t, events.AggregateTypeVideo, msg.Attributes["aggregate_type"])
	require.Equal(t, events.SchemaVersionV1, msg.Attributes["schema_version"])

	_, err = uuid.Parse(msg.Attributes["event_id"])
	require.NoError(t, err)
	occurred, err := time.Parse(time.RFC3339Nano, msg.Attributes["occurred_at"])
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), occurred, time.Minute)

	kind, err := events.KindFromAttributes(msg.Attributes)
	require.NoError(t, err)
	require.Equal(t, events.KindUploadFinished, kind)

	decoded, err := events.Decode[events.UploadFinished](msg)
	require.NoError(t, err)
	require.Equal(t, videoID, decoded.VideoID)
	require.Equal(t, "mkv", decoded.OriginalFileExtension)
}

func TestKindFromAttributesRejectsUnknown(t *testing.T) {
	_, err := events.KindFromAttributes(map[string]string{})
	require.Error(t, err)

	_, err = events.KindFromAttributes(map[string]string{"event_type": ""})
	require.Error(t, err)

	_, err = events.KindFromAttributes(map[string]string{"event_type": "user.created"})
	require.Error(t, err)
}

func TestRenditionUnionRoundTrip(t *testing.T) {
	plan := []events.Rendition{
		events.AudioRendition("English", 0),
		events.VideoRendition(720, 60),
	}
	data, err := json.Marshal(plan)
	require.NoError(t, err)

	var decoded []events.Rendition
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, plan, decoded)
}

func TestRenditionRejectsUnknownType(t *testing.T) {
	var r events.Rendition
	err := json.Unmarshal([]byte(`{"type":"subtitle"}`), &r)
	require.Error(t, err)

	err = json.Unmarshal([]byte(`{"height":480}`), &r)
	require.Error(t, err)
}

func TestRenditionVideoOmitsAudioFields(t *testing.T) {
	data, err := json.Marshal(events.VideoRendition(1080, 30))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.NotContains(t, raw, "name")
	require.NotContains(t, raw, "stream_index")
	require.Equal(t, "video", raw["type"])
}
