package dto_test

import (
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFromUploadSession(t *testing.T) {
	hash := "deadbeef"
	etag := "etag-1"
	session := &po.UploadSession{
		ID:        uuid.New(),
		ChannelID: uuid.New(),
		FileName:  "clip.mp4",
		FileSize:  2048,
		CreatedAt: time.Now().UTC(),
		Chunks: []po.UploadChunk{
			{Position: 0, SHA256Hash: &hash, StorageETag: &etag},
			{Position: 1},
		},
	}

	reply := dto.FromUploadSession(session)
	require.Equal(t, session.ID.String(), reply.UploadID)
	require.Equal(t, session.ChannelID.String(), reply.ChannelID)
	require.Equal(t, "clip.mp4", reply.FileName)
	require.Equal(t, int64(2048), reply.FileSize)

	require.Len(t, reply.Chunks, 2)
	require.True(t, reply.Chunks[0].Completed)
	require.Equal(t, "deadbeef", reply.Chunks[0].SHA256Hash)
	// 占位中的分块：未完成且不携带哈希。
	require.False(t, reply.Chunks[1].Completed)
	require.Empty(t, reply.Chunks[1].SHA256Hash)
}

func TestFromUploadSessionNoChunks(t *testing.T) {
	reply := dto.FromUploadSession(&po.UploadSession{ID: uuid.New(), ChannelID: uuid.New()})
	require.NotNil(t, reply.Chunks)
	require.Empty(t, reply.Chunks)
}
