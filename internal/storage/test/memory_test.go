package storage_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreMultipartOutOfOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	uploadID, err := store.InitiateMultipartUpload(ctx, "obj")
	require.NoError(t, err)

	parts := map[int32][]byte{0: []byte("aa"), 1: []byte("bb"), 2: []byte("cc")}
	etags := make([]storage.PartETag, 0, len(parts))
	for _, number := range []int32{2, 0, 1} {
		etag, err := store.UploadPart(ctx, storage.UploadPartInput{
			Key:      "obj",
			UploadID: uploadID,
			Number:   number,
			Body:     bytes.NewReader(parts[number]),
		})
		require.NoError(t, err)
		etags = append(etags, storage.PartETag{Number: number, ETag: etag})
	}

	require.NoError(t, store.CompleteMultipartUpload(ctx, "obj", uploadID, etags))
	data, ok := store.Object("obj")
	require.True(t, ok)
	require.Equal(t, []byte("aabbcc"), data)
}

func TestMemoryStoreCompleteRetryIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	uploadID, err := store.InitiateMultipartUpload(ctx, "obj")
	require.NoError(t, err)
	etag, err := store.UploadPart(ctx, storage.UploadPartInput{
		Key:      "obj",
		UploadID: uploadID,
		Number:   0,
		Body:     bytes.NewReader([]byte("payload")),
	})
	require.NoError(t, err)

	parts := []storage.PartETag{{Number: 0, ETag: etag}}
	require.NoError(t, store.CompleteMultipartUpload(ctx, "obj", uploadID, parts))

	// 首次合并已回收句柄，重试仍须成功且对象内容不变。
	require.NoError(t, store.CompleteMultipartUpload(ctx, "obj", uploadID, parts))
	data, ok := store.Object("obj")
	require.True(t, ok)
	require.Equal(t, []byte("payload"), data)

	// 其它 key 上的未知句柄依旧报错。
	require.Error(t, store.CompleteMultipartUpload(ctx, "elsewhere", uploadID, parts))
}

func TestMemoryStoreCompleteValidations(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	uploadID, err := store.InitiateMultipartUpload(ctx, "obj")
	require.NoError(t, err)

	require.Error(t, store.CompleteMultipartUpload(ctx, "obj", uploadID, nil))
	require.Error(t, store.CompleteMultipartUpload(ctx, "other", uploadID, []storage.PartETag{{Number: 0}}))
	require.Error(t, store.CompleteMultipartUpload(ctx, "obj", "unknown-id", []storage.PartETag{{Number: 0}}))
	require.Error(t, store.CompleteMultipartUpload(ctx, "obj", uploadID, []storage.PartETag{{Number: 7}}))
}

func TestMemoryStoreAbortDiscardsParts(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	uploadID, err := store.InitiateMultipartUpload(ctx, "obj")
	require.NoError(t, err)
	_, err = store.UploadPart(ctx, storage.UploadPartInput{Key: "obj", UploadID: uploadID, Number: 0, Body: bytes.NewReader([]byte("x"))})
	require.NoError(t, err)

	require.NoError(t, store.AbortMultipartUpload(ctx, "obj", uploadID))
	err = store.CompleteMultipartUpload(ctx, "obj", uploadID, []storage.PartETag{{Number: 0}})
	require.Error(t, err)
}

func TestMemoryStoreOpenMissingObject(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := store.Open(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestMemoryStoreUploadOverwrites(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "obj", bytes.NewReader([]byte("v1"))))
	require.NoError(t, store.Upload(ctx, "obj", bytes.NewReader([]byte("v2"))))

	r, err := store.Open(ctx, "obj")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))
}

func TestStorageLayout(t *testing.T) {
	channelID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	videoID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	require.Equal(t,
		"collections/11111111-1111-1111-1111-111111111111/videos/22222222-2222-2222-2222-222222222222/source",
		storage.SourcePath(channelID, videoID))
	require.Equal(t,
		"collections/11111111-1111-1111-1111-111111111111/videos/22222222-2222-2222-2222-222222222222/streams/stream_0/data0001.ts",
		storage.StreamPath(channelID, videoID, "stream_0/data0001.ts"))
}
