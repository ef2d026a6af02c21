package po_test

import (
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/stretchr/testify/require"
)

func TestOriginalFileExtension(t *testing.T) {
	cases := []struct {
		fileName string
		want     string
	}{
		{"clip.mp4", "mp4"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{"trailingdot.", ""},
		{"dir/file.mkv", "mkv"},
		{"dir.with.dots/file", ""},
		{`win\path.mov`, "mov"},
		{"", ""},
	}
	for _, tc := range cases {
		session := po.UploadSession{FileName: tc.fileName}
		require.Equal(t, tc.want, session.OriginalFileExtension(), "file name %q", tc.fileName)
	}
}

func TestUploadChunkCompleted(t *testing.T) {
	hash := "abc"
	etag := "etag"

	require.False(t, po.UploadChunk{}.Completed())
	require.False(t, po.UploadChunk{SHA256Hash: &hash}.Completed())
	require.False(t, po.UploadChunk{StorageETag: &etag}.Completed())
	require.True(t, po.UploadChunk{SHA256Hash: &hash, StorageETag: &etag}.Completed())
}
