package po

import (
	"time"

	"github.com/google/uuid"
)

// UploadSession 描述 media.uploads 表中的一条进行中的分块上传。
// 会话按 (channel_id, sha256_hash) 唯一：同一内容重复发起会复用已有会话。
type UploadSession struct {
	ID              uuid.UUID
	ChannelID       uuid.UUID
	SHA256Hash      string
	FileName        string
	FileSize        int64
	StorageUploadID string
	Chunks          []UploadChunk
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UploadChunk 描述会话内一个分块位置的状态。
// Hash/StorageETag 为 NULL 表示该位置已被占位但字节流尚未处理完（reserved 态）。
type UploadChunk struct {
	UploadID    uuid.UUID
	Position    int32
	SHA256Hash  *string
	StorageETag *string
	UpdatedAt   time.Time
}

// Completed 报告该分块是否已经写入存储并拿到 part tag。
func (c UploadChunk) Completed() bool {
	return c.SHA256Hash != nil && c.StorageETag != nil
}

// OriginalFileExtension 返回会话文件名的扩展名（不含点），没有扩展名时为空串。
func (s *UploadSession) OriginalFileExtension() string {
	for i := len(s.FileName) - 1; i >= 0; i-- {
		switch s.FileName[i] {
		case '.':
			return s.FileName[i+1:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}
