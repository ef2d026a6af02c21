// Package dto 定义 HTTP 接口层的请求与响应结构。
package dto

import (
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
)

// StartUploadRequest 发起（或续传）上传会话。
type StartUploadRequest struct {
	SHA256Hash string `json:"sha256_hash"`
	FileName   string `json:"file_name"`
	FileSize   int64  `json:"file_size"`
}

// ChunkState 描述会话内一个分块位置的状态。
type ChunkState struct {
	Position   int32  `json:"position"`
	Completed  bool   `json:"completed"`
	SHA256Hash string `json:"sha256_hash,omitempty"`
}

// UploadSessionReply 返回会话与全部分块状态，客户端据此续传。
type UploadSessionReply struct {
	UploadID  string       `json:"upload_id"`
	ChannelID string       `json:"channel_id"`
	FileName  string       `json:"file_name"`
	FileSize  int64        `json:"file_size"`
	CreatedAt time.Time    `json:"created_at"`
	Chunks    []ChunkState `json:"chunks"`
}

// UploadChunkReply 返回单个分块的服务端哈希，供客户端校验。
type UploadChunkReply struct {
	UploadID   string `json:"upload_id"`
	Position   int32  `json:"position"`
	SHA256Hash string `json:"sha256_hash"`
}

// FinishUploadRequest 完成上传。Name 为空时使用原始文件名。
type FinishUploadRequest struct {
	Name string `json:"name"`
}

// FinishUploadReply 返回新建视频的 ID。
type FinishUploadReply struct {
	VideoID string `json:"video_id"`
}

// FromUploadSession 把会话持久化对象映射为响应。
func FromUploadSession(session *po.UploadSession) *UploadSessionReply {
	reply := &UploadSessionReply{
		UploadID:  session.ID.String(),
		ChannelID: session.ChannelID.String(),
		FileName:  session.FileName,
		FileSize:  session.FileSize,
		CreatedAt: session.CreatedAt,
		Chunks:    make([]ChunkState, 0, len(session.Chunks)),
	}
	for _, chunk := range session.Chunks {
		state := ChunkState{
			Position:  chunk.Position,
			Completed: chunk.Completed(),
		}
		if chunk.SHA256Hash != nil {
			state.SHA256Hash = *chunk.SHA256Hash
		}
		reply.Chunks = append(reply.Chunks, state)
	}
	return reply
}
