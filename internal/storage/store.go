// Package storage 抽象对象存储能力：单次写读与三步式 multipart 上传。
// 上层只依赖 ContentStore 接口；GCS 实现见 gcs.go，测试用内存实现见 memory.go。
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound 表示指定 key 的对象不存在。
var ErrObjectNotFound = errors.New("storage: object not found")

// PartETag 是一个已完成分片的序号与 opaque part tag，完成时必须按序号提交。
type PartETag struct {
	Number int32
	ETag   string
}

// UploadPartInput 描述一次分片写入。Body 只被消费一次。
type UploadPartInput struct {
	Key      string
	UploadID string
	Number   int32
	Body     io.Reader
}

// ContentStore 是本服务对 blob 存储的全部依赖。
type ContentStore interface {
	// Upload 以单次写入覆盖 key 处的对象。
	Upload(ctx context.Context, key string, r io.Reader) error
	// Open 返回对象的读取流，不存在时返回 ErrObjectNotFound。
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// InitiateMultipartUpload 开启一次 multipart 上传并返回 opaque 句柄。
	InitiateMultipartUpload(ctx context.Context, key string) (string, error)
	// UploadPart 写入一个分片并返回其 part tag。同一序号重复写入为覆盖。
	UploadPart(ctx context.Context, input UploadPartInput) (string, error)
	// CompleteMultipartUpload 按序号顺序合并全部分片为最终对象并清理分片。
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []PartETag) error
	// AbortMultipartUpload 丢弃已写入的分片。
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}
