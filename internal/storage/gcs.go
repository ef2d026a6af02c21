package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	gcs "cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// GCS 单次 compose 最多 32 个源对象，分片多于该值时链式合并。
const composeBatchLimit = 32

// GCSStore 基于 GCS 实现 ContentStore。
// GCS 没有 S3 式 multipart API：分片先落到 key 旁的暂存前缀，
// 完成时按序 compose 成最终对象并删除暂存分片。
type GCSStore struct {
	bucket *gcs.BucketHandle
	log    *log.Helper
}

// NewGCSStore 构造 GCSStore。
func NewGCSStore(client *gcs.Client, bucketName string, logger log.Logger) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("storage: gcs client is required")
	}
	if bucketName == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	return &GCSStore{
		bucket: client.Bucket(bucketName),
		log:    log.NewHelper(logger),
	}, nil
}

// Upload 以单次写入覆盖对象。
func (s *GCSStore) Upload(ctx context.Context, key string, r io.Reader) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

// Open 返回对象的读取流。
func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return r, nil
}

// InitiateMultipartUpload 生成上传句柄。GCS 侧没有服务端会话，句柄只决定暂存前缀。
func (s *GCSStore) InitiateMultipartUpload(_ context.Context, _ string) (string, error) {
	return uuid.NewString(), nil
}

// UploadPart 将一个分片写入暂存对象并返回其 etag 作为 part tag。
func (s *GCSStore) UploadPart(ctx context.Context, input UploadPartInput) (string, error) {
	name := partObjectName(input.Key, input.UploadID, input.Number)
	w := s.bucket.Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, input.Body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write part %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close part %s: %w", name, err)
	}

	tag := w.Attrs().Etag
	if tag == "" {
		tag = fmt.Sprintf("gen-%d", w.Attrs().Generation)
	}
	return tag, nil
}

// CompleteMultipartUpload 按序号 compose 全部分片为最终对象，然后删除暂存分片。
// 重复调用是幂等的：compose 整体覆盖目标对象；暂存分片已清理而最终对象
// 存在时直接视为已完成，因此合并成功后失败的业务提交可以安全重试。
func (s *GCSStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []PartETag) error {
	if len(parts) == 0 {
		return errors.New("storage: complete requires at least one part")
	}

	ordered := append([]PartETag(nil), parts...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	dst := s.bucket.Object(key)
	composed := false
	for len(ordered) > 0 {
		sources := make([]*gcs.ObjectHandle, 0, composeBatchLimit)
		if composed {
			sources = append(sources, dst)
		}
		for len(ordered) > 0 && len(sources) < composeBatchLimit {
			sources = append(sources, s.bucket.Object(partObjectName(key, uploadID, ordered[0].Number)))
			ordered = ordered[1:]
		}
		if _, err := dst.ComposerFrom(sources...).Run(ctx); err != nil {
			if !composed && s.alreadyComposed(ctx, key, uploadID) {
				return nil
			}
			return fmt.Errorf("compose %s: %w", key, err)
		}
		composed = true
	}

	if err := s.deletePrefix(ctx, partPrefix(key, uploadID)); err != nil {
		// 合并已成功，暂存清理失败只记日志，留给后续重投或人工清理。
		s.log.WithContext(ctx).Warnf("cleanup multipart staging failed: key=%s upload_id=%s err=%v", key, uploadID, err)
	}
	return nil
}

// alreadyComposed 判断此前的 Complete 是否已经合并成功：最终对象存在
// 且该句柄下已无暂存分片。compose 因分片缺失失败时走到这里。
func (s *GCSStore) alreadyComposed(ctx context.Context, key, uploadID string) bool {
	if _, err := s.bucket.Object(key).Attrs(ctx); err != nil {
		return false
	}
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: partPrefix(key, uploadID)})
	_, err := it.Next()
	return errors.Is(err, iterator.Done)
}

// AbortMultipartUpload 删除该句柄下的全部暂存分片。
func (s *GCSStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	return s.deletePrefix(ctx, partPrefix(key, uploadID))
}

func (s *GCSStore) deletePrefix(ctx context.Context, prefix string) error {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list staging objects: %w", err)
		}
		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("delete staging object %s: %w", attrs.Name, err)
		}
	}
}

func partPrefix(key, uploadID string) string {
	return fmt.Sprintf("%s.upload/%s/", key, uploadID)
}

func partObjectName(key, uploadID string, number int32) string {
	return fmt.Sprintf("%spart-%05d", partPrefix(key, uploadID), number)
}
