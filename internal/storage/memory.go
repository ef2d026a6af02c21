package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore 是 ContentStore 的进程内实现，供单元测试与本地运行使用。
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// parts: uploadID -> part number -> 分片内容。
	parts map[string]map[int32][]byte
	// uploadKeys: uploadID -> 目标 key，校验句柄与 key 匹配。
	uploadKeys map[string]string
}

// NewMemoryStore 创建空的内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:    make(map[string][]byte),
		parts:      make(map[string]map[int32][]byte),
		uploadKeys: make(map[string]string),
	}
}

// Upload 以单次写入覆盖对象。
func (s *MemoryStore) Upload(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

// Open 返回对象内容的读取流。
func (s *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// InitiateMultipartUpload 开启一次 multipart 上传。
func (s *MemoryStore) InitiateMultipartUpload(_ context.Context, key string) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.parts[id] = make(map[int32][]byte)
	s.uploadKeys[id] = key
	s.mu.Unlock()
	return id, nil
}

// UploadPart 记录分片内容，重复序号覆盖。part tag 为内容长度加随机后缀。
func (s *MemoryStore) UploadPart(_ context.Context, input UploadPartInput) (string, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.parts[input.UploadID]
	if !ok {
		return "", fmt.Errorf("storage: unknown upload id %s", input.UploadID)
	}
	bucket[input.Number] = data
	return fmt.Sprintf("etag-%d-%s", len(data), uuid.NewString()[:8]), nil
}

// CompleteMultipartUpload 按序号拼接分片写入最终对象。
// 句柄已被上一次成功的 Complete 回收且最终对象存在时视为已完成，
// 保证合并成功之后的重试不会失败。
func (s *MemoryStore) CompleteMultipartUpload(_ context.Context, key, uploadID string, parts []PartETag) error {
	if len(parts) == 0 {
		return errors.New("storage: complete requires at least one part")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.parts[uploadID]
	if !ok {
		if _, done := s.objects[key]; done {
			return nil
		}
		return fmt.Errorf("storage: unknown upload id %s", uploadID)
	}
	if want := s.uploadKeys[uploadID]; want != key {
		return fmt.Errorf("storage: upload id %s is bound to %s", uploadID, want)
	}

	ordered := append([]PartETag(nil), parts...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	var buf bytes.Buffer
	for _, part := range ordered {
		data, ok := bucket[part.Number]
		if !ok {
			return fmt.Errorf("storage: part %d was never uploaded", part.Number)
		}
		buf.Write(data)
	}
	s.objects[key] = buf.Bytes()
	delete(s.parts, uploadID)
	delete(s.uploadKeys, uploadID)
	return nil
}

// AbortMultipartUpload 丢弃句柄下的全部分片。
func (s *MemoryStore) AbortMultipartUpload(_ context.Context, _, uploadID string) error {
	s.mu.Lock()
	delete(s.parts, uploadID)
	delete(s.uploadKeys, uploadID)
	s.mu.Unlock()
	return nil
}

// Keys 返回已落盘对象的 key 列表，可选按前缀过滤。测试辅助。
func (s *MemoryStore) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Object 返回对象内容副本，不存在时第二返回值为 false。测试辅助。
func (s *MemoryStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}
