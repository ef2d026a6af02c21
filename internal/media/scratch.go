package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Scratch 是一次转码任务的本地工作目录，Close 时整体删除。
type Scratch struct {
	root string
}

// NewScratch 在系统临时目录下创建独立工作目录。
func NewScratch() (*Scratch, error) {
	root, err := os.MkdirTemp("", "media-transcode-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{root: root}, nil
}

// FilePath 返回工作目录下一个唯一文件路径，可带扩展名（如 ".mp4"）。
func (s *Scratch) FilePath(ext string) string {
	return filepath.Join(s.root, uuid.NewString()+ext)
}

// Dir 创建并返回一个子目录，用作 HLS 输出根目录。
func (s *Scratch) Dir() (string, error) {
	dir := filepath.Join(s.root, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch subdir: %w", err)
	}
	return dir, nil
}

// Close 删除整个工作目录。
func (s *Scratch) Close() error {
	return os.RemoveAll(s.root)
}
