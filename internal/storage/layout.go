package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// 存储布局约定：
//
//	collections/{channelID}/videos/{videoID}/source          上传合并后的母带
//	collections/{channelID}/videos/{videoID}/streams/{rel}   转码产物（含 master.m3u8）

// SourcePath 返回母带对象的 key。
func SourcePath(channelID, videoID uuid.UUID) string {
	return fmt.Sprintf("collections/%s/videos/%s/source", channelID, videoID)
}

// StreamPath 返回一个转码产物的 key。relativePath 使用 '/' 分隔。
func StreamPath(channelID, videoID uuid.UUID, relativePath string) string {
	return fmt.Sprintf("collections/%s/videos/%s/streams/%s", channelID, videoID, relativePath)
}
