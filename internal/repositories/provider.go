package repositories

import "github.com/google/wire"

// ProviderSet 聚合数据访问层构造函数，供 Wire 注入。
var ProviderSet = wire.NewSet(
	NewTxManager,
	NewUploadRepository,
	NewChannelRepository,
	NewVideoRepository,
	NewOutboxRepository,
)
