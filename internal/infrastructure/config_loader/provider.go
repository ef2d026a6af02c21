package loader

import "github.com/google/wire"

// ProviderSet 暴露配置加载与各配置片段的提取器。
var ProviderSet = wire.NewSet(
	Build,
	ProvideServerConfig,
	ProvideDataConfig,
	ProvideStorageConfig,
	ProvidePubSubConfig,
	ProvideUploadConfig,
	ProvideTranscodeConfig,
	ProvideOutboxConfig,
	ProvideServiceMetadata,
)

// ProvideServerConfig 提取监听配置。
func ProvideServerConfig(b *Bundle) Server { return b.Bootstrap.Server }

// ProvideDataConfig 提取数据层配置。
func ProvideDataConfig(b *Bundle) Data { return b.Bootstrap.Data }

// ProvideStorageConfig 提取对象存储配置。
func ProvideStorageConfig(b *Bundle) Storage { return b.Bootstrap.Storage }

// ProvidePubSubConfig 提取事件总线配置。
func ProvidePubSubConfig(b *Bundle) PubSub { return b.Bootstrap.PubSub }

// ProvideUploadConfig 提取上传业务配置。
func ProvideUploadConfig(b *Bundle) Upload { return b.Bootstrap.Upload }

// ProvideTranscodeConfig 提取转码配置。
func ProvideTranscodeConfig(b *Bundle) Transcode { return b.Bootstrap.Transcode }

// ProvideOutboxConfig 提取发件箱配置。
func ProvideOutboxConfig(b *Bundle) Outbox { return b.Bootstrap.Outbox }

// ProvideServiceMetadata 提取服务元信息。
func ProvideServiceMetadata(b *Bundle) ServiceMetadata { return b.Service }
