// Package loader 负责加载 bootstrap 配置并派生服务元信息。
package loader

import (
	"time"
)

// Bootstrap 是服务的全量配置。
type Bootstrap struct {
	Server    Server    `json:"server"`
	Data      Data      `json:"data"`
	Storage   Storage   `json:"storage"`
	PubSub    PubSub    `json:"pubsub"`
	Upload    Upload    `json:"upload"`
	Transcode Transcode `json:"transcode"`
	Outbox    Outbox    `json:"outbox"`
}

// Server 聚合对外监听配置。
type Server struct {
	HTTP HTTPServer `json:"http"`
}

// HTTPServer 是 HTTP 监听配置。
type HTTPServer struct {
	Network        string `json:"network"`
	Addr           string `json:"addr"`
	TimeoutSeconds int32  `json:"timeout_seconds"`
}

// Data 聚合数据层配置。
type Data struct {
	Postgres Postgres `json:"postgres"`
}

// Postgres 是连接池配置。时长以秒为单位。
type Postgres struct {
	DSN                      string `json:"dsn"`
	Schema                   string `json:"schema"`
	MaxOpenConns             int32  `json:"max_open_conns"`
	MinOpenConns             int32  `json:"min_open_conns"`
	MaxConnLifetimeSeconds   int32  `json:"max_conn_lifetime_seconds"`
	MaxConnIdleTimeSeconds   int32  `json:"max_conn_idle_time_seconds"`
	HealthCheckPeriodSeconds int32  `json:"health_check_period_seconds"`
	EnablePreparedStatements bool   `json:"enable_prepared_statements"`
}

// Storage 是对象存储配置。
type Storage struct {
	Bucket string `json:"bucket"`
}

// PubSub 是事件总线配置。
type PubSub struct {
	ProjectID              string `json:"project_id"`
	Topic                  string `json:"topic"`
	PipelineSubscription   string `json:"pipeline_subscription"`
	ProjectionSubscription string `json:"projection_subscription"`
}

// Upload 是上传业务配置。
type Upload struct {
	OwnershipCacheTTLSeconds int32 `json:"ownership_cache_ttl_seconds"`
	CommandTimeoutSeconds    int32 `json:"command_timeout_seconds"`
	ChunkTimeoutSeconds      int32 `json:"chunk_timeout_seconds"`
}

// Transcode 是外部工具配置。
type Transcode struct {
	FFmpegPath     string `json:"ffmpeg_path"`
	FFprobePath    string `json:"ffprobe_path"`
	SegmentSeconds int32  `json:"segment_seconds"`
}

// Outbox 是发件箱调度配置。
type Outbox struct {
	PollIntervalSeconds int32 `json:"poll_interval_seconds"`
	BatchSize           int32 `json:"batch_size"`
}

// OwnershipCacheTTL 返回频道归属缓存 TTL。
func (u Upload) OwnershipCacheTTL() time.Duration {
	return secondsOr(u.OwnershipCacheTTLSeconds, time.Minute)
}

// CommandTimeout 返回命令类接口的超时。
func (u Upload) CommandTimeout() time.Duration {
	return secondsOr(u.CommandTimeoutSeconds, 10*time.Second)
}

// ChunkTimeout 返回分块流式接口的超时。
func (u Upload) ChunkTimeout() time.Duration {
	return secondsOr(u.ChunkTimeoutSeconds, 15*time.Minute)
}

// PollInterval 返回发件箱轮询间隔。
func (o Outbox) PollInterval() time.Duration {
	return secondsOr(o.PollIntervalSeconds, time.Second)
}

func secondsOr(seconds int32, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
