// Package logger 构造带服务元信息与追踪关联字段的 Kratos Logger。
package logger

import (
	"context"
	"os"

	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"

	"github.com/go-kratos/kratos/v2/log"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// NewLogger 构造结构化 Logger：服务标识字段固定，
// trace_id/span_id 从请求上下文的 OTel SpanContext 延迟取值。
func NewLogger(meta loader.ServiceMetadata) log.Logger {
	base := log.NewStdLogger(os.Stdout)
	return log.With(
		base,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", meta.Name,
		"service.version", meta.Version,
		"service.id", meta.InstanceID,
		"environment", meta.Environment,
		"trace_id", log.Valuer(func(ctx context.Context) interface{} {
			sc := oteltrace.SpanContextFromContext(ctx)
			if sc.HasTraceID() {
				return sc.TraceID().String()
			}
			return ""
		}),
		"span_id", log.Valuer(func(ctx context.Context) interface{} {
			sc := oteltrace.SpanContextFromContext(ctx)
			if sc.HasSpanID() {
				return sc.SpanID().String()
			}
			return ""
		}),
	)
}
