// Package server 组装对外的 HTTP 服务。
package server

import (
	stdhttp "net/http"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/controllers"
	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	kmetrics "github.com/go-kratos/kratos/v2/middleware/metrics"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer 构造 HTTP 服务并挂载上传路由与健康检查。
func NewHTTPServer(cfg loader.Server, upload *controllers.UploadHandler, telemetry *Telemetry, logger log.Logger) *http.Server {
	middlewares := []middleware.Middleware{
		recovery.Recovery(),
		logging.Server(logger),
	}
	if telemetry != nil {
		middlewares = append(middlewares, kmetrics.Server(
			kmetrics.WithRequests(telemetry.RequestCounter),
			kmetrics.WithSeconds(telemetry.SecondsHistogram),
		))
	}

	opts := []http.ServerOption{http.Middleware(middlewares...)}
	if cfg.HTTP.Network != "" {
		opts = append(opts, http.Network(cfg.HTTP.Network))
	}
	if cfg.HTTP.Addr != "" {
		opts = append(opts, http.Address(cfg.HTTP.Addr))
	}
	if cfg.HTTP.TimeoutSeconds > 0 {
		opts = append(opts, http.Timeout(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second))
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))
	srv.Handle("/readyz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))
	if telemetry != nil {
		srv.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	}

	upload.Register(srv)
	return srv
}
