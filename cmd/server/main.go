// Package main 启动对外 HTTP 入口与发件箱调度器。
package main

import (
	"context"
	"flag"

	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-media/internal/server"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path or directory, eg: -conf configs/config.yaml")
}

func newApp(logger log.Logger, meta loader.ServiceMetadata, hs *http.Server, outboxSrv *server.TaskServer) *kratos.App {
	return kratos.New(
		kratos.ID(meta.InstanceID),
		kratos.Name(meta.Name),
		kratos.Version(meta.Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
			outboxSrv,
		),
	)
}

func main() {
	flag.Parse()

	app, cleanup, err := wireApp(context.Background(), loader.Params{ConfPath: flagconf})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
