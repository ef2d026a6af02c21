// Package main 提供转码流水线与投影消费的后台进程入口。
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-media/internal/tasks/pipeline"
	"github.com/bionicotaku/lingo-services-media/internal/tasks/projection"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"

	_ "go.uber.org/automaxprocs"
)

type workerApp struct {
	Pipeline   *pipeline.Task
	Projection *projection.Task
	Logger     log.Logger
}

func main() {
	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	ctx := context.Background()
	app, cleanup, err := wireWorker(ctx, loader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	helper := log.NewHelper(app.Logger)
	helper.Info("starting media worker")

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return app.Pipeline.Run(gctx) })
	g.Go(func() error { return app.Projection.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		helper.Errorf("worker stopped unexpectedly: %v", err)
		os.Exit(1)
	}
	helper.Info("media worker stopped")
}
