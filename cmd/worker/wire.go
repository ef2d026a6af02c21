//go:build wireinject
// +build wireinject

// Package main 为 worker 入口提供 Wire 依赖注入定义。
package main

import (
	"context"

	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/database"
	gcsinfra "github.com/bionicotaku/lingo-services-media/internal/infrastructure/gcs"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/logger"
	pubsubinfra "github.com/bionicotaku/lingo-services-media/internal/infrastructure/pubsub"
	"github.com/bionicotaku/lingo-services-media/internal/media"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireWorker(ctx context.Context, params loader.Params) (*workerApp, func(), error) {
	panic(wire.Build(
		loader.ProviderSet,
		logger.NewLogger,
		database.NewPgxPool,
		gcsinfra.NewClient,
		gcsinfra.NewContentStore,
		pubsubinfra.NewClient,
		pubsubinfra.NewPublisher,
		repositories.ProviderSet,
		media.NewRunner,
		provideProber,
		provideEncoder,
		providePipelineTask,
		provideProjectionTask,
		newWorkerApp,
	))
}
