//go:build wireinject
// +build wireinject

// Package main 为服务入口提供 Wire 依赖注入定义。
package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-media/internal/controllers"
	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/database"
	gcsinfra "github.com/bionicotaku/lingo-services-media/internal/infrastructure/gcs"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/logger"
	pubsubinfra "github.com/bionicotaku/lingo-services-media/internal/infrastructure/pubsub"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/server"

	"github.com/go-kratos/kratos/v2"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireApp(ctx context.Context, params loader.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		loader.ProviderSet,
		logger.NewLogger,
		database.NewPgxPool,
		gcsinfra.NewClient,
		gcsinfra.NewContentStore,
		pubsubinfra.NewClient,
		pubsubinfra.NewPublisher,
		repositories.ProviderSet,
		provideUploadService,
		provideBaseHandler,
		controllers.NewUploadHandler,
		provideOutboxDispatcher,
		provideOutboxServer,
		server.NewTelemetry,
		server.NewHTTPServer,
		newApp,
	))
}
