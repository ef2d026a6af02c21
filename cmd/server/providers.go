package main

import (
	"github.com/bionicotaku/lingo-services-media/internal/controllers"
	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"
	pubsubinfra "github.com/bionicotaku/lingo-services-media/internal/infrastructure/pubsub"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/server"
	"github.com/bionicotaku/lingo-services-media/internal/services"
	"github.com/bionicotaku/lingo-services-media/internal/storage"
	taskoutbox "github.com/bionicotaku/lingo-services-media/internal/tasks/outbox"

	"github.com/go-kratos/kratos/v2/log"
)

func provideUploadService(
	uploads *repositories.UploadRepository,
	channels *repositories.ChannelRepository,
	videos *repositories.VideoRepository,
	outbox *repositories.OutboxRepository,
	store storage.ContentStore,
	txm repositories.TxManager,
	cfg loader.Upload,
	logger log.Logger,
) (*services.UploadService, error) {
	return services.NewUploadService(uploads, channels, videos, outbox, store, txm, cfg.OwnershipCacheTTL(), logger)
}

func provideBaseHandler(cfg loader.Upload) *controllers.BaseHandler {
	return controllers.NewBaseHandler(controllers.HandlerTimeouts{
		Command: cfg.CommandTimeout(),
		Stream:  cfg.ChunkTimeout(),
	})
}

func provideOutboxDispatcher(
	repo *repositories.OutboxRepository,
	publisher *pubsubinfra.TopicPublisher,
	cfg loader.Outbox,
	logger log.Logger,
) (*taskoutbox.Dispatcher, error) {
	return taskoutbox.NewDispatcher(repo, publisher, taskoutbox.Config{
		PollInterval: cfg.PollInterval(),
		BatchSize:    cfg.BatchSize,
	}, logger)
}

func provideOutboxServer(dispatcher *taskoutbox.Dispatcher, logger log.Logger) *server.TaskServer {
	return server.NewTaskServer("outbox-dispatcher", dispatcher, logger)
}
