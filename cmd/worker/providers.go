package main

import (
	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"
	pubsubinfra "github.com/bionicotaku/lingo-services-media/internal/infrastructure/pubsub"
	"github.com/bionicotaku/lingo-services-media/internal/media"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/storage"
	"github.com/bionicotaku/lingo-services-media/internal/tasks/pipeline"
	"github.com/bionicotaku/lingo-services-media/internal/tasks/projection"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/go-kratos/kratos/v2/log"
)

func provideProber(runner *media.Runner, cfg loader.Transcode, logger log.Logger) *media.Prober {
	return media.NewProber(runner, cfg.FFprobePath, logger)
}

func provideEncoder(runner *media.Runner, cfg loader.Transcode, logger log.Logger) *media.Encoder {
	return media.NewEncoder(runner, cfg.FFmpegPath, cfg.SegmentSeconds, logger)
}

func providePipelineTask(
	client *gpubsub.Client,
	cfg loader.PubSub,
	publisher *pubsubinfra.TopicPublisher,
	store storage.ContentStore,
	prober *media.Prober,
	encoder *media.Encoder,
	logger log.Logger,
) (*pipeline.Task, error) {
	subscriber, err := pubsubinfra.NewSubscriber(client, cfg.PipelineSubscription, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.NewTask(pipeline.Params{
		Subscriber: subscriber,
		Publisher:  publisher,
		Store:      store,
		Prober:     prober,
		Encoder:    encoder,
		Policy:     media.DefaultPlannerPolicy(),
		Logger:     logger,
	})
}

func provideProjectionTask(
	client *gpubsub.Client,
	cfg loader.PubSub,
	videos *repositories.VideoRepository,
	txm repositories.TxManager,
	logger log.Logger,
) (*projection.Task, error) {
	subscriber, err := pubsubinfra.NewSubscriber(client, cfg.ProjectionSubscription, logger)
	if err != nil {
		return nil, err
	}
	return projection.NewTask(projection.Params{
		Subscriber: subscriber,
		Videos:     videos,
		TxManager:  txm,
		Logger:     logger,
	})
}

func newWorkerApp(pipelineTask *pipeline.Task, projectionTask *projection.Task, logger log.Logger) *workerApp {
	return &workerApp{
		Pipeline:   pipelineTask,
		Projection: projectionTask,
		Logger:     logger,
	}
}
