// Package gcs 负责 Cloud Storage 客户端的初始化与生命周期管理。
package gcs

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-media/internal/storage"

	"github.com/go-kratos/kratos/v2/log"
)

// NewClient 创建 Cloud Storage 客户端，凭证走默认 ADC 链。
func NewClient(ctx context.Context, logger log.Logger) (*gstorage.Client, func(), error) {
	helper := log.NewHelper(logger)

	client, err := gstorage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}

	cleanup := func() {
		helper.Info("closing storage client")
		if err := client.Close(); err != nil {
			helper.Warnf("close storage client: %v", err)
		}
	}
	return client, cleanup, nil
}

// NewContentStore 基于客户端与桶名构造内容存储。
func NewContentStore(client *gstorage.Client, cfg loader.Storage, logger log.Logger) (storage.ContentStore, error) {
	store, err := storage.NewGCSStore(client, cfg.Bucket, logger)
	if err != nil {
		return nil, fmt.Errorf("build content store: %w", err)
	}
	return store, nil
}
