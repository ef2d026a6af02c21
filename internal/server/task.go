package server

import (
	"context"
	"errors"

	"github.com/go-kratos/kratos/v2/log"
)

// Task 是可随应用生命周期运行的后台循环。
type Task interface {
	Run(ctx context.Context) error
}

// TaskServer 把后台任务适配为 Kratos transport.Server，
// 使消费循环与 HTTP 服务共享同一套启动与优雅退出流程。
type TaskServer struct {
	name   string
	task   Task
	cancel context.CancelFunc
	log    *log.Helper
}

// NewTaskServer 构造任务服务包装。
func NewTaskServer(name string, task Task, logger log.Logger) *TaskServer {
	return &TaskServer{
		name: name,
		task: task,
		log:  log.NewHelper(logger),
	}
}

// Start 阻塞运行任务，直到 Stop 被调用。
func (s *TaskServer) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.log.Infof("starting task: %s", s.name)

	err := s.task.Run(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Errorf("task %s stopped unexpectedly: %v", s.name, err)
		return err
	}
	s.log.Infof("task stopped: %s", s.name)
	return nil
}

// Stop 取消任务上下文。
func (s *TaskServer) Stop(_ context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
