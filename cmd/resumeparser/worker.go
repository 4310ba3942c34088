package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"resume-parser/internal/bootstrap"
	"resume-parser/internal/logger"
	"resume-parser/internal/processor"
)

// runWorker 消费解析请求直到收到退出信号
func runWorker(args []string) int {
	fs, configPath := newFlagSet("worker")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Setup(ctx, *configPath, "resume-parser-worker")
	if err != nil {
		logger.Error().Err(err).Msg("启动失败")
		return 1
	}
	defer rt.Close()

	if rt.Storage.RabbitMQ == nil || rt.Storage.MinIO == nil {
		logger.Error().Msg("worker 需要同时配置 RabbitMQ 和 MinIO")
		return 1
	}

	worker := processor.NewQueueWorker(
		rt.Storage.RabbitMQ,
		rt.Storage.MinIO,
		rt.Service,
		rt.Config.RabbitMQ,
		rt.Storage.MinIO.OriginalsBucket(),
	)
	if err := worker.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("队列 worker 异常退出")
		return 1
	}

	logger.Info().Msg("队列 worker 已退出")
	return 0
}
