package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-parser/internal/config"
	"resume-parser/internal/logger"
	"resume-parser/internal/storage"
	"resume-parser/internal/tracing"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// 解析完成事件的状态值
const (
	EventStatusSucceeded = "succeeded"
	EventStatusFailed    = "failed"
)

// QueueWorker 从 RabbitMQ 消费解析请求，处理后发布解析完成事件
type QueueWorker struct {
	broker        MessageBroker
	objects       ObjectStore
	service       *ResumeService
	cfg           config.RabbitMQConfig
	defaultBucket string
	retryDelay    time.Duration // 重新入队前的等待
	validate      *validator.Validate
}

// NewQueueWorker 创建队列 worker
// defaultBucket 用于请求中未指定 bucket 的消息
func NewQueueWorker(broker MessageBroker, objects ObjectStore, service *ResumeService, cfg config.RabbitMQConfig, defaultBucket string) *QueueWorker {
	return &QueueWorker{
		broker:        broker,
		objects:       objects,
		service:       service,
		cfg:           cfg,
		defaultBucket: defaultBucket,
		retryDelay:    config.GetDuration(cfg.RetryInterval, 0),
		validate:      validator.New(),
	}
}

// Setup 声明交换机、队列和绑定
func (w *QueueWorker) Setup() error {
	if err := w.broker.EnsureExchange(w.cfg.ResumeEventsExchange, "topic", true); err != nil {
		return fmt.Errorf("声明交换机失败: %w", err)
	}
	if err := w.broker.EnsureQueue(w.cfg.ParseRequestQueue, true); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}
	if err := w.broker.BindQueue(w.cfg.ParseRequestQueue, w.cfg.ResumeEventsExchange, w.cfg.ParseRequestedRoutingKey); err != nil {
		return fmt.Errorf("绑定队列失败: %w", err)
	}
	return nil
}

// Run 启动消费并阻塞，直到 ctx 取消或消费者退出
func (w *QueueWorker) Run(ctx context.Context) error {
	if w.objects == nil {
		return errors.New("队列 worker 需要对象存储")
	}
	if err := w.Setup(); err != nil {
		return err
	}

	done, err := w.broker.StartConsumer(ctx, w.cfg.ParseRequestQueue, w.cfg.PrefetchCount, w.HandleMessage)
	if err != nil {
		return fmt.Errorf("启动消费者失败: %w", err)
	}

	logger.Info().
		Str("queue", w.cfg.ParseRequestQueue).
		Int("prefetch", w.cfg.PrefetchCount).
		Msg("简历解析消费者就绪")

	select {
	case <-ctx.Done():
		<-done
		return nil
	case <-done:
		if ctx.Err() != nil {
			return nil
		}
		return errors.New("消费者意外退出")
	}
}

// HandleMessage 处理一条解析请求
// 格式错误的消息确认后丢弃；下载失败和事件发布失败重新入队；解析失败发布 failed 事件后确认
func (w *QueueWorker) HandleMessage(ctx context.Context, body []byte) storage.Disposition {
	var req storage.ResumeParseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Error().Err(err).Msg("解析请求消息格式错误，丢弃")
		return storage.Ack
	}
	if err := w.validate.Struct(req); err != nil {
		logger.Error().Err(err).Str("request_id", req.RequestID).Msg("解析请求缺少必填字段，丢弃")
		return storage.Ack
	}

	ctx, span := tracer.Start(ctx, "QueueWorker.HandleMessage", trace.WithAttributes(
		attribute.String("resume.request_id", req.RequestID),
		attribute.String("resume.object_key", req.ObjectKey),
	))
	defer span.End()

	bucket := req.Bucket
	if bucket == "" {
		bucket = w.defaultBucket
	}

	data, err := w.objects.DownloadObject(ctx, bucket, req.ObjectKey)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		logger.Warn().Err(err).
			Str("request_id", req.RequestID).
			Str("bucket", bucket).
			Str("object_key", req.ObjectKey).
			Msg("下载简历失败，重新入队")
		return w.requeue(ctx)
	}

	event := storage.ResumeParsedEvent{RequestID: req.RequestID}
	outcome, err := w.service.ParseBytes(ctx, data, req.SourceFilename)
	if err != nil {
		event.Status = EventStatusFailed
		event.Error = err.Error()
		logger.Error().Err(err).Str("request_id", req.RequestID).Str("source", req.SourceFilename).Msg("简历解析失败")
	} else {
		event.Status = EventStatusSucceeded
		event.RecordID = outcome.RecordID
		event.Document = outcome.Document
	}

	if err := w.broker.PublishJSON(ctx, w.cfg.ResumeEventsExchange, w.cfg.ParsedRoutingKey, event, true); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		logger.Error().Err(err).Str("request_id", req.RequestID).Msg("发布解析完成事件失败，重新入队")
		return w.requeue(ctx)
	}

	logger.Info().
		Str("request_id", req.RequestID).
		Str("record_id", event.RecordID).
		Str("status", event.Status).
		Msg("解析请求处理完成")
	return storage.Ack
}

// requeue 等待 retryDelay 后重新入队
func (w *QueueWorker) requeue(ctx context.Context) storage.Disposition {
	if w.retryDelay > 0 {
		select {
		case <-time.After(w.retryDelay):
		case <-ctx.Done():
		}
	}
	return storage.Requeue
}
