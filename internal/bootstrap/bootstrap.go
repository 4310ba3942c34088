// Package bootstrap 组装各个入口共用的运行时组件
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"resume-parser/internal/config"
	"resume-parser/internal/constants"
	"resume-parser/internal/logger"
	"resume-parser/internal/ner"
	"resume-parser/internal/outbox"
	"resume-parser/internal/parser"
	"resume-parser/internal/processor"
	"resume-parser/internal/storage"
	"resume-parser/internal/tracing"
)

// Runtime 一个进程内共享的组件集合
type Runtime struct {
	Config    *config.Config
	Storage   *storage.Storage
	Extractor parser.TextExtractor
	Builder   *parser.ResumeDocumentBuilder
	Service   *processor.ResumeService

	shutdownTracing tracing.ShutdownFunc
}

// Setup 加载配置并初始化日志、追踪、存储、NER 和解析服务
// 任何一步失败都是启动错误，调用方应直接退出
func Setup(ctx context.Context, configPath, appName string) (*Runtime, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}

	if err := InitLogger(cfg, appName); err != nil {
		return nil, err
	}

	shutdown, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	rt := &Runtime{Config: cfg, shutdownTracing: shutdown}

	rt.Storage, err = storage.NewStorage(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("初始化存储管理器失败: %w", err)
	}

	var nerOpts []ner.SharedOption
	if rt.Storage.MinIO != nil {
		nerOpts = append(nerOpts, ner.WithModelFetcher(rt.Storage.MinIO))
	}
	recognizer, err := ner.Shared(ctx, &cfg.NER, nerOpts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("加载NER模型失败: %w", err)
	}

	rt.Extractor, err = NewExtractor(ctx, cfg.Parser)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("初始化PDF解析器失败: %w", err)
	}

	rt.Builder = parser.NewResumeDocumentBuilder(recognizer)
	rt.Service = processor.NewResumeService(rt.Extractor, rt.Builder, processor.StorageOptions(rt.Storage)...)

	logger.Info().
		Str("pdf_backend", cfg.Parser.PDFBackend).
		Str("ner_engine", cfg.NER.Engine).
		Bool("minio", rt.Storage.MinIO != nil).
		Bool("mysql", rt.Storage.MySQL != nil).
		Bool("redis", rt.Storage.Redis != nil).
		Bool("rabbitmq", rt.Storage.RabbitMQ != nil).
		Msg("运行时组件初始化完成")
	return rt, nil
}

// OutboxEnabled 发件箱需要开启配置并同时连接 MySQL 和 RabbitMQ
func (r *Runtime) OutboxEnabled() bool {
	return r.Config.RabbitMQ.OutboxEnabled && r.Storage != nil && r.Storage.MySQL != nil && r.Storage.RabbitMQ != nil
}

// EnableParsedEventOutbox 重建解析服务，成功的解析记录同事务写入解析完成事件
// 队列 worker 自己发布事件，不应调用
func (r *Runtime) EnableParsedEventOutbox() bool {
	if !r.OutboxEnabled() {
		return false
	}
	opts := append(processor.StorageOptions(r.Storage),
		processor.WithParsedEventOutbox(r.Config.RabbitMQ.ResumeEventsExchange, r.Config.RabbitMQ.ParsedRoutingKey))
	r.Service = processor.NewResumeService(r.Extractor, r.Builder, opts...)
	return true
}

// StartOutboxRelay 声明事件交换机并启动中继，未启用发件箱时返回 nil
func (r *Runtime) StartOutboxRelay(ctx context.Context) (*outbox.MessageRelay, error) {
	if !r.OutboxEnabled() {
		return nil, nil
	}
	if err := r.Storage.RabbitMQ.EnsureExchange(r.Config.RabbitMQ.ResumeEventsExchange, "topic", true); err != nil {
		return nil, fmt.Errorf("声明事件交换机失败: %w", err)
	}
	relay := outbox.NewMessageRelay(r.Storage.MySQL.DB(), r.Storage.RabbitMQ,
		outbox.WithPollingInterval(config.GetDuration(r.Config.RabbitMQ.OutboxPollInterval, 0)),
		outbox.WithBatchSize(r.Config.RabbitMQ.OutboxBatchSize),
	)
	relay.Start(ctx)
	return relay, nil
}

// InitLogger 按配置初始化全局日志，并附加应用名和解析器版本
func InitLogger(cfg *config.Config, appName string) error {
	logConfig := logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	}
	if err := logger.Init(logConfig); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	logger.Logger = logger.Logger.With().
		Str("app", appName).
		Str("version", constants.ParserVersion).
		Logger()
	return nil
}

// NewExtractor 按配置创建 PDF 文本提取器
func NewExtractor(ctx context.Context, cfg config.ParserConfig) (parser.TextExtractor, error) {
	if cfg.ExtractTimeoutSeconds > 0 && (cfg.PDFBackend == "" || cfg.PDFBackend == parser.BackendEino) {
		return parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoTimeout(time.Duration(cfg.ExtractTimeoutSeconds)*time.Second))
	}
	return parser.NewTextExtractor(ctx, cfg.PDFBackend)
}

// Close 关闭存储连接并刷新追踪数据
func (r *Runtime) Close() {
	if r.Storage != nil {
		r.Storage.Close()
	}
	if r.shutdownTracing != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}
}
