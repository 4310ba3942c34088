package processor

import (
	"context"

	"resume-parser/internal/storage"
	"resume-parser/internal/storage/models"
	"resume-parser/internal/types"
)

//
// 解析相关接口
//

// DocumentBuilder 把纯文本构建为简历文档
// 由 parser.ResumeDocumentBuilder 实现，失败时返回带阶段信息的错误
type DocumentBuilder interface {
	Build(text, sourceFilename string) (*types.ResumeDocument, error)
}

//
// 存储相关接口，均为可选依赖
//

// ObjectStore 原始文件与解析结果归档
type ObjectStore interface {
	UploadOriginal(ctx context.Context, recordID, fileExt string, data []byte) (string, error)
	UploadParsedJSON(ctx context.Context, recordID string, data []byte) (string, error)
	DownloadObject(ctx context.Context, bucketName, objectKey string) ([]byte, error)
}

// RecordStore 解析记录持久化
type RecordStore interface {
	CreateParseRecord(ctx context.Context, record *models.ParseRecord) error
	GetParseRecord(ctx context.Context, recordID string) (*models.ParseRecord, error)
}

// OutboxRecordStore 支持在同一事务中写入解析记录和待发布事件
// 由 storage.MySQL 实现
type OutboxRecordStore interface {
	RecordStore
	CreateParseRecordWithOutbox(ctx context.Context, record *models.ParseRecord, msg *models.OutboxMessage) error
}

// ParseCache 按文本MD5缓存解析结果
type ParseCache interface {
	GetCachedParse(ctx context.Context, textMD5, parserVersion string) (*storage.CachedParse, error)
	SetCachedParse(ctx context.Context, textMD5, parserVersion string, cached *storage.CachedParse) error
}

// MessageBroker 队列 worker 用到的消息队列操作
type MessageBroker interface {
	EnsureExchange(exchangeName, exchangeType string, durable bool) error
	EnsureQueue(queueName string, durable bool) error
	BindQueue(queueName, exchangeName, routingKey string) error
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler func(context.Context, []byte) storage.Disposition) (<-chan struct{}, error)
}

// ArchiveItem 一份待归档的解析结果
type ArchiveItem struct {
	SourceFilename string
	Original       []byte // 原始 PDF，可为空
	Text           string
	Document       *types.ResumeDocument
	DocumentJSON   []byte
}

// ResultSink 批处理成功后的归档目标，错误只记录日志
type ResultSink interface {
	Archive(ctx context.Context, item ArchiveItem) (string, error)
}
