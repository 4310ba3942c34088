package processor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"resume-parser/internal/constants"
	"resume-parser/internal/logger"
	"resume-parser/internal/parser"
	"resume-parser/internal/storage"
	"resume-parser/internal/storage/models"
	"resume-parser/internal/tracing"
	"resume-parser/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
)

// ParsedEventType 发件箱中解析完成事件的类型
const ParsedEventType = "resume.parsed"

// ErrRecordStoreUnavailable 未配置 MySQL 时无法按ID查询
var ErrRecordStoreUnavailable = errors.New("解析记录存储未配置")

var tracer = otel.Tracer("resume-parser/processor")

// ParseOutcome 单文档解析结果
type ParseOutcome struct {
	RecordID string                `json:"record_id,omitempty"`
	Cached   bool                  `json:"cached"`
	TextMD5  string                `json:"-"`
	Document *types.ResumeDocument `json:"document"`
}

// ResumeService HTTP 接口和队列 worker 共用的单文档处理流程
// 提取 -> 缓存查询 -> 解析 -> 归档 -> 落库 -> 写缓存，存储步骤全部可选
type ResumeService struct {
	extractor parser.TextExtractor
	builder   DocumentBuilder
	objects   ObjectStore
	records   RecordStore
	cache     ParseCache
	version   string

	outboxExchange   string
	outboxRoutingKey string
}

// NewResumeService 创建服务
func NewResumeService(extractor parser.TextExtractor, builder DocumentBuilder, opts ...ServiceOption) *ResumeService {
	s := &ResumeService{
		extractor: extractor,
		builder:   builder,
		version:   constants.ParserVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseBytes 解析上传的 PDF
func (s *ResumeService) ParseBytes(ctx context.Context, data []byte, sourceFilename string) (*ParseOutcome, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.ParseBytes", trace.WithAttributes(
		attribute.String("resume.source", sourceFilename),
		attribute.Int("resume.size_bytes", len(data)),
	))
	defer span.End()

	text, _, err := s.extractor.ExtractTextFromBytes(ctx, data, sourceFilename)
	if err != nil {
		err = NewUnreadableError(sourceFilename, err.Error())
		tracing.RecordError(span, err, tracing.ErrorTypeExtract)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		err = NewUnreadableError(sourceFilename, "提取的文本为空")
		tracing.RecordError(span, err, tracing.ErrorTypeExtract)
		return nil, err
	}

	outcome, err := s.parse(ctx, text, sourceFilename, data)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return outcome, nil
}

// ParseText 直接解析已提取的文本
func (s *ResumeService) ParseText(ctx context.Context, text, sourceFilename string) (*ParseOutcome, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.ParseText", trace.WithAttributes(
		attribute.String("resume.source", sourceFilename),
		attribute.String("resume.text_preview", tracing.SafeResumeContent(text)),
	))
	defer span.End()

	outcome, err := s.parse(ctx, text, sourceFilename, nil)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return outcome, nil
}

func (s *ResumeService) parse(ctx context.Context, text, sourceFilename string, original []byte) (*ParseOutcome, error) {
	clean := parser.CleanText(text)
	textMD5 := TextMD5(clean)

	if s.cache != nil {
		cached, err := s.cache.GetCachedParse(ctx, textMD5, s.version)
		switch {
		case err == nil && cached.Document != nil:
			logger.Debug().Str("source", sourceFilename).Str("text_md5", textMD5).Msg("命中解析缓存")
			return &ParseOutcome{RecordID: cached.RecordID, Cached: true, TextMD5: textMD5, Document: cached.Document}, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			logger.Warn().Err(err).Str("source", sourceFilename).Msg("读取解析缓存失败，继续解析")
		}
	}

	doc, err := s.builder.Build(clean, sourceFilename)
	if err != nil || doc == nil {
		if err == nil {
			err = errors.New("解析结果为空")
		}
		s.recordFailure(ctx, sourceFilename, textMD5, err)
		return nil, fmt.Errorf("%w: %w", NewParseFailedError(sourceFilename, ""), err)
	}

	docJSON, err := MarshalDocument(doc)
	if err != nil {
		return nil, NewPersistenceError(sourceFilename, err.Error())
	}

	recordID, err := s.Archive(ctx, ArchiveItem{
		SourceFilename: sourceFilename,
		Original:       original,
		Text:           clean,
		Document:       doc,
		DocumentJSON:   docJSON,
	})
	if err != nil {
		logger.Warn().Err(err).Str("source", sourceFilename).Msg("归档失败，仍返回解析结果")
	}

	if s.cache != nil {
		if err := s.cache.SetCachedParse(ctx, textMD5, s.version, &storage.CachedParse{RecordID: recordID, Document: doc}); err != nil {
			logger.Warn().Err(err).Str("source", sourceFilename).Msg("写入解析缓存失败")
		}
	}

	return &ParseOutcome{RecordID: recordID, TextMD5: textMD5, Document: doc}, nil
}

// Archive 上传原始文件和解析结果，并写入解析记录
// 返回的记录ID在出错时也可能非空（部分步骤已完成）
func (s *ResumeService) Archive(ctx context.Context, item ArchiveItem) (string, error) {
	if s.objects == nil && s.records == nil {
		return "", nil
	}

	recordID, err := storage.NewRecordID()
	if err != nil {
		return "", NewArchiveError(item.SourceFilename, err.Error())
	}

	record := &models.ParseRecord{
		RecordID:       recordID,
		SourceFilename: item.SourceFilename,
		TextMD5:        TextMD5(parser.CleanText(item.Text)),
		Status:         models.StatusSucceeded,
		ParserVersion:  s.version,
		Document:       datatypes.JSON(item.DocumentJSON),
	}

	var problems []string
	if s.objects != nil {
		if len(item.Original) > 0 {
			key, err := s.objects.UploadOriginal(ctx, recordID, filepath.Ext(item.SourceFilename), item.Original)
			if err != nil {
				problems = append(problems, err.Error())
			}
			record.OriginalObjectKey = key
		}
		key, err := s.objects.UploadParsedJSON(ctx, recordID, item.DocumentJSON)
		if err != nil {
			problems = append(problems, err.Error())
		}
		record.ParsedObjectKey = key
	}

	if s.records != nil {
		if err := s.createRecord(ctx, record, item.Document); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return recordID, NewArchiveError(item.SourceFilename, strings.Join(problems, "; "))
	}
	return recordID, nil
}

// createRecord 写入成功记录，配置了发件箱时同事务写入解析完成事件
func (s *ResumeService) createRecord(ctx context.Context, record *models.ParseRecord, doc *types.ResumeDocument) error {
	outboxStore, ok := s.records.(OutboxRecordStore)
	if !ok || s.outboxExchange == "" {
		return s.records.CreateParseRecord(ctx, record)
	}

	payload, err := json.Marshal(storage.ResumeParsedEvent{
		RequestID: record.RecordID,
		RecordID:  record.RecordID,
		Status:    EventStatusSucceeded,
		Document:  doc,
	})
	if err != nil {
		return fmt.Errorf("序列化解析完成事件失败: %w", err)
	}
	return outboxStore.CreateParseRecordWithOutbox(ctx, record, &models.OutboxMessage{
		EventType:        ParsedEventType,
		Payload:          string(payload),
		TargetExchange:   s.outboxExchange,
		TargetRoutingKey: s.outboxRoutingKey,
	})
}

// recordFailure 失败的解析也落一条记录，便于排查
func (s *ResumeService) recordFailure(ctx context.Context, sourceFilename, textMD5 string, cause error) {
	if s.records == nil {
		return
	}
	record := &models.ParseRecord{
		SourceFilename: sourceFilename,
		TextMD5:        textMD5,
		Status:         models.StatusFailed,
		ParserVersion:  s.version,
		ErrorMessage:   cause.Error(),
	}
	if err := s.records.CreateParseRecord(ctx, record); err != nil {
		logger.Warn().Err(err).Str("source", sourceFilename).Msg("写入失败记录失败")
	}
}

// GetRecord 按ID查询解析记录
func (s *ResumeService) GetRecord(ctx context.Context, recordID string) (*models.ParseRecord, error) {
	if s.records == nil {
		return nil, ErrRecordStoreUnavailable
	}
	return s.records.GetParseRecord(ctx, recordID)
}

// TextMD5 文本内容的MD5，作为缓存键
func TextMD5(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
