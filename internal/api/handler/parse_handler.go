package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"resume-parser/internal/constants"
	"resume-parser/internal/logger"
	"resume-parser/internal/processor"
	"resume-parser/internal/storage"
	"resume-parser/internal/storage/models"
	"resume-parser/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// HeaderRequestID 请求ID头，客户端未提供时由服务端生成
const HeaderRequestID = "X-Request-ID"

// ResumeParser 处理器依赖的解析服务，由 processor.ResumeService 实现
type ResumeParser interface {
	ParseBytes(ctx context.Context, data []byte, sourceFilename string) (*processor.ParseOutcome, error)
	ParseText(ctx context.Context, text, sourceFilename string) (*processor.ParseOutcome, error)
	GetRecord(ctx context.Context, recordID string) (*models.ParseRecord, error)
}

// ParseResponse 解析接口的响应
type ParseResponse struct {
	RequestID string                `json:"request_id"`
	RecordID  string                `json:"record_id,omitempty"`
	Cached    bool                  `json:"cached"`
	Document  *types.ResumeDocument `json:"document"`
}

// ParseTextRequest 纯文本解析请求
type ParseTextRequest struct {
	Text           string `json:"text" validate:"required"`
	SourceFilename string `json:"source_filename"`
}

// ParseHandler 简历解析相关接口
type ParseHandler struct {
	svc            ResumeParser
	maxUploadBytes int64
	validate       *validator.Validate
}

// NewParseHandler 创建处理器，maxUploadMB <= 0 时不限制上传大小
func NewParseHandler(svc ResumeParser, maxUploadMB int) *ParseHandler {
	return &ParseHandler{
		svc:            svc,
		maxUploadBytes: int64(maxUploadMB) << 20,
		validate:       validator.New(),
	}
}

// Health 健康检查
func (h *ParseHandler) Health(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"status": "ok", "parser_version": constants.ParserVersion})
}

// ParseUpload 解析上传的 PDF（multipart 字段 file）
func (h *ParseHandler) ParseUpload(ctx context.Context, c *app.RequestContext) {
	requestID := requestIDFrom(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"request_id": requestID, "error": "文件未找到"})
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		c.JSON(consts.StatusRequestEntityTooLarge, utils.H{"request_id": requestID, "error": "文件过大"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"request_id": requestID, "error": "打开文件失败"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"request_id": requestID, "error": "读取文件失败"})
		return
	}

	outcome, err := h.svc.ParseBytes(ctx, data, fileHeader.Filename)
	if err != nil {
		h.writeParseError(c, requestID, fileHeader.Filename, err)
		return
	}

	c.JSON(consts.StatusOK, ParseResponse{
		RequestID: requestID,
		RecordID:  outcome.RecordID,
		Cached:    outcome.Cached,
		Document:  outcome.Document,
	})
}

// ParseText 解析已提取的文本，跳过 PDF 提取
func (h *ParseHandler) ParseText(ctx context.Context, c *app.RequestContext) {
	requestID := requestIDFrom(c)

	var req ParseTextRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"request_id": requestID, "error": "请求体不是合法的JSON"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"request_id": requestID, "error": "text 不能为空"})
		return
	}
	if strings.TrimSpace(req.SourceFilename) == "" {
		req.SourceFilename = "inline.txt"
	}

	outcome, err := h.svc.ParseText(ctx, req.Text, req.SourceFilename)
	if err != nil {
		h.writeParseError(c, requestID, req.SourceFilename, err)
		return
	}

	c.JSON(consts.StatusOK, ParseResponse{
		RequestID: requestID,
		RecordID:  outcome.RecordID,
		Cached:    outcome.Cached,
		Document:  outcome.Document,
	})
}

// GetRecord 按记录ID返回落库的解析结果
func (h *ParseHandler) GetRecord(ctx context.Context, c *app.RequestContext) {
	recordID := c.Param("id")

	record, err := h.svc.GetRecord(ctx, recordID)
	switch {
	case errors.Is(err, storage.ErrRecordNotFound):
		c.JSON(consts.StatusNotFound, utils.H{"error": "记录不存在", "record_id": recordID})
		return
	case errors.Is(err, processor.ErrRecordStoreUnavailable):
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": err.Error()})
		return
	case err != nil:
		logger.Error().Err(err).Str("record_id", recordID).Msg("查询解析记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询解析记录失败"})
		return
	}

	resp := utils.H{
		"record_id":       record.RecordID,
		"source_filename": record.SourceFilename,
		"status":          record.Status,
		"parser_version":  record.ParserVersion,
		"created_at":      record.CreatedAt,
		"document":        json.RawMessage(record.Document),
	}
	if len(record.Document) == 0 {
		resp["document"] = nil
	}
	if record.ErrorMessage != "" {
		resp["error"] = record.ErrorMessage
	}
	c.JSON(consts.StatusOK, resp)
}

// writeParseError 不可读的 PDF 和解析失败返回 422，其余返回 500
func (h *ParseHandler) writeParseError(c *app.RequestContext, requestID, source string, err error) {
	status := consts.StatusInternalServerError
	if errors.Is(err, processor.ErrInputUnreadable) || errors.Is(err, processor.ErrParseFailed) {
		status = consts.StatusUnprocessableEntity
	}
	logger.Warn().Err(err).Str("request_id", requestID).Str("source", source).Int("status", status).Msg("解析请求失败")
	c.JSON(status, utils.H{"request_id": requestID, "error": err.Error()})
}

// requestIDFrom 读取或生成请求ID，并写回响应头
func requestIDFrom(c *app.RequestContext) string {
	requestID := string(c.GetHeader(HeaderRequestID))
	if requestID == "" {
		requestID = uuid.New().String()
	}
	c.Header(HeaderRequestID, requestID)
	return requestID
}
