package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"testing"

	"resume-parser/internal/api/handler"
	"resume-parser/internal/config"
	"resume-parser/internal/processor"
	"resume-parser/internal/storage"
	"resume-parser/internal/storage/models"
	"resume-parser/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// fakeParser 可编排结果的解析服务
type fakeParser struct {
	err          error
	records      map[string]*models.ParseRecord
	lastFilename string
	lastPayload  string
}

func sampleDocument(source string) *types.ResumeDocument {
	return &types.ResumeDocument{
		ContactInfo: types.ContactInfo{Email: types.StringPtr("jane@example.com")},
		Education:   []types.EducationEntry{},
		Experience:  []types.ExperienceEntry{},
		Metadata: types.Metadata{
			SourceFilename:  source,
			ParsedTimestamp: "2024-03-01T12:00:00Z",
			ParserVersion:   "1.0.0",
		},
	}
}

func (f *fakeParser) ParseBytes(ctx context.Context, data []byte, sourceFilename string) (*processor.ParseOutcome, error) {
	f.lastFilename = sourceFilename
	f.lastPayload = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &processor.ParseOutcome{RecordID: "rec-1", Document: sampleDocument(sourceFilename)}, nil
}

func (f *fakeParser) ParseText(ctx context.Context, text, sourceFilename string) (*processor.ParseOutcome, error) {
	f.lastFilename = sourceFilename
	f.lastPayload = text
	if f.err != nil {
		return nil, f.err
	}
	return &processor.ParseOutcome{Cached: true, Document: sampleDocument(sourceFilename)}, nil
}

func (f *fakeParser) GetRecord(ctx context.Context, recordID string) (*models.ParseRecord, error) {
	if f.records == nil {
		return nil, processor.ErrRecordStoreUnavailable
	}
	r, ok := f.records[recordID]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	return r, nil
}

func newTestServer(svc handler.ResumeParser, apiKeys ...string) *server.Hertz {
	return newTestServerWithConfig(svc, config.ServerConfig{Address: "127.0.0.1:0", MaxUploadMB: 1, APIKeys: apiKeys})
}

func newTestServerWithConfig(svc handler.ResumeParser, cfg config.ServerConfig) *server.Hertz {
	h := NewServer(cfg, false)
	RegisterRoutes(h, handler.NewParseHandler(svc, cfg.MaxUploadMB), cfg)
	return h
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), "响应不是JSON: %s", string(body))
	return out
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeParser{})
	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/health", nil)

	resp := w.Result()
	assert.Equal(t, consts.StatusOK, resp.StatusCode())
	body := decode(t, resp.Body())
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.0.0", body["parser_version"])
}

func TestParseText(t *testing.T) {
	jsonHeader := ut.Header{Key: "Content-Type", Value: "application/json"}

	t.Run("成功", func(t *testing.T) {
		svc := &fakeParser{}
		h := newTestServer(svc)
		payload := `{"text":"Jane Doe\njane@example.com","source_filename":"jane.txt"}`

		w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/parse-text",
			&ut.Body{Body: bytes.NewBufferString(payload), Len: len(payload)}, jsonHeader,
			ut.Header{Key: handler.HeaderRequestID, Value: "req-123"})

		resp := w.Result()
		require.Equal(t, consts.StatusOK, resp.StatusCode())
		body := decode(t, resp.Body())
		assert.Equal(t, "req-123", body["request_id"])
		assert.Equal(t, true, body["cached"])
		doc := body["document"].(map[string]interface{})
		assert.Equal(t, "jane@example.com", doc["contact_info"].(map[string]interface{})["email"])
		assert.Equal(t, "jane.txt", svc.lastFilename)
		assert.Equal(t, "req-123", string(resp.Header.Peek(handler.HeaderRequestID)))
	})

	t.Run("未指定文件名时使用默认值并生成请求ID", func(t *testing.T) {
		svc := &fakeParser{}
		h := newTestServer(svc)
		payload := `{"text":"hello"}`

		w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/parse-text",
			&ut.Body{Body: bytes.NewBufferString(payload), Len: len(payload)}, jsonHeader)

		resp := w.Result()
		require.Equal(t, consts.StatusOK, resp.StatusCode())
		assert.Equal(t, "inline.txt", svc.lastFilename)
		assert.Len(t, decode(t, resp.Body())["request_id"], 36)
	})

	tests := []struct {
		name    string
		payload string
		err     error
		status  int
	}{
		{"非法JSON", `{"text":`, nil, consts.StatusBadRequest},
		{"text为空", `{"text":""}`, nil, consts.StatusBadRequest},
		{"解析失败", `{"text":"x"}`, processor.NewParseFailedError("x", "阶段 contact"), consts.StatusUnprocessableEntity},
		{"其他错误", `{"text":"x"}`, assert.AnError, consts.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeParser{err: tt.err})
			w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/parse-text",
				&ut.Body{Body: bytes.NewBufferString(tt.payload), Len: len(tt.payload)}, jsonHeader)
			assert.Equal(t, tt.status, w.Result().StatusCode())
		})
	}
}

func TestParseUpload(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		svc := &fakeParser{}
		h := newTestServer(svc)
		buf, contentType := multipartBody(t, "file", "jane.pdf", []byte("%PDF-1.4 fake"))

		w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/parse",
			&ut.Body{Body: buf, Len: buf.Len()}, ut.Header{Key: "Content-Type", Value: contentType})

		resp := w.Result()
		require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))
		body := decode(t, resp.Body())
		assert.Equal(t, "rec-1", body["record_id"])
		assert.Equal(t, false, body["cached"])
		assert.Equal(t, "jane.pdf", svc.lastFilename)
		assert.Equal(t, "%PDF-1.4 fake", svc.lastPayload)
	})

	t.Run("缺少文件返回400", func(t *testing.T) {
		h := newTestServer(&fakeParser{})
		buf, contentType := multipartBody(t, "", "", nil)

		w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/parse",
			&ut.Body{Body: buf, Len: buf.Len()}, ut.Header{Key: "Content-Type", Value: contentType})
		assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())
	})

	t.Run("不可读的PDF返回422", func(t *testing.T) {
		h := newTestServer(&fakeParser{err: processor.NewUnreadableError("x.pdf", "提取的文本为空")})
		buf, contentType := multipartBody(t, "file", "x.pdf", []byte("junk"))

		w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/parse",
			&ut.Body{Body: buf, Len: buf.Len()}, ut.Header{Key: "Content-Type", Value: contentType})

		resp := w.Result()
		assert.Equal(t, consts.StatusUnprocessableEntity, resp.StatusCode())
		assert.Contains(t, decode(t, resp.Body())["error"], "无法从PDF提取文本")
	})
}

func TestGetRecord(t *testing.T) {
	svc := &fakeParser{records: map[string]*models.ParseRecord{
		"rec-1": {
			RecordID:       "rec-1",
			SourceFilename: "jane.pdf",
			Status:         models.StatusSucceeded,
			ParserVersion:  "1.0.0",
			Document:       datatypes.JSON(`{"contact_info":{"email":"jane@example.com"}}`),
		},
		"rec-2": {
			RecordID:     "rec-2",
			Status:       models.StatusFailed,
			ErrorMessage: "boom",
		},
	}}
	h := newTestServer(svc)

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/rec-1", nil)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	body := decode(t, resp.Body())
	assert.Equal(t, "jane.pdf", body["source_filename"])
	doc := body["document"].(map[string]interface{})
	assert.Equal(t, "jane@example.com", doc["contact_info"].(map[string]interface{})["email"])

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/rec-2", nil)
	body = decode(t, w.Result().Body())
	assert.Nil(t, body["document"])
	assert.Equal(t, "boom", body["error"])

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/missing", nil)
	assert.Equal(t, consts.StatusNotFound, w.Result().StatusCode())

	noStore := newTestServer(&fakeParser{})
	w = ut.PerformRequest(noStore.Engine, consts.MethodGet, "/api/v1/resumes/rec-1", nil)
	assert.Equal(t, consts.StatusServiceUnavailable, w.Result().StatusCode())
}

func TestAPIKeyAuth(t *testing.T) {
	h := newTestServer(&fakeParser{records: map[string]*models.ParseRecord{}}, "secret")

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/health", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode(), "健康检查不需要密钥")

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/any", nil)
	assert.Equal(t, consts.StatusUnauthorized, w.Result().StatusCode())

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/any", nil,
		ut.Header{Key: HeaderAPIKey, Value: "wrong"})
	assert.Equal(t, consts.StatusUnauthorized, w.Result().StatusCode())

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/any", nil,
		ut.Header{Key: HeaderAPIKey, Value: "secret"})
	assert.Equal(t, consts.StatusNotFound, w.Result().StatusCode(), "密钥正确时进入处理器")
}

func TestRateLimit(t *testing.T) {
	h := newTestServerWithConfig(&fakeParser{records: map[string]*models.ParseRecord{}}, config.ServerConfig{
		Address:            "127.0.0.1:0",
		MaxUploadMB:        1,
		RateLimitPerMinute: 1,
		RateLimitBurst:     2,
	})

	for i := 0; i < 2; i++ {
		w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/any", nil)
		assert.Equal(t, consts.StatusNotFound, w.Result().StatusCode())
	}

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/any", nil)
	assert.Equal(t, consts.StatusTooManyRequests, w.Result().StatusCode())
	assert.NotEmpty(t, string(w.Result().Header.Peek("Retry-After")))

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/health", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode(), "健康检查不限流")
}
