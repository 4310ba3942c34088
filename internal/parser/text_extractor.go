package parser

import (
	"context"
	"fmt"
	"strings"
)

// PDF 后端名称，对应配置 parser.pdf_backend
const (
	BackendEino       = "eino"
	BackendLedongthuc = "ledongthuc"
)

// TextExtractor 把 PDF 转为按页顺序拼接的纯文本
type TextExtractor interface {
	ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error)
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error)
}

// NewTextExtractor 按后端名称创建提取器，空字符串使用 eino
func NewTextExtractor(ctx context.Context, backend string) (TextExtractor, error) {
	switch strings.ToLower(backend) {
	case "", BackendEino:
		return NewEinoPDFTextExtractor(ctx)
	case BackendLedongthuc:
		return NewLedongPDFTextExtractor(), nil
	default:
		return nil, fmt.Errorf("未知的PDF解析后端: %s", backend)
	}
}

// joinPages 页面之间用换行连接
func joinPages(pages []string) string {
	return strings.Join(pages, "\n")
}
