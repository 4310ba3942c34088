package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ledongthuc/pdf"
)

// LedongPDFTextExtractor 基于 ledongthuc/pdf 的提取器，不依赖 eino
type LedongPDFTextExtractor struct{}

// NewLedongPDFTextExtractor 创建提取器
func NewLedongPDFTextExtractor() *LedongPDFTextExtractor {
	return &LedongPDFTextExtractor{}
}

// ExtractFromFile 从PDF文件提取文本
func (l *LedongPDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open PDF file %s: %w", filePath, err)
	}
	return l.ExtractTextFromBytes(ctx, data, filePath)
}

// ExtractTextFromBytes 逐页提取纯文本并用换行拼接
func (l *LedongPDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (text string, metadata map[string]interface{}, err error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	// 损坏的 PDF 可能让底层库 panic
	defer func() {
		if rec := recover(); rec != nil {
			text, metadata = "", nil
			err = fmt.Errorf("ledongthuc PDF parser panicked for URI %s: %v", uri, rec)
		}
	}()

	startTime := time.Now()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("ledongthuc PDF parser failed for URI %s: %w", uri, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			return "", nil, fmt.Errorf("读取第 %d 页失败 (URI %s): %w", i, uri, pageErr)
		}
		pages = append(pages, content)
	}

	metadata = map[string]interface{}{
		"source_file_path":       uri,
		"backend":                BackendLedongthuc,
		"page_count":             numPages,
		"processing_duration_ms": time.Since(startTime).Milliseconds(),
	}
	return joinPages(pages), metadata, nil
}
