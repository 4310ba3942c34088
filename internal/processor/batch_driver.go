package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"resume-parser/internal/constants"
	"resume-parser/internal/logger"
	"resume-parser/internal/parser"
	"resume-parser/internal/types"

	"golang.org/x/sync/errgroup"
)

// 单个文件的处理结果
const (
	FileStatusSucceeded = "succeeded"
	FileStatusFailed    = "failed"
)

// FileResult 单个 PDF 的处理结果
type FileResult struct {
	File       string
	OutputPath string
	RecordID   string
	Status     string
	Err        error
	Document   *types.ResumeDocument
	Duration   time.Duration
}

// BatchStats 批处理汇总
type BatchStats struct {
	Discovered int
	Succeeded  int
	Failed     int
	Results    []FileResult
}

// BatchDriver 遍历输入目录中的 PDF，逐个提取、解析并写出 JSON
type BatchDriver struct {
	inputDir   string
	outputDir  string
	extractor  parser.TextExtractor
	builder    DocumentBuilder
	workers    int
	schema     *SchemaValidator
	reportPath string
	sink       ResultSink
}

// NewBatchDriver 创建批处理器
func NewBatchDriver(inputDir, outputDir string, extractor parser.TextExtractor, builder DocumentBuilder, opts ...BatchOption) *BatchDriver {
	d := &BatchDriver{
		inputDir:  inputDir,
		outputDir: outputDir,
		extractor: extractor,
		builder:   builder,
		workers:   1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover 列出输入目录中的 PDF，按文件名排序
func (d *BatchDriver) Discover() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.inputDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("扫描输入目录 %s 失败: %w", d.inputDir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Run 处理整个目录
// 单个文件失败不会中断批处理，只有目录不可用或 ctx 取消时返回错误
func (d *BatchDriver) Run(ctx context.Context) (*BatchStats, error) {
	for _, dir := range []string{d.inputDir, d.outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}

	files, err := d.Discover()
	if err != nil {
		return nil, err
	}
	stats := &BatchStats{Discovered: len(files), Results: make([]FileResult, len(files))}
	if len(files) == 0 {
		logger.Warn().Str("input_dir", d.inputDir).Msg("输入目录中没有PDF文件")
		return stats, nil
	}

	logger.Info().Int("files", len(files)).Int("workers", d.workers).Str("input_dir", d.inputDir).Msg("开始批量解析")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stats.Results[i] = d.ProcessFile(gctx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("批处理被中断: %w", err)
	}

	for _, r := range stats.Results {
		if r.Status == FileStatusSucceeded {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}

	if d.reportPath != "" {
		if err := WriteBatchReport(d.reportPath, stats); err != nil {
			logger.Error().Err(err).Str("report", d.reportPath).Msg("写入批处理报告失败")
		} else {
			logger.Info().Str("report", d.reportPath).Msg("批处理报告已生成")
		}
	}

	logger.Info().
		Int("processed", stats.Discovered).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Msg("批量解析完成")
	return stats, nil
}

// ProcessFile 处理单个文件：提取、预览、解析、校验、写出、归档
func (d *BatchDriver) ProcessFile(ctx context.Context, pdfPath string) FileResult {
	start := time.Now()
	name := filepath.Base(pdfPath)
	result := FileResult{File: name, Status: FileStatusFailed}

	fail := func(err error) FileResult {
		result.Err = err
		result.Duration = time.Since(start)
		logger.Error().Err(err).Str("file", name).Msg("文件处理失败")
		return result
	}

	text, err := d.Verify(ctx, pdfPath)
	if err != nil {
		return fail(err)
	}

	doc, err := d.builder.Build(text, name)
	if err != nil || doc == nil {
		stage := parser.StagePanic
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			stage = pe.Stage
		}
		logger.Error().Err(err).Str("stage", stage).Str("source", name).Msg("简历解析失败")
		return fail(NewParseFailedError(name, fmt.Sprintf("阶段 %s", stage)))
	}

	data, err := MarshalDocument(doc)
	if err != nil {
		return fail(NewPersistenceError(name, err.Error()))
	}

	if d.schema != nil {
		if err := d.schema.Validate(data); err != nil {
			return fail(NewSchemaError(name, err.Error()))
		}
	}

	outPath := filepath.Join(d.outputDir, OutputFilename(name))
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fail(NewPersistenceError(name, err.Error()))
	}

	if d.sink != nil {
		original, readErr := os.ReadFile(pdfPath)
		if readErr != nil {
			logger.Warn().Err(readErr).Str("file", name).Msg("读取原始PDF失败，只归档解析结果")
		}
		item := ArchiveItem{SourceFilename: name, Original: original, Text: text, Document: doc, DocumentJSON: data}
		if recordID, err := d.sink.Archive(ctx, item); err != nil {
			logger.Warn().Err(err).Str("file", name).Msg("归档失败，本地结果已写出")
		} else {
			result.RecordID = recordID
		}
	}

	result.Status = FileStatusSucceeded
	result.OutputPath = outPath
	result.Document = doc
	result.Duration = time.Since(start)
	logger.Info().
		Str("file", name).
		Str("output", outPath).
		Int("education", len(doc.Education)).
		Int("experience", len(doc.Experience)).
		Dur("elapsed", result.Duration).
		Msg("解析完成")
	return result
}

// Verify 提取文本并在日志中输出前 500 个字符的预览
// 提取失败或文本为空时返回 ErrInputUnreadable
func (d *BatchDriver) Verify(ctx context.Context, pdfPath string) (string, error) {
	name := filepath.Base(pdfPath)

	text, _, err := d.extractor.ExtractFromFile(ctx, pdfPath)
	if err != nil {
		return "", NewUnreadableError(name, err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return "", NewUnreadableError(name, "提取的文本为空")
	}

	divider := strings.Repeat("-", 50)
	logger.Info().Str("file", name).Int("chars", len([]rune(text))).
		Msgf("PDF内容预览:\n%s\n%s\n%s", divider, Preview(text), divider)

	if headings := parser.DefaultPatterns().DetectHeadings(text); len(headings) > 0 {
		logger.Debug().Str("file", name).Interface("sections", headings).Msg("检测到的章节标题")
	}
	return text, nil
}

// Preview 前 500 个字符
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= constants.PreviewLength {
		return text
	}
	return string(runes[:constants.PreviewLength])
}

// OutputFilename resume.pdf -> resume_parsed.json
func OutputFilename(pdfName string) string {
	stem := strings.TrimSuffix(pdfName, filepath.Ext(pdfName))
	return stem + constants.ParsedFileSuffix
}

// MarshalDocument 两空格缩进，末尾带换行
func MarshalDocument(doc *types.ResumeDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化简历文档失败: %w", err)
	}
	return append(data, '\n'), nil
}
