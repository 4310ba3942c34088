package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-parser/internal/constants"
	"resume-parser/internal/logger"
	"resume-parser/internal/ner"
	"resume-parser/internal/types"
)

// ResumeDocumentBuilder 组合三个提取器并生成最终文档
type ResumeDocumentBuilder struct {
	patterns   *PatternLibrary
	recognizer ner.Recognizer
	contact    *ContactExtractor
	education  *EducationExtractor
	experience *ExperienceExtractor
	version    string
	now        func() time.Time
}

// BuilderOption 构建器选项
type BuilderOption func(*ResumeDocumentBuilder)

// WithPatterns 使用自定义模式库
func WithPatterns(p *PatternLibrary) BuilderOption {
	return func(b *ResumeDocumentBuilder) {
		if p != nil {
			b.patterns = p
		}
	}
}

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) BuilderOption {
	return func(b *ResumeDocumentBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithParserVersion 覆盖 metadata.parser_version
func WithParserVersion(version string) BuilderOption {
	return func(b *ResumeDocumentBuilder) {
		if version != "" {
			b.version = version
		}
	}
}

// NewResumeDocumentBuilder 创建文档构建器
// recognizer 通常来自 ner.Shared，为 nil 时每次解析都会失败
func NewResumeDocumentBuilder(recognizer ner.Recognizer, opts ...BuilderOption) *ResumeDocumentBuilder {
	b := &ResumeDocumentBuilder{
		patterns:   DefaultPatterns(),
		recognizer: recognizer,
		version:    constants.ParserVersion,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}

	b.contact = NewContactExtractor(b.patterns, recognizer)
	b.education = NewEducationExtractor(b.patterns, recognizer)
	b.experience = NewExperienceExtractor(b.patterns, recognizer)
	return b
}

// Patterns 返回构建器使用的模式库
func (b *ResumeDocumentBuilder) Patterns() *PatternLibrary {
	return b.patterns
}

// Parse 解析入口：失败时记录日志并返回 nil，调用方只需检查结果是否为空
func (b *ResumeDocumentBuilder) Parse(text, sourceFilename string) *types.ResumeDocument {
	doc, err := b.Build(text, sourceFilename)
	if err != nil {
		stage := StagePanic
		var pe *ParseError
		if errors.As(err, &pe) {
			stage = pe.Stage
		}
		logger.Error().
			Err(err).
			Str("stage", stage).
			Str("source", sourceFilename).
			Msg("简历解析失败")
		return nil
	}
	return doc
}

// Build 与 Parse 相同，但返回错误，供需要区分失败原因的调用方使用
func (b *ResumeDocumentBuilder) Build(text, sourceFilename string) (doc *types.ResumeDocument, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = newExtractorError(StagePanic, sourceFilename, fmt.Errorf("%v", rec))
		}
	}()

	text = CleanText(text)
	if strings.TrimSpace(text) == "" {
		return nil, newEmptyInputError(sourceFilename)
	}
	if b.recognizer == nil {
		return nil, newExtractorError(StageValidate, sourceFilename, ner.ErrModelUnavailable)
	}

	contact, err := b.contact.Extract(text)
	if err != nil {
		return nil, newExtractorError(StageContact, sourceFilename, err)
	}

	education, err := b.education.Extract(text)
	if err != nil {
		return nil, newExtractorError(StageEducation, sourceFilename, err)
	}

	experience, err := b.experience.Extract(text)
	if err != nil {
		return nil, newExtractorError(StageExperience, sourceFilename, err)
	}

	return &types.ResumeDocument{
		ContactInfo: contact,
		Education:   education,
		Experience:  experience,
		Metadata: types.Metadata{
			SourceFilename:  sourceFilename,
			ParsedTimestamp: b.now().UTC().Format(time.RFC3339),
			ParserVersion:   b.version,
		},
	}, nil
}
