package parser

import (
	"fmt"
	"strings"

	"resume-parser/internal/ner"
	"resume-parser/internal/types"
)

// EducationExtractor 逐段识别教育经历
type EducationExtractor struct {
	patterns   *PatternLibrary
	recognizer ner.Recognizer
}

// NewEducationExtractor 创建教育经历提取器
func NewEducationExtractor(patterns *PatternLibrary, recognizer ner.Recognizer) *EducationExtractor {
	return &EducationExtractor{patterns: patterns, recognizer: recognizer}
}

// Extract 按段落顺序输出教育条目
func (e *EducationExtractor) Extract(text string) ([]types.EducationEntry, error) {
	entries := []types.EducationEntry{}

	for i, paragraph := range SplitParagraphs(text) {
		if !e.patterns.ContainsEducationTerm(paragraph) {
			continue
		}

		entry, err := e.extractParagraph(paragraph)
		if err != nil {
			return nil, fmt.Errorf("第 %d 段教育经历识别失败: %w", i+1, err)
		}

		// 学历和院校都没识别出来的段落直接丢弃
		if entry.Degree == nil && entry.Institution == nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (e *EducationExtractor) extractParagraph(paragraph string) (types.EducationEntry, error) {
	var entry types.EducationEntry

	// 入学时间通常在毕业时间之前，取最后一个日期
	if dates := e.patterns.Dates(paragraph); len(dates) > 0 {
		entry.GraduationDate = types.StringPtr(dates[len(dates)-1])
	}

	entities, err := e.recognizer.Entities(paragraph)
	if err != nil {
		return entry, err
	}
	if v, ok := ner.FirstText(entities, ner.IsOrganization); ok {
		entry.Institution = types.StringPtr(v)
	}

	for _, line := range strings.Split(paragraph, "\n") {
		if e.patterns.ContainsEducationTerm(line) {
			entry.Degree = types.StringPtr(strings.TrimSpace(line))
			break
		}
	}

	return entry, nil
}
