package parser

import (
	"fmt"
	"strings"

	"resume-parser/internal/ner"
	"resume-parser/internal/types"
)

// ExperienceExtractor 逐段扫描工作经历
// 含年份或 present/current 的段落开启新条目，其余段落追加到当前条目的描述中
type ExperienceExtractor struct {
	patterns   *PatternLibrary
	recognizer ner.Recognizer
}

// NewExperienceExtractor 创建工作经历提取器
func NewExperienceExtractor(patterns *PatternLibrary, recognizer ner.Recognizer) *ExperienceExtractor {
	return &ExperienceExtractor{patterns: patterns, recognizer: recognizer}
}

// experienceFold 扫描过程中的状态：已完成的条目和当前打开的条目（可能为空）
type experienceFold struct {
	done    []types.ExperienceEntry
	current *types.ExperienceEntry
}

// flush 关闭当前条目
func (f experienceFold) flush() experienceFold {
	if f.current != nil {
		f.done = append(f.done, *f.current)
		f.current = nil
	}
	return f
}

// open 先关闭已有条目，再打开新条目
func (f experienceFold) open(entry types.ExperienceEntry) experienceFold {
	f = f.flush()
	f.current = &entry
	return f
}

// attach 把非触发段落追加到当前条目；没有打开的条目时丢弃
func (f experienceFold) attach(paragraph string) experienceFold {
	if f.current == nil {
		return f
	}
	next := *f.current
	next.Description = append(append([]string{}, f.current.Description...), strings.TrimSpace(paragraph))
	f.current = &next
	return f
}

// Extract 按原文顺序输出工作经历
func (x *ExperienceExtractor) Extract(text string) ([]types.ExperienceEntry, error) {
	fold := experienceFold{done: []types.ExperienceEntry{}}

	for i, paragraph := range SplitParagraphs(text) {
		var err error
		fold, err = x.step(fold, paragraph)
		if err != nil {
			return nil, fmt.Errorf("第 %d 段工作经历识别失败: %w", i+1, err)
		}
	}

	return fold.flush().done, nil
}

func (x *ExperienceExtractor) step(fold experienceFold, paragraph string) (experienceFold, error) {
	if !x.patterns.IsExperienceTrigger(paragraph) {
		return fold.attach(paragraph), nil
	}

	entry, err := x.newEntry(paragraph)
	if err != nil {
		return fold, err
	}
	return fold.open(entry), nil
}

func (x *ExperienceExtractor) newEntry(paragraph string) (types.ExperienceEntry, error) {
	entry := types.NewExperienceEntry()

	if dates := x.patterns.Dates(paragraph); len(dates) > 0 {
		entry.Dates = dates
	}

	entities, err := x.recognizer.Entities(paragraph)
	if err != nil {
		return entry, err
	}
	if v, ok := ner.FirstText(entities, ner.IsOrganization); ok {
		entry.Company = types.StringPtr(v)
	}

	// 第一行通常是职位
	entry.Title = types.StringPtr(firstLine(paragraph))
	return entry, nil
}
