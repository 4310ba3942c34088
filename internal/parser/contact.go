package parser

import (
	"fmt"

	"resume-parser/internal/constants"
	"resume-parser/internal/ner"
	"resume-parser/internal/types"
)

// ContactExtractor 从全文提取联系方式
type ContactExtractor struct {
	patterns   *PatternLibrary
	recognizer ner.Recognizer
}

// NewContactExtractor 创建联系方式提取器
func NewContactExtractor(patterns *PatternLibrary, recognizer ner.Recognizer) *ContactExtractor {
	return &ContactExtractor{patterns: patterns, recognizer: recognizer}
}

// Extract 每个字段取全文第一个匹配；地点只在文本前 1000 个字符内做实体识别
func (c *ContactExtractor) Extract(text string) (types.ContactInfo, error) {
	var info types.ContactInfo

	if v, ok := c.patterns.FirstEmail(text); ok {
		info.Email = types.StringPtr(v)
	}
	if v, ok := c.patterns.FirstPhone(text); ok {
		info.Phone = types.StringPtr(v)
	}
	if v, ok := c.patterns.FirstLinkedIn(text); ok {
		info.LinkedInHandle = types.StringPtr(v)
	}
	if v, ok := c.patterns.FirstGitHub(text); ok {
		info.GitHubHandle = types.StringPtr(v)
	}

	entities, err := c.recognizer.Entities(truncateRunes(text, constants.LocationScanWindow))
	if err != nil {
		return types.ContactInfo{}, fmt.Errorf("地点识别失败: %w", err)
	}
	if v, ok := ner.FirstText(entities, ner.IsLocation); ok {
		info.Location = types.StringPtr(v)
	}

	return info, nil
}
