package parser

import (
	"regexp"
	"strings"
)

// 两个及以上连续换行视为段落边界，换行之间允许夹杂空格或制表符
var paragraphBoundary = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+`)

// CleanText 统一换行符为 \n
// 不合并空行，段落边界依赖空行
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// SplitParagraphs 按空行切分段落，保持原文顺序
// 只包含空白的段落会被丢弃；段落内容不做 trim，首行判断由调用方处理
func SplitParagraphs(text string) []string {
	parts := paragraphBoundary.Split(CleanText(text), -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs
}

// firstLine 返回段落第一行（已 trim）
func firstLine(paragraph string) string {
	line, _, _ := strings.Cut(paragraph, "\n")
	return strings.TrimSpace(line)
}

// truncateRunes 按字符（而非字节）截取前 n 个
func truncateRunes(text string, n int) string {
	if n < 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
