package constants

import "time"

const (
	// ParserVersion 写入每份输出文档 metadata.parser_version 的固定版本号
	ParserVersion = "1.0.0"

	// PreviewLength 校验阶段日志中打印的文本预览长度（字符）
	PreviewLength = 500

	// LocationScanWindow 联系方式中地点识别只扫描文本开头的字符数
	LocationScanWindow = 1000

	// ParsedFileSuffix 批处理输出文件名后缀，形如 <stem>_parsed.json
	ParsedFileSuffix = "_parsed.json"

	// DefaultExtractTimeout 单个PDF文本提取的默认超时
	DefaultExtractTimeout = 30 * time.Second
)
