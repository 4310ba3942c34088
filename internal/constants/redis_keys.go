package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "resume_parser"

	// ParseModulePrefix 解析模块
	ParseModulePrefix = "parse"

	// EntityDocument 解析结果实体
	EntityDocument = "doc"
	// EntityRecord 解析记录ID实体
	EntityRecord = "record"

	// KeyParsedDocument 解析结果缓存 (STRING, JSON)
	// 格式: resume_parser:parse:doc:{textMD5}:{parserVersion}
	KeyParsedDocument = AppPrefix + ":" + ParseModulePrefix + ":" + EntityDocument + ":%s:%s"

	// KeyParsedRecordID 文本MD5到解析记录ID的映射 (STRING)
	// 格式: resume_parser:parse:record:{textMD5}
	KeyParsedRecordID = AppPrefix + ":" + ParseModulePrefix + ":" + EntityRecord + ":%s"
)
