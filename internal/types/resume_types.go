package types

// ResumeDocument 一次解析调用的完整输出
// 四个顶层字段始终存在，JSON 键名与输出文件格式一致
type ResumeDocument struct {
	ContactInfo ContactInfo       `json:"contact_info"`
	Education   []EducationEntry  `json:"education"`
	Experience  []ExperienceEntry `json:"experience"`
	Metadata    Metadata          `json:"metadata"`
}

// ContactInfo 联系方式，每个字段最多一个值（首个匹配）
// 未匹配的字段序列化为 null
type ContactInfo struct {
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	LinkedInHandle *string `json:"linkedin_handle"`
	GitHubHandle   *string `json:"github_handle"`
	Location       *string `json:"location"`
}

// EducationEntry 教育经历条目
// 只有 Degree 或 Institution 非空时才会出现在输出中
type EducationEntry struct {
	Degree         *string `json:"degree"`
	Institution    *string `json:"institution"`
	GraduationDate *string `json:"graduation_date"`
	GPA            *string `json:"gpa"` // 保留字段，当前规则从不填充
}

// ExperienceEntry 工作经历条目
// Dates 和 Description 按原文出现顺序排列，空时序列化为 []
type ExperienceEntry struct {
	Title       *string  `json:"title"`
	Company     *string  `json:"company"`
	Dates       []string `json:"dates"`
	Description []string `json:"description"`
}

// Metadata 解析元数据
type Metadata struct {
	SourceFilename  string `json:"source_filename"`
	ParsedTimestamp string `json:"parsed_timestamp"` // RFC3339
	ParserVersion   string `json:"parser_version"`
}

// NewExperienceEntry 创建一个 Dates/Description 均为空切片（而非 nil）的条目
func NewExperienceEntry() ExperienceEntry {
	return ExperienceEntry{
		Dates:       []string{},
		Description: []string{},
	}
}

// StringPtr 返回字符串指针，便于构造可选字段
func StringPtr(s string) *string {
	return &s
}

// Deref 安全地解引用可选字段，nil 返回空字符串
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
