package parser

import (
	"regexp"
	"strings"
)

// SectionType 简历章节名称
type SectionType string

const (
	SectionSummary        SectionType = "summary"
	SectionEducation      SectionType = "education"
	SectionExperience     SectionType = "experience"
	SectionSkills         SectionType = "skills"
	SectionProjects       SectionType = "projects"
	SectionCertifications SectionType = "certifications"
	SectionContact        SectionType = "contact"
)

// sectionOrder 固定的章节遍历顺序，保证输出稳定
var sectionOrder = []SectionType{
	SectionSummary,
	SectionEducation,
	SectionExperience,
	SectionSkills,
	SectionProjects,
	SectionCertifications,
	SectionContact,
}

// 识别模式
var (
	emailPattern    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern    = regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	linkedInPattern = regexp.MustCompile(`linkedin\.com/in/[\w-]+`)
	gitHubPattern   = regexp.MustCompile(`github\.com/[\w-]+`)
	datePattern     = regexp.MustCompile(`(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\s+\d{4}`)

	// 工作经历段落的触发条件，作用于小写后的段落文本
	experienceTriggerPattern = regexp.MustCompile(`(19|20)\d{2}|present|current`)
)

// educationTerms 学历/院校关键词，按小写子串匹配
var educationTerms = []string{
	"bachelor", "master", "phd", "doctorate", "bs", "ms", "ba", "ma",
	"b.tech", "m.tech", "b.e.", "m.e.", "b.sc", "m.sc",
	"university", "college", "institute", "school",
}

// sectionHeadingPatterns 章节标题识别模式
// 段落切分不使用这些模式，只用于诊断日志（见 DetectHeadings）
var sectionHeadingPatterns = map[SectionType]*regexp.Regexp{
	SectionSummary:        regexp.MustCompile(`(?i)(profile|summary|objective|about)`),
	SectionEducation:      regexp.MustCompile(`(?i)(education|academic|qualification)`),
	SectionExperience:     regexp.MustCompile(`(?i)(experience|employment|work history)`),
	SectionSkills:         regexp.MustCompile(`(?i)(skills|technical skills|competencies)`),
	SectionProjects:       regexp.MustCompile(`(?i)(projects|personal projects)`),
	SectionCertifications: regexp.MustCompile(`(?i)(certifications|certificates)`),
	SectionContact:        regexp.MustCompile(`(?i)(contact|personal details|contact information)`),
}

// PatternLibrary 只读的识别模式集合
// 所有方法都不修改内部状态，可以被多个 goroutine 共享
type PatternLibrary struct {
	email          *regexp.Regexp
	phone          *regexp.Regexp
	linkedIn       *regexp.Regexp
	gitHub         *regexp.Regexp
	date           *regexp.Regexp
	trigger        *regexp.Regexp
	educationTerms []string
	headings       map[SectionType]*regexp.Regexp
}

var defaultPatterns = &PatternLibrary{
	email:          emailPattern,
	phone:          phonePattern,
	linkedIn:       linkedInPattern,
	gitHub:         gitHubPattern,
	date:           datePattern,
	trigger:        experienceTriggerPattern,
	educationTerms: educationTerms,
	headings:       sectionHeadingPatterns,
}

// DefaultPatterns 返回共享的默认模式库
func DefaultPatterns() *PatternLibrary {
	return defaultPatterns
}

// FirstEmail 返回文本中第一个邮箱
func (p *PatternLibrary) FirstEmail(text string) (string, bool) {
	return firstMatch(p.email, text)
}

// FirstPhone 返回文本中第一个电话号码
func (p *PatternLibrary) FirstPhone(text string) (string, bool) {
	return firstMatch(p.phone, text)
}

// FirstLinkedIn 返回第一个 linkedin.com/in/... 片段
func (p *PatternLibrary) FirstLinkedIn(text string) (string, bool) {
	return firstMatch(p.linkedIn, text)
}

// FirstGitHub 返回第一个 github.com/... 片段
func (p *PatternLibrary) FirstGitHub(text string) (string, bool) {
	return firstMatch(p.gitHub, text)
}

// Dates 按出现顺序返回全部"月份 年份"日期，不去重
func (p *PatternLibrary) Dates(text string) []string {
	return p.date.FindAllString(text, -1)
}

// ContainsEducationTerm 判断文本（忽略大小写）是否包含任一学历关键词
func (p *PatternLibrary) ContainsEducationTerm(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range p.educationTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// IsExperienceTrigger 段落是否开启一条新的工作经历
// 包含 19xx/20xx 年份，或包含 present / current
func (p *PatternLibrary) IsExperienceTrigger(paragraph string) bool {
	return p.trigger.MatchString(strings.ToLower(paragraph))
}

// EducationTerms 返回关键词副本
func (p *PatternLibrary) EducationTerms() []string {
	out := make([]string, len(p.educationTerms))
	copy(out, p.educationTerms)
	return out
}

// SectionHeading 返回某个章节的标题模式
func (p *PatternLibrary) SectionHeading(section SectionType) (*regexp.Regexp, bool) {
	re, ok := p.headings[section]
	return re, ok
}

// DetectHeadings 返回文本中出现过标题关键词的章节，按固定顺序排列
// 只用于日志诊断，解析逻辑不依赖它
func (p *PatternLibrary) DetectHeadings(text string) []SectionType {
	var found []SectionType
	for _, section := range sectionOrder {
		if re, ok := p.headings[section]; ok && re.MatchString(text) {
			found = append(found, section)
		}
	}
	return found
}

func firstMatch(re *regexp.Regexp, text string) (string, bool) {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[0]:loc[1]], true
}
