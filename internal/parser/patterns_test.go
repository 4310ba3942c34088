package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternLibraryFirstMatches(t *testing.T) {
	p := DefaultPatterns()

	text := "Jane Doe\njane.doe@example.com | other@example.org\n" +
		"Phone: 555-111-2222, Mobile: (555) 333-4444\n" +
		"https://www.linkedin.com/in/jane-doe-42 github.com/janedoe"

	email, ok := p.FirstEmail(text)
	require.True(t, ok)
	assert.Equal(t, "jane.doe@example.com", email)

	phone, ok := p.FirstPhone(text)
	require.True(t, ok)
	assert.Equal(t, "555-111-2222", phone, "多个号码时只取第一个")

	linkedIn, ok := p.FirstLinkedIn(text)
	require.True(t, ok)
	assert.Equal(t, "linkedin.com/in/jane-doe-42", linkedIn)

	gitHub, ok := p.FirstGitHub(text)
	require.True(t, ok)
	assert.Equal(t, "github.com/janedoe", gitHub)
}

func TestPatternLibraryNoMatch(t *testing.T) {
	p := DefaultPatterns()

	_, ok := p.FirstEmail("no contact here")
	assert.False(t, ok)
	_, ok = p.FirstPhone("call 12-34")
	assert.False(t, ok)
	assert.Empty(t, p.Dates("sometime in 2020"))
}

func TestPatternLibraryPhoneWithCountryCode(t *testing.T) {
	phone, ok := DefaultPatterns().FirstPhone("tel +1 415.555.0199 ext")
	require.True(t, ok)
	assert.Equal(t, "+1 415.555.0199", phone)
}

func TestPatternLibraryDates(t *testing.T) {
	p := DefaultPatterns()

	dates := p.Dates("Jan 2019 - September 2021, then May 2020 again, May 2020")
	assert.Equal(t, []string{"Jan 2019", "September 2021", "May 2020", "May 2020"}, dates, "保持顺序且不去重")
}

func TestPatternLibraryEducationTerms(t *testing.T) {
	p := DefaultPatterns()

	assert.True(t, p.ContainsEducationTerm("STATE UNIVERSITY"))
	assert.True(t, p.ContainsEducationTerm("B.Tech in Mechanical"))
	// 短关键词按子串匹配，"basketball" 含 "ba"
	assert.True(t, p.ContainsEducationTerm("basketball"))
	assert.False(t, p.ContainsEducationTerm("Go, Kotlin, Rust"))

	terms := p.EducationTerms()
	terms[0] = "mutated"
	assert.Equal(t, "bachelor", p.EducationTerms()[0], "返回的是副本")
}

func TestPatternLibraryExperienceTrigger(t *testing.T) {
	p := DefaultPatterns()

	tests := []struct {
		paragraph string
		want      bool
	}{
		{"2019 - 2022\nBuilt services.", true},
		{"Senior Engineer (1998)", true},
		{"Staff Engineer, Present", true},
		{"Currently leading a team", true},
		{"Led a team of 5.", false},
		{"Founded in 1850", false},
		{"Order #12019", true}, // 子串匹配，不要求单词边界
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.IsExperienceTrigger(tt.paragraph), tt.paragraph)
	}
}

func TestPatternLibraryDetectHeadings(t *testing.T) {
	p := DefaultPatterns()

	found := p.DetectHeadings("WORK HISTORY\n...\nEducation\n...\nTechnical Skills")
	assert.Equal(t, []SectionType{SectionEducation, SectionExperience, SectionSkills}, found)

	re, ok := p.SectionHeading(SectionCertifications)
	require.True(t, ok)
	assert.True(t, re.MatchString("Certificates"))

	_, ok = p.SectionHeading(SectionType("hobbies"))
	assert.False(t, ok)
}

func TestSplitParagraphs(t *testing.T) {
	text := "first\nstill first\r\n\r\nsecond\n \t\n\n  third  \n\n\n   \n\n"

	paragraphs := SplitParagraphs(text)
	// 边界会吃掉下一段首行的缩进
	assert.Equal(t, []string{"first\nstill first", "second", "third  "}, paragraphs)

	assert.Empty(t, SplitParagraphs(""))
	assert.Empty(t, SplitParagraphs("\n\n  \n\n"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "简历", truncateRunes("简历解析", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "", truncateRunes("abc", 0))
}
