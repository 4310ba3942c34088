package parser

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"resume-parser/internal/ner"
	"resume-parser/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedClock = func() time.Time {
	return time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
}

const sampleResume = `Jane Doe
San Francisco, CA
jane.doe@example.com | 555-111-2222
linkedin.com/in/janedoe | github.com/janedoe

EDUCATION

Bachelor of Science in Computer Science
State University
May 2020

EXPERIENCE

Software Engineer
Acme Corp
Jun 2020 - Present

Built payment services in Go.`

func newSampleBuilder() *ResumeDocumentBuilder {
	rec := newFakeRecognizer(
		"San Francisco", "GPE",
		"State University", "ORG",
		"Acme Corp", "ORGANIZATION",
	)
	return NewResumeDocumentBuilder(rec, WithClock(fixedClock))
}

func TestBuilderBuild(t *testing.T) {
	doc, err := newSampleBuilder().Build(sampleResume, "jane.pdf")
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "jane.doe@example.com", types.Deref(doc.ContactInfo.Email))
	assert.Equal(t, "555-111-2222", types.Deref(doc.ContactInfo.Phone))
	assert.Equal(t, "linkedin.com/in/janedoe", types.Deref(doc.ContactInfo.LinkedInHandle))
	assert.Equal(t, "github.com/janedoe", types.Deref(doc.ContactInfo.GitHubHandle))
	assert.Equal(t, "San Francisco", types.Deref(doc.ContactInfo.Location))

	require.Len(t, doc.Education, 1)
	assert.Equal(t, "Bachelor of Science in Computer Science", types.Deref(doc.Education[0].Degree))
	assert.Equal(t, "State University", types.Deref(doc.Education[0].Institution))
	assert.Equal(t, "May 2020", types.Deref(doc.Education[0].GraduationDate))

	// 教育段落含年份，同样会开启一条工作经历
	require.Len(t, doc.Experience, 2)
	assert.Equal(t, "Bachelor of Science in Computer Science", types.Deref(doc.Experience[0].Title))
	assert.Equal(t, []string{"EXPERIENCE"}, doc.Experience[0].Description)

	exp := doc.Experience[1]
	assert.Equal(t, "Software Engineer", types.Deref(exp.Title))
	assert.Equal(t, "Acme Corp", types.Deref(exp.Company))
	assert.Equal(t, []string{"Jun 2020"}, exp.Dates)
	assert.Equal(t, []string{"Built payment services in Go."}, exp.Description)

	assert.Equal(t, "jane.pdf", doc.Metadata.SourceFilename)
	assert.Equal(t, "2025-06-01T08:30:00Z", doc.Metadata.ParsedTimestamp)
	assert.Equal(t, "1.0.0", doc.Metadata.ParserVersion)
}

func TestBuilderIsDeterministic(t *testing.T) {
	b := newSampleBuilder()

	first := b.Parse(sampleResume, "jane.pdf")
	second := b.Parse(sampleResume, "jane.pdf")
	require.NotNil(t, first)
	assert.Equal(t, first, second, "相同输入应得到相同输出")
}

func TestBuilderEmptyInput(t *testing.T) {
	b := newSampleBuilder()

	for _, text := range []string{"", "   ", "\r\n\r\n\t"} {
		doc, err := b.Build(text, "blank.pdf")
		assert.Nil(t, doc)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyInput)

		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, StageValidate, pe.Stage)
		assert.Equal(t, "blank.pdf", pe.Source)

		assert.Nil(t, b.Parse(text, "blank.pdf"))
	}
}

func TestBuilderRecognizerFailure(t *testing.T) {
	rec := newFakeRecognizer()
	rec.err = errors.New("model crashed")
	b := NewResumeDocumentBuilder(rec)

	doc, err := b.Build(sampleResume, "jane.pdf")
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractorFailure)
	assert.ErrorIs(t, err, rec.err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageContact, pe.Stage, "联系方式是第一个调用实体识别的阶段")

	assert.Nil(t, b.Parse(sampleResume, "jane.pdf"))
}

func TestBuilderFailsOnLaterStage(t *testing.T) {
	calls := 0
	rec := ner.RecognizerFunc(func(text string) ([]ner.Entity, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("second call fails")
		}
		return nil, nil
	})

	_, err := NewResumeDocumentBuilder(rec).Build(sampleResume, "jane.pdf")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageEducation, pe.Stage)
}

func TestBuilderNilRecognizer(t *testing.T) {
	_, err := NewResumeDocumentBuilder(nil).Build(sampleResume, "jane.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ner.ErrModelUnavailable)
}

func TestBuilderRecoversFromPanic(t *testing.T) {
	rec := ner.RecognizerFunc(func(text string) ([]ner.Entity, error) {
		panic("index out of range")
	})
	b := NewResumeDocumentBuilder(rec)

	doc, err := b.Build(sampleResume, "jane.pdf")
	assert.Nil(t, doc)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StagePanic, pe.Stage)
	assert.Contains(t, err.Error(), "index out of range")

	assert.NotPanics(t, func() {
		assert.Nil(t, b.Parse(sampleResume, "jane.pdf"))
	})
}

func TestBuilderJSONShape(t *testing.T) {
	b := NewResumeDocumentBuilder(newFakeRecognizer(), WithClock(fixedClock), WithParserVersion("2.0.0-test"))

	doc, err := b.Build("Just some words without any contact data", "minimal.pdf")
	require.NoError(t, err)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{"contact_info", "education", "experience", "metadata"} {
		assert.Contains(t, decoded, key)
	}

	contact := decoded["contact_info"].(map[string]interface{})
	for _, key := range []string{"email", "phone", "linkedin_handle", "github_handle", "location"} {
		value, ok := contact[key]
		assert.True(t, ok, "字段 %s 必须存在", key)
		assert.Nil(t, value, "未匹配的字段应为 null")
	}

	assert.Equal(t, []interface{}{}, decoded["education"])
	assert.Equal(t, []interface{}{}, decoded["experience"])

	meta := decoded["metadata"].(map[string]interface{})
	assert.Equal(t, "2.0.0-test", meta["parser_version"])
	assert.True(t, strings.HasPrefix(meta["parsed_timestamp"].(string), "2025-06-01T"))
}

func TestBuilderTimestampIsUTC(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	clock := func() time.Time { return time.Date(2025, 6, 1, 8, 30, 0, 0, shanghai) }
	b := NewResumeDocumentBuilder(newFakeRecognizer(), WithClock(clock))

	doc := b.Parse(sampleResume, "jane.pdf")
	require.NotNil(t, doc)
	assert.Equal(t, "2025-06-01T00:30:00Z", doc.Metadata.ParsedTimestamp)

	doc = NewResumeDocumentBuilder(newFakeRecognizer()).Parse(sampleResume, "jane.pdf")
	require.NotNil(t, doc)
	assert.True(t, strings.HasSuffix(doc.Metadata.ParsedTimestamp, "Z"), doc.Metadata.ParsedTimestamp)
}

func TestBuilderWithProseRecognizerFillsCompany(t *testing.T) {
	rec, err := ner.NewProseRecognizer("")
	require.NoError(t, err)

	doc := NewResumeDocumentBuilder(rec, WithClock(fixedClock)).
		Parse("Software Engineer at Google Inc. in Mountain View, California from 2019 to 2022.", "google.pdf")
	require.NotNil(t, doc)
	require.Len(t, doc.Experience, 1)
	require.NotNil(t, doc.Experience[0].Company, "内置模型的组织实体应填入 company")
	assert.Contains(t, *doc.Experience[0].Company, "Google")
}
