package parser

import (
	"errors"
	"fmt"
)

// 解析阶段的基础错误
var (
	ErrEmptyInput       = errors.New("提取的文本为空")
	ErrExtractorFailure = errors.New("字段提取失败")
)

// 解析阶段名称，写入日志的 stage 字段
const (
	StageValidate   = "validate"
	StageContact    = "contact"
	StageEducation  = "education"
	StageExperience = "experience"
	StagePanic      = "panic"
)

// ParseError 记录失败阶段和来源文件
type ParseError struct {
	Stage   string
	Source  string
	BaseErr error
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (阶段:%s, 文件:%s): %v", e.BaseErr, e.Stage, e.Source, e.Cause)
	}
	return fmt.Sprintf("%s (阶段:%s, 文件:%s)", e.BaseErr, e.Stage, e.Source)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is 接口，BaseErr 与 Cause 链都参与比较
func (e *ParseError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newEmptyInputError(source string) error {
	return &ParseError{Stage: StageValidate, Source: source, BaseErr: ErrEmptyInput}
}

func newExtractorError(stage, source string, cause error) error {
	return &ParseError{Stage: stage, Source: source, BaseErr: ErrExtractorFailure, Cause: cause}
}
