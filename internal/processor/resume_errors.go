package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrInputUnreadable   = errors.New("无法从PDF提取文本")
	ErrParseFailed       = errors.New("简历解析失败")
	ErrSchemaViolation   = errors.New("解析结果不符合文档结构")
	ErrPersistenceFailed = errors.New("写入解析结果失败")
	ErrArchiveFailed     = errors.New("归档解析结果失败")
)

// ResumeProcessError 包含来源文件和失败操作的错误
type ResumeProcessError struct {
	Source  string
	Op      string
	BaseErr error
	Detail  string
}

func (e *ResumeProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文件:%s): %s", e.BaseErr, e.Op, e.Source, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 文件:%s)", e.BaseErr, e.Op, e.Source)
}

func (e *ResumeProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ResumeProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewUnreadableError(source, detail string) error {
	return &ResumeProcessError{Source: source, Op: "extract", BaseErr: ErrInputUnreadable, Detail: detail}
}

func NewParseFailedError(source, detail string) error {
	return &ResumeProcessError{Source: source, Op: "parse", BaseErr: ErrParseFailed, Detail: detail}
}

func NewSchemaError(source, detail string) error {
	return &ResumeProcessError{Source: source, Op: "validate", BaseErr: ErrSchemaViolation, Detail: detail}
}

func NewPersistenceError(source, detail string) error {
	return &ResumeProcessError{Source: source, Op: "write", BaseErr: ErrPersistenceFailed, Detail: detail}
}

func NewArchiveError(source, detail string) error {
	return &ResumeProcessError{Source: source, Op: "archive", BaseErr: ErrArchiveFailed, Detail: detail}
}
