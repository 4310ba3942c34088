// Package ner 封装命名实体识别引擎
// 引擎作为进程级共享资源：惰性加载一次，之后只读复用，调用串行化
package ner

import (
	"errors"
	"strings"
	"sync"
)

// 实体类型标签
const (
	LabelOrganization     = "ORG"
	LabelOrganizationLong = "ORGANIZATION" // prose 内置模型使用的组织标签
	LabelGPE              = "GPE"          // 地缘政治实体：国家、城市、州
	LabelLocation         = "LOC"
)

// ErrModelUnavailable 模型在尝试下载后仍无法加载，属于启动期致命错误
var ErrModelUnavailable = errors.New("NER模型不可用")

// Entity 一个识别出的实体片段
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Recognizer 按出现顺序返回文本中的实体
type Recognizer interface {
	Entities(text string) ([]Entity, error)
}

// RecognizerFunc 函数适配器
type RecognizerFunc func(text string) ([]Entity, error)

// Entities 实现 Recognizer
func (f RecognizerFunc) Entities(text string) ([]Entity, error) {
	return f(text)
}

// IsOrganization 判断标签是否为组织类型（ORG 或 ORGANIZATION）
func IsOrganization(label string) bool {
	return strings.EqualFold(label, LabelOrganization) || strings.EqualFold(label, LabelOrganizationLong)
}

// IsLocation 判断标签是否为地点类型（GPE 或 LOC）
func IsLocation(label string) bool {
	return strings.EqualFold(label, LabelGPE) || strings.EqualFold(label, LabelLocation)
}

// FirstText 返回第一个标签满足 match 的实体文本
func FirstText(entities []Entity, match func(label string) bool) (string, bool) {
	for _, e := range entities {
		if match(e.Label) {
			return e.Text, true
		}
	}
	return "", false
}

// LockedRecognizer 用互斥锁串行化对底层引擎的调用
// 引擎本身没有声明并发安全，并行批处理时必须经过这一层
type LockedRecognizer struct {
	mu    sync.Mutex
	inner Recognizer
}

// NewLockedRecognizer 包装一个识别器
func NewLockedRecognizer(inner Recognizer) *LockedRecognizer {
	return &LockedRecognizer{inner: inner}
}

// Entities 实现 Recognizer
func (l *LockedRecognizer) Entities(text string) ([]Entity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Entities(text)
}
