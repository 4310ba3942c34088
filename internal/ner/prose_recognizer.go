package ner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jdkato/prose/v2"
)

// warmUpText 加载后立即跑一次，确保模型真正可用
const warmUpText = "Jane Doe moved to New York in 2019."

// ProseRecognizer 基于 prose 的实体识别
// 内置模型输出 PERSON / GPE / ORGANIZATION，自训练模型通过 ModelDir 加载
type ProseRecognizer struct {
	model *prose.Model
	name  string
}

// NewProseRecognizer 加载模型；modelDir 为空时使用内置模型
func NewProseRecognizer(modelDir string) (r *ProseRecognizer, err error) {
	// prose 在模型文件损坏时会 panic
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("%w: 加载模型 %q 时发生异常: %v", ErrModelUnavailable, modelDir, rec)
		}
	}()

	r = &ProseRecognizer{name: "prose-builtin"}
	if modelDir != "" {
		if _, statErr := os.Stat(modelDir); statErr != nil {
			return nil, fmt.Errorf("%w: 模型目录不可用 %s: %v", ErrModelUnavailable, modelDir, statErr)
		}
		r.model = prose.ModelFromDisk(modelDir)
		r.name = filepath.Base(modelDir)
	}

	if _, err := r.Entities(warmUpText); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return r, nil
}

// Name 模型名称
func (r *ProseRecognizer) Name() string {
	return r.name
}

// Entities 实现 Recognizer
func (r *ProseRecognizer) Entities(text string) (entities []Entity, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			entities = nil
			err = fmt.Errorf("prose 实体识别异常: %v", rec)
		}
	}()

	opts := []prose.DocOpt{prose.WithSegmentation(false)}
	if r.model != nil {
		opts = append(opts, prose.UsingModel(r.model))
	}

	doc, err := prose.NewDocument(text, opts...)
	if err != nil {
		return nil, fmt.Errorf("prose 文档构建失败: %w", err)
	}

	for _, ent := range doc.Entities() {
		entities = append(entities, Entity{Text: ent.Text, Label: ent.Label})
	}
	return entities, nil
}
