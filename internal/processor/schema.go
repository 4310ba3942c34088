package processor

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/resume_document.schema.json
var resumeDocumentSchema string

// SchemaValidator 用 JSON Schema 校验输出文档
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

var (
	defaultSchemaOnce sync.Once
	defaultSchema     *SchemaValidator
)

// DefaultSchemaValidator 返回基于内置 schema 的校验器
// 内置 schema 编译失败属于程序错误，直接 panic
func DefaultSchemaValidator() *SchemaValidator {
	defaultSchemaOnce.Do(func() {
		v, err := NewSchemaValidator(resumeDocumentSchema)
		if err != nil {
			panic(fmt.Sprintf("内置文档 schema 无效: %v", err))
		}
		defaultSchema = v
	})
	return defaultSchema
}

// NewSchemaValidator 编译一个 schema
func NewSchemaValidator(schemaJSON string) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("编译 JSON Schema 失败: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate 校验一份 JSON 文档，返回所有违规字段拼接的错误
func (v *SchemaValidator) Validate(docJSON []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(docJSON))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(problems, "; "))
}
