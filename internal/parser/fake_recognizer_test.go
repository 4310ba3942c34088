package parser

import (
	"sort"
	"strings"

	"resume-parser/internal/ner"
)

// fakeRecognizer 按关键词查找实体，按在文本中出现的位置排序
type fakeRecognizer struct {
	known map[string]string // 文本 -> 标签
	calls []string
	err   error
}

func newFakeRecognizer(pairs ...string) *fakeRecognizer {
	known := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		known[pairs[i]] = pairs[i+1]
	}
	return &fakeRecognizer{known: known}
}

func (f *fakeRecognizer) Entities(text string) ([]ner.Entity, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}

	type hit struct {
		pos    int
		entity ner.Entity
	}
	var hits []hit
	for word, label := range f.known {
		if pos := strings.Index(text, word); pos >= 0 {
			hits = append(hits, hit{pos: pos, entity: ner.Entity{Text: word, Label: label}})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]ner.Entity, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.entity)
	}
	return out, nil
}
