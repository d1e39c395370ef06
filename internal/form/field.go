package form

import (
	"github.com/xjj0211/approval-frontend/internal/i18n"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// Field 已构建的表单字段
type Field struct {
	Schema   model.FieldSchema
	Widget   Widget
	Rules    []Rule
	Fallback bool // 组件名无法识别,已回落为单行文本
}

// Key 字段名
func (f Field) Key() string { return f.Schema.Field }

// Label 展示名
func (f Field) Label() string { return f.Schema.Name }

// Required 是否必填
func (f Field) Required() bool { return f.Schema.Required() }

// MaxLength 输入框 maxlength 属性,仅文本组件有效
func (f Field) MaxLength() int {
	switch f.Widget.(type) {
	case TextInput, TextArea:
		return f.Schema.MaxCount()
	}
	return 0
}

// Build 按字段结构构建表单字段,字段名为空或重复的条目被跳过
func Build(schema []model.FieldSchema, tree *model.DepartmentTree, tr i18n.Translator) []Field {
	fields := make([]Field, 0, len(schema))
	seen := make(map[string]bool, len(schema))
	for _, s := range schema {
		if s.Field == "" || seen[s.Field] {
			continue
		}
		seen[s.Field] = true
		w, fallback := WidgetFor(s.Component, tree)
		fields = append(fields, Field{
			Schema:   s,
			Widget:   w,
			Rules:    DeriveRules(s, w, tr),
			Fallback: fallback,
		})
	}
	return fields
}
