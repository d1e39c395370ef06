// Package form 根据后端下发的字段结构构建动态表单,负责取值绑定、校验、附件暂存与提交
package form

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// Widget 字段渲染组件,只有本包内定义的几种实现
type Widget interface {
	// Kind 模板中使用的组件名
	Kind() string
	// Zero 未填写时的取值
	Zero() Value
	// Parse 解析 HTML 表单提交的原始字符串
	Parse(raw string) (Value, error)
	// Input 渲染到 HTML 输入框的字符串
	Input(v Value) string
	// Decode 从后端记录中读取取值
	Decode(r gjson.Result) Value
	// Encode 序列化为提交给后端的取值,ok 为 false 时不写入载荷
	Encode(v Value) (interface{}, bool)
	// Count maxCount 规则计量的长度,不适用时返回 -1
	Count(v Value) int

	sealed()
}

// TextInput 单行文本
type TextInput struct{}

// TextArea 多行文本
type TextArea struct{}

// DepartmentSelect 部门级联选择
type DepartmentSelect struct {
	Tree *model.DepartmentTree
}

// DatePicker 日期选择
type DatePicker struct{}

// WidgetFor 按组件名选择渲染组件,无法识别的组件回落为单行文本,fallback 为 true
func WidgetFor(component string, tree *model.DepartmentTree) (w Widget, fallback bool) {
	switch component {
	case model.ComponentInput:
		return TextInput{}, false
	case model.ComponentTextarea:
		return TextArea{}, false
	case model.ComponentDepartmentSelect:
		return DepartmentSelect{Tree: tree}, false
	case model.ComponentDatePicker:
		return DatePicker{}, false
	default:
		return TextInput{}, true
	}
}

func (TextInput) sealed()        {}
func (TextArea) sealed()         {}
func (DepartmentSelect) sealed() {}
func (DatePicker) sealed()       {}

func (TextInput) Kind() string        { return "text" }
func (TextArea) Kind() string         { return "textarea" }
func (DepartmentSelect) Kind() string { return "department" }
func (DatePicker) Kind() string       { return "date" }

// 文本组件

func (TextInput) Zero() Value { return TextValue("") }
func (TextArea) Zero() Value  { return TextValue("") }

func (TextInput) Parse(raw string) (Value, error) { return TextValue(strings.TrimSpace(raw)), nil }

// Parse 多行文本保留内部换行
func (TextArea) Parse(raw string) (Value, error) {
	return TextValue(strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))), nil
}

func (TextInput) Input(v Value) string { return textOf(v) }
func (TextArea) Input(v Value) string  { return textOf(v) }

func (TextInput) Decode(r gjson.Result) Value { return decodeText(r) }
func (TextArea) Decode(r gjson.Result) Value  { return decodeText(r) }

func (TextInput) Encode(v Value) (interface{}, bool) { return textOf(v), true }
func (TextArea) Encode(v Value) (interface{}, bool)  { return textOf(v), true }

func (TextInput) Count(v Value) int { return utf8.RuneCountInString(textOf(v)) }
func (TextArea) Count(v Value) int  { return utf8.RuneCountInString(textOf(v)) }

func textOf(v Value) string {
	if t, ok := v.(TextValue); ok {
		return string(t)
	}
	return ""
}

func decodeText(r gjson.Result) Value {
	if !r.Exists() || r.Type == gjson.Null {
		return TextValue("")
	}
	if r.IsArray() || r.IsObject() {
		return TextValue(r.Raw)
	}
	return TextValue(r.String())
}

// 部门组件

func (DepartmentSelect) Zero() Value { return PathValue(nil) }

// Parse 解析 tech/fe/infra 形式的路径,路径必须存在于部门树中
func (d DepartmentSelect) Parse(raw string) (Value, error) {
	path := model.DecodeDepartmentPath(raw)
	if len(path) == 0 {
		return PathValue(nil), nil
	}
	if d.Tree != nil && !d.Tree.Contains(path) {
		return PathValue(nil), fmt.Errorf("unknown department path %q", raw)
	}
	return PathValue(path), nil
}

func (DepartmentSelect) Input(v Value) string {
	return model.EncodeDepartmentPath(pathOf(v))
}

func (DepartmentSelect) Decode(r gjson.Result) Value {
	if !r.IsArray() {
		return PathValue(nil)
	}
	var path []string
	for _, seg := range r.Array() {
		path = append(path, seg.String())
	}
	return PathValue(path)
}

func (DepartmentSelect) Encode(v Value) (interface{}, bool) {
	path := pathOf(v)
	if path == nil {
		path = []string{}
	}
	return path, true
}

func (DepartmentSelect) Count(v Value) int { return len(pathOf(v)) }

// Label 展示用的部门名称
func (d DepartmentSelect) Label(v Value) string {
	if d.Tree == nil {
		return model.EncodeDepartmentPath(pathOf(v))
	}
	return d.Tree.Label(pathOf(v))
}

// Options 表单只允许选择叶子部门。
// 当前取值不在叶子选项中时(后端存储的非叶子或未知路径)追加为额外选项,
// 保证不修改直接提交时路径原样回传。
func (d DepartmentSelect) Options(current Value) []model.DepartmentOption {
	var opts []model.DepartmentOption
	if d.Tree != nil {
		opts = d.Tree.Options(true)
	}
	path := pathOf(current)
	if len(path) == 0 {
		return opts
	}
	value := model.EncodeDepartmentPath(path)
	for _, o := range opts {
		if o.Value == value {
			return opts
		}
	}
	label := d.Label(current)
	if label == model.Placeholder {
		label = value
	}
	return append(opts, model.DepartmentOption{Path: path, Value: value, Label: label})
}

func pathOf(v Value) []string {
	if p, ok := v.(PathValue); ok {
		return []string(p)
	}
	return nil
}

// 日期组件

func (DatePicker) Zero() Value { return DateValue{} }

func (DatePicker) Parse(raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DateValue{}, nil
	}
	return ParseDate(raw)
}

func (DatePicker) Input(v Value) string { return dateOf(v).String() }

// Decode 兼容 YYYY-MM-DD 与带时间的时间戳
func (DatePicker) Decode(r gjson.Result) Value {
	s := strings.TrimSpace(r.String())
	if len(s) >= len(model.DateLayout) {
		if d, err := ParseDate(s[:len(model.DateLayout)]); err == nil {
			return d
		}
	}
	return DateValue{}
}

// Encode 未选择的日期不写入载荷
func (DatePicker) Encode(v Value) (interface{}, bool) {
	d := dateOf(v)
	if d.IsZero() {
		return nil, false
	}
	return d.String(), true
}

func (DatePicker) Count(Value) int { return -1 }

func dateOf(v Value) DateValue {
	if d, ok := v.(DateValue); ok {
		return d
	}
	return DateValue{}
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (DateValue, error) {
	t, err := time.ParseInLocation(model.DateLayout, s, time.UTC)
	if err != nil {
		return DateValue{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateValue{t: t}, nil
}
