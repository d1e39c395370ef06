package form

import (
	"time"

	"github.com/xjj0211/approval-frontend/internal/model"
)

// Value 表单字段取值
type Value interface {
	IsEmpty() bool
}

// TextValue 文本取值
type TextValue string

// IsEmpty 空白即为空
func (v TextValue) IsEmpty() bool { return v == "" }

// PathValue 部门路径取值
type PathValue []string

// IsEmpty 未选择部门
func (v PathValue) IsEmpty() bool { return len(v) == 0 }

// DateValue 日历日期,只保留年月日
type DateValue struct {
	t time.Time
}

// NewDate 创建日期取值
func NewDate(year int, month time.Month, day int) DateValue {
	return DateValue{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// IsZero 是否未设置
func (d DateValue) IsZero() bool { return d.t.IsZero() }

// IsEmpty 未选择日期
func (d DateValue) IsEmpty() bool { return d.IsZero() }

// Time 返回当天零点
func (d DateValue) Time() time.Time { return d.t }

// String 格式化为 YYYY-MM-DD,未设置时为空字符串
func (d DateValue) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(model.DateLayout)
}

// Draft 表单草稿,按字段名保存取值
type Draft struct {
	values map[string]Value
}

// NewDraft 创建空草稿
func NewDraft() *Draft {
	return &Draft{values: make(map[string]Value)}
}

// Get 读取字段取值,没有时返回 nil
func (d *Draft) Get(field string) Value {
	return d.values[field]
}

// Set 写入字段取值
func (d *Draft) Set(field string, v Value) {
	d.values[field] = v
}

// Clone 复制草稿
func (d *Draft) Clone() *Draft {
	c := NewDraft()
	for k, v := range d.values {
		if p, ok := v.(PathValue); ok {
			v = append(PathValue(nil), p...)
		}
		c.values[k] = v
	}
	return c
}
