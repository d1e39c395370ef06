package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// 表单组件类型
const (
	ComponentInput            = "Input"
	ComponentTextarea         = "Textarea"
	ComponentDepartmentSelect = "DepartmentSelect"
	ComponentDatePicker       = "DateTimePicker"
)

// Validator 字段校验配置
type Validator struct {
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`
	MaxCount int  `json:"maxCount,omitempty" yaml:"maxCount,omitempty"`
}

// FieldSchema 后端下发的动态表单字段
type FieldSchema struct {
	Field     string     `json:"field" yaml:"field"`
	Name      string     `json:"name" yaml:"name"`
	Component string     `json:"component" yaml:"component"`
	Validator *Validator `json:"validator,omitempty" yaml:"validator,omitempty"`
}

// Required 是否必填
func (f FieldSchema) Required() bool {
	return f.Validator != nil && f.Validator.Required
}

// MaxCount 最大长度,0 表示不限制
func (f FieldSchema) MaxCount() int {
	if f.Validator == nil || f.Validator.MaxCount < 0 {
		return 0
	}
	return f.Validator.MaxCount
}

// DefaultSchema 默认表单结构
func DefaultSchema() []FieldSchema {
	return []FieldSchema{
		{Field: "projectName", Name: "审批项目", Component: ComponentInput, Validator: &Validator{Required: true, MaxCount: 20}},
		{Field: "content", Name: "审批内容", Component: ComponentTextarea, Validator: &Validator{Required: true, MaxCount: 300}},
		{Field: "department", Name: "申请部门", Component: ComponentDepartmentSelect, Validator: &Validator{Required: true}},
		{Field: "executeDate", Name: "执行日期", Component: ComponentDatePicker, Validator: &Validator{Required: true}},
	}
}

// LoadSchema 从 YAML 文件读取表单结构,path 为空时返回默认结构
func LoadSchema(path string) ([]FieldSchema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	var fields []FieldSchema
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	for i, f := range fields {
		if f.Field == "" || f.Component == "" {
			return nil, fmt.Errorf("schema field %d: field and component are required", i)
		}
	}
	return fields, nil
}
