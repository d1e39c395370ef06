package model

import (
	"encoding/json"
	"errors"
	"time"
)

// TimeLayout 后端时间戳格式
const TimeLayout = "2006-01-02 15:04:05"

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// ApprovalModel 审批单数据模型(模拟后端使用)
type ApprovalModel struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)"`
	ProjectName string     `gorm:"type:varchar(255);not null;index"`
	Content     string     `gorm:"type:text;not null"`
	Department  string     `gorm:"type:text"` // JSON 数组
	ExecuteDate string     `gorm:"type:varchar(10)"`
	Status      string     `gorm:"type:varchar(32);not null;index"`
	Extra       string     `gorm:"type:text"` // 动态字段 JSON 对象
	Images      string     `gorm:"type:text"` // JSON 数组
	Attachments string     `gorm:"type:text"` // JSON 数组
	CreatedAt   time.Time  `gorm:"not null;index"`
	DecidedAt   *time.Time `gorm:"index"` // 审批时间,未审批为 NULL
}

// TableName 指定表名
func (ApprovalModel) TableName() string {
	return "approvals"
}

// Validate 验证审批单模型
func (m *ApprovalModel) Validate() error {
	if m.ID == "" {
		return errors.New("approval ID is required")
	}
	if m.ProjectName == "" {
		return errors.New("project name is required")
	}
	if m.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

// ToRecord 转换为接口返回的审批单
func (m *ApprovalModel) ToRecord() (*ApprovalRecord, error) {
	rec := &ApprovalRecord{
		ID:          m.ID,
		ProjectName: m.ProjectName,
		Content:     m.Content,
		ExecuteDate: m.ExecuteDate,
		Status:      Status(m.Status),
		CreateTime:  m.CreatedAt.Format(TimeLayout),
		UpdateTime:  Placeholder,
	}
	if m.DecidedAt != nil {
		rec.UpdateTime = m.DecidedAt.Format(TimeLayout)
	}
	if err := unmarshalColumn(m.Department, &rec.Department); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(m.Images, &rec.Images); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(m.Attachments, &rec.Attachments); err != nil {
		return nil, err
	}

	doc := map[string]interface{}{}
	if err := unmarshalColumn(m.Extra, &doc); err != nil {
		return nil, err
	}
	typed, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(typed, &doc); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	rec.Raw = raw
	return rec, nil
}

// ApplyPayload 将提交的字段写入模型,未知字段保存到 Extra
func (m *ApprovalModel) ApplyPayload(p Payload) error {
	extra := map[string]interface{}{}
	if err := unmarshalColumn(m.Extra, &extra); err != nil {
		return err
	}
	for key, value := range p {
		switch key {
		case "id", "status", "createTime", "updateTime":
			// 只读字段
		case "projectName":
			m.ProjectName = stringOf(value)
		case "content":
			m.Content = stringOf(value)
		case "executeDate":
			m.ExecuteDate = stringOf(value)
		case "department":
			col, err := marshalColumn(value)
			if err != nil {
				return err
			}
			m.Department = col
		case "images":
			col, err := marshalColumn(value)
			if err != nil {
				return err
			}
			m.Images = col
		case "attachments":
			col, err := marshalColumn(value)
			if err != nil {
				return err
			}
			m.Attachments = col
		default:
			extra[key] = value
		}
	}
	col, err := marshalColumn(extra)
	if err != nil {
		return err
	}
	m.Extra = col
	return nil
}

func stringOf(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func marshalColumn(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalColumn(col string, out interface{}) error {
	if col == "" || col == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col), out)
}
