package model

import (
	"encoding/json"
	"fmt"
)

// Status 审批状态
type Status string

const (
	StatusPending   Status = "pending"   // 待审批
	StatusApproved  Status = "approved"  // 审批通过
	StatusRejected  Status = "rejected"  // 审批拒绝
	StatusWithdrawn Status = "withdrawn" // 已撤回
)

// Statuses 所有状态,按展示顺序
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusWithdrawn}

var statusLabels = map[Status]string{
	StatusPending:   "待审批",
	StatusApproved:  "审批通过",
	StatusRejected:  "审批拒绝",
	StatusWithdrawn: "已撤回",
}

var statusColors = map[Status]string{
	StatusPending:   "orange",
	StatusApproved:  "green",
	StatusRejected:  "red",
	StatusWithdrawn: "default",
}

// ParseStatus 解析状态字符串,空字符串表示未选择
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", nil
	}
	st := Status(s)
	if _, ok := statusLabels[st]; !ok {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Label 状态的中文展示名
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Color 状态标签颜色
func (s Status) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "default"
}

// CanTransition 只允许从 pending 流转到终态
func (s Status) CanTransition(to Status) bool {
	if s != StatusPending {
		return false
	}
	switch to {
	case StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// Role 用户角色
type Role string

const (
	RoleApplicant Role = "applicant" // 申请人
	RoleApprover  Role = "approver"  // 审批员
)

// ParseRole 解析角色,未知值回落为申请人
func ParseRole(s string) Role {
	if Role(s) == RoleApprover {
		return RoleApprover
	}
	return RoleApplicant
}

// Label 角色展示名
func (r Role) Label() string {
	if r == RoleApprover {
		return "审批员"
	}
	return "申请人"
}

// Toggle 切换角色
func (r Role) Toggle() Role {
	if r == RoleApprover {
		return RoleApplicant
	}
	return RoleApprover
}

// Placeholder 时间等字段未设置时的占位符
const Placeholder = "--"

// Attachment 非图片附件
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ApprovalRecord 审批单
type ApprovalRecord struct {
	ID          string       `json:"id"`
	ProjectName string       `json:"projectName"`
	Content     string       `json:"content"`
	Department  []string     `json:"department"`
	ExecuteDate string       `json:"executeDate"`
	Status      Status       `json:"status"`
	CreateTime  string       `json:"createTime"`
	UpdateTime  string       `json:"updateTime"`
	Images      []string     `json:"images,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Raw 后端返回的原始 JSON,动态字段从这里读取
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON 保留原始文档
func (r *ApprovalRecord) UnmarshalJSON(data []byte) error {
	type plain ApprovalRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ApprovalRecord(p)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// IsPending 是否待审批
func (r *ApprovalRecord) IsPending() bool {
	return r.Status == StatusPending
}

// Payload 提交给后端的审批单部分字段
type Payload map[string]interface{}
