package listview

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/xjj0211/approval-frontend/internal/client"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// 时间范围的起止时刻
const (
	dayStart = " 00:00:00"
	dayEnd   = " 23:59:59"
)

// DateRange 日期范围,零值表示该端未设置
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero 是否未设置
func (r DateRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Bounds 转换为 YYYY-MM-DD HH:mm:ss,起始为当天 00:00:00,结束为当天 23:59:59
func (r DateRange) Bounds() (start, end string) {
	if !r.From.IsZero() {
		start = r.From.Format(model.DateLayout) + dayStart
	}
	if !r.To.IsZero() {
		end = r.To.Format(model.DateLayout) + dayEnd
	}
	return start, end
}

// FromInput HTML 日期输入框的起始值
func (r DateRange) FromInput() string { return formatDate(r.From) }

// ToInput HTML 日期输入框的结束值
func (r DateRange) ToInput() string { return formatDate(r.To) }

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

// Filter 列表筛选条件
type Filter struct {
	ProjectName string
	Status      model.Status
	Department  []string // 完整路径,查询时只发送叶子节点
	Created     DateRange
	Updated     DateRange
}

// IsZero 是否为空筛选
func (f Filter) IsZero() bool {
	return f.ProjectName == "" && f.Status == "" && len(f.Department) == 0 &&
		f.Created.IsZero() && f.Updated.IsZero()
}

// DepartmentValue 部门路径的表单值
func (f Filter) DepartmentValue() string {
	return model.EncodeDepartmentPath(f.Department)
}

// Query 组装列表查询参数
func (f Filter) Query(page, size int) client.ListQuery {
	q := client.ListQuery{
		Current:     page,
		PageSize:    size,
		ProjectName: f.ProjectName,
		Status:      f.Status,
		Department:  model.DepartmentLeaf(f.Department),
	}
	q.StartTime, q.EndTime = f.Created.Bounds()
	q.UpdateStartTime, q.UpdateEndTime = f.Updated.Bounds()
	return q
}

// 筛选表单字段名
const (
	FieldProjectName = "projectName"
	FieldStatus      = "status"
	FieldDepartment  = "department"
	FieldCreateStart = "createStart"
	FieldCreateEnd   = "createEnd"
	FieldUpdateStart = "updateStart"
	FieldUpdateEnd   = "updateEnd"
)

// ParseFilter 解析筛选表单
func ParseFilter(values url.Values) (Filter, error) {
	var f Filter
	var err error

	f.ProjectName = strings.TrimSpace(values.Get(FieldProjectName))
	if f.Status, err = model.ParseStatus(values.Get(FieldStatus)); err != nil {
		return Filter{}, err
	}
	f.Department = model.DecodeDepartmentPath(values.Get(FieldDepartment))

	dates := []struct {
		key string
		dst *time.Time
	}{
		{FieldCreateStart, &f.Created.From},
		{FieldCreateEnd, &f.Created.To},
		{FieldUpdateStart, &f.Updated.From},
		{FieldUpdateEnd, &f.Updated.To},
	}
	for _, d := range dates {
		raw := strings.TrimSpace(values.Get(d.key))
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation(model.DateLayout, raw, time.Local)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = t
	}
	if !f.Created.From.IsZero() && !f.Created.To.IsZero() && f.Created.To.Before(f.Created.From) {
		return Filter{}, fmt.Errorf("created range end is before start")
	}
	if !f.Updated.From.IsZero() && !f.Updated.To.IsZero() && f.Updated.To.Before(f.Updated.From) {
		return Filter{}, fmt.Errorf("updated range end is before start")
	}
	return f, nil
}
