package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// ListQuery 列表查询参数,空值不发送
type ListQuery struct {
	Current         int
	PageSize        int
	ProjectName     string
	Status          model.Status
	Department      string // 叶子部门 ID
	StartTime       string // YYYY-MM-DD HH:mm:ss
	EndTime         string
	UpdateStartTime string
	UpdateEndTime   string
}

// Values 编码为查询参数
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Current > 0 {
		v.Set("current", strconv.Itoa(q.Current))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("projectName", q.ProjectName)
	set("status", string(q.Status))
	set("department", q.Department)
	set("startTime", q.StartTime)
	set("endTime", q.EndTime)
	set("updateStartTime", q.UpdateStartTime)
	set("updateEndTime", q.UpdateEndTime)
	return v
}

// ListResult 列表结果
type ListResult struct {
	Data  []model.ApprovalRecord
	Total int
}

// List 查询审批单列表
func (c *Client) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	data, err := c.do(ctx, "list", http.MethodGet, "/approvals", q.Values(), nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("list: invalid JSON response")
	}

	res := &ListResult{}
	rows := gjson.GetBytes(data, "data")
	if rows.Exists() && rows.IsArray() {
		if err := json.Unmarshal([]byte(rows.Raw), &res.Data); err != nil {
			return nil, fmt.Errorf("list: failed to decode rows: %w", err)
		}
	}
	if total := gjson.GetBytes(data, "total"); total.Exists() {
		res.Total = int(total.Int())
	} else {
		res.Total = len(res.Data)
	}
	return res, nil
}

// Detail 获取审批单详情
func (c *Client) Detail(ctx context.Context, id string) (*model.ApprovalRecord, error) {
	data, err := c.do(ctx, "detail", http.MethodGet, "/approvals/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var rec model.ApprovalRecord
	if err := json.Unmarshal(unwrapData(data), &rec); err != nil {
		return nil, fmt.Errorf("detail: failed to decode record: %w", err)
	}
	return &rec, nil
}

// Create 新建审批单
func (c *Client) Create(ctx context.Context, p model.Payload) error {
	_, err := c.do(ctx, "create", http.MethodPost, "/approvals", nil, p)
	return err
}

// Update 修改审批单
func (c *Client) Update(ctx context.Context, id string, p model.Payload) error {
	_, err := c.do(ctx, "update", http.MethodPatch, "/approvals/"+url.PathEscape(id), nil, p)
	return err
}

// Pass 审批通过
func (c *Client) Pass(ctx context.Context, id string) error {
	return c.transition(ctx, "pass", id)
}

// Reject 审批拒绝
func (c *Client) Reject(ctx context.Context, id string) error {
	return c.transition(ctx, "reject", id)
}

// Withdraw 撤回
func (c *Client) Withdraw(ctx context.Context, id string) error {
	return c.transition(ctx, "withdraw", id)
}

func (c *Client) transition(ctx context.Context, action, id string) error {
	_, err := c.do(ctx, action, http.MethodPost, "/approvals/"+url.PathEscape(id)+"/"+action, nil, nil)
	return err
}

// Schema 获取动态表单结构,兼容 {data: [...]} 与裸数组
func (c *Client) Schema(ctx context.Context) ([]model.FieldSchema, error) {
	data, err := c.do(ctx, "schema", http.MethodGet, "/approvals/schema", nil, nil)
	if err != nil {
		return nil, err
	}
	body := unwrapData(data)
	if !gjson.ParseBytes(body).IsArray() {
		return nil, fmt.Errorf("schema: unexpected response shape")
	}
	var fields []model.FieldSchema
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("schema: failed to decode fields: %w", err)
	}
	return fields, nil
}
