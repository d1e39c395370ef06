package client

import (
	"context"

	"github.com/xjj0211/approval-frontend/internal/model"
)

// ListBackend 列表视图依赖的后端接口
type ListBackend interface {
	List(ctx context.Context, q ListQuery) (*ListResult, error)
	Pass(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
}

// FormBackend 表单依赖的后端接口
type FormBackend interface {
	Schema(ctx context.Context) ([]model.FieldSchema, error)
	Detail(ctx context.Context, id string) (*model.ApprovalRecord, error)
	Create(ctx context.Context, p model.Payload) error
	Update(ctx context.Context, id string, p model.Payload) error
}

var (
	_ ListBackend = (*Client)(nil)
	_ FormBackend = (*Client)(nil)
)

// Backend 页面服务依赖的完整后端接口
type Backend interface {
	ListBackend
	FormBackend
}

var _ Backend = (*Client)(nil)
