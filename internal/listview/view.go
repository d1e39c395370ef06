// Package listview 审批单列表:筛选条件、分页、请求序号、详情与审批操作
package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xjj0211/approval-frontend/internal/client"
	"github.com/xjj0211/approval-frontend/internal/metrics"
	"github.com/xjj0211/approval-frontend/internal/model"
)

var (
	// ErrStale 响应对应的请求已被更新的请求取代
	ErrStale = errors.New("stale list response discarded")
	// ErrNoDetail 当前页中没有该审批单
	ErrNoDetail = errors.New("approval not in current page")
	// ErrForbidden 当前角色不允许该操作
	ErrForbidden = errors.New("action not allowed for role")
)

// DefaultPageSize 默认每页条数
const DefaultPageSize = 10

// MaxPageSize 每页条数上限
const MaxPageSize = 100

// Snapshot 渲染用的列表状态快照
type Snapshot struct {
	Rows     []model.ApprovalRecord
	Total    int
	Page     int
	PageSize int
	Draft    Filter
	Applied  Filter
	Loading  bool
	Detail   *model.ApprovalRecord
	Err      error
}

// Pages 总页数
func (s Snapshot) Pages() int {
	if s.PageSize <= 0 || s.Total <= 0 {
		return 1
	}
	return (s.Total + s.PageSize - 1) / s.PageSize
}

// View 一个浏览器会话的列表视图
type View struct {
	backend  client.ListBackend
	pageSize int
	logger   logrus.FieldLogger

	mu       sync.Mutex
	draft    Filter
	applied  Filter
	page     int
	size     int
	rows     []model.ApprovalRecord
	total    int
	seq      uint64
	inflight int
	detailID string
	lastErr  error
}

// New 创建列表视图
func New(backend client.ListBackend, pageSize int, logger logrus.FieldLogger) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &View{
		backend:  backend,
		pageSize: pageSize,
		logger:   logger,
		page:     1,
		size:     pageSize,
	}
}

// Snapshot 返回当前状态
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := Snapshot{
		Rows:     append([]model.ApprovalRecord(nil), v.rows...),
		Total:    v.total,
		Page:     v.page,
		PageSize: v.size,
		Draft:    v.draft,
		Applied:  v.applied,
		Loading:  v.inflight > 0,
		Err:      v.lastErr,
	}
	if rec, ok := v.findLocked(v.detailID); ok {
		s.Detail = &rec
	}
	return s
}

// Loading 是否有进行中的查询
func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inflight > 0
}

// SetFilter 修改筛选草稿,不触发查询
func (v *View) SetFilter(f Filter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = f
}

// Refresh 以已应用的筛选条件重新查询当前页
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	f, page, size := v.applied, v.page, v.size
	v.mu.Unlock()
	return v.fetch(ctx, f, page, size)
}

// Search 应用筛选草稿并查询第一页
func (v *View) Search(ctx context.Context) error {
	v.mu.Lock()
	f, size := v.draft, v.size
	v.mu.Unlock()
	return v.fetch(ctx, f, 1, size)
}

// Reset 清空筛选草稿与已应用条件,并以显式的默认参数查询,不读取旧状态。
// 查询失败时已应用条件仍保持清空,后续翻页不会带回旧条件。
func (v *View) Reset(ctx context.Context) error {
	v.mu.Lock()
	v.draft = Filter{}
	v.applied = Filter{}
	v.mu.Unlock()
	return v.fetch(ctx, Filter{}, 1, v.pageSize)
}

// ChangePage 翻页,立即以已应用的筛选条件查询
func (v *View) ChangePage(ctx context.Context, page, size int) error {
	v.mu.Lock()
	f := v.applied
	if size <= 0 {
		size = v.size
	}
	v.mu.Unlock()
	return v.fetch(ctx, f, page, size)
}

// fetch 发起查询,只有最新请求的响应会被应用
func (v *View) fetch(ctx context.Context, f Filter, page, size int) error {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = v.pageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	v.mu.Lock()
	v.seq++
	seq := v.seq
	v.inflight++
	v.mu.Unlock()

	res, err := v.backend.List(ctx, f.Query(page, size))

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inflight--
	if seq != v.seq {
		metrics.RecordStaleResponse()
		v.logger.WithFields(logrus.Fields{"seq": seq, "latest": v.seq}).Debug("discarding stale list response")
		return ErrStale
	}
	if err != nil {
		v.lastErr = err
		return fmt.Errorf("list approvals: %w", err)
	}
	v.lastErr = nil
	v.applied = f
	v.page = page
	v.size = size
	v.rows = res.Data
	v.total = res.Total
	if _, ok := v.findLocked(v.detailID); !ok {
		v.detailID = ""
	}
	return nil
}

func (v *View) findLocked(id string) (model.ApprovalRecord, bool) {
	if id == "" {
		return model.ApprovalRecord{}, false
	}
	for _, r := range v.rows {
		if r.ID == id {
			return r, true
		}
	}
	return model.ApprovalRecord{}, false
}

// OpenDetail 打开详情,直接使用已获取的行数据
func (v *View) OpenDetail(id string) (*model.ApprovalRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.findLocked(id)
	if !ok {
		return nil, ErrNoDetail
	}
	v.detailID = id
	return &rec, nil
}

// CloseDetail 关闭详情
func (v *View) CloseDetail() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.detailID = ""
}

// Approve 审批通过
func (v *View) Approve(ctx context.Context, role model.Role, id string) error {
	return v.decide(ctx, role, id, "pass", v.backend.Pass)
}

// Reject 审批拒绝
func (v *View) Reject(ctx context.Context, role model.Role, id string) error {
	return v.decide(ctx, role, id, "reject", v.backend.Reject)
}

// decide 调用审批接口,成功后关闭详情并刷新当前页;失败时详情保持打开
func (v *View) decide(ctx context.Context, role model.Role, id, action string, call func(context.Context, string) error) error {
	v.mu.Lock()
	rec, ok := v.findLocked(id)
	v.mu.Unlock()
	if !ok {
		return ErrNoDetail
	}
	if !CanDecide(role, &rec) {
		return ErrForbidden
	}

	logger := v.logger.WithFields(logrus.Fields{"id": id, "action": action})
	if err := call(ctx, id); err != nil {
		logger.WithError(err).Warn("approval action failed")
		return fmt.Errorf("%s approval %s: %w", action, id, err)
	}
	metrics.RecordApproval(action)
	logger.Info("approval action succeeded")

	// 审批已生效,刷新失败只记录在快照中
	v.CloseDetail()
	if err := v.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
		logger.WithError(err).Warn("refresh after approval action failed")
	}
	return nil
}
