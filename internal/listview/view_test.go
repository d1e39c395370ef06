package listview_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xjj0211/approval-frontend/internal/client"
	"github.com/xjj0211/approval-frontend/internal/listview"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// fakeBackend 可控的列表后端
type fakeBackend struct {
	mu      sync.Mutex
	queries []client.ListQuery
	rows    []model.ApprovalRecord
	gates   map[int]chan struct{} // 第 n 次查询等待放行
	listErr error
	passErr error
	passed  []string
	rejects []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rows: []model.ApprovalRecord{
			{ID: "1", ProjectName: "采购高性能服务器", Status: model.StatusPending, Department: []string{"tech", "fe", "infra"}},
			{ID: "2", ProjectName: "年度团建申请", Status: model.StatusApproved, Department: []string{"hr", "rec"}},
			{ID: "3", ProjectName: "招聘预算", Status: model.StatusPending, Department: []string{"hr", "rec"}},
		},
		gates: map[int]chan struct{}{},
	}
}

func (b *fakeBackend) List(ctx context.Context, q client.ListQuery) (*client.ListResult, error) {
	b.mu.Lock()
	b.queries = append(b.queries, q)
	n := len(b.queries)
	gate := b.gates[n]
	err := b.listErr
	var out []model.ApprovalRecord
	for _, r := range b.rows {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		out = append(out, r)
	}
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &client.ListResult{Data: out, Total: len(out)}, nil
}

func (b *fakeBackend) Pass(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.passErr != nil {
		return b.passErr
	}
	b.passed = append(b.passed, id)
	for i := range b.rows {
		if b.rows[i].ID == id {
			b.rows[i].Status = model.StatusApproved
		}
	}
	return nil
}

func (b *fakeBackend) Reject(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejects = append(b.rejects, id)
	return nil
}

func (b *fakeBackend) hold(n int) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.gates[n] = ch
	return ch
}

func (b *fakeBackend) queryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queries)
}

func (b *fakeBackend) lastQuery() client.ListQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1]
}

// TestFilter_NotAutoApplied 修改筛选条件不会触发查询
func TestFilter_NotAutoApplied(t *testing.T) {
	b := newFakeBackend()
	v := listview.New(b, 10, nil)
	require.NoError(t, v.Refresh(context.Background()))

	v.SetFilter(listview.Filter{Status: model.StatusPending})
	assert.Equal(t, 1, b.queryCount())
	assert.Len(t, v.Snapshot().Rows, 3)

	require.NoError(t, v.Search(context.Background()))
	assert.Equal(t, model.StatusPending, b.lastQuery().Status)
	assert.Len(t, v.Snapshot().Rows, 2)
	assert.Equal(t, model.StatusPending, v.Snapshot().Applied.Status)
}

// TestChangePage_UsesAppliedFilter 翻页使用已应用的条件而不是草稿
func TestChangePage_UsesAppliedFilter(t *testing.T) {
	b := newFakeBackend()
	v := listview.New(b, 10, nil)
	v.SetFilter(listview.Filter{Status: model.StatusPending})
	require.NoError(t, v.Search(context.Background()))

	v.SetFilter(listview.Filter{Status: model.StatusRejected})
	require.NoError(t, v.ChangePage(context.Background(), 2, 20))
	q := b.lastQuery()
	assert.Equal(t, model.StatusPending, q.Status)
	assert.Equal(t, 2, q.Current)
	assert.Equal(t, 20, q.PageSize)
	assert.Equal(t, model.StatusRejected, v.Snapshot().Draft.Status)
}

// TestReset_KeepsRowsUntilResolved 重置前的页面保持显示,直到重置查询返回
func TestReset_KeepsRowsUntilResolved(t *testing.T) {
	b := newFakeBackend()
	v := listview.New(b, 10, nil)
	v.SetFilter(listview.Filter{Status: model.StatusPending, ProjectName: "采购"})
	require.NoError(t, v.ChangePage(context.Background(), 1, 10))
	require.NoError(t, v.Search(context.Background()))
	require.NoError(t, v.ChangePage(context.Background(), 3, 5))
	before := v.Snapshot()
	require.Len(t, before.Rows, 2)

	gate := b.hold(4)
	done := make(chan error, 1)
	go func() { done <- v.Reset(context.Background()) }()

	require.Eventually(t, v.Loading, time.Second, 5*time.Millisecond)
	during := v.Snapshot()
	assert.Equal(t, before.Rows, during.Rows)
	assert.True(t, during.Draft.IsZero())

	q := b.lastQuery()
	assert.Equal(t, client.ListQuery{Current: 1, PageSize: 10}, q)

	close(gate)
	require.NoError(t, <-done)
	after := v.Snapshot()
	assert.Len(t, after.Rows, 3)
	assert.Equal(t, 1, after.Page)
	assert.True(t, after.Applied.IsZero())
	assert.False(t, after.Loading)
}

// TestReset_FailureClearsAppliedFilter 重置查询失败后翻页不再携带旧条件
func TestReset_FailureClearsAppliedFilter(t *testing.T) {
	b := newFakeBackend()
	v := listview.New(b, 10, nil)
	v.SetFilter(listview.Filter{Status: model.StatusPending})
	require.NoError(t, v.Search(context.Background()))
	require.Equal(t, model.StatusPending, v.Snapshot().Applied.Status)

	b.mu.Lock()
	b.listErr = errors.New("backend down")
	b.mu.Unlock()
	require.Error(t, v.Reset(context.Background()))
	snap := v.Snapshot()
	assert.True(t, snap.Draft.IsZero())
	assert.True(t, snap.Applied.IsZero())

	b.mu.Lock()
	b.listErr = nil
	b.mu.Unlock()
	require.NoError(t, v.ChangePage(context.Background(), 1, 10))
	q := b.lastQuery()
	assert.Equal(t, model.Status(""), q.Status)
	assert.Len(t, v.Snapshot().Rows, 3)
}

// TestFetch_DiscardsStaleResponse 较早请求的响应晚到时被丢弃
func TestFetch_DiscardsStaleResponse(t *testing.T) {
	b := newFakeBackend()
	v := listview.New(b, 10, nil)

	gate := b.hold(1)
	slow := make(chan error, 1)
	go func() { slow <- v.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return b.queryCount() == 1 }, time.Second, 5*time.Millisecond)

	v.SetFilter(listview.Filter{Status: model.StatusApproved})
	require.NoError(t, v.Search(context.Background()))
	assert.Len(t, v.Snapshot().Rows, 1)

	close(gate)
	assert.ErrorIs(t, <-slow, listview.ErrStale)
	snap := v.Snapshot()
	assert.Len(t, snap.Rows, 1)
	assert.Equal(t, model.StatusApproved, snap.Applied.Status)
}

// TestFetch_ErrorKeepsRows 查询失败时保留已有数据
func TestFetch_ErrorKeepsRows(t *testing.T) {
	b := newFakeBackend()
	v := listview.New(b, 10, nil)
	require.NoError(t, v.Refresh(context.Background()))

	b.listErr = errors.New("backend down")
	require.Error(t, v.Search(context.Background()))
	snap := v.Snapshot()
	assert.Len(t, snap.Rows, 3)
	assert.Error(t, snap.Err)
}

// TestRoleGates 非待审批状态不提供修改与审批
func TestRoleGates(t *testing.T) {
	for _, st := range model.Statuses {
		rec := &model.ApprovalRecord{ID: "x", Status: st}
		pending := st == model.StatusPending
		assert.Equal(t, pending, listview.CanEdit(model.RoleApplicant, rec), st)
		assert.Equal(t, pending, listview.CanDecide(model.RoleApprover, rec), st)
		assert.False(t, listview.CanEdit(model.RoleApprover, rec), st)
		assert.False(t, listview.CanDecide(model.RoleApplicant, rec), st)
	}
	assert.True(t, listview.CanCreate(model.RoleApplicant))
	assert.False(t, listview.CanCreate(model.RoleApprover))
}

// TestDetailAndApprove 打开详情不请求后端,审批后关闭详情并刷新
func TestDetailAndApprove(t *testing.T) {
	b := newFakeBackend()
	v := listview.New(b, 10, nil)
	require.NoError(t, v.Refresh(context.Background()))

	rec, err := v.OpenDetail("1")
	require.NoError(t, err)
	assert.Equal(t, "采购高性能服务器", rec.ProjectName)
	assert.Equal(t, 1, b.queryCount())
	_, err = v.OpenDetail("404")
	assert.ErrorIs(t, err, listview.ErrNoDetail)

	assert.ErrorIs(t, v.Approve(context.Background(), model.RoleApplicant, "1"), listview.ErrForbidden)
	assert.ErrorIs(t, v.Approve(context.Background(), model.RoleApprover, "2"), listview.ErrForbidden)

	require.NoError(t, v.Approve(context.Background(), model.RoleApprover, "1"))
	assert.Equal(t, []string{"1"}, b.passed)
	assert.Equal(t, 2, b.queryCount())
	snap := v.Snapshot()
	assert.Nil(t, snap.Detail)
	assert.Equal(t, model.StatusApproved, snap.Rows[0].Status)

	require.NoError(t, v.Reject(context.Background(), model.RoleApprover, "3"))
	assert.Equal(t, []string{"3"}, b.rejects)
}

// TestApprove_FailureKeepsPanel 审批失败时详情保持打开
func TestApprove_FailureKeepsPanel(t *testing.T) {
	b := newFakeBackend()
	v := listview.New(b, 10, nil)
	require.NoError(t, v.Refresh(context.Background()))
	_, err := v.OpenDetail("1")
	require.NoError(t, err)

	b.passErr = errors.New("conflict")
	require.Error(t, v.Approve(context.Background(), model.RoleApprover, "1"))
	snap := v.Snapshot()
	require.NotNil(t, snap.Detail)
	assert.Equal(t, "1", snap.Detail.ID)
	assert.Equal(t, 1, b.queryCount())
}

// TestFilter_Query 部门只发送叶子,时间范围补齐时分秒
func TestFilter_Query(t *testing.T) {
	f, err := listview.ParseFilter(url.Values{
		listview.FieldProjectName: {" 采购 "},
		listview.FieldStatus:      {"pending"},
		listview.FieldDepartment:  {"tech/fe/infra"},
		listview.FieldCreateStart: {"2025-11-01"},
		listview.FieldCreateEnd:   {"2025-11-30"},
		listview.FieldUpdateEnd:   {"2025-12-01"},
	})
	require.NoError(t, err)

	q := f.Query(2, 10)
	assert.Equal(t, "采购", q.ProjectName)
	assert.Equal(t, model.StatusPending, q.Status)
	assert.Equal(t, "infra", q.Department)
	assert.Equal(t, "2025-11-01 00:00:00", q.StartTime)
	assert.Equal(t, "2025-11-30 23:59:59", q.EndTime)
	assert.Empty(t, q.UpdateStartTime)
	assert.Equal(t, "2025-12-01 23:59:59", q.UpdateEndTime)
	assert.Equal(t, "tech/fe/infra", f.DepartmentValue())

	_, err = listview.ParseFilter(url.Values{listview.FieldStatus: {"done"}})
	assert.Error(t, err)
	_, err = listview.ParseFilter(url.Values{
		listview.FieldCreateStart: {"2025-11-30"},
		listview.FieldCreateEnd:   {"2025-11-01"},
	})
	assert.Error(t, err)
}
