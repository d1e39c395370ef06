package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/database"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/repository"
	"gorm.io/gorm"
)

// setupTestDB 创建带演示数据的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	n, err := database.Seed(db)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func mustTime(t *testing.T, s string) *time.Time {
	ts, err := time.ParseInLocation(model.TimeLayout, s, time.Local)
	require.NoError(t, err)
	return &ts
}

// TestApprovalRepository_FindByFilter 测试各过滤条件
func TestApprovalRepository_FindByFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRepository(db)
	ctx := context.Background()

	rows, total, err := repo.FindByFilter(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	// 按创建时间倒序
	assert.Equal(t, "1", rows[0].ID)

	rows, total, err = repo.FindByFilter(ctx, &repository.ApprovalFilter{ProjectName: "服务器"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "1", rows[0].ID)

	_, total, err = repo.FindByFilter(ctx, &repository.ApprovalFilter{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// 部门匹配路径中的任意一级
	rows, total, err = repo.FindByFilter(ctx, &repository.ApprovalFilter{Department: "fe"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "1", rows[0].ID)

	_, total, err = repo.FindByFilter(ctx, &repository.ApprovalFilter{Department: "be"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	rows, total, err = repo.FindByFilter(ctx, &repository.ApprovalFilter{
		StartTime: mustTime(t, "2025-11-15 00:00:00"),
		EndTime:   mustTime(t, "2025-11-16 23:59:59"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "2", rows[0].ID)

	// 未审批的记录不参与审批时间过滤
	_, total, err = repo.FindByFilter(ctx, &repository.ApprovalFilter{
		UpdateStartTime: mustTime(t, "2025-11-01 00:00:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

// TestApprovalRepository_FindByFilter_LikeEscaping 通配符按字面匹配
func TestApprovalRepository_FindByFilter_LikeEscaping(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRepository(db)

	_, total, err := repo.FindByFilter(context.Background(), &repository.ApprovalFilter{ProjectName: "%"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, total, err = repo.FindByFilter(context.Background(), &repository.ApprovalFilter{Department: "_"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

// TestApprovalRepository_Pagination 分页时总数不受影响
func TestApprovalRepository_Pagination(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRepository(db)

	rows, total, err := repo.FindByFilter(context.Background(), &repository.ApprovalFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0].ID)
}

// TestApprovalRepository_FindByID 测试根据 ID 查找
func TestApprovalRepository_FindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRepository(db)

	m, err := repo.FindByID(context.Background(), "2")
	require.NoError(t, err)
	rec, err := m.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, []string{"hr", "rec"}, rec.Department)
	assert.Equal(t, "2025-11-16 14:00:00", rec.UpdateTime)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestApprovalRepository_CreateAndUpdate 测试新建与修改
func TestApprovalRepository_CreateAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRepository(db)
	ctx := context.Background()

	m := &model.ApprovalModel{ID: "3", Status: string(model.StatusPending), CreatedAt: time.Now()}
	require.NoError(t, m.ApplyPayload(model.Payload{
		"projectName": "新项目",
		"content":     "内容",
		"department":  []string{"tech", "be"},
		"budget":      "1000",
	}))
	require.NoError(t, repo.Create(ctx, m))

	updated, err := repo.Update(ctx, "3", model.Payload{"projectName": "改名", "status": "approved"})
	require.NoError(t, err)
	assert.Equal(t, "改名", updated.ProjectName)
	assert.Equal(t, string(model.StatusPending), updated.Status)

	rec, err := updated.ToRecord()
	require.NoError(t, err)
	assert.Contains(t, string(rec.Raw), `"budget":"1000"`)

	// 非待审批状态不允许修改
	_, err = repo.Update(ctx, "2", model.Payload{"projectName": "x"})
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	_, err = repo.Update(ctx, "missing", model.Payload{"projectName": "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// 缺少项目名称
	err = repo.Create(ctx, &model.ApprovalModel{ID: "4", Status: string(model.StatusPending)})
	assert.ErrorIs(t, err, repository.ErrInvalid)
}

// TestApprovalRepository_Transition 测试状态流转
func TestApprovalRepository_Transition(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRepository(db)
	ctx := context.Background()

	at := *mustTime(t, "2025-11-19 08:00:00")
	m, err := repo.Transition(ctx, "1", model.StatusApproved, at)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusApproved), m.Status)
	require.NotNil(t, m.DecidedAt)

	stored, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	rec, err := stored.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, "2025-11-19 08:00:00", rec.UpdateTime)

	// 终态不能再次流转
	_, err = repo.Transition(ctx, "1", model.StatusRejected, at)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	_, err = repo.Transition(ctx, "missing", model.StatusRejected, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
