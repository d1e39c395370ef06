// Package repository 模拟后端的审批单仓储
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 审批单不存在
	ErrNotFound = errors.New("approval not found")
	// ErrInvalidTransition 当前状态不允许该操作
	ErrInvalidTransition = errors.New("approval status does not allow this operation")
	// ErrInvalid 审批单字段不合法
	ErrInvalid = errors.New("invalid approval")
)

// ApprovalFilter 审批单查询过滤器,零值字段不参与过滤
type ApprovalFilter struct {
	ProjectName     string
	Status          string
	Department      string // 部门节点值,匹配路径中任意一级
	StartTime       *time.Time
	EndTime         *time.Time
	UpdateStartTime *time.Time
	UpdateEndTime   *time.Time
	Offset          int
	Limit           int
}

// ApprovalRepository 审批单仓储接口
type ApprovalRepository interface {
	FindByFilter(ctx context.Context, filter *ApprovalFilter) ([]*model.ApprovalModel, int64, error)
	FindByID(ctx context.Context, id string) (*model.ApprovalModel, error)
	Create(ctx context.Context, m *model.ApprovalModel) error
	Update(ctx context.Context, id string, p model.Payload) (*model.ApprovalModel, error)
	Transition(ctx context.Context, id string, to model.Status, at time.Time) (*model.ApprovalModel, error)
}

// approvalRepository 审批单仓储实现
type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository 创建审批单仓储
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

// FindByFilter 按过滤器分页查询,返回当前页与总数
func (r *approvalRepository) FindByFilter(ctx context.Context, filter *ApprovalFilter) ([]*model.ApprovalModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.ApprovalModel{})

	if filter != nil {
		if filter.ProjectName != "" {
			query = query.Where(`project_name LIKE ? ESCAPE '\'`, "%"+utils.EscapeLike(filter.ProjectName)+"%")
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.Department != "" {
			query = query.Where(`department LIKE ? ESCAPE '\'`, `%"`+utils.EscapeLike(filter.Department)+`"%`)
		}
		if filter.StartTime != nil {
			query = query.Where("created_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("created_at <= ?", *filter.EndTime)
		}
		if filter.UpdateStartTime != nil {
			query = query.Where("decided_at >= ?", *filter.UpdateStartTime)
		}
		if filter.UpdateEndTime != nil {
			query = query.Where("decided_at <= ?", *filter.UpdateEndTime)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count approvals: %w", err)
	}

	if filter != nil && filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}
	var approvals []*model.ApprovalModel
	if err := query.Order("created_at DESC").Order("id DESC").Find(&approvals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list approvals: %w", err)
	}
	return approvals, total, nil
}

// FindByID 根据 ID 查找审批单
func (r *approvalRepository) FindByID(ctx context.Context, id string) (*model.ApprovalModel, error) {
	var m model.ApprovalModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Create 保存新审批单
func (r *approvalRepository) Create(ctx context.Context, m *model.ApprovalModel) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// Update 修改待审批的审批单
func (r *approvalRepository) Update(ctx context.Context, id string, p model.Payload) (*model.ApprovalModel, error) {
	var updated *model.ApprovalModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.ApprovalModel
		if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if model.Status(m.Status) != model.StatusPending {
			return ErrInvalidTransition
		}
		if err := m.ApplyPayload(p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		updated = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Transition 流转审批状态并记录审批时间
func (r *approvalRepository) Transition(ctx context.Context, id string, to model.Status, at time.Time) (*model.ApprovalModel, error) {
	var updated *model.ApprovalModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.ApprovalModel
		if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !model.Status(m.Status).CanTransition(to) {
			return ErrInvalidTransition
		}
		// 条件更新,避免并发审批重复流转
		res := tx.Model(&model.ApprovalModel{}).
			Where("id = ? AND status = ?", id, m.Status).
			Updates(map[string]interface{}{"status": string(to), "decided_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		m.Status = string(to)
		m.DecidedAt = &at
		updated = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
