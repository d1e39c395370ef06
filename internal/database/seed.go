package database

import (
	"fmt"
	"time"

	"github.com/xjj0211/approval-frontend/internal/model"
	"gorm.io/gorm"
)

// seedRecord 演示数据
type seedRecord struct {
	id          string
	projectName string
	content     string
	department  []string
	executeDate string
	status      model.Status
	createdAt   string
	decidedAt   string
}

var seedRecords = []seedRecord{
	{
		id:          "1",
		projectName: "采购高性能服务器",
		content:     "用于部署新的AI大模型训练任务,需要A100显卡支持。",
		department:  []string{"tech", "fe", "infra"},
		executeDate: "2025-11-20",
		status:      model.StatusPending,
		createdAt:   "2025-11-18 10:00:00",
	},
	{
		id:          "2",
		projectName: "年度团建申请",
		content:     "申请部门年度团建经费,预计每人500元标准。",
		department:  []string{"hr", "rec"},
		executeDate: "2025-12-01",
		status:      model.StatusApproved,
		createdAt:   "2025-11-15 09:30:00",
		decidedAt:   "2025-11-16 14:00:00",
	},
}

// Seed 表为空时写入演示数据,返回写入条数
func Seed(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&model.ApprovalModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count approvals: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	models := make([]*model.ApprovalModel, 0, len(seedRecords))
	for _, r := range seedRecords {
		created, err := time.ParseInLocation(model.TimeLayout, r.createdAt, time.Local)
		if err != nil {
			return 0, err
		}
		m := &model.ApprovalModel{
			ID:        r.id,
			Status:    string(r.status),
			CreatedAt: created,
		}
		if r.decidedAt != "" {
			decided, err := time.ParseInLocation(model.TimeLayout, r.decidedAt, time.Local)
			if err != nil {
				return 0, err
			}
			m.DecidedAt = &decided
		}
		if err := m.ApplyPayload(model.Payload{
			"projectName": r.projectName,
			"content":     r.content,
			"department":  r.department,
			"executeDate": r.executeDate,
			"images":      []string{},
			"attachments": []model.Attachment{},
		}); err != nil {
			return 0, err
		}
		models = append(models, m)
	}

	if err := db.Create(&models).Error; err != nil {
		return 0, fmt.Errorf("failed to seed approvals: %w", err)
	}
	return len(models), nil
}
