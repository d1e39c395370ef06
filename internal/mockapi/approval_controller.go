// Package mockapi 本地开发与端到端测试使用的审批后端
package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xjj0211/approval-frontend/internal/api"
	"github.com/xjj0211/approval-frontend/internal/metrics"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/repository"
	"github.com/xjj0211/approval-frontend/internal/utils"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ApprovalController 审批单 REST 控制器
type ApprovalController struct {
	repo   repository.ApprovalRepository
	schema []model.FieldSchema
	now    func() time.Time
	logger logrus.FieldLogger
}

// NewApprovalController 创建审批单控制器
func NewApprovalController(repo repository.ApprovalRepository, schema []model.FieldSchema, logger logrus.FieldLogger) *ApprovalController {
	if schema == nil {
		schema = model.DefaultSchema()
	}
	return &ApprovalController{
		repo:   repo,
		schema: schema,
		now:    time.Now,
		logger: logger,
	}
}

// validateID 验证审批单 ID 并返回错误响应(如果无效)
func (c *ApprovalController) validateID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateID(id); err != nil {
		api.Error(ctx, http.StatusBadRequest, "invalid approval ID", err.Error())
		return false
	}
	return true
}

// handleRepoError 仓储错误映射为 HTTP 状态
func (c *ApprovalController) handleRepoError(ctx *gin.Context, err error, operation string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		api.Error(ctx, http.StatusNotFound, "approval not found", "")
	case errors.Is(err, repository.ErrInvalidTransition):
		api.Error(ctx, http.StatusConflict, "approval is no longer pending", err.Error())
	case errors.Is(err, repository.ErrInvalid):
		api.Error(ctx, http.StatusBadRequest, "invalid approval", err.Error())
	default:
		c.logger.WithError(err).WithField("operation", operation).Error("approval repository failed")
		api.Error(ctx, http.StatusInternalServerError, "failed to "+operation, err.Error())
	}
}

// respondRecord 输出审批单,保留动态字段
func (c *ApprovalController) respondRecord(ctx *gin.Context, m *model.ApprovalModel) {
	rec, err := m.ToRecord()
	if err != nil {
		api.Error(ctx, http.StatusInternalServerError, "failed to encode approval", err.Error())
		return
	}
	api.Success(ctx, json.RawMessage(rec.Raw))
}

// List 分页查询审批单
func (c *ApprovalController) List(ctx *gin.Context) {
	filter, current, pageSize, err := parseFilter(ctx)
	if err != nil {
		api.Error(ctx, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	rows, total, err := c.repo.FindByFilter(ctx.Request.Context(), filter)
	if err != nil {
		c.handleRepoError(ctx, err, "list approvals")
		return
	}

	data := make([]json.RawMessage, 0, len(rows))
	for _, m := range rows {
		rec, err := m.ToRecord()
		if err != nil {
			api.Error(ctx, http.StatusInternalServerError, "failed to encode approval", err.Error())
			return
		}
		data = append(data, rec.Raw)
	}

	api.Paginated(ctx, data, total, current, pageSize)
}

// Get 获取审批单详情
func (c *ApprovalController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateID(ctx, id) {
		return
	}

	m, err := c.repo.FindByID(ctx.Request.Context(), id)
	if err != nil {
		c.handleRepoError(ctx, err, "get approval")
		return
	}
	c.respondRecord(ctx, m)
}

// Create 新建审批单,初始状态为待审批
func (c *ApprovalController) Create(ctx *gin.Context) {
	var payload model.Payload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		api.Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	m := &model.ApprovalModel{
		ID:        uuid.NewString(),
		Status:    string(model.StatusPending),
		CreatedAt: c.now(),
	}
	if err := m.ApplyPayload(payload); err != nil {
		api.Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := c.repo.Create(ctx.Request.Context(), m); err != nil {
		c.handleRepoError(ctx, err, "create approval")
		return
	}

	c.logger.WithField("id", m.ID).Info("approval created")
	c.respondRecord(ctx, m)
}

// Update 修改待审批的审批单
func (c *ApprovalController) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateID(ctx, id) {
		return
	}

	var payload model.Payload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		api.Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	m, err := c.repo.Update(ctx.Request.Context(), id, payload)
	if err != nil {
		c.handleRepoError(ctx, err, "update approval")
		return
	}
	c.respondRecord(ctx, m)
}

// Pass 审批通过
func (c *ApprovalController) Pass(ctx *gin.Context) {
	c.transition(ctx, model.StatusApproved, "pass")
}

// Reject 审批拒绝
func (c *ApprovalController) Reject(ctx *gin.Context) {
	c.transition(ctx, model.StatusRejected, "reject")
}

// Withdraw 申请人撤回
func (c *ApprovalController) Withdraw(ctx *gin.Context) {
	c.transition(ctx, model.StatusWithdrawn, "withdraw")
}

func (c *ApprovalController) transition(ctx *gin.Context, to model.Status, action string) {
	id := ctx.Param("id")
	if !c.validateID(ctx, id) {
		return
	}

	m, err := c.repo.Transition(ctx.Request.Context(), id, to, c.now())
	if err != nil {
		c.handleRepoError(ctx, err, action+" approval")
		return
	}

	metrics.RecordApproval(action)
	c.logger.WithFields(logrus.Fields{"id": id, "status": to}).Info("approval status changed")
	c.respondRecord(ctx, m)
}

// Schema 返回表单结构
func (c *ApprovalController) Schema(ctx *gin.Context) {
	api.Success(ctx, c.schema)
}

// parseFilter 解析列表查询参数
func parseFilter(ctx *gin.Context) (*repository.ApprovalFilter, int, int, error) {
	current, err := positiveInt(ctx.Query("current"), 1)
	if err != nil {
		return nil, 0, 0, err
	}
	pageSize, err := positiveInt(ctx.Query("pageSize"), defaultPageSize)
	if err != nil {
		return nil, 0, 0, err
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	status, err := model.ParseStatus(ctx.Query("status"))
	if err != nil {
		return nil, 0, 0, err
	}

	filter := &repository.ApprovalFilter{
		ProjectName: ctx.Query("projectName"),
		Status:      string(status),
		Department:  ctx.Query("department"),
		Offset:      (current - 1) * pageSize,
		Limit:       pageSize,
	}

	for key, dst := range map[string]**time.Time{
		"startTime":       &filter.StartTime,
		"endTime":         &filter.EndTime,
		"updateStartTime": &filter.UpdateStartTime,
		"updateEndTime":   &filter.UpdateEndTime,
	} {
		value := ctx.Query(key)
		if value == "" {
			continue
		}
		ts, err := time.ParseInLocation(model.TimeLayout, value, time.Local)
		if err != nil {
			return nil, 0, 0, errors.New(key + " must use format " + model.TimeLayout)
		}
		*dst = &ts
	}

	return filter, current, pageSize, nil
}

func positiveInt(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, errors.New("pagination parameters must be positive integers")
	}
	return n, nil
}
