package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker 依赖检查函数
type HealthChecker func(ctx context.Context) error

// HealthController 健康检查控制器
type HealthController struct {
	checks map[string]HealthChecker
}

// NewHealthController 创建健康检查控制器
func NewHealthController() *HealthController {
	return &HealthController{checks: make(map[string]HealthChecker)}
}

// Register 注册依赖检查,checker 为 nil 时显示为未配置
func (h *HealthController) Register(name string, checker HealthChecker) *HealthController {
	h.checks[name] = checker
	return h
}

// Check 健康检查
func (h *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string, len(h.checks))

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checker := h.checks[name]
		if checker == nil {
			checks[name] = "not configured"
			continue
		}
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		err := checker(cctx)
		cancel()
		if err != nil {
			status = "unhealthy"
			checks[name] = "unhealthy: " + err.Error()
			continue
		}
		checks[name] = "healthy"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}
