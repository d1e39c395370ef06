package mockapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xjj0211/approval-frontend/internal/api"
	"github.com/xjj0211/approval-frontend/internal/database"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/repository"
	"gorm.io/gorm"
)

// Dependencies 模拟后端的依赖
type Dependencies struct {
	DB     *gorm.DB
	Schema []model.FieldSchema
	Logger *logrus.Logger
}

// SetupRoutes 配置模拟后端路由,接口挂载在 /api 下
func SetupRoutes(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = api.GetLogger()
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(api.RequestIDMiddleware())
	router.Use(api.RequestLogMiddleware(logger))
	router.Use(api.ErrorHandlerMiddleware(false))

	health := api.NewHealthController().
		Register("database", func(ctx context.Context) error {
			return database.CheckHealth(ctx, deps.DB)
		})
	router.GET("/health", health.Check)
	router.GET("/metrics", api.MetricsHandler)

	approvals := NewApprovalController(repository.NewApprovalRepository(deps.DB), deps.Schema, logger)

	v := router.Group("/api/approvals")
	{
		v.GET("", approvals.List)
		v.POST("", approvals.Create)
		v.GET("/schema", approvals.Schema)
		v.GET("/:id", approvals.Get)
		v.PATCH("/:id", approvals.Update)
		v.POST("/:id/pass", approvals.Pass)
		v.POST("/:id/reject", approvals.Reject)
		v.POST("/:id/withdraw", approvals.Withdraw)
	}

	router.NoRoute(func(c *gin.Context) {
		api.Error(c, http.StatusNotFound, "route not found", c.Request.URL.Path)
	})

	return router
}
