package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xjj0211/approval-frontend/internal/client"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/form"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/shell"
)

// Dependencies 页面服务的依赖
type Dependencies struct {
	Config  *config.Config
	Backend client.Backend
	Store   *shell.Store
	Tree    *model.DepartmentTree
	Encoder form.Encoder
	Logger  *logrus.Logger
	Health  *HealthController
}

// SetupRoutes 配置路由
func SetupRoutes(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = GetLogger()
	}
	tree := deps.Tree
	if tree == nil {
		tree = model.DefaultDepartmentTree()
	}
	health := deps.Health
	if health == nil {
		health = NewHealthController()
	}

	tmpl, err := LoadTemplates(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(HTTPSRedirectMiddleware(cfg.Server.ForceHTTPS))
	router.Use(I18nMiddleware())
	router.Use(ErrorHandlerMiddleware(true))

	// 健康检查
	router.GET("/health", health.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	router.StaticFS("/assets", StaticFS())

	list := NewListController(deps.Store, tree, logger)
	forms := NewFormController(deps.Backend, deps.Store, form.Options{
		Tree:           tree,
		MaxImages:      cfg.Form.MaxImages,
		MaxAttachments: cfg.Form.MaxAttachments,
		MaxUploadBytes: cfg.Form.MaxUploadBytes,
		Encoder:        deps.Encoder,
		Logger:         logger,
	}, logger)

	// 页面路由组,共用会话、限流与 CSRF 保护
	pages := router.Group("/")
	pages.Use(SessionMiddleware(cfg.Server))
	pages.Use(BodyLimitMiddleware(cfg.Form.MaxUploadBytes + 1<<20))
	pages.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	pages.Use(CSRFMiddleware())
	{
		pages.GET("/", list.Index)
		pages.POST("/search", list.Search)
		pages.POST("/reset", list.Reset)
		pages.GET("/page", list.Page)
		pages.GET("/detail/:id", list.Detail)
		pages.POST("/detail/:id/approve", list.Approve)
		pages.POST("/detail/:id/reject", list.Reject)
		pages.POST("/role", list.SwitchRole)

		pages.GET("/create", forms.Create)
		pages.GET("/edit/:id", forms.Edit)
		pages.GET("/form", forms.Show)
		pages.POST("/form", forms.Post)
		pages.GET("/form/preview/:uid", forms.Preview)
		pages.POST("/form/cancel", forms.Cancel)
	}

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(&APIError{Code: http.StatusNotFound, Message: T(c, "error.not_found")})
	})

	return router, nil
}
