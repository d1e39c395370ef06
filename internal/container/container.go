package container

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xjj0211/approval-frontend/internal/api"
	"github.com/xjj0211/approval-frontend/internal/client"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/form"
	"github.com/xjj0211/approval-frontend/internal/listview"
	"github.com/xjj0211/approval-frontend/internal/model"
	"github.com/xjj0211/approval-frontend/internal/shell"
	"github.com/xjj0211/approval-frontend/internal/storage"
)

// Container 依赖注入容器
// 管理页面服务的所有依赖,包括后端客户端、部门树、附件编码器与会话工作区
type Container struct {
	cfg     *config.Config
	logger  *logrus.Logger
	backend *client.Client
	tree    *model.DepartmentTree
	encoder form.Encoder
	store   *shell.Store
	health  *api.HealthController
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = api.GetLogger()
	}

	// 1. 审批后端客户端
	backend := client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, client.WithLogger(logger))

	// 2. 部门树
	tree, err := model.LoadDepartmentTree(cfg.Departments.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}

	health := api.NewHealthController().
		Register("backend", func(ctx context.Context) error {
			_, err := backend.List(ctx, client.ListQuery{Current: 1, PageSize: 1})
			return err
		})

	// 3. 附件编码器,默认内联为 data URI
	var encoder form.Encoder = form.DataURIEncoder{}
	if cfg.Storage.Driver == "minio" {
		minioClient, err := storage.NewMinIOClient(ctx, cfg.Storage.MinIO, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		encoder = storage.NewMinIOEncoder(minioClient, storage.PublicBaseURL(cfg.Storage.MinIO))
		health.Register("storage", minioClient.HealthCheck)
	} else {
		health.Register("storage", nil)
	}

	// 4. 会话工作区,每个工作区持有独立的列表视图
	store := shell.NewStore(cfg.Server.WorkspaceTTL, func() *listview.View {
		return listview.New(backend, cfg.List.PageSize, logger)
	})

	return &Container{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		tree:    tree,
		encoder: encoder,
		store:   store,
		health:  health,
	}, nil
}

// Backend 获取后端客户端
func (c *Container) Backend() *client.Client {
	return c.backend
}

// Store 获取会话工作区存储
func (c *Container) Store() *shell.Store {
	return c.store
}

// Dependencies 组装路由依赖
func (c *Container) Dependencies() api.Dependencies {
	return api.Dependencies{
		Config:  c.cfg,
		Backend: c.backend,
		Store:   c.store,
		Tree:    c.tree,
		Encoder: c.encoder,
		Logger:  c.logger,
		Health:  c.health,
	}
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.store != nil {
		c.store.Close()
	}
	return nil
}
