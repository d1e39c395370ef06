/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xjj0211/approval-frontend/internal/api"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/database"
	"github.com/xjj0211/approval-frontend/internal/metrics"
	"github.com/xjj0211/approval-frontend/internal/mockapi"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// mockCmd represents the mock command
var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start the mock approval backend",
	Long: `Start a mock approval REST backend for local development.
Approvals are stored through gorm in sqlite (default) or postgres.
The database is migrated on start and seeded with demo rows when empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Mock.Port, _ = cmd.Flags().GetInt("port")
		}

		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if config.IsProduction(cfg) {
			gin.SetMode(gin.ReleaseMode)
		}

		// 1. 连接数据库(带重试机制)
		db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		if cfg.Mock.Seed {
			n, err := database.Seed(db)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.WithField("rows", n).Info("demo approvals seeded")
			}
		}

		// 2. 表单结构
		schema, err := model.LoadSchema(cfg.Mock.SchemaFile)
		if err != nil {
			return err
		}

		// 3. 数据库指标
		collector := metrics.NewCollector(db, 15*time.Second)
		if err := collector.CollectOnce(); err != nil {
			logger.WithError(err).Warn("failed to collect database metrics")
		}
		collector.Start()
		defer collector.Stop()

		router := mockapi.SetupRoutes(mockapi.Dependencies{DB: db, Schema: schema, Logger: logger})

		addr := fmt.Sprintf("%s:%d", cfg.Mock.Host, cfg.Mock.Port)
		return serve(logger, addr, router)
	},
}

func init() {
	rootCmd.AddCommand(mockCmd)

	mockCmd.Flags().Int("port", 3000, "Mock backend port")
}
