package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/database"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// TestGetPoolConfig 未配置的项使用默认值
func TestGetPoolConfig(t *testing.T) {
	pool := database.GetPoolConfig(config.DatabaseConfig{MaxOpenConns: 50})
	assert.Equal(t, 10, pool.MaxIdleConns)
	assert.Equal(t, 50, pool.MaxOpenConns)
	assert.Equal(t, 3600, pool.ConnMaxLifetime)
	assert.Equal(t, 600, pool.ConnMaxIdleTime)
}

// TestBuildDSN 测试 PostgreSQL DSN
func TestBuildDSN(t *testing.T) {
	dsn := database.BuildDSN(config.DatabaseConfig{
		Host: "db", Port: 5432, User: "postgres", Password: "secret", DBName: "approval", SSLMode: "disable",
	})
	assert.Equal(t, "host=db port=5432 user=postgres password=secret dbname=approval sslmode=disable", dsn)
}

// TestDialector 测试驱动选择
func TestDialector(t *testing.T) {
	d, err := database.Dialector(config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = database.Dialector(config.DatabaseConfig{Driver: "postgres"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = database.Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

// TestMigrateAndSeed 迁移幂等,演示数据只写入一次
func TestMigrateAndSeed(t *testing.T) {
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer database.Close(db)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Migrate(db))
	assert.True(t, db.Migrator().HasIndex(&model.ApprovalModel{}, "idx_approvals_status_created"))

	n, err := database.Seed(db)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = database.Seed(db)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var pending model.ApprovalModel
	require.NoError(t, db.Where("id = ?", "1").First(&pending).Error)
	assert.Equal(t, "采购高性能服务器", pending.ProjectName)
	assert.Nil(t, pending.DecidedAt)

	assert.NoError(t, database.CheckHealth(context.Background(), db))
}

// TestCheckHealth_Nil 未初始化的连接
func TestCheckHealth_Nil(t *testing.T) {
	assert.Error(t, database.CheckHealth(context.Background(), nil))
	assert.NoError(t, database.Close(nil))
}
