package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Collector 定期采集模拟后端数据库指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// CollectOnce 立即采集一次
func (c *Collector) CollectOnce() error {
	if err := UpdateDatabaseConnections(c.db); err != nil {
		return err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	err := c.db.WithContext(c.ctx).
		Table("approvals").
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		UpdateApprovalsByStatus(r.Status, float64(r.Count))
	}
	return nil
}

func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = c.CollectOnce()
		}
	}
}
