// Package system 进程级资源采集（CPU、内存、goroutine），供健康检查与指标使用。
package system

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/lk2023060901/aquarium/pkg/logger"
)

// Stats 系统统计数据
type Stats struct {
	CPUPercent    float64   `json:"cpu_percent"`    // 0-100
	MemoryPercent float64   `json:"memory_percent"` // 0-100
	MemoryBytes   uint64    `json:"memory_bytes"`
	Goroutines    int       `json:"goroutines"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Collector 定期采集本进程资源占用，实现 app.Server
type Collector struct {
	proc     *process.Process
	interval time.Duration
	logger   logger.Logger

	mu    sync.RWMutex
	stats Stats

	cancel context.CancelFunc
	done   chan struct{}
}

// New 创建采集器；interval <= 0 时使用 5 秒
func New(interval time.Duration, l logger.Logger) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "open current process")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Collector{proc: proc, interval: interval, logger: l.Named("system")}, nil
}

// Start 立即采集一次并启动后台采集
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil
	}
	ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.Collect(ctx)
	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Collect(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop 停止后台采集
func (c *Collector) Stop(context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// Collect 执行一次采集；单项失败只跳过该项
func (c *Collector) Collect(ctx context.Context) Stats {
	stats := Stats{Goroutines: runtime.NumGoroutine(), UpdatedAt: time.Now()}

	if pct, err := c.proc.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = pct
	} else {
		c.logger.Debug("cpu percent unavailable", "error", err)
	}
	if info, err := c.proc.MemoryInfoWithContext(ctx); err == nil {
		stats.MemoryBytes = info.RSS
		if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Total > 0 {
			stats.MemoryPercent = float64(info.RSS) / float64(vm.Total) * 100
		}
	} else {
		c.logger.Debug("memory info unavailable", "error", err)
	}

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return stats
}

// GetStats 最近一次采集结果
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
