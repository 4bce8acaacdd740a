// Package sliding 基于时间桶的滑动窗口统计（QPS、延迟、成功率）。
package sliding

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/pkg/config"
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	// 窗口大小
	WindowSize time.Duration `mapstructure:"window_size"`
	// 桶数量
	BucketCount int `mapstructure:"bucket_count"`
}

// DefaultWindowConfig 默认配置：60 秒窗口、每秒一个桶
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		WindowSize:  60 * time.Second,
		BucketCount: 60,
	}
}

type bucket struct {
	start      time.Time // 桶起始时间，零值表示空桶
	count      int64
	totalTime  float64 // 总耗时（秒）
	minLatency float64
	maxLatency float64
	successCnt int64
}

// Window 滑动窗口统计器。桶按时间惰性轮转，不需要后台协程。
type Window struct {
	size     time.Duration
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets []bucket
}

// Option 窗口选项
type Option func(*Window)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(w *Window) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWindow 创建滑动窗口统计器
func NewWindow(cfg *WindowConfig, opts ...Option) (*Window, error) {
	newCfg, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge window config")
	}
	if newCfg.BucketCount <= 0 || newCfg.WindowSize < time.Duration(newCfg.BucketCount) {
		return nil, errors.Newf("invalid window: size %s, buckets %d", newCfg.WindowSize, newCfg.BucketCount)
	}

	w := &Window{
		size:     newCfg.WindowSize,
		interval: newCfg.WindowSize / time.Duration(newCfg.BucketCount),
		now:      time.Now,
		buckets:  make([]bucket, newCfg.BucketCount),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// current 返回 now 所在的桶，桶已属于上一轮时先清空
func (w *Window) current(now time.Time) *bucket {
	start := now.Truncate(w.interval)
	idx := int(start.UnixNano()/int64(w.interval)) % len(w.buckets)
	b := &w.buckets[idx]
	if !b.start.Equal(start) {
		*b = bucket{start: start, minLatency: -1}
	}
	return b
}

// Record 记录一次操作
func (w *Window) Record(latency time.Duration, success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sec := latency.Seconds()
	b := w.current(w.now())
	b.count++
	b.totalTime += sec
	if success {
		b.successCnt++
	}
	if b.minLatency < 0 || sec < b.minLatency {
		b.minLatency = sec
	}
	if sec > b.maxLatency {
		b.maxLatency = sec
	}
}

// Stats 统计结果
type Stats struct {
	QPS          float64 `json:"qps"`
	AvgLatency   float64 `json:"avg_latency"` // 秒
	MinLatency   float64 `json:"min_latency"`
	MaxLatency   float64 `json:"max_latency"`
	SuccessRate  float64 `json:"success_rate"` // 0-100
	TotalCount   int64   `json:"total_count"`
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
}

// GetStats 汇总窗口内的桶
func (w *Window) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	windowStart := now.Add(-w.size)

	var (
		stats     Stats
		totalTime float64
	)
	minLatency := -1.0
	for _, b := range w.buckets {
		if b.start.IsZero() || !b.start.After(windowStart) || b.start.After(now) {
			continue
		}
		stats.TotalCount += b.count
		stats.SuccessCount += b.successCnt
		totalTime += b.totalTime
		if b.minLatency >= 0 && (minLatency < 0 || b.minLatency < minLatency) {
			minLatency = b.minLatency
		}
		if b.maxLatency > stats.MaxLatency {
			stats.MaxLatency = b.maxLatency
		}
	}

	stats.FailureCount = stats.TotalCount - stats.SuccessCount
	stats.QPS = float64(stats.TotalCount) / w.size.Seconds()
	if minLatency >= 0 {
		stats.MinLatency = minLatency
	}
	if stats.TotalCount > 0 {
		stats.AvgLatency = totalTime / float64(stats.TotalCount)
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCount) * 100
	}
	return stats
}
