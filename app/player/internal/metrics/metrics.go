// Package metrics 玩家服务指标
package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/lk2023060901/aquarium/pkg/metrics/sliding"
	"github.com/lk2023060901/aquarium/pkg/metrics/system"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
)

// Config 指标配置
type Config struct {
	// StoreWindow 存储操作滑动窗口，用于健康检查中的近期 QPS 与延迟
	StoreWindow sliding.WindowConfig `mapstructure:"store_window"`
	// SystemCollectInterval 进程资源采集间隔
	SystemCollectInterval time.Duration `mapstructure:"system_collect_interval"`
}

// PlayerMetrics 玩家服务指标
type PlayerMetrics struct {
	// 存储操作（按后端、操作、结果）
	DBQueryTotal    *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec
	// 文档缓存
	CacheHitTotal  *prometheus.CounterVec
	CacheMissTotal *prometheus.CounterVec
	// 玩家创建（按结果）
	PlayerCreates *prometheus.CounterVec
	// 题库大小
	QuizQuestions *prometheus.GaugeVec

	window *sliding.Window
	system *system.Collector
}

// New 注册玩家服务指标；sys 可为 nil
func New(c *prometheus.Client, cfg *Config, sys *system.Collector) (*PlayerMetrics, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	window, err := sliding.NewWindow(&cfg.StoreWindow)
	if err != nil {
		return nil, err
	}

	m := &PlayerMetrics{window: window, system: sys}
	var errs error
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		v, err := c.NewCounter(name, help, labels)
		errs = errors.CombineErrors(errs, err)
		return v
	}

	m.DBQueryTotal = counter("db_queries_total", "存储操作数", "backend", "op", "result")
	m.DBQueryDuration, err = c.NewHistogram("db_query_duration_seconds", "存储操作延迟（秒）",
		[]string{"backend", "op"}, []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1})
	errs = errors.CombineErrors(errs, err)
	m.CacheHitTotal = counter("cache_hits_total", "文档缓存命中", "cache")
	m.CacheMissTotal = counter("cache_misses_total", "文档缓存未命中", "cache")
	m.PlayerCreates = counter("player_creates_total", "玩家创建（按结果）", "result")
	m.QuizQuestions, err = c.NewGauge("quiz_questions", "当前缓存的题目数", nil)
	errs = errors.CombineErrors(errs, err)

	if sys != nil {
		ns := c.Config().Namespace
		errs = errors.CombineErrors(errs, c.RegisterCollector(prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: ns, Name: "process_cpu_percent", Help: "进程 CPU 使用率",
		}, func() float64 { return sys.GetStats().CPUPercent })))
		errs = errors.CombineErrors(errs, c.RegisterCollector(prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: ns, Name: "process_memory_percent", Help: "进程内存占比",
		}, func() float64 { return sys.GetStats().MemoryPercent })))
	}

	if errs != nil {
		return nil, errors.Wrap(errs, "register player metrics")
	}
	return m, nil
}

// RecordDBQuery 记录一次存储操作
func (m *PlayerMetrics) RecordDBQuery(backend, op string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DBQueryTotal.WithLabelValues(backend, op, result).Inc()
	m.DBQueryDuration.WithLabelValues(backend, op).Observe(elapsed.Seconds())
	m.window.Record(elapsed, err == nil)
}

// RecordCacheHit 缓存命中
func (m *PlayerMetrics) RecordCacheHit(cache string) {
	m.CacheHitTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 缓存未命中
func (m *PlayerMetrics) RecordCacheMiss(cache string) {
	m.CacheMissTotal.WithLabelValues(cache).Inc()
}

// RecordCreate 记录创建结果：created / exists / error
func (m *PlayerMetrics) RecordCreate(result string) {
	m.PlayerCreates.WithLabelValues(result).Inc()
}

// SetQuizSize 更新题库大小
func (m *PlayerMetrics) SetQuizSize(n int) {
	m.QuizQuestions.WithLabelValues().Set(float64(n))
}

// Health 健康检查摘要
type Health struct {
	Store  sliding.Stats `json:"store"`
	System *system.Stats `json:"system,omitempty"`
}

// Health 返回近期存储统计与进程资源
func (m *PlayerMetrics) Health() Health {
	h := Health{Store: m.window.GetStats()}
	if m.system != nil {
		s := m.system.GetStats()
		h.System = &s
	}
	return h
}
