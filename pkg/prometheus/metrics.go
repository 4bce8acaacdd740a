package prometheus

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	CounterVec   = prometheus.CounterVec
	GaugeVec     = prometheus.GaugeVec
	HistogramVec = prometheus.HistogramVec
	Collector    = prometheus.Collector
)

// register 按名称去重后注册
func (c *Client) register(name string, col prometheus.Collector) error {
	if c.IsClosed() {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.metrics[name]; ok {
		return errors.Wrapf(ErrMetricExists, "metric %s", name)
	}
	if err := c.registry.Register(col); err != nil {
		return errors.Wrapf(err, "register %s", name)
	}
	c.metrics[name] = col
	return nil
}

// NewCounter 创建并注册 Counter
func (c *Client) NewCounter(name, help string, labels []string) (*CounterVec, error) {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.register(name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewGauge 创建并注册 Gauge
func (c *Client) NewGauge(name, help string, labels []string) (*GaugeVec, error) {
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.register(name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewHistogram 创建并注册 Histogram；buckets 为 nil 时使用默认桶
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*HistogramVec, error) {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	if err := c.register(name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get 按名称取已注册的指标
func (c *Client) Get(name string) (Collector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, ok := c.metrics[name]
	return col, ok
}

// RegisterCollector 注册自定义采集器
func (c *Client) RegisterCollector(col Collector) error {
	if c.IsClosed() {
		return ErrClientClosed
	}
	return c.registry.Register(col)
}
