// Package metrics HTTP 服务指标
package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	promclient "github.com/lk2023060901/aquarium/pkg/prometheus"
)

// HTTP 请求指标
type HTTP struct {
	// RequestsTotal HTTP 请求总数
	RequestsTotal *prometheus.CounterVec
	// RequestDuration HTTP 请求耗时
	RequestDuration *prometheus.HistogramVec
}

// New 在 client 上注册 HTTP 指标
func New(c *promclient.Client) (*HTTP, error) {
	total, err := c.NewCounter("http_requests_total", "Total number of HTTP requests.",
		[]string{"path", "method", "status"})
	if err != nil {
		return nil, errors.Wrap(err, "register http_requests_total")
	}
	duration, err := c.NewHistogram("http_request_duration_seconds", "HTTP request latency in seconds.",
		[]string{"path", "method"}, prometheus.DefBuckets)
	if err != nil {
		return nil, errors.Wrap(err, "register http_request_duration_seconds")
	}
	return &HTTP{RequestsTotal: total, RequestDuration: duration}, nil
}

// Observe 记录一次请求
func (m *HTTP) Observe(path, method, status string, seconds float64) {
	m.RequestsTotal.WithLabelValues(path, method, status).Inc()
	m.RequestDuration.WithLabelValues(path, method).Observe(seconds)
}
