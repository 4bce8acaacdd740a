// Package prometheus 封装独立 Registry 的指标客户端：按名称去重注册，
// 可挂载到宿主 HTTP 服务，也可作为 app.Server 单独监听。
package prometheus

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lk2023060901/aquarium/pkg/logger"
)

// Client Prometheus 客户端
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	mu      sync.Mutex
	metrics map[string]prometheus.Collector

	httpServer *http.Server
	closed     atomic.Bool
}

// New 创建客户端；cfg 为 nil 时使用默认配置
func New(cfg *Config, l logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNoop()
	}

	c := &Client{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
		metrics:  make(map[string]prometheus.Collector),
	}
	if cfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if cfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return c, nil
}

// Registry 底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Config 当前配置
func (c *Client) Config() *Config {
	return c.config
}

// Handler 指标抓取 Handler，用于挂载到已有 HTTP 服务
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start 配置启用时单独监听；监听失败同步返回
func (c *Client) Start(ctx context.Context) error {
	if !c.config.HTTPServer.Enabled {
		return nil
	}
	if c.closed.Load() {
		return ErrClientClosed
	}

	ln, err := net.Listen("tcp", c.config.HTTPServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen metrics on %s", c.config.HTTPServer.Addr)
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())
	c.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	go func() {
		if err := c.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server stopped", "error", err)
		}
	}()
	c.logger.InfoContext(ctx, "metrics server listening", "addr", ln.Addr().String(), "path", c.config.HTTPServer.Path)
	return nil
}

// Stop 关闭单独监听的 HTTP 服务
func (c *Client) Stop(ctx context.Context) error {
	if c.httpServer == nil {
		return nil
	}
	return c.httpServer.Shutdown(ctx)
}

// Close 关闭客户端，之后不能再注册指标
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	return c.Stop(context.Background())
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
