package web

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/aquarium/pkg/config"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/web/metrics"
	"github.com/lk2023060901/aquarium/pkg/web/middleware"
	"github.com/lk2023060901/aquarium/pkg/web/validator"
)

// Server Web 服务，实现 app.Server
type Server struct {
	engine  *gin.Engine
	config  *Config
	logger  logger.Logger
	limiter *middleware.RateLimiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// Option Server 选项
type Option func(*serverOptions)

type serverOptions struct {
	metrics *metrics.HTTP
}

// WithMetrics 挂载 HTTP 请求指标
func WithMetrics(m *metrics.HTTP) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// NewServer 创建 Web 服务并挂载基础中间件：
// request id、访问日志、panic 恢复、指标、跨域、限流
func NewServer(cfg *Config, l logger.Logger, opts ...Option) (*Server, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge web config")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	gin.SetMode(newCfg.Mode)
	validator.Init()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(l.Named("web.access")),
		middleware.Recovery(l.Named("web.recovery")),
	)
	if o.metrics != nil {
		engine.Use(middleware.Metrics(o.metrics))
	}
	if newCfg.CORS.Enabled {
		engine.Use(middleware.CORS(newCfg.CORS.AllowOrigins))
	}

	s := &Server{
		engine: engine,
		config: newCfg,
		logger: l.Named("web.server"),
	}
	if newCfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(l.Named("web.ratelimit"), &middleware.RateLimitConfig{
			RequestsPerSecond: newCfg.RateLimit.RequestsPerSecond,
			Burst:             newCfg.RateLimit.Burst,
			PerIP:             true,
			SkipPaths:         newCfg.RateLimit.SkipPaths,
			Limiters:          newCfg.RateLimit.Limiters,
		})
		engine.Use(middleware.RateLimit(s.limiter))
	}
	if newCfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(newCfg.MaxBodyBytes))
	}
	return s, nil
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler 接口
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 实际监听地址（Start 之后有效）
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start 监听并在后台提供服务，不阻塞
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.config.Addr)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.done = make(chan struct{})

	srv, done := s.server, s.done
	go func() {
		defer close(done)
		s.logger.Info("starting http server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped unexpectedly", "error", err)
		}
	}()
	return nil
}

// Stop 优雅关机，ctx 未设置截止时间时使用 ShutdownTimeout
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server = nil
	s.mu.Unlock()

	if s.limiter != nil {
		defer s.limiter.Close()
	}
	if srv == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	<-done
	s.logger.Info("server exited")
	return nil
}
