package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/aquarium/pkg/logger"
)

var (
	ErrAppAlreadyRunning = errors.New("application is already running")
)

// Server 定义了需要随应用启停的服务（HTTP 服务、会话、定时任务）
// Start 不应阻塞；Stop 需在 ctx 截止前返回
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Closer 定义了资源清理接口（如 Redis, DB）
type Closer interface {
	Close() error
}

// BaseApp 应用生命周期：启动服务、等待信号、按序清理
type BaseApp struct {
	opts    Options
	logger  logger.Logger
	servers []Server
	closers []Closer

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex

	started atomic.Bool
	closed  atomic.Bool
}

// NewBaseApp 创建一个新的 BaseApp 实例
func NewBaseApp(opts ...Option) *BaseApp {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseApp{
		opts:   o,
		logger: o.Logger.Named(o.Name),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Logger 应用主日志对象
func (a *BaseApp) Logger() logger.Logger {
	return a.logger
}

// Context 应用级 context，Shutdown 时取消
func (a *BaseApp) Context() context.Context {
	return a.ctx
}

// AppendServer 添加服务器
func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 添加资源清理组件
func (a *BaseApp) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}

// Run 启动所有服务并阻塞，直到收到信号或 Stop 被调用
func (a *BaseApp) Run() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	info := GetInfo()
	fmt.Println(info.String())
	a.logger.Info("application starting",
		"name", a.opts.Name,
		"version", info.Version,
		"commit", info.GitCommit,
		"id", a.opts.ID,
	)

	a.mu.Lock()
	servers := append([]Server(nil), a.servers...)
	a.mu.Unlock()

	for _, srv := range servers {
		if err := srv.Start(a.ctx); err != nil {
			a.logger.Error("failed to start server", "error", err)
			_ = a.Shutdown()
			return errors.Wrap(err, "start server")
		}
	}

	sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	if a.ctx.Err() == nil {
		a.logger.Info("received signal, shutting down")
	}
	return a.Shutdown()
}

// Stop 请求 Run 退出
func (a *BaseApp) Stop() {
	a.cancel()
}

// Shutdown 并发停止所有服务，随后逆序关闭 Closer
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.cancel()
	a.logger.Info("application shutting down")

	a.mu.Lock()
	servers := append([]Server(nil), a.servers...)
	closers := append([]Closer(nil), a.closers...)
	a.mu.Unlock()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.opts.StopTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(stopCtx)
	for _, srv := range servers {
		g.Go(func() error {
			return srv.Stop(gctx)
		})
	}
	stopErr := g.Wait()
	if stopErr != nil {
		a.logger.Error("failed to stop server", "error", stopErr)
	} else {
		a.logger.Info("all servers stopped")
	}

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			a.logger.Error("failed to close component", "error", err)
		}
	}

	a.logger.Info("application exited")
	_ = a.logger.Sync()
	return stopErr
}
