// Package session 客户端会话：组装 Store、离线追赶与各类玩家操作。
//
// 一个 Session 服务一个玩家。Start 完成初始化（含离线追赶并保存），
// 之后所有操作都经由 Store.Update 修改共享文档并整文档保存。
package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/catchup"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/metrics"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/store"
	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// ErrNoQuiz 题库为空
var ErrNoQuiz = errors.New("session: no quiz question available")

// Rand 会话随机源
type Rand interface {
	Intn(n int) int
}

// Session 单个玩家的客户端会话
type Session struct {
	api     remote.PlayerAPI
	store   *store.Store
	sim     *catchup.Simulator
	rng     Rand
	clock   func() time.Time
	loc     *time.Location
	logger  logger.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	report *catchup.Report
	quiz   []playerdoc.QuizQuestion
}

// Option 会话选项
type Option func(*Session)

// WithClock 注入时钟
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation 日界线时区
func WithLocation(loc *time.Location) Option {
	return func(s *Session) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRand 注入随机源
func WithRand(rng Rand) Option {
	return func(s *Session) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithMetrics 上报会话指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New 组装会话；ids 用于新玩家默认文档中的鱼和鱼缸
func New(api remote.PlayerAPI, ids idgen.Generator, l logger.Logger, opts ...Option) *Session {
	s := &Session{
		api:    api,
		clock:  time.Now,
		loc:    time.UTC,
		logger: l.Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.clock().UnixNano()))
	}

	simOpts := []catchup.Option{catchup.WithLocation(s.loc)}
	if s.metrics != nil {
		simOpts = append(simOpts, catchup.WithObserver(s.metrics.ObserveCatchup))
	}
	s.sim = catchup.New(s.rng, l, simOpts...)

	newDefault := func(userID string, now time.Time) (*playerdoc.PlayerState, error) {
		return playerdoc.NewDefault(userID, now, s.loc, ids)
	}
	s.store = store.New(api, newDefault, l,
		store.WithClock(s.clock),
		store.WithInitHook(s.sim.Hook(s.setReport)),
	)
	if s.metrics != nil {
		s.store.OnChange(func(*playerdoc.PlayerState) { s.metrics.ObserveBroadcast() })
	}
	return s
}

func (s *Session) setReport(r *catchup.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
}

// Store 底层文档缓存，供界面只读访问与订阅
func (s *Session) Store() *store.Store {
	return s.store
}

// Start 初始化玩家文档（不存在则创建），离线追赶结算并保存，返回本次结算报告。
// 重复调用不会再次结算，返回首次的报告。
func (s *Session) Start(ctx context.Context, userID string) (*catchup.Report, error) {
	if err := s.store.EnsureInitialized(ctx, userID); err != nil {
		return nil, errors.Wrapf(err, "start session for %s", userID)
	}

	r := s.Report()
	if notice := r.DeathNotice(); notice != "" {
		s.logger.WarnContext(ctx, notice, "user_id", userID)
	}
	return r, nil
}

// Report 最近一次离线追赶报告；尚未开始时返回空报告
func (s *Session) Report() *catchup.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return &catchup.Report{}
	}
	return s.report
}

// Document 当前共享文档；refresh 时从远端重新获取
func (s *Session) Document(ctx context.Context, refresh bool) (*playerdoc.PlayerState, error) {
	if refresh {
		return s.store.Get(ctx, store.WithRefresh())
	}
	return s.store.Get(ctx)
}

// Subscribe 订阅保存成功后的文档变更
func (s *Session) Subscribe(fn store.Listener) (unsubscribe func()) {
	return s.store.OnChange(fn)
}

func (s *Session) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *Session) observe(action string, ok bool) {
	if s.metrics != nil {
		s.metrics.ObserveAction(action, ok)
	}
}

// errRejected 操作校验未通过：不保存，也不作为错误返回
var errRejected = errors.New("action rejected")

// mutate 在 Store.Update 内执行 fn；fn 返回 ok=false 时放弃保存并只返回结果
func mutate[T any](ctx context.Context, s *Session, action string, fn func(doc *playerdoc.PlayerState) (T, bool, error)) (T, error) {
	var (
		out T
		ok  bool
	)
	_, err := s.store.Update(ctx, func(doc *playerdoc.PlayerState) error {
		var err error
		out, ok, err = fn(doc)
		switch {
		case err != nil:
			return err
		case !ok:
			return errRejected
		}
		return nil
	})
	if errors.Is(err, errRejected) {
		err = nil
	}
	s.observe(action, ok && err == nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "action failed", "action", action, "error", err)
	}
	return out, err
}
