// Package store 持有单个玩家文档的内存权威副本。
//
// 一个 Store 对应一次会话中的一个玩家：所有读写经由它完成，
// 首次使用时经历 Uninitialized → Initializing → Ready 三个阶段，
// 初始化期间运行的代码通过 Bootstrap 直接访问文档，不经过就绪门。
//
// 文档以指针形式共享给所有调用方，调用方可直接修改字段后调用 Save。
// 文档本身不加锁：同一会话内的修改应串行进行（或使用 Update）。
// 两份独立获取的副本先后 Save 时，后完成的整文档覆盖先完成的（后写者胜）。
package store

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

var (
	// ErrNotInitialized 尚未调用 EnsureInitialized
	ErrNotInitialized = errors.New("store: not initialized")

	// ErrUserMismatch 一个 Store 只服务一个玩家
	ErrUserMismatch = errors.New("store: bound to a different user")

	// ErrNilDocument Save 传入 nil
	ErrNilDocument = errors.New("store: nil document")
)

// State 初始化状态
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// DefaultFactory 构造新玩家默认文档
type DefaultFactory func(userID string, now time.Time) (*playerdoc.PlayerState, error)

// InitHook 在初始化阶段内运行（如离线追赶），通过 Bootstrap 读写文档
type InitHook func(ctx context.Context, b *Bootstrap) error

// Listener 文档保存成功后的变更通知
type Listener func(doc *playerdoc.PlayerState)

// Store 玩家文档缓存
type Store struct {
	api        remote.PlayerAPI
	newDefault DefaultFactory
	hooks      []InitHook
	clock      func() time.Time
	logger     logger.Logger

	mu      sync.Mutex
	state   State
	userID  string
	ready   chan struct{}
	initErr error
	doc     *playerdoc.PlayerState

	// updateMu 串行化 Update 的 修改+保存
	updateMu sync.Mutex

	fetches singleflight.Group

	lmu       sync.Mutex
	listeners map[uint64]*subscription
	nextSub   uint64
}

// Option Store 选项
type Option func(*Store)

// WithClock 注入时钟
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithInitHook 注册初始化钩子，按注册顺序执行
func WithInitHook(h InitHook) Option {
	return func(s *Store) {
		if h != nil {
			s.hooks = append(s.hooks, h)
		}
	}
}

// New 创建 Store
func New(api remote.PlayerAPI, newDefault DefaultFactory, l logger.Logger, opts ...Option) *Store {
	s := &Store{
		api:        api,
		newDefault: newDefault,
		clock:      time.Now,
		logger:     l.Named("store.state"),
		listeners:  make(map[uint64]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State 当前初始化状态
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID 绑定的玩家
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// EnsureInitialized 幂等：首次调用时获取（必要时创建）文档并运行初始化钩子，
// 并发调用者等待同一个就绪信号。初始化失败后状态回到 Uninitialized，可重试。
func (s *Store) EnsureInitialized(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.Wrap(playerdoc.ErrMissingUserID, "ensure initialized")
	}

	s.mu.Lock()
	if s.userID != "" && s.userID != userID && s.state != Uninitialized {
		s.mu.Unlock()
		return errors.Wrapf(ErrUserMismatch, "want %s, bound to %s", userID, s.userID)
	}
	switch s.state {
	case Ready:
		s.mu.Unlock()
		return nil
	case Initializing:
		ready := s.ready
		s.mu.Unlock()
		// 初始化钩子内再次调用时文档已加载，不能等待自身的就绪信号
		if s.inBootstrap(ctx) {
			return nil
		}
		return s.wait(ctx, ready)
	}

	s.state = Initializing
	s.userID = userID
	s.ready = make(chan struct{})
	s.initErr = nil
	ready := s.ready
	s.mu.Unlock()

	start := s.clock()
	err := s.initialize(ctx, userID)

	s.mu.Lock()
	if err != nil {
		s.state = Uninitialized
		s.doc = nil
		s.initErr = err
	} else {
		s.state = Ready
	}
	close(ready)
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "initialization failed", "user_id", userID, "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "initialized", "user_id", userID, "elapsed", s.clock().Sub(start))
	return nil
}

func (s *Store) wait(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		if s.initErr != nil {
			return s.initErr
		}
		return ErrNotInitialized
	}
	return nil
}

// initialize 获取或创建文档，然后运行钩子；只在 Initializing 状态下由发起者调用
func (s *Store) initialize(ctx context.Context, userID string) error {
	doc, err := s.api.Fetch(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, remote.ErrNotFound):
		doc, err = s.create(ctx, userID)
		if err != nil {
			return err
		}
	default:
		return errors.Wrap(err, "fetch player")
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	b := &Bootstrap{s: s}
	ctx = context.WithValue(ctx, bootstrapKey{}, s)
	for i, h := range s.hooks {
		if err := h(ctx, b); err != nil {
			return errors.Wrapf(err, "init hook %d", i)
		}
	}
	return nil
}

// create 构造并提交默认文档；就绪门保证同一时刻最多一个创建请求。
// 已存在（并发创建的良性竞争）视为成功并重新获取。
func (s *Store) create(ctx context.Context, userID string) (*playerdoc.PlayerState, error) {
	doc, err := s.newDefault(userID, s.clock())
	if err != nil {
		return nil, errors.Wrap(err, "build default document")
	}

	stored, err := s.api.Create(ctx, doc)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "player created", "user_id", userID)
		return stored, nil
	case errors.Is(err, remote.ErrAlreadyExists):
		s.logger.InfoContext(ctx, "player created concurrently, refetching", "user_id", userID)
	default:
		return nil, errors.Wrap(err, "create player")
	}

	doc, err = s.api.Fetch(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "refetch after create")
	}
	return doc, nil
}

// GetOption Get 选项
type GetOption func(*getOptions)

type getOptions struct {
	refresh bool
}

// WithRefresh 强制从远端重新获取；返回的是新对象
func WithRefresh() GetOption {
	return func(o *getOptions) { o.refresh = true }
}

// Get 返回缓存文档；同一会话内所有调用方拿到同一个对象。
// 远端获取失败或文档不存在时返回 (nil, nil)，调用方按"无数据"处理。
func (s *Store) Get(ctx context.Context, opts ...GetOption) (*playerdoc.PlayerState, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	state, ready, userID, doc := s.state, s.ready, s.userID, s.doc
	s.mu.Unlock()

	switch {
	case state == Uninitialized:
		return nil, ErrNotInitialized
	case state == Initializing && !s.inBootstrap(ctx):
		if err := s.wait(ctx, ready); err != nil {
			return nil, err
		}
		s.mu.Lock()
		doc = s.doc
		s.mu.Unlock()
	}

	if doc != nil && !o.refresh {
		return doc, nil
	}
	return s.fetch(ctx, userID), nil
}

// fetch 合并并发的远端获取，成功时替换缓存
func (s *Store) fetch(ctx context.Context, userID string) *playerdoc.PlayerState {
	v, err, _ := s.fetches.Do(userID, func() (any, error) {
		return s.api.Fetch(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			s.logger.WarnContext(ctx, "player vanished on refresh", "user_id", userID)
		} else {
			s.logger.WarnContext(ctx, "fetch failed, returning no data", "user_id", userID, "error", err)
		}
		return nil
	}

	fresh := v.(*playerdoc.PlayerState)
	s.mu.Lock()
	s.doc = fresh
	s.mu.Unlock()
	return fresh
}

// Save 整文档持久化；成功后把服务端返回的副本写入缓存对象（保持对象身份）并广播。
// 失败时返回错误，缓存不变。
func (s *Store) Save(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	current, err := s.save(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, current)
	return current, nil
}

// save 经过就绪门持久化，不广播
func (s *Store) save(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	s.mu.Lock()
	state, ready := s.state, s.ready
	s.mu.Unlock()

	switch {
	case state == Uninitialized:
		return nil, ErrNotInitialized
	case state == Initializing && !s.inBootstrap(ctx):
		if err := s.wait(ctx, ready); err != nil {
			return nil, err
		}
	}
	return s.persist(ctx, doc)
}

func (s *Store) persist(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	userID := s.UserID()
	if doc.UserID != userID {
		return nil, errors.Wrapf(ErrUserMismatch, "document for %s", doc.UserID)
	}

	stored, err := s.api.Persist(ctx, doc)
	if err != nil {
		s.logger.ErrorContext(ctx, "save failed", "user_id", userID, "error", err)
		return nil, errors.Wrap(err, "save player")
	}

	s.mu.Lock()
	if s.doc == nil {
		s.doc = stored
	} else {
		*s.doc = *stored
	}
	current := s.doc
	s.mu.Unlock()
	return current, nil
}

// Update 串行执行 修改+保存。fn 返回错误或保存失败时，缓存文档回滚到修改前，
// 避免内存里留下未持久化的修改。
// 广播在释放串行锁之后进行，回调内可以再次调用 Update。
func (s *Store) Update(ctx context.Context, fn func(doc *playerdoc.PlayerState) error) (*playerdoc.PlayerState, error) {
	saved, err := s.update(ctx, fn)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, saved)
	return saved, nil
}

func (s *Store) update(ctx context.Context, fn func(doc *playerdoc.PlayerState) error) (*playerdoc.PlayerState, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	doc, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.Wrap(ErrNotInitialized, "no document available")
	}
	backup, err := doc.Clone()
	if err != nil {
		return nil, err
	}

	if err := fn(doc); err != nil {
		*doc = *backup
		return nil, err
	}
	saved, err := s.save(ctx, doc)
	if err != nil {
		*doc = *backup
		return nil, err
	}
	return saved, nil
}

type bootstrapKey struct{}

// inBootstrap 调用链来自本 Store 的初始化钩子时，Get/Save 不再等待自身的就绪信号
func (s *Store) inBootstrap(ctx context.Context) bool {
	owner, _ := ctx.Value(bootstrapKey{}).(*Store)
	return owner == s
}

// Bootstrap 初始化阶段内对文档的直接访问，不等待就绪信号
type Bootstrap struct {
	s *Store
}

// Doc 初始化中的文档
func (b *Bootstrap) Doc() *playerdoc.PlayerState {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.s.doc
}

// Now Store 的时钟
func (b *Bootstrap) Now() time.Time {
	return b.s.clock()
}

// Save 与 Store.Save 相同，但绕过就绪门
func (b *Bootstrap) Save(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	current, err := b.s.persist(ctx, doc)
	if err != nil {
		return nil, err
	}
	b.s.broadcast(ctx, current)
	return current, nil
}
