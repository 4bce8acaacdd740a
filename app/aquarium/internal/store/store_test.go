package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote/mocks"
	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

var testNow = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func defaultFactory(userID string, now time.Time) (*playerdoc.PlayerState, error) {
	return playerdoc.NewDefault(userID, now, time.UTC, idgen.NewSequence("id"))
}

func existingDoc(t *testing.T) *playerdoc.PlayerState {
	t.Helper()
	doc, err := defaultFactory("U1", testNow.Add(-time.Hour))
	require.NoError(t, err)
	return doc
}

// fakeAPI 内存实现：整文档替换，Persist 写入 UpdatedAt 模拟服务端规范化
type fakeAPI struct {
	mu      sync.Mutex
	docs    map[string]*playerdoc.PlayerState
	creates atomic.Int32
	fetches atomic.Int32
	saves   atomic.Int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{docs: make(map[string]*playerdoc.PlayerState)}
}

func (f *fakeAPI) put(doc *playerdoc.PlayerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, _ := doc.Clone()
	f.docs[doc.UserID] = cp
}

func (f *fakeAPI) Fetch(_ context.Context, userID string) (*playerdoc.PlayerState, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[userID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return doc.Clone()
}

func (f *fakeAPI) Create(_ context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	f.creates.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[doc.UserID]; ok {
		return nil, remote.ErrAlreadyExists
	}
	cp, _ := doc.Clone()
	f.docs[doc.UserID] = cp
	return cp.Clone()
}

func (f *fakeAPI) Persist(_ context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	n := f.saves.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[doc.UserID]; !ok {
		return nil, remote.ErrNotFound
	}
	cp, _ := doc.Clone()
	cp.UpdatedAt = testNow.Add(time.Duration(n) * time.Second)
	f.docs[doc.UserID] = cp
	return cp.Clone()
}

func (f *fakeAPI) FetchQuiz(context.Context) ([]playerdoc.QuizQuestion, error) {
	return nil, nil
}

func (f *fakeAPI) stored(userID string) *playerdoc.PlayerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[userID]
}

func newStore(api remote.PlayerAPI, opts ...Option) *Store {
	return New(api, defaultFactory, logger.NewNoop(), append([]Option{WithClock(testClock)}, opts...)...)
}

func TestEnsureInitializedExisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)
	doc := existingDoc(t)

	api.EXPECT().Fetch(gomock.Any(), "U1").Return(doc, nil).Times(1)

	s := newStore(api)
	assert.Equal(t, Uninitialized, s.State())
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
	assert.Equal(t, Ready, s.State())

	got, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, doc, got)
}

func TestEnsureInitializedCreatesOnMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)

	gomock.InOrder(
		api.EXPECT().Fetch(gomock.Any(), "U1").Return(nil, remote.ErrNotFound),
		api.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
				assert.Equal(t, "U1", doc.UserID)
				assert.Len(t, doc.FishList, 1)
				assert.Equal(t, "2026-10-15", doc.LastLoginDate)
				return doc, nil
			}),
	)

	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))

	got, err := s.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "U1", got.UserID)
}

func TestEnsureInitializedAlreadyExistsIsSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)
	doc := existingDoc(t)

	gomock.InOrder(
		api.EXPECT().Fetch(gomock.Any(), "U1").Return(nil, remote.ErrNotFound),
		api.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.Mark(errors.New("400"), remote.ErrAlreadyExists)),
		api.EXPECT().Fetch(gomock.Any(), "U1").Return(doc, nil),
	)

	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
	got, _ := s.Get(context.Background())
	assert.Same(t, doc, got)
}

func TestEnsureInitializedSingleFlight(t *testing.T) {
	api := newFakeAPI()
	release := make(chan struct{})
	var hookRuns atomic.Int32

	s := newStore(api, WithInitHook(func(ctx context.Context, b *Bootstrap) error {
		hookRuns.Add(1)
		<-release
		return nil
	}))

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.EnsureInitialized(context.Background(), "U1")
		}()
	}

	require.Eventually(t, func() bool { return s.State() == Initializing }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, api.creates.Load(), "exactly one create per user")
	assert.EqualValues(t, 1, hookRuns.Load())
	assert.Equal(t, Ready, s.State())
}

func TestEnsureInitializedFetchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)
	netErr := errors.Mark(errors.New("connection refused"), remote.ErrNetwork)

	gomock.InOrder(
		api.EXPECT().Fetch(gomock.Any(), "U1").Return(nil, netErr),
		api.EXPECT().Fetch(gomock.Any(), "U1").Return(existingDoc(t), nil),
	)

	s := newStore(api)
	err := s.EnsureInitialized(context.Background(), "U1")
	assert.True(t, errors.Is(err, remote.ErrNetwork), "%+v", err)
	assert.Equal(t, Uninitialized, s.State())

	_, err = s.Get(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
	assert.Equal(t, Ready, s.State())
}

func TestEnsureInitializedUserMismatch(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	s := newStore(api)

	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
	assert.ErrorIs(t, s.EnsureInitialized(context.Background(), "U2"), ErrUserMismatch)
	assert.Error(t, s.EnsureInitialized(context.Background(), ""))
}

func TestGetRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)
	first := existingDoc(t)
	second := existingDoc(t)
	second.DragonBones = 999

	gomock.InOrder(
		api.EXPECT().Fetch(gomock.Any(), "U1").Return(first, nil),
		api.EXPECT().Fetch(gomock.Any(), "U1").Return(second, nil),
		api.EXPECT().Fetch(gomock.Any(), "U1").Return(nil, errors.Mark(errors.New("timeout"), remote.ErrNetwork)),
	)

	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))

	a, _ := s.Get(context.Background())
	b, _ := s.Get(context.Background())
	assert.Same(t, a, b, "no refresh keeps object identity")

	refreshed, err := s.Get(context.Background(), WithRefresh())
	require.NoError(t, err)
	assert.Equal(t, 999, refreshed.DragonBones)

	failed, err := s.Get(context.Background(), WithRefresh())
	assert.NoError(t, err, "fetch failure is reported as no data")
	assert.Nil(t, failed)

	cached, _ := s.Get(context.Background())
	assert.Same(t, refreshed, cached, "failed refresh keeps the previous cache")
}

func TestSaveAdoptsServerCopyAndBroadcasts(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))

	var received []*playerdoc.PlayerState
	unsubscribe := s.OnChange(func(doc *playerdoc.PlayerState) {
		received = append(received, doc)
	})
	defer unsubscribe()

	doc, _ := s.Get(context.Background())
	doc.DragonBones = 42

	saved, err := s.Save(context.Background(), doc)
	require.NoError(t, err)
	assert.Same(t, doc, saved, "cached object identity survives save")
	assert.Equal(t, 42, saved.DragonBones)
	assert.True(t, testNow.Add(time.Second).Equal(saved.UpdatedAt), "server normalization adopted")

	require.Len(t, received, 1)
	assert.Same(t, doc, received[0])
	assert.Equal(t, 42, api.stored("U1").DragonBones)
}

func TestSaveFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)
	doc := existingDoc(t)

	api.EXPECT().Fetch(gomock.Any(), "U1").Return(doc, nil)
	api.EXPECT().Persist(gomock.Any(), doc).Return(nil, errors.Mark(errors.New("500"), remote.ErrServer))

	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))

	notified := false
	s.OnChange(func(*playerdoc.PlayerState) { notified = true })

	doc.DragonBones = 1
	_, err := s.Save(context.Background(), doc)
	assert.True(t, errors.Is(err, remote.ErrServer), "%+v", err)
	assert.False(t, notified, "failed saves are not broadcast")

	_, err = s.Save(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilDocument)
}

func TestSaveBeforeInit(t *testing.T) {
	s := newStore(newFakeAPI())
	_, err := s.Save(context.Background(), existingDoc(t))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestUnsubscribe(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
	doc, _ := s.Get(context.Background())

	var calls []string
	var unsubSelf func()
	unsubSelf = s.OnChange(func(*playerdoc.PlayerState) {
		calls = append(calls, "self")
		unsubSelf()
		unsubSelf()
	})
	unsubOther := s.OnChange(func(*playerdoc.PlayerState) {
		calls = append(calls, "other")
	})
	s.OnChange(func(*playerdoc.PlayerState) {
		panic("listener bug")
	})
	assert.Equal(t, 3, s.Subscribers())

	_, err := s.Save(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"self", "other"}, calls)

	unsubOther()
	unsubOther()
	_, err = s.Save(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"self", "other"}, calls)
	assert.Equal(t, 1, s.Subscribers())
}

func TestInitHookBootstrap(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))

	var s *Store
	s = newStore(api, WithInitHook(func(ctx context.Context, b *Bootstrap) error {
		doc := b.Doc()
		if doc == nil {
			return errors.New("bootstrap without document")
		}
		doc.DragonBones += 5
		if _, err := b.Save(ctx, doc); err != nil {
			return err
		}

		// 钩子内经由公共接口访问也不会等待自身的就绪信号
		same, err := s.Get(ctx)
		if err != nil {
			return err
		}
		assert.Same(t, doc, same)
		_, err = s.Save(ctx, same)
		return err
	}))

	done := make(chan error, 1)
	go func() { done <- s.EnsureInitialized(context.Background(), "U1") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("initialization deadlocked on its own readiness gate")
	}
	assert.Equal(t, existingDoc(t).DragonBones+5, api.stored("U1").DragonBones)
	assert.EqualValues(t, 2, api.saves.Load())
}

func TestInitHookFailureResetsState(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	boom := errors.New("catch-up failed")
	fail := true

	s := newStore(api, WithInitHook(func(context.Context, *Bootstrap) error {
		if fail {
			return boom
		}
		return nil
	}))

	assert.ErrorIs(t, s.EnsureInitialized(context.Background(), "U1"), boom)
	assert.Equal(t, Uninitialized, s.State())

	fail = false
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
}

func TestWaiterHonoursContext(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	release := make(chan struct{})
	s := newStore(api, WithInitHook(func(context.Context, *Bootstrap) error {
		<-release
		return nil
	}))
	defer close(release)

	go func() { _ = s.EnsureInitialized(context.Background(), "U1") }()
	require.Eventually(t, func() bool { return s.State() == Initializing }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// 同一共享对象上的两次顺序保存都携带双方的修改
func TestSequentialSavesOnSharedObject(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))

	tankView, _ := s.Get(context.Background())
	storePanel, _ := s.Get(context.Background())
	require.Same(t, tankView, storePanel)

	tankView.FishList[0].Hunger = 10
	_, err := s.Save(context.Background(), tankView)
	require.NoError(t, err)

	storePanel.DragonBones = 7
	_, err = s.Save(context.Background(), storePanel)
	require.NoError(t, err)

	final := api.stored("U1")
	assert.Equal(t, 10.0, final.FishList[0].Hunger)
	assert.Equal(t, 7, final.DragonBones)
}

// 两份独立获取的副本先后保存：后写者整文档覆盖，先写者的修改丢失（已知限制）
func TestIndependentCopiesLoseUpdates(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))

	cached, _ := s.Get(context.Background())
	independent, err := cached.Clone()
	require.NoError(t, err)

	cached.FishList[0].Hunger = 10
	_, err = s.Save(context.Background(), cached)
	require.NoError(t, err)

	independent.DragonBones = 7
	_, err = s.Save(context.Background(), independent)
	require.NoError(t, err)

	final := api.stored("U1")
	assert.Equal(t, 7, final.DragonBones)
	assert.Zero(t, final.FishList[0].Hunger, "first writer's edit was overwritten")
	assert.Zero(t, cached.FishList[0].Hunger, "cache adopts the last server copy")
}

func TestUpdateSerializesMutations(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
	start := api.stored("U1").DragonBones

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(context.Background(), func(doc *playerdoc.PlayerState) error {
				doc.DragonBones++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, start+10, api.stored("U1").DragonBones)

	rejected := errors.New("not enough bones")
	_, err := s.Update(context.Background(), func(*playerdoc.PlayerState) error { return rejected })
	assert.ErrorIs(t, err, rejected)
	assert.EqualValues(t, 10, api.saves.Load())
}

func TestUpdateRollsBackOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)
	doc := existingDoc(t)
	bones := doc.DragonBones

	api.EXPECT().Fetch(gomock.Any(), "U1").Return(doc, nil)
	api.EXPECT().Persist(gomock.Any(), gomock.Any()).Return(nil, errors.Mark(errors.New("dial tcp"), remote.ErrNetwork))

	s := newStore(api)
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))

	_, err := s.Update(context.Background(), func(d *playerdoc.PlayerState) error {
		d.DragonBones += 50
		d.FishList[0].Name = "Renamed"
		return nil
	})
	assert.True(t, errors.Is(err, remote.ErrNetwork), "%+v", err)

	cached, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, doc, cached, "identity survives the rollback")
	assert.Equal(t, bones, cached.DragonBones)
	assert.NotEqual(t, "Renamed", cached.FishList[0].Name)

	_, err = s.Update(context.Background(), func(d *playerdoc.PlayerState) error {
		d.DragonBones = -1
		return errors.New("invalid")
	})
	assert.Error(t, err)
	assert.Equal(t, bones, cached.DragonBones)
}

func TestInitHookReentersEnsureInitialized(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))

	var s *Store
	s = newStore(api, WithInitHook(func(ctx context.Context, b *Bootstrap) error {
		return s.EnsureInitialized(ctx, "U1")
	}))

	done := make(chan error, 1)
	go func() { done <- s.EnsureInitialized(context.Background(), "U1") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("EnsureInitialized blocked on its own initialization")
	}
	assert.Equal(t, Ready, s.State())
}

func TestListenerMayCallUpdate(t *testing.T) {
	api := newFakeAPI()
	api.put(existingDoc(t))
	s := newStore(api)
	ctx := context.Background()
	require.NoError(t, s.EnsureInitialized(ctx, "U1"))

	var calls atomic.Int32
	s.OnChange(func(doc *playerdoc.PlayerState) {
		if calls.Add(1) != 1 {
			return
		}
		_, err := s.Update(context.Background(), func(d *playerdoc.PlayerState) error {
			d.DragonBones += 5
			return nil
		})
		assert.NoError(t, err)
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, func(d *playerdoc.PlayerState) error {
			d.DragonBones = 100
			return nil
		})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Update from a change listener never returned")
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 105, api.stored("U1").DragonBones)
}
