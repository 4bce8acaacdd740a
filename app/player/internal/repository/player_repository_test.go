package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/aquarium/app/player/internal/dao"
	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/pkg/database/redis"
	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
)

// countingStore 记录读库次数的内存存储
type countingStore struct {
	mu    sync.Mutex
	docs  map[string]*playerdoc.PlayerState
	reads int
}

func (s *countingStore) GetPlayer(_ context.Context, userID string) (*playerdoc.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	doc, ok := s.docs[userID]
	if !ok {
		return nil, dao.ErrPlayerNotFound
	}
	return doc.Clone()
}

func (s *countingStore) CreatePlayer(_ context.Context, doc *playerdoc.PlayerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.UserID]; ok {
		return dao.ErrPlayerExists
	}
	s.docs[doc.UserID] = doc
	return nil
}

func (s *countingStore) ReplacePlayer(_ context.Context, doc *playerdoc.PlayerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.UserID]; !ok {
		return dao.ErrPlayerNotFound
	}
	s.docs[doc.UserID] = doc
	return nil
}

type flakyKV struct {
	mu   sync.Mutex
	data map[string]string
	down bool
}

var errRedisDown = errors.New("redis: connection refused")

func (k *flakyKV) Get(_ context.Context, key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.down {
		return "", errRedisDown
	}
	v, ok := k.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (k *flakyKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.down {
		return errRedisDown
	}
	k.data[key] = string(value.([]byte))
	return nil
}

func (k *flakyKV) Del(_ context.Context, keys ...string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.down {
		return 0, errRedisDown
	}
	for _, key := range keys {
		delete(k.data, key)
	}
	return int64(len(keys)), nil
}

func setup(t *testing.T) (PlayerRepository, *countingStore, *flakyKV) {
	t.Helper()
	c, err := prometheus.New(&prometheus.Config{Namespace: "player"}, logger.NewNoop())
	require.NoError(t, err)
	m, err := metrics.New(c, nil, nil)
	require.NoError(t, err)

	store := &countingStore{docs: map[string]*playerdoc.PlayerState{}}
	kv := &flakyKV{data: map[string]string{}}
	cache := dao.NewCacheDAO(kv, time.Minute, nil, logger.NewNoop(), m)
	return NewPlayerRepository(store, cache, logger.NewNoop()), store, kv
}

func newDoc(t *testing.T, userID string) *playerdoc.PlayerState {
	t.Helper()
	doc, err := playerdoc.NewDefault(userID, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), time.UTC, idgen.NewSequence("id-"))
	require.NoError(t, err)
	return doc
}

func TestReadThrough(t *testing.T) {
	ctx := context.Background()
	repo, store, kv := setup(t)

	require.NoError(t, repo.Create(ctx, newDoc(t, "U1")))
	assert.Contains(t, kv.data, "cache:player:U1")

	for range 3 {
		doc, err := repo.Get(ctx, "U1")
		require.NoError(t, err)
		assert.Equal(t, "U1", doc.UserID)
	}
	assert.Zero(t, store.reads, "served from cache")

	delete(kv.data, "cache:player:U1")
	_, err := repo.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)
	assert.Contains(t, kv.data, "cache:player:U1", "refilled after miss")
}

func TestReplaceRefreshesCache(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := setup(t)

	doc := newDoc(t, "U1")
	require.NoError(t, repo.Create(ctx, doc))

	updated, err := doc.Clone()
	require.NoError(t, err)
	updated.DragonBones = 999
	require.NoError(t, repo.Replace(ctx, updated))

	got, err := repo.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 999, got.DragonBones)

	assert.ErrorIs(t, repo.Replace(ctx, newDoc(t, "ghost")), dao.ErrPlayerNotFound)
}

func TestCacheOutageDegradesToStore(t *testing.T) {
	ctx := context.Background()
	repo, store, kv := setup(t)
	kv.down = true

	require.NoError(t, repo.Create(ctx, newDoc(t, "U1")))
	doc, err := repo.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "U1", doc.UserID)
	assert.Equal(t, 1, store.reads)

	_, err = repo.Get(ctx, "nobody")
	assert.ErrorIs(t, err, dao.ErrPlayerNotFound)
}

func TestWithoutCache(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{docs: map[string]*playerdoc.PlayerState{}}
	repo := NewPlayerRepository(store, nil, logger.NewNoop())

	require.NoError(t, repo.Create(ctx, newDoc(t, "U1")))
	assert.ErrorIs(t, repo.Create(ctx, newDoc(t, "U1")), dao.ErrPlayerExists)
	_, err := repo.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)
}
