package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/aquarium/app/player/internal/dao"
	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/app/player/internal/repository"
	"github.com/lk2023060901/aquarium/app/player/internal/service"
	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
	"github.com/lk2023060901/aquarium/pkg/web"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	ctx := context.Background()
	l := logger.NewNoop()

	c, err := prometheus.New(&prometheus.Config{Namespace: "player"}, l)
	require.NoError(t, err)
	m, err := metrics.New(c, nil, nil)
	require.NoError(t, err)

	store, err := dao.OpenSQLite(&dao.SQLiteConfig{Path: ":memory:"}, l, m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	players := service.NewPlayerService(repository.NewPlayerRepository(store, nil, l), idgen.NewSequence("p-"), m, l)
	quiz := service.NewQuizService(store, &service.QuizConfig{Seed: service.DefaultQuestions()}, m, l)
	require.NoError(t, quiz.Start(ctx))
	t.Cleanup(func() { _ = quiz.Stop(context.Background()) })

	srv, err := web.NewServer(&web.Config{Mode: gin.TestMode}, l)
	require.NoError(t, err)
	engine := srv.Router()
	NewPlayerHandler(players, l).Register(engine)
	NewQuizHandler(quiz, l).Register(engine)
	NewHealthHandler(m).Register(engine)
	return engine
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func newDoc(t *testing.T, userID string) *playerdoc.PlayerState {
	t.Helper()
	doc, err := playerdoc.NewDefault(userID, time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), time.UTC, idgen.NewSequence("f-"))
	require.NoError(t, err)
	return doc
}

func TestPlayerRoundTrip(t *testing.T) {
	h := newEngine(t)

	w := do(t, h, http.MethodGet, "/player/U1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), msgPlayerNotFound)

	w = do(t, h, http.MethodPost, "/player", newDoc(t, "U1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[playerdoc.PlayerState](t, w)
	assert.Equal(t, "U1", created.UserID)
	assert.Equal(t, "p-1", created.ID)

	w = do(t, h, http.MethodPost, "/player", newDoc(t, "U1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Player already exists")

	w = do(t, h, http.MethodGet, "/player/U1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[playerdoc.PlayerState](t, w)
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.FishList, 1)
}

func TestConditionalGet(t *testing.T) {
	h := newEngine(t)
	w := do(t, h, http.MethodPost, "/player", newDoc(t, "U1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))

	w = do(t, h, http.MethodGet, "/player/U1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	get := func(ifNoneMatch string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/player/U1", nil)
		req.Header.Set("If-None-Match", ifNoneMatch)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	w = get(etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	changed := newDoc(t, "U1")
	changed.DragonBones = 999
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/player/U1", changed).Code)

	w = get(etag)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))
	assert.Equal(t, 999, decode[playerdoc.PlayerState](t, w).DragonBones)
}

func TestReplaceStripsClientIdentity(t *testing.T) {
	h := newEngine(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/player", newDoc(t, "U1")).Code)

	body := newDoc(t, "intruder")
	body.ID = "forged"
	body.DragonBones = 321
	w := do(t, h, http.MethodPut, "/player/U1", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode[playerdoc.PlayerState](t, w)
	assert.Equal(t, "U1", saved.UserID)
	assert.Equal(t, "p-1", saved.ID)
	assert.Equal(t, 321, saved.DragonBones)

	w = do(t, h, http.MethodPut, "/player/ghost", newDoc(t, "ghost"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadRequests(t *testing.T) {
	h := newEngine(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/player", newDoc(t, "U1")).Code)

	negative := newDoc(t, "U1")
	negative.DragonBones = -5

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing user id", http.MethodPost, "/player", &playerdoc.PlayerState{}, http.StatusBadRequest},
		{"user id with space", http.MethodPost, "/player", newDoc(t, "a b"), http.StatusBadRequest},
		{"not json", http.MethodPost, "/player", "just a string", http.StatusBadRequest},
		{"invalid document", http.MethodPut, "/player/U1", negative, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			resp := decode[web.Response](t, w)
			assert.NotZero(t, resp.Code)
		})
	}
}

func TestQuizAndHealth(t *testing.T) {
	h := newEngine(t)

	w := do(t, h, http.MethodGet, "/quiz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	qs := decode[[]playerdoc.QuizQuestion](t, w)
	assert.Equal(t, service.DefaultQuestions(), qs)

	w = do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[web.Response](t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Contains(t, w.Body.String(), "success_rate")
}
