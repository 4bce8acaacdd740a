package sentry

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type recorder struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *recorder) beforeSend(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) all() []*sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sentry.Event(nil), r.events...)
}

func newEnabled(t *testing.T) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	c, err := New(&Config{Enabled: true, Tags: map[string]string{"service": "player"}}, WithBeforeSend(rec.beforeSend))
	require.NoError(t, err)
	require.True(t, c.Enabled())
	return c, rec
}

func TestDisabledIsNoop(t *testing.T) {
	c, err := New(&Config{})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	c.CaptureError(errors.New("boom"), nil)
	assert.True(t, c.LogHook().OnWrite(zapcore.Entry{Level: zapcore.ErrorLevel}, nil))
	assert.NoError(t, c.Close())
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(&Config{SampleRate: 2})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCaptureError(t *testing.T) {
	c, rec := newEnabled(t)
	c.CaptureError(errors.New("store unreachable"), map[string]string{"op": "get_player"})

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "get_player", events[0].Tags["op"])
	assert.Equal(t, "player", events[0].Tags["service"])
	require.NotEmpty(t, events[0].Exception)
	assert.Contains(t, events[0].Exception[len(events[0].Exception)-1].Value, "store unreachable")
}

func TestLogHook(t *testing.T) {
	c, rec := newEnabled(t)
	hook := c.LogHook()

	assert.True(t, hook.OnWrite(zapcore.Entry{Level: zapcore.WarnLevel, Message: "slow"}, nil))
	assert.Empty(t, rec.all(), "warnings are not reported")

	ok := hook.OnWrite(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "player request failed", LoggerName: "handler.player"},
		[]zapcore.Field{zap.String("user_id", "U1"), zap.Int("attempt", 2)})
	assert.True(t, ok, "log line is still written")

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "player request failed", events[0].Message)
	assert.Equal(t, "handler.player", events[0].Logger)
	assert.Equal(t, "U1", events[0].Extra["user_id"])
}

func TestMiddlewareRepanics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, rec := newEnabled(t)

	r := gin.New()
	r.Use(gin.CustomRecovery(func(ctx *gin.Context, _ any) {
		ctx.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.Use(Middleware(c))
	r.GET("/player/:userId", func(*gin.Context) { panic("nil fish") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/player/U1", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "/player/:userId", events[0].Tags["route"])
	assert.Equal(t, sentry.LevelFatal, events[0].Level)
}
