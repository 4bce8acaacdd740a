package main

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote/mocks"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/session"
	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

func TestSessionServerStartCreatesPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	api.EXPECT().Fetch(gomock.Any(), "U1").Return(nil, remote.ErrNotFound)
	api.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
			return doc.Clone()
		})
	api.EXPECT().Persist(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
			return doc.Clone()
		})

	l := logger.NewNoop()
	sess := session.New(api, idgen.NewSequence("id-"), l, session.WithClock(func() time.Time { return now }))
	srv := newSessionServer(sess, "U1", l)

	require.NoError(t, srv.Start(context.Background()))
	assert.NotNil(t, srv.unsubscribe)
	assert.False(t, sess.Report().Advanced())
	require.NoError(t, srv.Stop(context.Background()))
}

func TestSessionServerStartFetchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)
	api.EXPECT().Fetch(gomock.Any(), "U1").Return(nil, remote.ErrNetwork)

	l := logger.NewNoop()
	srv := newSessionServer(session.New(api, idgen.NewSequence("id-"), l), "U1", l)

	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrNetwork), "%+v", err)
	assert.Nil(t, srv.unsubscribe)
	assert.NoError(t, srv.Stop(context.Background()))
}
