package catchup

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote/mocks"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/store"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// seqRand 依次返回预设值（取模），用完后重复最后一个
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) Intn(n int) int {
	v := r.vals[min(r.i, len(r.vals)-1)]
	r.i++
	return v % n
}

func rolls(vals ...int) *seqRand { return &seqRand{vals: vals} }

var t0 = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func fish(id string, hunger float64) *playerdoc.Fish {
	return &playerdoc.Fish{
		ID:                   id,
		Name:                 "fish-" + id,
		Gender:               playerdoc.Female,
		Stage:                1,
		Hunger:               hunger,
		HungerRateMultiplier: 1,
		Emotion:              playerdoc.EmotionHappy,
		Variant:              "red",
		TankID:               "t1",
	}
}

func newDoc(last time.Time, fishes ...*playerdoc.Fish) *playerdoc.PlayerState {
	doc := &playerdoc.PlayerState{
		UserID:        "U1",
		LastLoginTime: last,
		LastLoginDate: last.Format(playerdoc.DateLayout),
		TankList:      []*playerdoc.Tank{{ID: "t1", Name: "Main Tank"}},
		TankEnvironment: playerdoc.Environment{
			Temperature:           25,
			WaterQualityStatus:    playerdoc.WaterClean,
			LastTemperatureUpdate: last,
		},
	}
	for _, f := range fishes {
		doc.FishList = append(doc.FishList, f)
		doc.TankList[0].FishIDs = append(doc.TankList[0].FishIDs, f.ID)
	}
	doc.Normalize()
	return doc
}

func newSim(rng Rand, opts ...Option) *Simulator {
	return New(rng, logger.NewNoop(), opts...)
}

func TestHungerAfterTenHours(t *testing.T) {
	doc := newDoc(t0, fish("f1", 50))

	r := newSim(rolls(0)).Run(doc, t0.Add(10*time.Hour))

	f := doc.FishList[0]
	assert.InDelta(t, 63.9, f.Hunger, 0.05)
	assert.InDelta(t, 50+10*100.0/72, f.Hunger, 1e-9)
	assert.False(t, f.IsDead)
	assert.Empty(t, r.Deaths)
	assert.Empty(t, r.DeathNotice())
	assert.InDelta(t, 10, r.HoursPassed, 1e-9)
	assert.Zero(t, r.DaysPassed)
}

func TestStarvationDeath(t *testing.T) {
	doc := newDoc(t0, fish("f1", 95), fish("f2", 10))
	now := t0.Add(10 * time.Hour)

	r := newSim(rolls(0)).Run(doc, now)

	f := doc.FishList[0]
	assert.Equal(t, playerdoc.MaxHunger, f.Hunger)
	assert.True(t, f.IsDead)
	assert.Equal(t, "2026-10-15", f.DeathDate)
	require.Len(t, r.Deaths, 1)
	assert.Equal(t, "f1", r.Deaths[0].ID)
	assert.Equal(t, "fish-f1 has passed away while you were gone.", r.DeathNotice())
	assert.False(t, doc.FishList[1].IsDead)
}

func TestDeadFishSkipGrowthAndIllness(t *testing.T) {
	doc := newDoc(t0, fish("f1", 99))
	doc.TankEnvironment.WaterQualityStatus = playerdoc.WaterDirty
	doc.TankEnvironment.BadEnvLoginDays = 1

	r := newSim(rolls(0)).Run(doc, t0.Add(48*time.Hour))

	f := doc.FishList[0]
	assert.True(t, f.IsDead)
	assert.Equal(t, 1, f.Stage, "dead fish do not grow")
	assert.Zero(t, f.GrowthDaysPassed)
	assert.False(t, f.Status.Sick)
	assert.True(t, r.IllnessSkipped)
	assert.Equal(t, 2, doc.TankEnvironment.BadEnvLoginDays, "counter kept when nobody can fall ill")

	// 已死亡的鱼之后保持原样
	before := *f
	newSim(rolls(0)).Run(doc, t0.Add(96*time.Hour))
	assert.Equal(t, before, *f)
}

func TestIllnessAfterTwoBadDays(t *testing.T) {
	doc := newDoc(t0, fish("f1", 0), fish("f2", 0), fish("f3", 0))
	doc.FishList[0].Status.Sick = true
	doc.TankEnvironment.WaterQualityStatus = playerdoc.WaterDirty
	doc.TankEnvironment.BadEnvLoginDays = 1

	// 第一次取随机数用于温度漂移，第二次抽选病鱼：候选为 f2、f3
	r := newSim(rolls(1, 1)).Run(doc, t0.Add(40*time.Hour))

	assert.Equal(t, 2, r.DaysPassed)
	require.Len(t, r.NewlySick, 1)
	assert.Equal(t, "f3", r.NewlySick[0].ID)
	assert.True(t, doc.FishList[2].Status.Sick)
	assert.False(t, doc.FishList[1].Status.Sick)
	assert.Zero(t, doc.TankEnvironment.BadEnvLoginDays)

	sick := 0
	for _, f := range doc.FishList {
		if f.Status.Sick {
			sick++
		}
	}
	assert.Equal(t, 2, sick, "exactly one previously healthy fish fell ill")
}

func TestBadEnvCounter(t *testing.T) {
	tests := []struct {
		name      string
		water     playerdoc.WaterQuality
		temp      float64
		counter   int
		hours     time.Duration
		wantCount int
	}{
		{"good environment resets", playerdoc.WaterClean, 25, 1, 24 * time.Hour, 0},
		{"bad environment counts", playerdoc.WaterDirty, 25, 0, 24 * time.Hour, 1},
		{"danger temperature counts", playerdoc.WaterClean, 31, 0, 24 * time.Hour, 1},
		{"same day leaves counter", playerdoc.WaterDirty, 25, 1, time.Hour, 1},
		{"several days count one login day", playerdoc.WaterDirty, 25, 0, 72 * time.Hour, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t0, fish("f1", 0))
			env := &doc.TankEnvironment
			env.WaterQualityStatus = tt.water
			env.Temperature = tt.temp
			env.BadEnvLoginDays = tt.counter
			env.LastTemperatureUpdate = t0.Add(tt.hours)

			newSim(rolls(1)).Run(doc, t0.Add(tt.hours))
			assert.Equal(t, tt.wantCount, env.BadEnvLoginDays)
		})
	}
}

func TestGrowthAcrossDays(t *testing.T) {
	doc := newDoc(t0, fish("f1", 0))

	r := newSim(rolls(0)).Run(doc, t0.Add(60*time.Hour))

	f := doc.FishList[0]
	assert.Equal(t, 2, r.DaysPassed)
	assert.Equal(t, 2, f.GrowthDaysPassed)
	assert.Equal(t, 2, f.Stage)
	require.Len(t, r.Promotions, 1)
	assert.Equal(t, Promotion{FishRef: FishRef{ID: "f1", Name: "fish-f1"}, From: 1, To: 2}, r.Promotions[0])
	assert.Equal(t, playerdoc.EmotionHungry, f.Emotion, "60 hours without food")
	assert.Equal(t, "2026-10-17", doc.LastLoginDate)
}

func TestStageBoundedAndMonotonic(t *testing.T) {
	doc := newDoc(t0, fish("f1", 0))
	sim := newSim(rolls(0, 1))

	prev := doc.FishList[0].Stage
	for day := 1; day <= 30; day++ {
		doc.FishList[0].Hunger = 0 // 每天喂饱
		sim.Run(doc, t0.Add(time.Duration(day)*24*time.Hour))

		f := doc.FishList[0]
		require.False(t, f.IsDead)
		assert.GreaterOrEqual(t, f.Stage, prev)
		assert.LessOrEqual(t, f.Stage, playerdoc.MaxStage)
		assert.GreaterOrEqual(t, f.Hunger, 0.0)
		assert.LessOrEqual(t, f.Hunger, playerdoc.MaxHunger)
		prev = f.Stage
	}
	assert.Equal(t, playerdoc.MaxStage, prev)
	assert.Equal(t, 30, doc.FishList[0].GrowthDaysPassed)
}

func TestIdempotentWithoutElapsedTime(t *testing.T) {
	doc := newDoc(t0, fish("f1", 10), fish("f2", 97))
	doc.TankEnvironment.LoginDaysSinceClean = 1
	doc.TankEnvironment.BadEnvLoginDays = 1
	sim := newSim(rolls(0, 1, 0, 1))
	now := t0.Add(50 * time.Hour)

	first := sim.Run(doc, now)
	assert.True(t, first.Advanced())
	snapshot, err := json.Marshal(doc)
	require.NoError(t, err)

	second := sim.Run(doc, now)
	again, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.JSONEq(t, string(snapshot), string(again))
	assert.False(t, second.Advanced())
	assert.Empty(t, second.Deaths)
	assert.Empty(t, second.NewlySick)
}

func TestTemperatureDrift(t *testing.T) {
	t.Run("waits for interval", func(t *testing.T) {
		doc := newDoc(t0, fish("f1", 0))
		r := newSim(rolls(1)).Run(doc, t0.Add(11*time.Hour))
		assert.False(t, r.TemperatureUpdated)
		assert.Equal(t, 25.0, doc.TankEnvironment.Temperature)
	})

	t.Run("one step regardless of gap", func(t *testing.T) {
		doc := newDoc(t0, fish("f1", 0))
		doc.TankEnvironment.Temperature = 28
		now := t0.Add(40 * time.Hour)

		r := newSim(rolls(1)).Run(doc, now)
		assert.True(t, r.TemperatureUpdated)
		assert.Equal(t, 2.0, r.TemperatureDelta)
		assert.Equal(t, 30.0, doc.TankEnvironment.Temperature)
		assert.True(t, doc.TankEnvironment.TemperatureDanger)
		assert.True(t, r.TemperatureDanger)
		assert.Equal(t, now, doc.TankEnvironment.LastTemperatureUpdate)
	})
}

func TestWaterTurnsDirty(t *testing.T) {
	doc := newDoc(t0, fish("f1", 0))
	doc.TankEnvironment.LoginDaysSinceClean = 1

	r := newSim(rolls(0)).Run(doc, t0.Add(10*time.Hour))
	assert.Zero(t, r.DaysPassed)
	assert.False(t, r.WaterTurnedDirty)

	r = newSim(rolls(0)).Run(doc, t0.Add(26*time.Hour))
	assert.Equal(t, 1, r.DaysPassed)
	assert.True(t, r.WaterTurnedDirty)
	assert.Equal(t, 2, doc.TankEnvironment.LoginDaysSinceClean)
	assert.Equal(t, playerdoc.WaterDirty, doc.TankEnvironment.WaterQualityStatus)
}

func TestDayBoundaryUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	last := time.Date(2026, 10, 14, 23, 0, 0, 0, tokyo)
	doc := newDoc(last, fish("f1", 0))

	r := newSim(rolls(0), WithLocation(tokyo)).Run(doc, last.Add(2*time.Hour))
	assert.Equal(t, 1, r.DaysPassed)
	assert.Equal(t, "2026-10-15", doc.LastLoginDate)

	// 同一瞬间在 UTC 下仍是 10-14
	doc = newDoc(last.UTC(), fish("f1", 0))
	r = newSim(rolls(0)).Run(doc, last.Add(2*time.Hour))
	assert.Zero(t, r.DaysPassed)
}

func TestClockSkewDoesNotRewind(t *testing.T) {
	doc := newDoc(t0, fish("f1", 30))
	doc.LastLoginDate = "2026-10-15"

	r := newSim(rolls(0)).Run(doc, t0.Add(-36*time.Hour))
	assert.Zero(t, r.HoursPassed)
	assert.Zero(t, r.DaysPassed)
	assert.Equal(t, 30.0, doc.FishList[0].Hunger)
	assert.Equal(t, t0, doc.LastLoginTime)
	assert.Equal(t, "2026-10-15", doc.LastLoginDate)
}

func TestDeathNotice(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"Puff"}, "Puff has passed away while you were gone."},
		{[]string{"Puff", "Nemo"}, "Puff and Nemo have passed away while you were gone."},
		{[]string{"Puff", "Nemo", "Dory"}, "Puff, Nemo and Dory have passed away while you were gone."},
	}
	for _, tt := range tests {
		r := &Report{}
		for _, n := range tt.names {
			r.Deaths = append(r.Deaths, FishRef{Name: n})
		}
		assert.Equal(t, tt.want, r.DeathNotice())
	}
}

func TestObserver(t *testing.T) {
	var got *Report
	sim := newSim(rolls(0), WithObserver(func(r *Report) { got = r }))
	r := sim.Run(newDoc(t0, fish("f1", 0)), t0.Add(time.Hour))
	assert.Same(t, r, got)
}

func TestHookRunsInsideInitialization(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)

	stored := newDoc(t0, fish("f1", 95))
	api.EXPECT().Fetch(gomock.Any(), "U1").Return(stored, nil)
	api.EXPECT().Persist(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
			return doc.Clone()
		})

	var report *Report
	sim := newSim(rolls(0))
	s := store.New(api, nil, logger.NewNoop(),
		store.WithClock(func() time.Time { return t0.Add(10 * time.Hour) }),
		store.WithInitHook(sim.Hook(func(r *Report) { report = r })),
	)

	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
	require.NotNil(t, report)
	assert.Equal(t, "fish-f1 has passed away while you were gone.", report.DeathNotice())

	doc, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, doc.FishList[0].IsDead)
	assert.Equal(t, t0.Add(10*time.Hour), doc.LastLoginTime.UTC())

	// 已就绪：不会再次结算
	require.NoError(t, s.EnsureInitialized(context.Background(), "U1"))
}

func TestHookSaveFailureAbortsInitialization(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockPlayerAPI(ctrl)

	api.EXPECT().Fetch(gomock.Any(), "U1").Return(newDoc(t0, fish("f1", 10)), nil)
	api.EXPECT().Persist(gomock.Any(), gomock.Any()).
		Return(nil, errors.Mark(errors.New("connection refused"), remote.ErrNetwork))

	called := false
	s := store.New(api, nil, logger.NewNoop(),
		store.WithClock(func() time.Time { return t0.Add(5 * time.Hour) }),
		store.WithInitHook(newSim(rolls(0)).Hook(func(*Report) { called = true })),
	)

	err := s.EnsureInitialized(context.Background(), "U1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrNetwork), "%+v", err)
	assert.False(t, called)
	assert.Equal(t, store.Uninitialized, s.State())
}
