// Package catchup 会话开始时把离线期间流逝的时间一次性结算到玩家文档上。
//
// 结算顺序：饥饿与死亡，成长，环境漂移，疾病触发，最后推进 lastLoginDate/lastLoginTime。
// 推进登录时间后再次结算不会产生任何变化。
package catchup

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/environment"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/growth"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/store"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// IllnessBuffer 环境连续恶劣的登录天数达到该值时有一条鱼生病。
// 计数单位是登录日：一次结算无论跨越多少天只计 1。
const IllnessBuffer = 2

// ErrNoDocument 初始化钩子运行时文档缺失
var ErrNoDocument = errors.New("catchup: no document to reconcile")

// Rand 随机源，同时供温度漂移与疾病抽选使用
type Rand interface {
	Intn(n int) int
}

// Observer 每次结算完成后的回调
type Observer func(r *Report)

// Simulator 离线追赶
type Simulator struct {
	rng      Rand
	loc      *time.Location
	logger   logger.Logger
	observer Observer
}

// Option Simulator 选项
type Option func(*Simulator)

// WithLocation 计算日界线使用的时区，默认 UTC
func WithLocation(loc *time.Location) Option {
	return func(s *Simulator) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithObserver 结算完成回调（指标等）
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		s.observer = o
	}
}

// New 创建 Simulator
func New(rng Rand, l logger.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		rng:    rng,
		loc:    time.UTC,
		logger: l.Named("catchup"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run 把 lastLoginTime 到 now 之间的时间结算到 doc 上（原地修改，不持久化）
func (s *Simulator) Run(doc *playerdoc.PlayerState, now time.Time) *Report {
	now = now.In(s.loc)
	today := now.Format(playerdoc.DateLayout)

	r := &Report{
		Today:       today,
		HoursPassed: hoursBetween(doc.LastLoginTime, now),
		DaysPassed:  daysBetween(doc.LastLoginDate, today),
	}

	s.settleFish(doc, r)
	s.driftEnvironment(doc, now, r)
	if r.DaysPassed > 0 {
		s.triggerIllness(doc, r)
	}

	if now.After(doc.LastLoginTime) {
		doc.LastLoginTime = now
	}
	if today > doc.LastLoginDate {
		doc.LastLoginDate = today
	}

	if s.observer != nil {
		s.observer(r)
	}
	return r
}

// settleFish 饥饿累积在前，饿死的鱼本轮不再参与成长与疾病
func (s *Simulator) settleFish(doc *playerdoc.PlayerState, r *Report) {
	for _, f := range doc.FishList {
		if !f.Alive() {
			continue
		}
		if growth.Starve(f, r.HoursPassed) {
			growth.MarkDead(f, r.Today)
			r.Deaths = append(r.Deaths, FishRef{ID: f.ID, Name: f.Name})
			continue
		}
		if r.DaysPassed > 0 {
			if from, to := growth.ApplyGrowthDays(f, r.DaysPassed); from != to {
				r.Promotions = append(r.Promotions, Promotion{FishRef: FishRef{ID: f.ID, Name: f.Name}, From: from, To: to})
			}
		}
		growth.RefreshEmotion(f)
	}
}

func (s *Simulator) driftEnvironment(doc *playerdoc.PlayerState, now time.Time, r *Report) {
	env := &doc.TankEnvironment
	if environment.ShouldUpdateTemperature(env, now) {
		r.TemperatureDelta = environment.UpdateTemperature(env, s.rng, now)
		r.TemperatureUpdated = true
	}
	r.TemperatureDanger = environment.IsTemperatureDanger(env.Temperature)

	if r.DaysPassed > 0 {
		env.LoginDaysSinceClean++
	}
	wasDirty := env.WaterQualityStatus == playerdoc.WaterDirty
	if environment.CheckWaterDirty(env) && !wasDirty {
		r.WaterTurnedDirty = true
	}
}

// triggerIllness 连续恶劣计数达到缓冲值时随机一条健康的鱼生病并清零；
// 没有可选的鱼时保持计数不变
func (s *Simulator) triggerIllness(doc *playerdoc.PlayerState, r *Report) {
	env := &doc.TankEnvironment
	if !environment.IsEnvBad(env) {
		env.BadEnvLoginDays = 0
		return
	}
	env.BadEnvLoginDays++
	if env.BadEnvLoginDays < IllnessBuffer {
		return
	}

	var eligible []*playerdoc.Fish
	for _, f := range doc.FishList {
		if f.Alive() && !f.Status.Sick {
			eligible = append(eligible, f)
		}
	}
	if len(eligible) == 0 {
		r.IllnessSkipped = true
		return
	}

	f := eligible[s.rng.Intn(len(eligible))]
	f.Status.Sick = true
	growth.RefreshEmotion(f)
	env.BadEnvLoginDays = 0
	r.NewlySick = append(r.NewlySick, FishRef{ID: f.ID, Name: f.Name})
}

// Hook 返回在 Store 初始化期间运行的钩子：结算、保存，然后把报告交给 sink
func (s *Simulator) Hook(sink func(*Report)) store.InitHook {
	return func(ctx context.Context, b *store.Bootstrap) error {
		doc := b.Doc()
		if doc == nil {
			return ErrNoDocument
		}

		r := s.Run(doc, b.Now())
		if _, err := b.Save(ctx, doc); err != nil {
			return errors.Wrap(err, "persist catch-up")
		}

		s.logger.InfoContext(ctx, "catch-up applied",
			"user_id", doc.UserID,
			"hours", r.HoursPassed,
			"days", r.DaysPassed,
			"deaths", len(r.Deaths),
			"newly_sick", len(r.NewlySick),
			"temperature", doc.TankEnvironment.Temperature,
		)
		if sink != nil {
			sink(r)
		}
		return nil
	}
}

func hoursBetween(last, now time.Time) float64 {
	if last.IsZero() || !now.After(last) {
		return 0
	}
	return now.Sub(last).Hours()
}

// daysBetween 两个 YYYY-MM-DD 之间跨过的日界线数；无法解析或倒退时为 0
func daysBetween(last, today string) int {
	if last == "" {
		return 0
	}
	from, err := time.Parse(playerdoc.DateLayout, last)
	if err != nil {
		return 0
	}
	to, err := time.Parse(playerdoc.DateLayout, today)
	if err != nil || !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
