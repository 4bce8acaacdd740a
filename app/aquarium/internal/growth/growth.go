// Package growth 单条鱼的成长规则：饥饿速率、阶段晋升、喂食与各类药水。
//
// 函数只修改传入的 Fish 和 Inventory，不持久化。校验失败（库存不足、鱼已死亡等）
// 通过 Outcome.OK=false 返回，不产生错误，且不修改任何状态。
package growth

import (
	"strings"
	"unicode/utf8"

	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

const (
	// BaseHungerRate 每小时饥饿增量：72 小时从 0 饿到 100
	BaseHungerRate = playerdoc.MaxHunger / 72
	// SickMultiplier 生病时的饥饿速率倍数
	SickMultiplier = 1.5
	// HungryThreshold 达到该饥饿值显示为饥饿
	HungryThreshold = 80.0
	// GrowthPotionDays 一瓶成长药水折算的成长天数
	GrowthPotionDays = 5
	// MaxNameLength 鱼名最大字符数
	MaxNameLength = 12
)

// StageThresholds 到达各阶段所需的累计成长天数，下标即阶段（0 号位不用）
var StageThresholds = [playerdoc.MaxStage + 1]int{0, 0, 1, 3, 6, 10, 15}

// FeedAmounts 各档饲料降低的饥饿值
var FeedAmounts = map[playerdoc.FeedTier]float64{
	playerdoc.FeedNormal:  20,
	playerdoc.FeedPremium: 40,
	playerdoc.FeedDeluxe:  70,
}

// Rand 随机源
type Rand interface {
	Intn(n int) int
}

// Outcome 操作结果，供调用方驱动提示与后续效果
type Outcome struct {
	OK      bool
	Message string

	StageChanged bool
	FromStage    int
	ToStage      int

	HungerBefore float64
	HungerAfter  float64

	Cured   bool
	Revived bool
}

func fail(msg string) Outcome {
	return Outcome{Message: msg}
}

// HungerRate 有效的每小时饥饿速率
func HungerRate(f *playerdoc.Fish) float64 {
	rate := BaseHungerRate * f.HungerRateMultiplier
	if f.Status.Sick {
		rate *= SickMultiplier
	}
	return rate
}

// Starve 经过 hours 小时后的饥饿累积，先截断到上限再判断；返回是否饿死
func Starve(f *playerdoc.Fish, hours float64) bool {
	if hours > 0 {
		f.Hunger = min(playerdoc.MaxHunger, f.Hunger+hours*HungerRate(f))
	}
	return f.Hunger >= playerdoc.MaxHunger
}

// MarkDead 标记死亡；deathDate 只写一次
func MarkDead(f *playerdoc.Fish, date string) {
	f.IsDead = true
	if f.DeathDate == "" {
		f.DeathDate = date
	}
}

// RefreshEmotion 按当前饥饿与健康刷新展示情绪
func RefreshEmotion(f *playerdoc.Fish) {
	switch {
	case f.Hunger >= HungryThreshold:
		f.Emotion = playerdoc.EmotionHungry
	case f.Status.Sick:
		f.Emotion = playerdoc.EmotionSick
	default:
		f.Emotion = playerdoc.EmotionHappy
	}
}

// PromoteStage 累计天数满足下一阶段门槛时逐级晋升，返回是否有变化
func PromoteStage(f *playerdoc.Fish) bool {
	from := f.Stage
	for f.Stage < playerdoc.MaxStage && f.GrowthDaysPassed >= StageThresholds[f.Stage+1] {
		f.Stage++
	}
	return f.Stage != from
}

// ApplyGrowthDays 增加成长天数并晋升，返回晋升前后的阶段
func ApplyGrowthDays(f *playerdoc.Fish, days int) (from, to int) {
	from = f.Stage
	if days > 0 {
		f.GrowthDaysPassed += days
	}
	PromoteStage(f)
	return from, f.Stage
}

// Feed 消耗一份饲料降低饥饿，下限为 0
func Feed(f *playerdoc.Fish, inv *playerdoc.Inventory, tier playerdoc.FeedTier) Outcome {
	amount, known := FeedAmounts[tier]
	switch {
	case !known:
		return fail("unknown feed " + string(tier))
	case !f.Alive():
		return fail(f.Name + " is dead")
	case !inv.Feeds.Take(tier):
		return fail("no " + string(tier) + " feed left")
	}

	before := f.Hunger
	f.Hunger = max(0, f.Hunger-amount)
	RefreshEmotion(f)
	return Outcome{
		OK:           true,
		Message:      f.Name + " enjoyed the " + string(tier) + " feed",
		HungerBefore: before,
		HungerAfter:  f.Hunger,
	}
}

// UseGrowthPotion 增加 GrowthPotionDays 成长天数并走同一套晋升规则。
// 已到最高阶段时拒绝使用且不消耗药水，此时成长天数不再有效果。
func UseGrowthPotion(f *playerdoc.Fish, inv *playerdoc.Inventory) Outcome {
	switch {
	case !f.Alive():
		return fail(f.Name + " is dead")
	case f.Stage >= playerdoc.MaxStage:
		return fail(f.Name + " is already fully grown")
	case !inv.Potions.Take(playerdoc.PotionGrowth):
		return fail("no growth potion left")
	}

	from, to := ApplyGrowthDays(f, GrowthPotionDays)
	out := Outcome{OK: true, FromStage: from, ToStage: to, StageChanged: from != to}
	if out.StageChanged {
		out.Message = f.Name + " grew to a new stage"
	} else {
		out.Message = f.Name + " is growing"
	}
	return out
}

// UseGenderPotion 翻转性别
func UseGenderPotion(f *playerdoc.Fish, inv *playerdoc.Inventory) Outcome {
	switch {
	case !f.Alive():
		return fail(f.Name + " is dead")
	case !inv.Potions.Take(playerdoc.PotionGender):
		return fail("no gender potion left")
	}
	f.Gender = f.Gender.Opposite()
	return Outcome{OK: true, Message: f.Name + " is now " + string(f.Gender)}
}

// UseCurePotion 治愈生病的鱼
func UseCurePotion(f *playerdoc.Fish, inv *playerdoc.Inventory) Outcome {
	switch {
	case !f.Alive():
		return fail(f.Name + " is dead")
	case !f.Status.Sick:
		return fail(f.Name + " is not sick")
	case !inv.Potions.Take(playerdoc.PotionCure):
		return fail("no cure potion left")
	}
	f.Status.Sick = false
	RefreshEmotion(f)
	return Outcome{OK: true, Cured: true, Message: f.Name + " feels better"}
}

// UseFormPotion 从候选外观中随机换一个，保证与当前不同
func UseFormPotion(f *playerdoc.Fish, inv *playerdoc.Inventory, rng Rand) Outcome {
	candidates := make([]string, 0, len(playerdoc.Variants))
	for _, v := range playerdoc.Variants {
		if v != f.Variant {
			candidates = append(candidates, v)
		}
	}
	switch {
	case !f.Alive():
		return fail(f.Name + " is dead")
	case len(candidates) == 0:
		return fail("no other form available")
	case !inv.Potions.Take(playerdoc.PotionForm):
		return fail("no form potion left")
	}
	f.Variant = candidates[rng.Intn(len(candidates))]
	return Outcome{OK: true, Message: f.Name + " changed to " + f.Variant}
}

// Revive 复活药水：唯一能清除死亡标记的操作，复活后饥饿减半、病愈
func Revive(f *playerdoc.Fish, inv *playerdoc.Inventory) Outcome {
	switch {
	case f.Alive():
		return fail(f.Name + " is alive")
	case !inv.Potions.Take(playerdoc.PotionRevive):
		return fail("no revive potion left")
	}
	f.IsDead = false
	f.DeathDate = ""
	f.Hunger = playerdoc.MaxHunger / 2
	f.Status.Sick = false
	RefreshEmotion(f)
	return Outcome{OK: true, Revived: true, Message: f.Name + " is back"}
}

// Rename 改名，去除首尾空白后长度为 1..MaxNameLength 个字符
func Rename(f *playerdoc.Fish, name string) Outcome {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return fail("name must not be empty")
	case n > MaxNameLength:
		return fail("name is too long")
	}
	f.Name = name
	return Outcome{OK: true, Message: "renamed to " + name}
}
