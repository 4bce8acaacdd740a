// Package playerdoc 定义玩家文档：客户端缓存、服务端存储共用的 JSON 结构。
//
// 所有时间戳序列化为 ISO-8601 字符串，所有日期为 YYYY-MM-DD。
package playerdoc

import "time"

// DateLayout 日历日格式
const DateLayout = "2006-01-02"

// Gender 性别
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Opposite 返回相反性别
func (g Gender) Opposite() Gender {
	if g == Male {
		return Female
	}
	return Male
}

// Emotion 鱼的展示情绪，仅用于界面
type Emotion string

const (
	EmotionHappy  Emotion = "happy"
	EmotionHungry Emotion = "hungry"
	EmotionSick   Emotion = "sick"
)

// WaterQuality 水质
type WaterQuality string

const (
	WaterClean WaterQuality = "clean"
	WaterDirty WaterQuality = "dirty"
)

// MaxStage 成年阶段，阶段成长的终点
const MaxStage = 6

// MaxHunger 饥饿上限，达到即死亡
const MaxHunger = 100.0

// PlayerState 玩家文档根聚合，每个用户一份，整体持久化
type PlayerState struct {
	// ID 服务端内部主键，客户端写回时会被忽略
	ID string `json:"_id,omitempty"`

	UserID      string `json:"userId"`
	DragonBones int    `json:"dragonBones"`

	LastLoginDate string    `json:"lastLoginDate"`
	LastLoginTime time.Time `json:"lastLoginTime"`

	FishList        []*Fish     `json:"fishList"`
	TankList        []*Tank     `json:"tankList"`
	TankEnvironment Environment `json:"tankEnvironment"`
	Inventory       Inventory   `json:"inventory"`
	Fashion         Fashion     `json:"fashion"`
	SignInData      SignInData  `json:"signInData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FishStatus 健康状态
type FishStatus struct {
	Sick bool `json:"sick"`
}

// Fish 鱼
type Fish struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender Gender `json:"gender"`

	Stage            int `json:"stage"`
	GrowthDaysPassed int `json:"growthDaysPassed"`

	Hunger               float64 `json:"hunger"`
	HungerRateMultiplier float64 `json:"hungerRateMultiplier"`

	Status  FishStatus `json:"status"`
	Emotion Emotion    `json:"emotion"`
	Variant string     `json:"variant"`

	IsDead    bool   `json:"isDead"`
	DeathDate string `json:"deathDate,omitempty"`

	IsMarried bool   `json:"isMarried"`
	SpouseID  string `json:"spouseId,omitempty"`

	TankID string    `json:"tankId"`
	BornAt time.Time `json:"bornAt"`
}

// Alive 是否存活
func (f *Fish) Alive() bool {
	return f != nil && !f.IsDead
}

// Tank 展示用鱼缸，环境由所有鱼缸共享
type Tank struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	FishIDs []string `json:"fishIds"`
}

// Environment 共享鱼缸环境
type Environment struct {
	Temperature        float64      `json:"temperature"`
	TemperatureDanger  bool         `json:"temperatureDanger"`
	WaterQualityStatus WaterQuality `json:"waterQualityStatus"`

	LoginDaysSinceClean int `json:"loginDaysSinceClean"`
	BadEnvLoginDays     int `json:"badEnvLoginDays"`

	LastTemperatureUpdate time.Time `json:"lastTemperatureUpdate"`
	LastCleanTime         time.Time `json:"lastCleanTime"`
}

// Fashion 装扮拥有集合，只增不减
type Fashion struct {
	Owned    []string          `json:"owned"`
	Equipped map[string]string `json:"equipped,omitempty"`
}

// Owns 是否已拥有
func (f *Fashion) Owns(id string) bool {
	for _, o := range f.Owned {
		if o == id {
			return true
		}
	}
	return false
}

// Grant 加入拥有集合，已拥有时返回 false
func (f *Fashion) Grant(id string) bool {
	if f.Owns(id) {
		return false
	}
	f.Owned = append(f.Owned, id)
	return true
}

// SignInData 签到账本
type SignInData struct {
	Weekly  SignInLedger `json:"weekly"`
	Monthly SignInLedger `json:"monthly"`
}

// SignInLedger 单个周期的签到记录
type SignInLedger struct {
	// PeriodKey 周期标识：周签到为 2026-W42，月签到为 2026-10
	PeriodKey     string `json:"periodKey"`
	Claimed       []bool `json:"claimed"`
	LastClaimDate string `json:"lastClaimDate"`
}

// QuizQuestion 月签到答题
type QuizQuestion struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}
