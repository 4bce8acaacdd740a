package playerdoc

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/pkg/idgen"
)

// Variants 外观候选集合
var Variants = []string{"red", "blue", "gold", "white", "black", "calico"}

// 新玩家初始数值
const (
	SeedDragonBones = 100
	SeedFishName    = "Puff"
	SafeTemperature = 25.0
	WeeklySlots     = 7
	MonthlySlots    = 31
)

// NewDefault 构造新玩家的默认文档：一条种子鱼、一个鱼缸、初始库存与清零的签到账本
func NewDefault(userID string, now time.Time, loc *time.Location, ids idgen.Generator) (*PlayerState, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if loc == nil {
		loc = time.UTC
	}

	tankID, err := ids.NextID()
	if err != nil {
		return nil, errors.Wrap(err, "allocate tank id")
	}
	fishID, err := ids.NextID()
	if err != nil {
		return nil, errors.Wrap(err, "allocate fish id")
	}

	now = now.In(loc)
	doc := &PlayerState{
		UserID:        userID,
		DragonBones:   SeedDragonBones,
		LastLoginDate: now.Format(DateLayout),
		LastLoginTime: now,
		FishList:      []*Fish{},
		TankList:      []*Tank{{ID: tankID, Name: "Main Tank", FishIDs: []string{}}},
		TankEnvironment: Environment{
			Temperature:           SafeTemperature,
			WaterQualityStatus:    WaterClean,
			LastTemperatureUpdate: now,
			LastCleanTime:         now,
		},
		Inventory: Inventory{
			Feeds:   Counts[FeedTier]{FeedNormal: 10, FeedPremium: 3, FeedDeluxe: 1},
			Potions: Counts[PotionKind]{PotionGrowth: 1, PotionGender: 1, PotionCure: 1, PotionForm: 1},
			Devices: Counts[DeviceKind]{DeviceHeater: 1, DeviceFan: 1},
		},
		Fashion: Fashion{Owned: []string{}},
		SignInData: SignInData{
			Weekly:  SignInLedger{Claimed: make([]bool, WeeklySlots)},
			Monthly: SignInLedger{Claimed: make([]bool, MonthlySlots)},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	seed := &Fish{
		ID:                   fishID,
		Name:                 SeedFishName,
		Gender:               Female,
		Stage:                1,
		HungerRateMultiplier: 1,
		Emotion:              EmotionHappy,
		Variant:              Variants[0],
		BornAt:               now,
	}
	if err := doc.AddFish(seed, tankID); err != nil {
		return nil, err
	}
	return doc, nil
}
