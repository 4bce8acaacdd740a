// Package environment 共享鱼缸环境的规则：温度漂移、水质变脏、环境好坏判定与道具补救。
//
// 所有函数只修改传入的 Environment，不持久化；温控设备的扣减由调用方负责。
package environment

import (
	"time"

	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

const (
	// ComfortMin 舒适温度下限（含）
	ComfortMin = 22.0
	// ComfortMax 舒适温度上限（含）
	ComfortMax = 28.0
	// SafeTemperature 设备调节后的温度
	SafeTemperature = playerdoc.SafeTemperature

	// UpdateInterval 两次温度漂移的最小间隔
	UpdateInterval = 12 * time.Hour
	// Step 单次漂移幅度
	Step = 2.0

	// DirtyAfterLoginDays 未清洁的登录天数达到该值时水质变脏
	DirtyAfterLoginDays = 2
)

// Rand 随机源，*math/rand.Rand 满足该接口
type Rand interface {
	Intn(n int) int
}

// Outcome 道具补救的结果
type Outcome struct {
	OK      bool
	Message string
}

// IsTemperatureDanger 温度是否超出舒适区间
func IsTemperatureDanger(temp float64) bool {
	return temp < ComfortMin || temp > ComfortMax
}

// IsEnvBad 温度危险或水质脏
func IsEnvBad(env *playerdoc.Environment) bool {
	return IsTemperatureDanger(env.Temperature) || env.WaterQualityStatus == playerdoc.WaterDirty
}

// ShouldUpdateTemperature 距上次漂移是否已满 UpdateInterval；从未漂移过视为已满
func ShouldUpdateTemperature(env *playerdoc.Environment, now time.Time) bool {
	if env.LastTemperatureUpdate.IsZero() {
		return true
	}
	return now.Sub(env.LastTemperatureUpdate) >= UpdateInterval
}

// UpdateTemperature 随机游走一步并刷新危险标记，返回本次变化量
func UpdateTemperature(env *playerdoc.Environment, rng Rand, now time.Time) float64 {
	delta := Step
	if rng.Intn(2) == 0 {
		delta = -Step
	}
	env.Temperature += delta
	env.TemperatureDanger = IsTemperatureDanger(env.Temperature)
	env.LastTemperatureUpdate = now
	return delta
}

// CheckWaterDirty 未清洁登录天数达到阈值时把水质置为脏，返回当前是否为脏
func CheckWaterDirty(env *playerdoc.Environment) bool {
	if env.LoginDaysSinceClean >= DirtyAfterLoginDays {
		env.WaterQualityStatus = playerdoc.WaterDirty
	}
	return env.WaterQualityStatus == playerdoc.WaterDirty
}

// DeviceFor 当前温度应使用的设备：偏冷用加热器，其余用风扇
func DeviceFor(env *playerdoc.Environment) playerdoc.DeviceKind {
	if env.Temperature < SafeTemperature {
		return playerdoc.DeviceHeater
	}
	return playerdoc.DeviceFan
}

// AdjustTemperature 把温度调回安全值并清除危险标记。
// 温度已是安全值时不做任何修改，调用方据此决定是否扣减设备。
func AdjustTemperature(env *playerdoc.Environment, now time.Time) Outcome {
	if env.Temperature == SafeTemperature && !env.TemperatureDanger {
		return Outcome{Message: "temperature is already comfortable"}
	}
	env.Temperature = SafeTemperature
	env.TemperatureDanger = false
	env.LastTemperatureUpdate = now
	return Outcome{OK: true, Message: "temperature restored to 25°C"}
}

// CleanWater 水质恢复干净，未清洁登录天数清零
func CleanWater(env *playerdoc.Environment, now time.Time) Outcome {
	env.WaterQualityStatus = playerdoc.WaterClean
	env.LoginDaysSinceClean = 0
	env.LastCleanTime = now
	return Outcome{OK: true, Message: "water is clean"}
}
