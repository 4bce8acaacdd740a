package catchup

import "strings"

// FishRef 报告中引用的鱼
type FishRef struct {
	ID   string
	Name string
}

// Promotion 一次阶段晋升
type Promotion struct {
	FishRef
	From int
	To   int
}

// Report 一次追赶的副作用汇总，由调用方展示
type Report struct {
	HoursPassed float64
	DaysPassed  int
	Today       string

	Deaths     []FishRef
	NewlySick  []FishRef
	Promotions []Promotion

	TemperatureUpdated bool
	TemperatureDelta   float64
	TemperatureDanger  bool
	WaterTurnedDirty   bool

	// IllnessSkipped 环境连续恶劣达到阈值但没有可生病的鱼
	IllnessSkipped bool
}

// Advanced 是否推进了任何时间相关状态
func (r *Report) Advanced() bool {
	return r.HoursPassed > 0 || r.DaysPassed > 0 || r.TemperatureUpdated
}

// DeathNotice 汇总本次死亡的一句话提示，无死亡时返回空串
func (r *Report) DeathNotice() string {
	if len(r.Deaths) == 0 {
		return ""
	}
	names := make([]string, len(r.Deaths))
	for i, d := range r.Deaths {
		names[i] = d.Name
	}
	if len(names) == 1 {
		return names[0] + " has passed away while you were gone."
	}
	last := len(names) - 1
	return strings.Join(names[:last], ", ") + " and " + names[last] + " have passed away while you were gone."
}
