package playerdoc

// FeedTier 饲料档次
type FeedTier string

const (
	FeedNormal  FeedTier = "normal"
	FeedPremium FeedTier = "premium"
	FeedDeluxe  FeedTier = "deluxe"
)

// PotionKind 药水种类
type PotionKind string

const (
	PotionGrowth PotionKind = "growth"
	PotionGender PotionKind = "gender"
	PotionCure   PotionKind = "cure"
	PotionForm   PotionKind = "form"
	PotionRevive PotionKind = "revive"
)

// DeviceKind 温控设备
type DeviceKind string

const (
	DeviceHeater DeviceKind = "heater"
	DeviceFan    DeviceKind = "fan"
)

// Counts 物品计数，所有计数 >= 0
type Counts[K ~string] map[K]int

// Has 是否至少有一个
func (c Counts[K]) Has(k K) bool {
	return c[k] > 0
}

// Take 消耗一个，不足时不修改并返回 false
func (c Counts[K]) Take(k K) bool {
	if c[k] <= 0 {
		return false
	}
	c[k]--
	return true
}

// Add 增加 n 个，n <= 0 时忽略
func (c Counts[K]) Add(k K, n int) {
	if n <= 0 {
		return
	}
	c[k] += n
}

// Inventory 消耗品库存
type Inventory struct {
	Feeds   Counts[FeedTier]   `json:"feeds"`
	Potions Counts[PotionKind] `json:"potions"`
	Devices Counts[DeviceKind] `json:"devices"`
}

// ensure 反序列化后 map 可能为 nil
func (inv *Inventory) ensure() {
	if inv.Feeds == nil {
		inv.Feeds = Counts[FeedTier]{}
	}
	if inv.Potions == nil {
		inv.Potions = Counts[PotionKind]{}
	}
	if inv.Devices == nil {
		inv.Devices = Counts[DeviceKind]{}
	}
}
