package ledger

import (
	"fmt"

	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// ItemKind 商品类别
type ItemKind string

const (
	KindFeed    ItemKind = "feed"
	KindPotion  ItemKind = "potion"
	KindDevice  ItemKind = "device"
	KindFashion ItemKind = "fashion"
)

// Item 商品；Key 为饲料档次、药水种类、设备种类或装扮 ID
type Item struct {
	ID       string
	Kind     ItemKind
	Key      string
	Price    int
	Quantity int
}

// Catalog 商店货架
var Catalog = []Item{
	{ID: "feed-normal-5", Kind: KindFeed, Key: string(playerdoc.FeedNormal), Price: 10, Quantity: 5},
	{ID: "feed-premium", Kind: KindFeed, Key: string(playerdoc.FeedPremium), Price: 8, Quantity: 1},
	{ID: "feed-deluxe", Kind: KindFeed, Key: string(playerdoc.FeedDeluxe), Price: 15, Quantity: 1},
	{ID: "potion-growth", Kind: KindPotion, Key: string(playerdoc.PotionGrowth), Price: 30, Quantity: 1},
	{ID: "potion-gender", Kind: KindPotion, Key: string(playerdoc.PotionGender), Price: 25, Quantity: 1},
	{ID: "potion-cure", Kind: KindPotion, Key: string(playerdoc.PotionCure), Price: 20, Quantity: 1},
	{ID: "potion-form", Kind: KindPotion, Key: string(playerdoc.PotionForm), Price: 25, Quantity: 1},
	{ID: "potion-revive", Kind: KindPotion, Key: string(playerdoc.PotionRevive), Price: 80, Quantity: 1},
	{ID: "device-heater", Kind: KindDevice, Key: string(playerdoc.DeviceHeater), Price: 12, Quantity: 1},
	{ID: "device-fan", Kind: KindDevice, Key: string(playerdoc.DeviceFan), Price: 12, Quantity: 1},
	{ID: "hat-crown", Kind: KindFashion, Key: "hat-crown", Price: 120, Quantity: 1},
	{ID: "hat-straw", Kind: KindFashion, Key: "hat-straw", Price: 40, Quantity: 1},
	{ID: "glasses-round", Kind: KindFashion, Key: "glasses-round", Price: 60, Quantity: 1},
}

// FindItem 按 ID 查找商品
func FindItem(id string) (Item, bool) {
	for _, it := range Catalog {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Purchase 扣除龙骨并发放商品；余额不足或装扮已拥有时不做任何修改
func Purchase(doc *playerdoc.PlayerState, item Item) Outcome {
	if item.Price < 0 || item.Quantity <= 0 {
		return fail("item is not for sale")
	}
	if doc.DragonBones < item.Price {
		return fail(fmt.Sprintf("not enough dragon bones: need %d, have %d", item.Price, doc.DragonBones))
	}

	inv := &doc.Inventory
	switch item.Kind {
	case KindFeed:
		inv.Feeds.Add(playerdoc.FeedTier(item.Key), item.Quantity)
	case KindPotion:
		inv.Potions.Add(playerdoc.PotionKind(item.Key), item.Quantity)
	case KindDevice:
		inv.Devices.Add(playerdoc.DeviceKind(item.Key), item.Quantity)
	case KindFashion:
		if !doc.Fashion.Grant(item.Key) {
			return fail("already owned")
		}
	default:
		return fail("unknown item kind " + string(item.Kind))
	}

	doc.DragonBones -= item.Price
	return Outcome{
		OK:      true,
		Granted: item.ID,
		Message: fmt.Sprintf("bought %s for %d dragon bones", item.ID, item.Price),
	}
}
