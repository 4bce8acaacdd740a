package playerdoc

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	ErrFishNotFound  = errors.New("fish not found")
	ErrTankNotFound  = errors.New("tank not found")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrInvalidDoc    = errors.New("invalid player document")
	ErrMissingUserID = errors.New("player document has no userId")
)

// Normalize 补齐反序列化后为 nil 的集合，保证调用方可直接写入
func (p *PlayerState) Normalize() {
	if p.FishList == nil {
		p.FishList = []*Fish{}
	}
	if p.TankList == nil {
		p.TankList = []*Tank{}
	}
	for _, t := range p.TankList {
		if t.FishIDs == nil {
			t.FishIDs = []string{}
		}
	}
	if p.Fashion.Owned == nil {
		p.Fashion.Owned = []string{}
	}
	p.Inventory.ensure()
}

// Clone 深拷贝（经 JSON 往返）
func (p *PlayerState) Clone() (*PlayerState, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshal player state")
	}
	var out PlayerState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshal player state")
	}
	out.Normalize()
	return &out, nil
}

// FindFish 按 ID 查找鱼
func (p *PlayerState) FindFish(id string) *Fish {
	for _, f := range p.FishList {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// FindTank 按 ID 查找鱼缸
func (p *PlayerState) FindTank(id string) *Tank {
	for _, t := range p.TankList {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// LivingFish 返回所有存活的鱼（保持原有顺序）
func (p *PlayerState) LivingFish() []*Fish {
	out := make([]*Fish, 0, len(p.FishList))
	for _, f := range p.FishList {
		if f.Alive() {
			out = append(out, f)
		}
	}
	return out
}

// AddFish 把新鱼放进指定鱼缸，同时维护 fish.tankId 与 tank.fishIds
func (p *PlayerState) AddFish(f *Fish, tankID string) error {
	if p.FindFish(f.ID) != nil {
		return errors.Wrapf(ErrDuplicateID, "fish %s", f.ID)
	}
	tank := p.FindTank(tankID)
	if tank == nil {
		return errors.Wrapf(ErrTankNotFound, "tank %s", tankID)
	}
	f.TankID = tankID
	tank.FishIDs = append(tank.FishIDs, f.ID)
	p.FishList = append(p.FishList, f)
	return nil
}

// MoveFish 把鱼移到另一个鱼缸
func (p *PlayerState) MoveFish(fishID, tankID string) error {
	f := p.FindFish(fishID)
	if f == nil {
		return errors.Wrapf(ErrFishNotFound, "fish %s", fishID)
	}
	dst := p.FindTank(tankID)
	if dst == nil {
		return errors.Wrapf(ErrTankNotFound, "tank %s", tankID)
	}
	if f.TankID == tankID {
		return nil
	}
	if src := p.FindTank(f.TankID); src != nil {
		src.FishIDs = removeID(src.FishIDs, fishID)
	}
	dst.FishIDs = append(dst.FishIDs, fishID)
	f.TankID = tankID
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Validate 检查文档不变式
func (p *PlayerState) Validate() error {
	if p.UserID == "" {
		return ErrMissingUserID
	}
	if p.DragonBones < 0 {
		return errors.Wrapf(ErrInvalidDoc, "dragonBones %d < 0", p.DragonBones)
	}

	fishByID := make(map[string]*Fish, len(p.FishList))
	for _, f := range p.FishList {
		if _, dup := fishByID[f.ID]; dup {
			return errors.Wrapf(ErrDuplicateID, "fish %s", f.ID)
		}
		fishByID[f.ID] = f
		if f.Hunger < 0 || f.Hunger > MaxHunger {
			return errors.Wrapf(ErrInvalidDoc, "fish %s hunger %.2f out of range", f.ID, f.Hunger)
		}
		if f.Stage < 1 || f.Stage > MaxStage {
			return errors.Wrapf(ErrInvalidDoc, "fish %s stage %d out of range", f.ID, f.Stage)
		}
		if f.HungerRateMultiplier <= 0 {
			return errors.Wrapf(ErrInvalidDoc, "fish %s hungerRateMultiplier must be > 0", f.ID)
		}
		if f.Hunger >= MaxHunger && !f.IsDead {
			return errors.Wrapf(ErrInvalidDoc, "fish %s is starved but alive", f.ID)
		}
	}

	for _, f := range p.FishList {
		if !f.IsMarried {
			continue
		}
		spouse, ok := fishByID[f.SpouseID]
		if !ok || !spouse.IsMarried || spouse.SpouseID != f.ID {
			return errors.Wrapf(ErrInvalidDoc, "fish %s marriage is not symmetric", f.ID)
		}
	}

	seen := make(map[string]string, len(p.FishList))
	for _, t := range p.TankList {
		for _, id := range t.FishIDs {
			f, ok := fishByID[id]
			if !ok {
				return errors.Wrapf(ErrFishNotFound, "tank %s references fish %s", t.ID, id)
			}
			if f.TankID != t.ID {
				return errors.Wrapf(ErrInvalidDoc, "fish %s tankId %s but listed in tank %s", id, f.TankID, t.ID)
			}
			if other, dup := seen[id]; dup {
				return errors.Wrapf(ErrInvalidDoc, "fish %s listed in tanks %s and %s", id, other, t.ID)
			}
			seen[id] = t.ID
		}
	}
	for _, f := range p.FishList {
		if _, ok := seen[f.ID]; !ok && f.TankID != "" {
			return errors.Wrapf(ErrInvalidDoc, "fish %s missing from tank %s", f.ID, f.TankID)
		}
	}

	for k, n := range p.Inventory.Feeds {
		if n < 0 {
			return errors.Wrapf(ErrInvalidDoc, "feed %s count %d < 0", k, n)
		}
	}
	for k, n := range p.Inventory.Potions {
		if n < 0 {
			return errors.Wrapf(ErrInvalidDoc, "potion %s count %d < 0", k, n)
		}
	}
	for k, n := range p.Inventory.Devices {
		if n < 0 {
			return errors.Wrapf(ErrInvalidDoc, "device %s count %d < 0", k, n)
		}
	}
	return nil
}
