package session

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/environment"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/growth"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/ledger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// fishAction 对单条鱼执行成长规则；鱼不存在时返回错误
func (s *Session) fishAction(ctx context.Context, action, fishID string, fn func(f *playerdoc.Fish, inv *playerdoc.Inventory) growth.Outcome) (growth.Outcome, error) {
	return mutate(ctx, s, action, func(doc *playerdoc.PlayerState) (growth.Outcome, bool, error) {
		f := doc.FindFish(fishID)
		if f == nil {
			return growth.Outcome{}, false, errors.Wrapf(playerdoc.ErrFishNotFound, "fish %s", fishID)
		}
		out := fn(f, &doc.Inventory)
		return out, out.OK, nil
	})
}

// Feed 喂食
func (s *Session) Feed(ctx context.Context, fishID string, tier playerdoc.FeedTier) (growth.Outcome, error) {
	return s.fishAction(ctx, "feed", fishID, func(f *playerdoc.Fish, inv *playerdoc.Inventory) growth.Outcome {
		return growth.Feed(f, inv, tier)
	})
}

// UsePotion 使用药水
func (s *Session) UsePotion(ctx context.Context, fishID string, kind playerdoc.PotionKind) (growth.Outcome, error) {
	var apply func(f *playerdoc.Fish, inv *playerdoc.Inventory) growth.Outcome
	switch kind {
	case playerdoc.PotionGrowth:
		apply = growth.UseGrowthPotion
	case playerdoc.PotionGender:
		apply = growth.UseGenderPotion
	case playerdoc.PotionCure:
		apply = growth.UseCurePotion
	case playerdoc.PotionRevive:
		apply = growth.Revive
	case playerdoc.PotionForm:
		apply = func(f *playerdoc.Fish, inv *playerdoc.Inventory) growth.Outcome {
			return growth.UseFormPotion(f, inv, s.rng)
		}
	default:
		s.observe("potion", false)
		return growth.Outcome{Message: "unknown potion " + string(kind)}, nil
	}
	return s.fishAction(ctx, "potion_"+string(kind), fishID, apply)
}

// RenameFish 改名
func (s *Session) RenameFish(ctx context.Context, fishID, name string) (growth.Outcome, error) {
	return s.fishAction(ctx, "rename", fishID, func(f *playerdoc.Fish, _ *playerdoc.Inventory) growth.Outcome {
		return growth.Rename(f, name)
	})
}

// AdjustTemperature 按当前温度选择加热器或风扇，成功调节时扣减一次设备
func (s *Session) AdjustTemperature(ctx context.Context) (environment.Outcome, error) {
	return mutate(ctx, s, "adjust_temperature", func(doc *playerdoc.PlayerState) (environment.Outcome, bool, error) {
		env := &doc.TankEnvironment
		device := environment.DeviceFor(env)
		if !doc.Inventory.Devices.Has(device) {
			return environment.Outcome{Message: "no " + string(device) + " left"}, false, nil
		}
		out := environment.AdjustTemperature(env, s.now())
		if out.OK {
			doc.Inventory.Devices.Take(device)
		}
		return out, out.OK, nil
	})
}

// CleanWater 换水
func (s *Session) CleanWater(ctx context.Context) (environment.Outcome, error) {
	return mutate(ctx, s, "clean_water", func(doc *playerdoc.PlayerState) (environment.Outcome, bool, error) {
		out := environment.CleanWater(&doc.TankEnvironment, s.now())
		return out, out.OK, nil
	})
}

// ClaimWeekly 周签到
func (s *Session) ClaimWeekly(ctx context.Context) (ledger.Outcome, error) {
	return mutate(ctx, s, "claim_weekly", func(doc *playerdoc.PlayerState) (ledger.Outcome, bool, error) {
		out := ledger.ClaimWeekly(doc, s.now())
		return out, out.OK, nil
	})
}

// TodayQuestion 当日月签到题目；题库每个会话只拉取一次
func (s *Session) TodayQuestion(ctx context.Context) (playerdoc.QuizQuestion, error) {
	s.mu.Lock()
	quiz := s.quiz
	s.mu.Unlock()

	if quiz == nil {
		fetched, err := s.api.FetchQuiz(ctx)
		if err != nil {
			return playerdoc.QuizQuestion{}, errors.Wrap(err, "fetch quiz")
		}
		s.mu.Lock()
		s.quiz = fetched
		s.mu.Unlock()
		quiz = fetched
	}

	q, ok := ledger.PickQuestion(quiz, s.now())
	if !ok {
		return playerdoc.QuizQuestion{}, ErrNoQuiz
	}
	return q, nil
}

// ClaimMonthly 回答当日题目领取月签到
func (s *Session) ClaimMonthly(ctx context.Context, answer int) (ledger.Outcome, error) {
	q, err := s.TodayQuestion(ctx)
	if err != nil {
		return ledger.Outcome{}, err
	}
	return mutate(ctx, s, "claim_monthly", func(doc *playerdoc.PlayerState) (ledger.Outcome, bool, error) {
		out := ledger.ClaimMonthly(doc, s.now(), q, answer)
		return out, out.OK, nil
	})
}

// Purchase 商店购买
func (s *Session) Purchase(ctx context.Context, itemID string) (ledger.Outcome, error) {
	item, ok := ledger.FindItem(itemID)
	if !ok {
		s.observe("purchase", false)
		return ledger.Outcome{Message: "unknown item " + itemID}, nil
	}
	return mutate(ctx, s, "purchase", func(doc *playerdoc.PlayerState) (ledger.Outcome, bool, error) {
		out := ledger.Purchase(doc, item)
		return out, out.OK, nil
	})
}
