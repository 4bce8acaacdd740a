// Package ledger 签到与商店：只读写 dragonBones、库存、装扮与签到账本，不涉及时间推演。
package ledger

import (
	"fmt"
	"time"

	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// WeeklyRewards 周签到按星期一到星期日发放的龙骨
var WeeklyRewards = [playerdoc.WeeklySlots]int{10, 10, 20, 20, 30, 30, 50}

const (
	// MonthlyReward 月签到答对题目的龙骨
	MonthlyReward = 15
	// MonthlyStreakEvery 当月累计签到每满该天数额外赠送一份高级饲料
	MonthlyStreakEvery = 7
)

// Outcome 签到或购买结果
type Outcome struct {
	OK      bool
	Message string

	Slot    int
	Reward  int
	Granted string
}

func fail(msg string) Outcome {
	return Outcome{Message: msg}
}

// WeekKey ISO 周标识，如 2026-W42
func WeekKey(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// MonthKey 月标识，如 2026-10
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// weekdaySlot 星期一为 0
func weekdaySlot(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// roll 周期变化时重置账本
func roll(l *playerdoc.SignInLedger, key string, slots int) {
	if l.PeriodKey == key && len(l.Claimed) == slots {
		return
	}
	l.PeriodKey = key
	l.Claimed = make([]bool, slots)
}

// ClaimWeekly 领取今天的周签到奖励，每个自然日一次
func ClaimWeekly(doc *playerdoc.PlayerState, now time.Time) Outcome {
	l := &doc.SignInData.Weekly
	today := now.Format(playerdoc.DateLayout)
	roll(l, WeekKey(now), playerdoc.WeeklySlots)

	slot := weekdaySlot(now)
	if l.Claimed[slot] || l.LastClaimDate == today {
		return fail("already signed in today")
	}

	reward := WeeklyRewards[slot]
	l.Claimed[slot] = true
	l.LastClaimDate = today
	doc.DragonBones += reward
	return Outcome{
		OK:      true,
		Slot:    slot,
		Reward:  reward,
		Message: fmt.Sprintf("signed in, +%d dragon bones", reward),
	}
}

// PickQuestion 按日期在题库中轮换，同一天总是同一道题
func PickQuestion(questions []playerdoc.QuizQuestion, now time.Time) (playerdoc.QuizQuestion, bool) {
	if len(questions) == 0 {
		return playerdoc.QuizQuestion{}, false
	}
	return questions[(now.YearDay()-1)%len(questions)], true
}

// ClaimMonthly 回答当日题目后领取月签到；答错不消耗当天机会
func ClaimMonthly(doc *playerdoc.PlayerState, now time.Time, q playerdoc.QuizQuestion, answer int) Outcome {
	l := &doc.SignInData.Monthly
	today := now.Format(playerdoc.DateLayout)
	roll(l, MonthKey(now), playerdoc.MonthlySlots)

	slot := now.Day() - 1
	switch {
	case l.Claimed[slot] || l.LastClaimDate == today:
		return fail("already answered today")
	case answer < 0 || answer >= len(q.Options):
		return fail("invalid answer")
	case answer != q.CorrectIndex:
		return fail("wrong answer, try again")
	}

	l.Claimed[slot] = true
	l.LastClaimDate = today
	doc.DragonBones += MonthlyReward

	out := Outcome{
		OK:      true,
		Slot:    slot,
		Reward:  MonthlyReward,
		Message: fmt.Sprintf("correct, +%d dragon bones", MonthlyReward),
	}
	if n := claimedCount(l.Claimed); n%MonthlyStreakEvery == 0 {
		doc.Inventory.Feeds.Add(playerdoc.FeedPremium, 1)
		out.Granted = string(playerdoc.FeedPremium)
		out.Message += fmt.Sprintf(", %d-day bonus: premium feed", n)
	}
	return out
}

func claimedCount(claimed []bool) int {
	n := 0
	for _, c := range claimed {
		if c {
			n++
		}
	}
	return n
}
