package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// 2026-10-15 是星期四，ISO 第 42 周
var thursday = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newDoc(t *testing.T) *playerdoc.PlayerState {
	t.Helper()
	doc, err := playerdoc.NewDefault("U1", thursday, time.UTC, idgen.NewSequence("id-"))
	require.NoError(t, err)
	return doc
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "2026-W42", WeekKey(thursday))
	assert.Equal(t, "2026-W53", WeekKey(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-10", MonthKey(thursday))
	assert.Equal(t, 3, weekdaySlot(thursday))
	assert.Equal(t, 6, weekdaySlot(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)))
}

func TestClaimWeekly(t *testing.T) {
	doc := newDoc(t)

	out := ClaimWeekly(doc, thursday)
	require.True(t, out.OK)
	assert.Equal(t, 3, out.Slot)
	assert.Equal(t, 20, out.Reward)
	assert.Equal(t, playerdoc.SeedDragonBones+20, doc.DragonBones)
	assert.Equal(t, "2026-W42", doc.SignInData.Weekly.PeriodKey)
	assert.Equal(t, "2026-10-15", doc.SignInData.Weekly.LastClaimDate)

	again := ClaimWeekly(doc, thursday.Add(5*time.Hour))
	assert.False(t, again.OK)
	assert.Equal(t, playerdoc.SeedDragonBones+20, doc.DragonBones)

	sunday := ClaimWeekly(doc, thursday.Add(72*time.Hour))
	require.True(t, sunday.OK)
	assert.Equal(t, 50, sunday.Reward)
	assert.Equal(t, []bool{false, false, false, true, false, false, true}, doc.SignInData.Weekly.Claimed)

	// 新的一周重置账本
	monday := ClaimWeekly(doc, thursday.Add(96*time.Hour))
	require.True(t, monday.OK)
	assert.Equal(t, "2026-W43", doc.SignInData.Weekly.PeriodKey)
	assert.Equal(t, []bool{true, false, false, false, false, false, false}, doc.SignInData.Weekly.Claimed)
}

func TestPickQuestion(t *testing.T) {
	_, ok := PickQuestion(nil, thursday)
	assert.False(t, ok)

	qs := []playerdoc.QuizQuestion{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	q, ok := PickQuestion(qs, thursday)
	require.True(t, ok)
	assert.Equal(t, qs[(thursday.YearDay()-1)%3].ID, q.ID)

	same, _ := PickQuestion(qs, thursday.Add(10*time.Hour))
	assert.Equal(t, q.ID, same.ID)
}

func TestClaimMonthly(t *testing.T) {
	q := playerdoc.QuizQuestion{ID: "q1", Options: []string{"a", "b", "c"}, CorrectIndex: 1}

	tests := []struct {
		name   string
		answer int
		wantOK bool
	}{
		{"correct", 1, true},
		{"wrong", 2, false},
		{"out of range", 5, false},
		{"negative", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t)
			out := ClaimMonthly(doc, thursday, q, tt.answer)
			assert.Equal(t, tt.wantOK, out.OK)
			if tt.wantOK {
				assert.Equal(t, 14, out.Slot)
				assert.Equal(t, playerdoc.SeedDragonBones+MonthlyReward, doc.DragonBones)
				assert.True(t, doc.SignInData.Monthly.Claimed[14])
				return
			}
			assert.Equal(t, playerdoc.SeedDragonBones, doc.DragonBones)
			assert.Empty(t, doc.SignInData.Monthly.LastClaimDate)
		})
	}
}

func TestClaimMonthlyOncePerDayAndStreakBonus(t *testing.T) {
	doc := newDoc(t)
	q := playerdoc.QuizQuestion{ID: "q1", Options: []string{"a", "b"}, CorrectIndex: 0}
	premium := doc.Inventory.Feeds[playerdoc.FeedPremium]

	first := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for day := range 7 {
		now := first.AddDate(0, 0, day)
		out := ClaimMonthly(doc, now, q, 0)
		require.True(t, out.OK, "day %d", day+1)
		assert.False(t, ClaimMonthly(doc, now, q, 0).OK, "second claim on day %d", day+1)
		if day < 6 {
			assert.Empty(t, out.Granted)
		} else {
			assert.Equal(t, string(playerdoc.FeedPremium), out.Granted)
		}
	}
	assert.Equal(t, premium+1, doc.Inventory.Feeds[playerdoc.FeedPremium])
	assert.Equal(t, playerdoc.SeedDragonBones+7*MonthlyReward, doc.DragonBones)

	next := ClaimMonthly(doc, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), q, 0)
	require.True(t, next.OK)
	assert.Equal(t, "2026-11", doc.SignInData.Monthly.PeriodKey)
	assert.Equal(t, 1, claimedCount(doc.SignInData.Monthly.Claimed))
}

func TestPurchase(t *testing.T) {
	tests := []struct {
		name     string
		itemID   string
		balance  int
		wantOK   bool
		wantLeft int
		check    func(t *testing.T, doc *playerdoc.PlayerState)
	}{
		{
			name: "feed bundle", itemID: "feed-normal-5", balance: 100, wantOK: true, wantLeft: 90,
			check: func(t *testing.T, doc *playerdoc.PlayerState) {
				assert.Equal(t, 15, doc.Inventory.Feeds[playerdoc.FeedNormal])
			},
		},
		{
			name: "revive potion", itemID: "potion-revive", balance: 80, wantOK: true, wantLeft: 0,
			check: func(t *testing.T, doc *playerdoc.PlayerState) {
				assert.Equal(t, 1, doc.Inventory.Potions[playerdoc.PotionRevive])
			},
		},
		{
			name: "heater", itemID: "device-heater", balance: 12, wantOK: true, wantLeft: 0,
			check: func(t *testing.T, doc *playerdoc.PlayerState) {
				assert.Equal(t, 2, doc.Inventory.Devices[playerdoc.DeviceHeater])
			},
		},
		{
			name: "fashion", itemID: "hat-straw", balance: 50, wantOK: true, wantLeft: 10,
			check: func(t *testing.T, doc *playerdoc.PlayerState) {
				assert.True(t, doc.Fashion.Owns("hat-straw"))
			},
		},
		{
			name: "insufficient funds", itemID: "hat-crown", balance: 119, wantOK: false, wantLeft: 119,
			check: func(t *testing.T, doc *playerdoc.PlayerState) {
				assert.False(t, doc.Fashion.Owns("hat-crown"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t)
			doc.DragonBones = tt.balance
			item, ok := FindItem(tt.itemID)
			require.True(t, ok)

			out := Purchase(doc, item)
			assert.Equal(t, tt.wantOK, out.OK, out.Message)
			assert.Equal(t, tt.wantLeft, doc.DragonBones)
			tt.check(t, doc)
		})
	}
}

func TestPurchaseFashionOnce(t *testing.T) {
	doc := newDoc(t)
	item, ok := FindItem("glasses-round")
	require.True(t, ok)

	require.True(t, Purchase(doc, item).OK)
	out := Purchase(doc, item)
	assert.False(t, out.OK)
	assert.Equal(t, playerdoc.SeedDragonBones-60, doc.DragonBones, "no charge for owned fashion")
	assert.Equal(t, []string{"glasses-round"}, doc.Fashion.Owned)
}

func TestFindItemUnknown(t *testing.T) {
	_, ok := FindItem("unicorn")
	assert.False(t, ok)
	assert.False(t, Purchase(newDoc(t), Item{ID: "broken", Kind: KindFeed, Quantity: 0}).OK)
}
