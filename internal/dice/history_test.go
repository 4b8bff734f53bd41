package dice_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

func resultWithTotal(total int) dice.RollResult {
	return dice.RollResult{Expression: "n", Total: total}
}

func TestHistory_DefaultCapacity(t *testing.T) {
	assert.Equal(t, dice.DefaultHistoryCapacity, dice.NewHistory(0).Cap())
	assert.Equal(t, dice.DefaultHistoryCapacity, dice.NewHistory(-3).Cap())
	assert.Equal(t, 5, dice.NewHistory(5).Cap())
}

func TestHistory_AppendAssignsSequence(t *testing.T) {
	h := dice.NewHistory(3)
	e1 := h.Append(resultWithTotal(1))
	e2 := h.Append(resultWithTotal(2))
	assert.Equal(t, uint64(1), e1.Seq)
	assert.Equal(t, uint64(2), e2.Seq)
	assert.Equal(t, 2, h.Len())
}

func TestHistory_EvictsOldestFirst(t *testing.T) {
	h := dice.NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Append(resultWithTotal(i))
	}
	require.Equal(t, 3, h.Len())

	recent := h.Recent(-1)
	require.Len(t, recent, 3)
	assert.Equal(t, 5, recent[0].Result.Total)
	assert.Equal(t, 4, recent[1].Result.Total)
	assert.Equal(t, 3, recent[2].Result.Total)
	assert.Equal(t, uint64(5), recent[0].Seq)
	assert.Equal(t, uint64(3), recent[2].Seq)
}

func TestHistory_RecentLimit(t *testing.T) {
	h := dice.NewHistory(10)
	for i := 1; i <= 4; i++ {
		h.Append(resultWithTotal(i))
	}
	got := h.Recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Result.Total)
	assert.Equal(t, 3, got[1].Result.Total)
	assert.Len(t, h.Recent(100), 4)
	assert.Empty(t, h.Recent(0))
}

func TestHistory_AllMostRecentFirst(t *testing.T) {
	h := dice.NewHistory(10)
	for i := 1; i <= 4; i++ {
		h.Append(resultWithTotal(i))
	}
	var totals []int
	for e := range h.All() {
		totals = append(totals, e.Result.Total)
	}
	assert.Equal(t, []int{4, 3, 2, 1}, totals)

	totals = totals[:0]
	for e := range h.All() {
		totals = append(totals, e.Result.Total)
		if len(totals) == 2 {
			break
		}
	}
	assert.Equal(t, []int{4, 3}, totals)
}

func TestHistory_Clear(t *testing.T) {
	h := dice.NewHistory(3)
	h.Append(resultWithTotal(1))
	h.Append(resultWithTotal(2))
	h.Clear()
	assert.Equal(t, 0, h.Len())
	e := h.Append(resultWithTotal(3))
	assert.Equal(t, uint64(3), e.Seq)
	assert.Equal(t, 1, h.Len())
}

func TestHistory_FrequencyTable(t *testing.T) {
	h := dice.NewHistory(10)
	h.Append(dice.RollResult{Dice: []dice.DieResult{
		{Sides: 6, Value: 3, Kept: true},
		{Sides: 6, Value: 3, Kept: false},
		{Sides: 8, Value: 7, Kept: true},
	}})
	h.Append(dice.RollResult{Dice: []dice.DieResult{{Sides: 6, Value: 6, Kept: true}}})

	freq := h.FrequencyTable(6)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 2, 4: 0, 5: 0, 6: 1}, freq)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: 1, 8: 0}, h.FrequencyTable(8))
	assert.Empty(t, h.FrequencyTable(0))
}

func TestHistory_MeanVariance(t *testing.T) {
	h := dice.NewHistory(10)
	assert.Zero(t, h.Mean())
	assert.Zero(t, h.Variance())

	for _, v := range []int{2, 4, 4, 4, 5, 5, 7, 9} {
		h.Append(resultWithTotal(v))
	}
	assert.InDelta(t, 5.0, h.Mean(), 1e-9)
	assert.InDelta(t, 4.0, h.Variance(), 1e-9)

	s := h.Summary()
	assert.Equal(t, 8, s.Count)
	assert.Equal(t, 2, s.Min)
	assert.Equal(t, 9, s.Max)
}

func TestHistory_StatisticsOverWindowOnly(t *testing.T) {
	h := dice.NewHistory(2)
	h.Append(resultWithTotal(100))
	h.Append(resultWithTotal(1))
	h.Append(resultWithTotal(3))
	assert.InDelta(t, 2.0, h.Mean(), 1e-9)
	assert.InDelta(t, 1.0, h.Variance(), 1e-9)
}

func TestHistory_ConcurrentAppend(t *testing.T) {
	h := dice.NewHistory(10_000)
	var wg sync.WaitGroup
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.Append(resultWithTotal(i))
				_ = h.Recent(5)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 5000, h.Len())
	seen := make(map[uint64]bool, 5000)
	for e := range h.All() {
		assert.False(t, seen[e.Seq], "duplicate seq %d", e.Seq)
		seen[e.Seq] = true
	}
	assert.Len(t, seen, 5000)
}

// TestHistory_LenNeverExceedsCap_Property verifies the FIFO window: after any
// number of appends Len is min(appends, cap) and the newest entry is first.
func TestHistory_LenNeverExceedsCap_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 50).Draw(rt, "capacity")
		totals := rapid.SliceOfN(rapid.IntRange(-100, 100), 1, 200).Draw(rt, "totals")

		h := dice.NewHistory(capacity)
		for _, v := range totals {
			h.Append(resultWithTotal(v))
		}

		assert.Equal(rt, min(len(totals), capacity), h.Len())
		recent := h.Recent(-1)
		assert.Equal(rt, totals[len(totals)-1], recent[0].Result.Total)
		assert.Equal(rt, uint64(len(totals)), recent[0].Seq)
		oldest := recent[len(recent)-1]
		assert.Equal(rt, totals[len(totals)-len(recent)], oldest.Result.Total)
	})
}
