package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byPilier(a Activity) string { return a.Pilier }

func TestGroupCount_SortsByCountDescending(t *testing.T) {
	records := []Activity{
		{Pilier: "Paix"},
		{Pilier: "Gouvernance"},
		{Pilier: "Gouvernance"},
		{Pilier: "Paix"},
		{Pilier: "Gouvernance"},
	}

	got := GroupCount(records, byPilier)
	require.Len(t, got, 2)
	assert.Equal(t, CategoryCount{Label: "Gouvernance", Count: 3}, got[0])
	assert.Equal(t, CategoryCount{Label: "Paix", Count: 2}, got[1])
}

func TestGroupCount_BlankKeysCoalesce(t *testing.T) {
	records := []Activity{
		{Pilier: ""},
		{Pilier: "   "},
		{Pilier: "Paix"},
	}

	got := GroupCount(records, byPilier)
	require.Len(t, got, 2)
	assert.Equal(t, EmptyCategoryLabel, got[0].Label)
	assert.Equal(t, 2, got[0].Count)
}

func TestGroupCount_TotalCountInvariant(t *testing.T) {
	records := []Activity{
		{Pilier: "A"}, {Pilier: "B"}, {Pilier: ""}, {Pilier: "A"},
		{Pilier: "C"}, {Pilier: "B"}, {Pilier: "A"},
	}

	got := GroupCount(records, byPilier)
	sum := 0
	for _, p := range got {
		sum += p.Count
	}
	assert.Equal(t, len(records), sum)
}

func TestGroupCount_TiesKeepFirstAppearanceOrder(t *testing.T) {
	records := []Activity{
		{Pilier: "Zulu"},
		{Pilier: "Alpha"},
	}

	got := GroupCount(records, byPilier)
	require.Len(t, got, 2)
	assert.Equal(t, "Zulu", got[0].Label)
	assert.Equal(t, "Alpha", got[1].Label)
}

func TestLimitCategories_FoldsTailIntoAutres(t *testing.T) {
	pairs := []CategoryCount{
		{Label: "a", Count: 10},
		{Label: "b", Count: 8},
		{Label: "c", Count: 3},
		{Label: "d", Count: 2},
		{Label: "e", Count: 1},
	}

	got := LimitCategories(pairs, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Label)
	assert.Equal(t, "b", got[1].Label)
	assert.Equal(t, CategoryCount{Label: OtherCategoryLabel, Count: 6}, got[2])

	sumIn, sumOut := 0, 0
	for _, p := range pairs {
		sumIn += p.Count
	}
	for _, p := range got {
		sumOut += p.Count
	}
	assert.Equal(t, sumIn, sumOut)
}

func TestLimitCategories_NoopWhenUnderCap(t *testing.T) {
	pairs := []CategoryCount{{Label: "a", Count: 2}, {Label: "b", Count: 1}}
	got := LimitCategories(pairs, 12)
	assert.Equal(t, pairs, got)
}

func TestAverage(t *testing.T) {
	avg, ok := Average([]float64{50, 30})
	require.True(t, ok)
	assert.InDelta(t, 40.0, avg, 1e-9)

	_, ok = Average(nil)
	assert.False(t, ok)
}

func TestUnique(t *testing.T) {
	got := Unique([]string{" Goma ", "Kinshasa", "", "Goma", "  "})
	assert.Equal(t, []string{"Goma", "Kinshasa"}, got)
}
