package report

import (
	"sort"
	"strings"
)

// EmptyCategoryLabel is the bucket used for records whose grouping key is
// missing or blank.
const EmptyCategoryLabel = "Non renseigné"

// OtherCategoryLabel is the synthetic bucket produced by LimitCategories.
const OtherCategoryLabel = "Autres"

// CategoryCount is one chart bar: a grouping label and how many records
// fell into it.
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// GroupCount groups records by keyFn and counts members per label. Blank
// keys are coalesced into EmptyCategoryLabel. The result is ordered by
// count descending; labels with equal counts keep first-appearance order.
func GroupCount(records []Activity, keyFn func(Activity) string) []CategoryCount {
	counts := make(map[string]int, len(records))
	order := make([]string, 0, len(records))

	for _, a := range records {
		key := strings.TrimSpace(keyFn(a))
		if key == "" {
			key = EmptyCategoryLabel
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	out := make([]CategoryCount, 0, len(order))
	for _, label := range order {
		out = append(out, CategoryCount{Label: label, Count: counts[label]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// LimitCategories caps a chart at max bars: when there are more, the top
// max-1 pairs keep their order and the remainder folds into one "Autres"
// bucket carrying the folded counts' sum.
func LimitCategories(pairs []CategoryCount, max int) []CategoryCount {
	if max <= 0 || len(pairs) <= max {
		return pairs
	}

	out := make([]CategoryCount, 0, max)
	out = append(out, pairs[:max-1]...)

	other := 0
	for _, p := range pairs[max-1:] {
		other += p.Count
	}
	out = append(out, CategoryCount{Label: OtherCategoryLabel, Count: other})
	return out
}

// Average returns the mean of the given values. ok is false when the slice
// is empty.
func Average(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Unique returns the sorted distinct non-blank values, trimmed. Used to
// populate the table filter dropdowns.
func Unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
