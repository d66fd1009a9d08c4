package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NoDateLabel is the month bucket used for records without a usable
// start date.
const NoDateLabel = "Sans date"

// ToYearMonth reduces an ISO-formatted date string to its "YYYY-MM" bucket.
// Anything that does not start with a four-digit year and a dash lands in
// the NoDateLabel bucket.
func ToYearMonth(v string) string {
	s := strings.TrimSpace(v)
	if len(s) < 7 || s[4] != '-' {
		return NoDateLabel
	}
	return s[:7]
}

// ISOWeekKey maps a date string to its ISO-8601 week bucket, "YYYY-Www".
// Returns "" when the string does not parse into a calendar date.
//
// The week is derived by shifting the date to the Thursday of its week;
// that Thursday's year is the ISO year, and the week number is the
// one-based count of seven-day blocks since that year's January 1st.
func ISOWeekKey(v string) string {
	d, ok := ParseISODate(v)
	if !ok {
		return ""
	}

	day := int(d.Weekday()) // Sun=0..Sat=6
	if day == 0 {
		day = 7 // Mon=1..Sun=7
	}
	thursday := d.AddDate(0, 0, 4-day)

	isoYear := thursday.Year()
	jan1 := time.Date(isoYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(thursday.Sub(jan1).Hours() / 24)
	week := (days+1+6) / 7 // ceil((days+1)/7)

	return fmt.Sprintf("%04d-W%02d", isoYear, week)
}

// Series is a chart-ready pair of parallel label and value arrays.
type Series struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// TrendSeries buckets records with keyFn and emits labels sorted ascending
// (chronological for YYYY-MM and YYYY-Www keys) with parallel counts.
// Records whose bucket key is empty are skipped.
func TrendSeries(records []Activity, keyFn func(Activity) string) Series {
	counts := make(map[string]int, len(records))
	for _, a := range records {
		key := keyFn(a)
		if key == "" {
			continue
		}
		counts[key]++
	}

	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	values := make([]int, len(labels))
	for i, k := range labels {
		values[i] = counts[k]
	}
	return Series{Labels: labels, Values: values}
}
