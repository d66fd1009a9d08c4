package report

import (
	"strings"
	"time"
)

// Summary is the dashboard KPI row.
type Summary struct {
	Total          int      `json:"total"`
	Overdue        int      `json:"overdue"`
	WithFollowup   int      `json:"with_followup"`
	AtRisk         int      `json:"at_risk"`
	AvgProgressPct *float64 `json:"avg_progress_pct"`
}

// Summarize computes the KPI counters over the full record set. The
// average is nil when no record carries a numeric progress value.
func Summarize(records []Activity, rc RiskConfig, today time.Time) Summary {
	s := Summary{Total: len(records)}

	progress := make([]float64, 0, len(records))
	for _, a := range records {
		if a.OverdueFlag() {
			s.Overdue++
		}
		if strings.TrimSpace(a.CommentaireSuivi) != "" {
			s.WithFollowup++
		}
		if rc.QualifiesRisk(a, today) {
			s.AtRisk++
		}
		if v, ok := a.AvancementPct.Value(); ok {
			progress = append(progress, v)
		}
	}

	if avg, ok := Average(progress); ok {
		s.AvgProgressPct = &avg
	}
	return s
}
