package report

import (
	"math"
	"sort"
	"strings"
	"time"
)

// DateFinSentinel sorts records without an end date after every dated one.
const DateFinSentinel = "9999-12-31"

// PriorityRank maps a priority-label substring to an ordinal weight.
type PriorityRank struct {
	Contains string `json:"contains" yaml:"contains"`
	Rank     int    `json:"rank" yaml:"rank"`
}

// RiskConfig carries the keyword sets and weights driving risk
// classification. The status vocabularies are free text upstream, so the
// sets stay configurable instead of hard-coded.
type RiskConfig struct {
	DoneKeywords      []string `json:"done_keywords" yaml:"done_keywords"`
	LateKeywords      []string `json:"late_keywords" yaml:"late_keywords"`
	CancelledKeywords []string `json:"cancelled_keywords" yaml:"cancelled_keywords"`
	ReportedKeywords  []string `json:"reported_keywords" yaml:"reported_keywords"`

	PriorityRanks []PriorityRank `json:"priority_ranks" yaml:"priority_ranks"`

	// HighPriorityKeywords back the looser "risk" table scope, matched
	// against risque_priorite only.
	HighPriorityKeywords []string `json:"high_priority_keywords" yaml:"high_priority_keywords"`

	OverdueWeight   int `json:"overdue_weight" yaml:"overdue_weight"`
	LateWeight      int `json:"late_weight" yaml:"late_weight"`
	CancelledWeight int `json:"cancelled_weight" yaml:"cancelled_weight"`
	ReportedWeight  int `json:"reported_weight" yaml:"reported_weight"`
	PriorityWeight  int `json:"priority_weight" yaml:"priority_weight"`
	DonePenalty     int `json:"done_penalty" yaml:"done_penalty"`
}

// DefaultRiskConfig returns the keyword sets and weights observed in the
// published dashboard.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		DoneKeywords:      []string{"final", "clôt", "clot", "termin", "achev", "done", "complet", "complét", "annul"},
		LateKeywords:      []string{"retard"},
		CancelledKeywords: []string{"annul"},
		ReportedKeywords:  []string{"report"},
		PriorityRanks: []PriorityRank{
			{Contains: "criti", Rank: 4},
			{Contains: "élev", Rank: 3},
			{Contains: "eleve", Rank: 3},
			{Contains: "moy", Rank: 2},
			{Contains: "faib", Rank: 1},
		},
		HighPriorityKeywords: []string{"élevé", "eleve", "haut", "critique"},
		OverdueWeight:        100,
		LateWeight:           90,
		CancelledWeight:      70,
		ReportedWeight:       60,
		PriorityWeight:       10,
		DonePenalty:          200,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// combinedStatus joins both status vocabularies for done-like matching.
func combinedStatus(a Activity) string {
	return Norm(a.StatutSuivi) + " " + Norm(a.StatutPlanificateur)
}

// IsDoneLike reports whether either status field reads as closed or
// completed.
func (c RiskConfig) IsDoneLike(a Activity) bool {
	return containsAny(combinedStatus(a), c.DoneKeywords)
}

// IsOverdueByDate reports whether the record's end date has passed without
// a done-like status. Records without a parseable end date are never
// overdue. The reference day is injected so classification is
// deterministic across date boundaries.
func (c RiskConfig) IsOverdueByDate(a Activity, today time.Time) bool {
	end, ok := ParseISODate(a.DateFin)
	if !ok {
		return false
	}
	if c.IsDoneLike(a) {
		return false
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return end.Before(day)
}

// IsLateStatus reports whether the follow-up status flags a delay.
func (c RiskConfig) IsLateStatus(a Activity) bool {
	return containsAny(Norm(a.StatutSuivi), c.LateKeywords)
}

// IsCancelledLike reports whether the follow-up status reads as cancelled.
func (c RiskConfig) IsCancelledLike(a Activity) bool {
	return containsAny(Norm(a.StatutSuivi), c.CancelledKeywords)
}

// IsReportedLike reports whether the follow-up status reads as postponed.
func (c RiskConfig) IsReportedLike(a Activity) bool {
	return containsAny(Norm(a.StatutSuivi), c.ReportedKeywords)
}

// PriorityRankOf maps the free-text priority label to its ordinal, 0 when
// no configured substring matches.
func (c RiskConfig) PriorityRankOf(label string) int {
	s := Norm(label)
	if s == "" {
		return 0
	}
	for _, pr := range c.PriorityRanks {
		if pr.Contains != "" && strings.Contains(s, pr.Contains) {
			return pr.Rank
		}
	}
	return 0
}

// IsHighPriority backs the "risk" table scope: a loose match on the
// priority label alone.
func (c RiskConfig) IsHighPriority(a Activity) bool {
	return containsAny(Norm(a.RisquePriorite), c.HighPriorityKeywords)
}

// QualifiesRisk reports whether the record belongs in the at-risk view at
// all: overdue by date, late, cancelled or postponed.
func (c RiskConfig) QualifiesRisk(a Activity, today time.Time) bool {
	return c.IsOverdueByDate(a, today) ||
		c.IsLateStatus(a) ||
		c.IsCancelledLike(a) ||
		c.IsReportedLike(a)
}

// Score computes the risk ranking weight for a record. The done-like
// penalty handles conflicting signals, e.g. a record flagged late yet also
// tagged finalisée.
func (c RiskConfig) Score(a Activity, today time.Time) int {
	score := 0
	if c.IsOverdueByDate(a, today) {
		score += c.OverdueWeight
	}
	if c.IsLateStatus(a) {
		score += c.LateWeight
	}
	if c.IsCancelledLike(a) {
		score += c.CancelledWeight
	}
	if c.IsReportedLike(a) {
		score += c.ReportedWeight
	}
	score += c.PriorityWeight * c.PriorityRankOf(a.RisquePriorite)
	if c.IsDoneLike(a) {
		score -= c.DonePenalty
	}
	return score
}

// RiskRow is one entry of the at-risk table: the record plus its derived
// display fields.
type RiskRow struct {
	Activity
	Score          int    `json:"score"`
	OverdueByDate  bool   `json:"overdue_by_date"`
	LateStatus     bool   `json:"late_status"`
	CancelledLike  bool   `json:"cancelled_like"`
	ReportedLike   bool   `json:"reported_like"`
	Statut         string `json:"statut"`
	AvancementDisp *int   `json:"avancement"`
}

// DefaultTopRiskLimit is the richest at-risk table size shipped upstream.
const DefaultTopRiskLimit = 12

// TopAtRisk selects the qualifying records and orders them by descending
// score. Ties break on earlier end date (undated last), then on later
// record time, then on code_activite, so the output is a deterministic
// total order independent of input order.
func (c RiskConfig) TopAtRisk(records []Activity, today time.Time, limit int) []RiskRow {
	if limit <= 0 {
		limit = DefaultTopRiskLimit
	}

	type scored struct {
		row        RiskRow
		dateFinKey string
		recordTime time.Time
		code       string
	}

	items := make([]scored, 0, len(records))
	for _, a := range records {
		if !c.QualifiesRisk(a, today) {
			continue
		}

		row := RiskRow{
			Activity:      a,
			Score:         c.Score(a, today),
			OverdueByDate: c.IsOverdueByDate(a, today),
			LateStatus:    c.IsLateStatus(a),
			CancelledLike: c.IsCancelledLike(a),
			ReportedLike:  c.IsReportedLike(a),
			Statut:        a.DisplayStatus(),
		}
		if pct, ok := a.ProgressPct(); ok {
			rounded := int(math.Round(pct))
			row.AvancementDisp = &rounded
		}

		dateFinKey := strings.TrimSpace(a.DateFin)
		if dateFinKey == "" {
			dateFinKey = DateFinSentinel
		}

		items = append(items, scored{
			row:        row,
			dateFinKey: dateFinKey,
			recordTime: RecordTime(a),
			code:       strings.TrimSpace(a.CodeActivite),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].row.Score != items[j].row.Score {
			return items[i].row.Score > items[j].row.Score
		}
		if items[i].dateFinKey != items[j].dateFinKey {
			return items[i].dateFinKey < items[j].dateFinKey
		}
		if !items[i].recordTime.Equal(items[j].recordTime) {
			return items[i].recordTime.After(items[j].recordTime)
		}
		return items[i].code < items[j].code
	})

	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]RiskRow, len(items))
	for i, it := range items {
		out[i] = it.row
	}
	return out
}
