package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Activity {
	return []Activity{
		{
			CodeActivite:     "ACT-001",
			Titre:            "Formation des points focaux",
			Pilier:           "Gouvernance",
			Bureau:           "Goma",
			StatutSuivi:      "En cours",
			DateDebut:        "2024-02-01",
			CommentaireSuivi: "Mission préparée",
			RisquePriorite:   "Élevé",
		},
		{
			CodeActivite: "ACT-002",
			Titre:        "Atelier de validation",
			Pilier:       "Paix",
			Bureau:       "Goma",
			StatutSuivi:  "Retard",
			DateDebut:    "2024-04-10",
			Overdue:      Num("1"),
		},
		{
			CodeActivite: "ACT-003",
			Titre:        "Dialogue communautaire",
			Pilier:       "Gouvernance",
			Bureau:       "Bukavu",
			DateDebut:    "",
		},
	}
}

func TestApplyFilters_ExactMatchAndQuery(t *testing.T) {
	rc := DefaultRiskConfig()
	records := sampleRecords()

	got := ApplyFilters(records, Criteria{Pilier: "Gouvernance"}, rc, testToday)
	require.Len(t, got, 2)

	got = ApplyFilters(records, Criteria{Pilier: "Gouvernance", Bureau: "Goma"}, rc, testToday)
	require.Len(t, got, 1)
	assert.Equal(t, "ACT-001", got[0].CodeActivite)

	got = ApplyFilters(records, Criteria{Query: "ATELIER"}, rc, testToday)
	require.Len(t, got, 1)
	assert.Equal(t, "ACT-002", got[0].CodeActivite)
}

func TestApplyFilters_DateBoundsSpareUndatedRecords(t *testing.T) {
	rc := DefaultRiskConfig()
	records := sampleRecords()

	got := ApplyFilters(records, Criteria{DateFrom: "2024-03-01"}, rc, testToday)
	codes := recordCodes(got)
	assert.Equal(t, []string{"ACT-002", "ACT-003"}, codes)

	got = ApplyFilters(records, Criteria{DateFrom: "2024-01-01", DateTo: "2024-03-01"}, rc, testToday)
	codes = recordCodes(got)
	assert.Equal(t, []string{"ACT-001", "ACT-003"}, codes)
}

func TestApplyFilters_Scopes(t *testing.T) {
	rc := DefaultRiskConfig()
	records := sampleRecords()

	overdue := ApplyFilters(records, Criteria{Scope: ScopeOverdue}, rc, testToday)
	assert.Equal(t, []string{"ACT-002"}, recordCodes(overdue))

	followup := ApplyFilters(records, Criteria{Scope: ScopeWithFollowup}, rc, testToday)
	assert.Equal(t, []string{"ACT-001"}, recordCodes(followup))

	risk := ApplyFilters(records, Criteria{Scope: ScopeRisk}, rc, testToday)
	assert.Equal(t, []string{"ACT-001"}, recordCodes(risk))

	all := ApplyFilters(records, Criteria{Scope: ScopeAll}, rc, testToday)
	assert.Len(t, all, len(records))
}

// Combining criteria must behave as the intersection of each criterion
// applied alone.
func TestApplyFilters_ANDComposition(t *testing.T) {
	rc := DefaultRiskConfig()
	records := sampleRecords()

	combined := Criteria{Pilier: "Gouvernance", Scope: ScopeWithFollowup, Query: "focaux"}
	got := ApplyFilters(records, combined, rc, testToday)

	want := intersect(
		recordCodes(ApplyFilters(records, Criteria{Pilier: "Gouvernance"}, rc, testToday)),
		recordCodes(ApplyFilters(records, Criteria{Scope: ScopeWithFollowup}, rc, testToday)),
		recordCodes(ApplyFilters(records, Criteria{Query: "focaux"}, rc, testToday)),
	)
	assert.Equal(t, want, recordCodes(got))
}

func TestApplyFilters_Idempotent(t *testing.T) {
	rc := DefaultRiskConfig()
	records := sampleRecords()
	before, err := json.Marshal(records)
	require.NoError(t, err)

	crit := Criteria{Pilier: "Gouvernance", Query: "dialogue"}
	first := ApplyFilters(records, crit, rc, testToday)
	second := ApplyFilters(records, crit, rc, testToday)
	assert.Equal(t, first, second)

	after, err := json.Marshal(records)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestSortForTable(t *testing.T) {
	records := sampleRecords()
	sorted := SortForTable(records)

	// Empty start date sorts first lexicographically, then by date.
	assert.Equal(t, []string{"ACT-003", "ACT-001", "ACT-002"}, recordCodes(sorted))
	// Input order untouched.
	assert.Equal(t, "ACT-001", records[0].CodeActivite)
}

// End-to-end scenario: one future activity, one late overdue one.
func TestRiskAndKPIScenario(t *testing.T) {
	rc := DefaultRiskConfig()
	records := []Activity{
		{CodeActivite: "A1", DateFin: "2099-01-01", StatutSuivi: "", AvancementPct: Num("50")},
		{CodeActivite: "A2", DateFin: "2000-01-01", StatutSuivi: "Retard", AvancementPct: Num("30")},
	}
	today := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	rows := rc.TopAtRisk(records, today, 12)
	require.Len(t, rows, 1)
	assert.Equal(t, "A2", rows[0].CodeActivite)

	s := Summarize(records, rc, today)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.AtRisk)
	require.NotNil(t, s.AvgProgressPct)
	assert.InDelta(t, 40.0, *s.AvgProgressPct, 1e-9)
}

func recordCodes(records []Activity) []string {
	out := make([]string, 0, len(records))
	for _, a := range records {
		out = append(out, a.CodeActivite)
	}
	return out
}

func intersect(sets ...[]string) []string {
	counts := map[string]int{}
	var order []string
	for _, set := range sets {
		for _, v := range set {
			if counts[v] == 0 && len(order) < 64 {
				order = append(order, v)
			}
			counts[v]++
		}
	}
	out := []string{}
	for _, v := range order {
		if counts[v] == len(sets) {
			out = append(out, v)
		}
	}
	return out
}
