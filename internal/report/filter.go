package report

import (
	"sort"
	"strings"
	"time"
)

// Table scopes.
const (
	ScopeAll          = "all"
	ScopeOverdue      = "overdue"
	ScopeWithFollowup = "withFollowup"
	ScopeRisk         = "risk"
)

// Criteria is one table filter configuration. Empty fields impose no
// constraint; all populated constraints are ANDed.
type Criteria struct {
	Query        string `json:"query"`
	Pilier       string `json:"pilier"`
	Bureau       string `json:"bureau"`
	StatutPlanif string `json:"statut_planificateur"`
	StatutSuivi  string `json:"statut_suivi"`
	TypeActivite string `json:"type_activite"`
	Risque       string `json:"risque_priorite"`
	DateFrom     string `json:"date_from"`
	DateTo       string `json:"date_to"`
	Scope        string `json:"scope"`
}

// IsZero reports whether the criteria impose no constraint at all.
func (c Criteria) IsZero() bool {
	return c.Query == "" && c.Pilier == "" && c.Bureau == "" &&
		c.StatutPlanif == "" && c.StatutSuivi == "" && c.TypeActivite == "" &&
		c.Risque == "" && c.DateFrom == "" && c.DateTo == "" &&
		(c.Scope == "" || c.Scope == ScopeAll)
}

// ApplyFilters returns the records matching every populated criterion, in
// their original order. The input slice is never modified.
func ApplyFilters(records []Activity, crit Criteria, rc RiskConfig, today time.Time) []Activity {
	query := Norm(crit.Query)

	out := make([]Activity, 0, len(records))
	for _, a := range records {
		if !matches(a, crit, rc, today, query) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matches(a Activity, crit Criteria, rc RiskConfig, today time.Time, query string) bool {
	if crit.Pilier != "" && a.Pilier != crit.Pilier {
		return false
	}
	if crit.Bureau != "" && a.Bureau != crit.Bureau {
		return false
	}
	if crit.StatutPlanif != "" && a.StatutPlanificateur != crit.StatutPlanif {
		return false
	}
	if crit.StatutSuivi != "" && a.StatutSuivi != crit.StatutSuivi {
		return false
	}
	if crit.TypeActivite != "" && a.TypeActivite != crit.TypeActivite {
		return false
	}
	if crit.Risque != "" && a.RisquePriorite != crit.Risque {
		return false
	}

	// Lexicographic bounds are valid on zero-padded ISO dates. Records
	// without a start date are never excluded by the range.
	if crit.DateFrom != "" && a.DateDebut != "" && a.DateDebut < crit.DateFrom {
		return false
	}
	if crit.DateTo != "" && a.DateDebut != "" && a.DateDebut > crit.DateTo {
		return false
	}

	switch crit.Scope {
	case ScopeOverdue:
		if !a.OverdueFlag() && !rc.IsOverdueByDate(a, today) && !rc.IsLateStatus(a) {
			return false
		}
	case ScopeWithFollowup:
		if strings.TrimSpace(a.CommentaireSuivi) == "" {
			return false
		}
	case ScopeRisk:
		if !rc.IsHighPriority(a) {
			return false
		}
	}

	if query == "" {
		return true
	}
	return strings.Contains(searchBlob(a), query)
}

// searchBlob is the space-joined lowercased concatenation of the textual
// fields covered by the free-text search.
func searchBlob(a Activity) string {
	parts := []string{
		a.Titre,
		a.Objectif,
		a.LivrableAttendu,
		a.TypeActivite,
		a.Pilier,
		a.CodeActivite,
		a.Bureau,
		a.RisquePriorite,
		strings.Join(a.UnitesImpliquees, " "),
		a.Responsable,
		a.StatutPlanificateur,
		a.StatutSuivi,
		a.AvancementPct.Raw(),
		a.TauxAvancementCalc.Raw(),
		a.CommentaireSuivi,
		a.Validation,
		a.CommentaireValidation,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// SortForTable orders table rows by start date then activity code, stably,
// without touching the input slice.
func SortForTable(records []Activity) []Activity {
	out := make([]Activity, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DateDebut != out[j].DateDebut {
			return out[i].DateDebut < out[j].DateDebut
		}
		return out[i].CodeActivite < out[j].CodeActivite
	})
	return out
}
