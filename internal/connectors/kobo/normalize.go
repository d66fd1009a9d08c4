package kobo

import (
	"fmt"
	"strings"
	"time"

	"agenda-activites-report-ui/internal/report"
)

// Normalize maps raw submissions onto the published activity schema,
// coercing dates to ISO form and precomputing the overdue flag against the
// given day. Field lookups try XLSForm label variants in order; a
// submission missing a field just leaves it blank.
func Normalize(submissions []Submission, rc report.RiskConfig, today time.Time) []report.Activity {
	out := make([]report.Activity, 0, len(submissions))
	for _, sub := range submissions {
		out = append(out, normalizeOne(sub, rc, today))
	}
	return out
}

func normalizeOne(sub Submission, rc report.RiskConfig, today time.Time) report.Activity {
	a := report.Activity{
		CodeActivite:          pick(sub, "Code activité", "code_activite", "Code", "record_id", "_id"),
		Titre:                 pick(sub, "Activités", "Activité", "Titre", "titre", "activity"),
		Objectif:              pick(sub, "Objectif", "objectif"),
		LivrableAttendu:       pick(sub, "Livrable attendu", "livrable_attendu"),
		TypeActivite:          pick(sub, "Type d'activité", "Type d’activité", "Type", "type"),
		Pilier:                pick(sub, "Piliers", "Pilier", "pilier", "pillar"),
		Bureau:                pick(sub, "Bureau", "bureau", "Zone", "zone"),
		Responsable:           pick(sub, "Responsable", "responsable", "owner"),
		StatutPlanificateur:   pick(sub, "Statut", "Statut (planificateur)", "statut_planificateur", "status"),
		StatutSuivi:           pick(sub, "Statut suivi", "Statut (suivi)", "statut_suivi"),
		RisquePriorite:        pick(sub, "Priorité", "priorite", "Risque priorité", "risque_priorite"),
		AvancementPct:         report.Num(pick(sub, "Avancement (%)", "Avancement", "avancement_pct")),
		TauxAvancementCalc:    report.Num(pick(sub, "taux_avancement_calc", "Taux avancement calculé")),
		CommentaireSuivi:      pick(sub, "Suivi/Commentaires", "Suivi", "Commentaires", "commentaire_suivi", "notes"),
		Validation:            pick(sub, "Validation", "validation"),
		CommentaireValidation: pick(sub, "Commentaire validation", "commentaire_validation"),
		DateDebut:             toISODate(pick(sub, "Date de début", "date_debut", "start_date")),
		DateFin:               toISODate(pick(sub, "Date d’échéance", "Date d'échéance", "Date de fin", "date_fin", "date_echeance", "end_date")),
		SubmissionTime:        toISODateTime(pick(sub, "_submission_time", "submission_time")),
		DateMiseAJour:         toISODateTime(pick(sub, "date_mise_a_jour", "Date de mise à jour")),
	}

	if units := pick(sub, "Unités impliquées", "unites_impliquees"); units != "" {
		a.UnitesImpliquees = strings.Fields(units)
	}

	if rc.IsOverdueByDate(a, today) {
		a.Overdue = report.Num("1")
	} else {
		a.Overdue = report.Num("0")
	}
	return a
}

// pick returns the first non-blank value among the candidate keys,
// stringified.
func pick(sub Submission, keys ...string) string {
	for _, k := range keys {
		v, ok := sub[k]
		if !ok || v == nil {
			continue
		}
		s := stringify(v)
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toISODate coerces an ISO-ish timestamp to a plain calendar date,
// returning unparseable input untouched.
func toISODate(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// toISODateTime normalizes a timestamp to RFC 3339, returning unparseable
// input untouched.
func toISODateTime(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return s
}
