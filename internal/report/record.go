package report

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Activity is one tracked activity as published in activities.json.
// Every field is optional; derivations treat absent or malformed values
// as unknown and fall back to neutral defaults instead of failing.
type Activity struct {
	CodeActivite          string   `json:"code_activite"`
	Titre                 string   `json:"titre"`
	Objectif              string   `json:"objectif"`
	LivrableAttendu       string   `json:"livrable_attendu"`
	TypeActivite          string   `json:"type_activite"`
	Pilier                string   `json:"pilier"`
	Bureau                string   `json:"bureau"`
	Responsable           string   `json:"responsable"`
	UnitesImpliquees      []string `json:"unites_impliquees"`
	DateDebut             string   `json:"date_debut"`
	DateFin               string   `json:"date_fin"`
	StatutPlanificateur   string   `json:"statut_planificateur"`
	StatutSuivi           string   `json:"statut_suivi"`
	RisquePriorite        string   `json:"risque_priorite"`
	AvancementPct         Number   `json:"avancement_pct"`
	TauxAvancementCalc    Number   `json:"taux_avancement_calc"`
	Overdue               Number   `json:"overdue"`
	CommentaireSuivi      string   `json:"commentaire_suivi"`
	Validation            string   `json:"validation"`
	CommentaireValidation string   `json:"commentaire_validation"`
	SubmissionTime        string   `json:"submission_time"`
	DateMiseAJour         string   `json:"date_mise_a_jour"`
}

// Number tolerates numeric, string, boolean and null JSON encodings of the
// same value. Upstream exports are inconsistent: avancement_pct arrives as
// 30 in some revisions and "30" in others.
type Number struct {
	raw string
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		n.raw = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			n.raw = ""
			return nil
		}
		n.raw = strings.TrimSpace(s)
		return nil
	}
	switch string(b) {
	case "true":
		n.raw = "1"
	case "false":
		n.raw = "0"
	default:
		n.raw = string(b)
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if v, ok := n.Value(); ok {
		return json.Marshal(v)
	}
	if n.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

// Value returns the numeric value when one can be derived.
func (n Number) Value() (float64, bool) {
	return ToNumber(n.raw)
}

// Raw returns the original textual form, "" when absent.
func (n Number) Raw() string {
	return n.raw
}

// Num builds a Number from a literal value, mostly for tests and the
// normalizer.
func Num(v string) Number {
	return Number{raw: strings.TrimSpace(v)}
}

// OverdueFlag reports the precomputed upstream overdue marker (overdue == 1).
func (a Activity) OverdueFlag() bool {
	v, ok := a.Overdue.Value()
	return ok && v == 1
}

// DisplayStatus is the single status label shown for a record: follow-up
// status when present, planning status otherwise.
func (a Activity) DisplayStatus() string {
	if s := strings.TrimSpace(a.StatutSuivi); s != "" {
		return s
	}
	return strings.TrimSpace(a.StatutPlanificateur)
}

// ProgressPct resolves the displayed progress percentage, preferring the
// computed rate over the self-reported one, clamped to 0..100. The second
// return value is false when neither field holds a number.
func (a Activity) ProgressPct() (float64, bool) {
	if v, ok := ToPct(a.TauxAvancementCalc.Raw()); ok {
		return v, true
	}
	return ToPct(a.AvancementPct.Raw())
}

// Norm normalizes a value for comparison: trimmed, lowercased.
func Norm(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// ToNumber parses a loosely formatted numeric value ("25", "25,5", " 30 ").
func ToNumber(v string) (float64, bool) {
	s := strings.ReplaceAll(Norm(v), ",", ".")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ToPct parses like ToNumber and clamps the result into 0..100.
func ToPct(v string) (float64, bool) {
	n, ok := ToNumber(v)
	if !ok {
		return 0, false
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n, true
}

var isoDatePrefix = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)

// ParseISODate parses a calendar date from an ISO-formatted string, ignoring
// any time suffix. Out-of-range month/day components roll over the way the
// upstream exports expect. Time of day is zeroed.
func ParseISODate(v string) (time.Time, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}, false
	}
	m := isoDatePrefix.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(v string) (time.Time, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RecordTime derives the "recorded at" ordering key for a record: the first
// parseable timestamp among submission time, last update, end date and start
// date. The zero time means no usable timestamp.
func RecordTime(a Activity) time.Time {
	for _, v := range []string{a.SubmissionTime, a.DateMiseAJour, a.DateFin, a.DateDebut} {
		if t, ok := parseTimestamp(v); ok {
			return t
		}
	}
	return time.Time{}
}
