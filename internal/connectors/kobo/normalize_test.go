package kobo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda-activites-report-ui/internal/report"
)

var normalizeToday = time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

func TestNormalize_FieldMappingAndDates(t *testing.T) {
	subs := []Submission{{
		"Code activité":    "ACT-007",
		"Activités":        "Appui aux structures locales",
		"Piliers":          "Gouvernance",
		"Bureau":           "Goma",
		"Date de début":    "2024-03-01T00:00:00Z",
		"Date d’échéance":  "2024-04-30",
		"Statut":           "En cours",
		"Priorité":         "Élevé",
		"Avancement (%)":   float64(40),
		"_submission_time": "2024-03-02T08:30:00.123Z",
	}}

	records := Normalize(subs, report.DefaultRiskConfig(), normalizeToday)
	require.Len(t, records, 1)
	a := records[0]

	assert.Equal(t, "ACT-007", a.CodeActivite)
	assert.Equal(t, "Appui aux structures locales", a.Titre)
	assert.Equal(t, "2024-03-01", a.DateDebut)
	assert.Equal(t, "2024-04-30", a.DateFin)
	assert.Equal(t, "Élevé", a.RisquePriorite)

	v, ok := a.AvancementPct.Value()
	require.True(t, ok)
	assert.Equal(t, 40.0, v)

	// Deadline passed with a non-done status: flagged overdue.
	assert.True(t, a.OverdueFlag())
}

func TestNormalize_DoneStatusNotOverdue(t *testing.T) {
	subs := []Submission{{
		"Date d’échéance": "2024-04-30",
		"Statut":          "Finalisée",
	}}

	records := Normalize(subs, report.DefaultRiskConfig(), normalizeToday)
	require.Len(t, records, 1)
	assert.False(t, records[0].OverdueFlag())
}

func TestNormalize_MissingFieldsStayBlank(t *testing.T) {
	records := Normalize([]Submission{{}}, report.DefaultRiskConfig(), normalizeToday)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].CodeActivite)
	assert.Empty(t, records[0].DateFin)
	assert.False(t, records[0].OverdueFlag())
}

func TestNormalize_NumericIDAndUnits(t *testing.T) {
	subs := []Submission{{
		"_id":               float64(1234),
		"Unités impliquées": "protection genre",
	}}

	records := Normalize(subs, report.DefaultRiskConfig(), normalizeToday)
	require.Len(t, records, 1)
	assert.Equal(t, "1234", records[0].CodeActivite)
	assert.Equal(t, []string{"protection", "genre"}, records[0].UnitesImpliquees)
}

func TestDecodeSubmissions(t *testing.T) {
	subs, err := DecodeSubmissions([]byte(`{"count": 2, "results": [{"_id": 1}, {"_id": 2}]}`))
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	_, err = DecodeSubmissions([]byte(`not json`))
	assert.Error(t, err)
}

func TestClient_FetchSubmissions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"_id": 1}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "aa3qCQdZ", 5*time.Second)
	subs, err := c.FetchSubmissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	bad := NewClient(srv.URL, "wrong", "aa3qCQdZ", 5*time.Second)
	_, err = bad.FetchSubmissions(context.Background())
	assert.Error(t, err)

	unconfigured := NewClient("", "", "", 5*time.Second)
	assert.False(t, unconfigured.Enabled())
	_, err = unconfigured.FetchSubmissions(context.Background())
	assert.Error(t, err)
}
