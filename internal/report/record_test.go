package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityUnmarshal_ToleratesMixedEncodings(t *testing.T) {
	payload := `{
		"code_activite": "ACT-042",
		"avancement_pct": "30",
		"taux_avancement_calc": 42.5,
		"overdue": 1,
		"unites_impliquees": ["Protection", "Genre"]
	}`

	var a Activity
	require.NoError(t, json.Unmarshal([]byte(payload), &a))

	v, ok := a.AvancementPct.Value()
	require.True(t, ok)
	assert.Equal(t, 30.0, v)

	v, ok = a.TauxAvancementCalc.Value()
	require.True(t, ok)
	assert.Equal(t, 42.5, v)

	assert.True(t, a.OverdueFlag())
	assert.Equal(t, []string{"Protection", "Genre"}, a.UnitesImpliquees)
}

func TestActivityUnmarshal_NullAndGarbageNumbers(t *testing.T) {
	payload := `{"avancement_pct": null, "taux_avancement_calc": "n/a", "overdue": 0}`

	var a Activity
	require.NoError(t, json.Unmarshal([]byte(payload), &a))

	_, ok := a.AvancementPct.Value()
	assert.False(t, ok)
	_, ok = a.TauxAvancementCalc.Value()
	assert.False(t, ok)
	assert.False(t, a.OverdueFlag())
}

func TestToNumber(t *testing.T) {
	v, ok := ToNumber("25,5")
	require.True(t, ok)
	assert.Equal(t, 25.5, v)

	v, ok = ToNumber("  30 ")
	require.True(t, ok)
	assert.Equal(t, 30.0, v)

	_, ok = ToNumber("")
	assert.False(t, ok)
	_, ok = ToNumber("trente")
	assert.False(t, ok)
}

func TestToPct_Clamps(t *testing.T) {
	v, ok := ToPct("150")
	require.True(t, ok)
	assert.Equal(t, 100.0, v)

	v, ok = ToPct("-10")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestParseISODate(t *testing.T) {
	d, ok := ParseISODate("2024-05-02")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseISODate("2024-05-02T15:30:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), d)

	_, ok = ParseISODate("02/05/2024")
	assert.False(t, ok)
	_, ok = ParseISODate("")
	assert.False(t, ok)
}

func TestRecordTime_PreferenceOrder(t *testing.T) {
	a := Activity{
		SubmissionTime: "2024-05-02T10:00:00",
		DateMiseAJour:  "2024-05-03T10:00:00",
	}
	assert.Equal(t, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), RecordTime(a))

	b := Activity{
		SubmissionTime: "invalide",
		DateMiseAJour:  "2024-05-03 10:00:00",
	}
	assert.Equal(t, time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC), RecordTime(b))

	c := Activity{DateFin: "2024-06-01"}
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), RecordTime(c))

	assert.True(t, RecordTime(Activity{}).IsZero())
}

func TestDisplayStatusAndProgress(t *testing.T) {
	a := Activity{StatutSuivi: "En cours", StatutPlanificateur: "Planifiée"}
	assert.Equal(t, "En cours", a.DisplayStatus())

	b := Activity{StatutPlanificateur: "Planifiée"}
	assert.Equal(t, "Planifiée", b.DisplayStatus())

	c := Activity{AvancementPct: Num("30"), TauxAvancementCalc: Num("55")}
	pct, ok := c.ProgressPct()
	require.True(t, ok)
	assert.Equal(t, 55.0, pct)

	d := Activity{AvancementPct: Num("30")}
	pct, ok = d.ProgressPct()
	require.True(t, ok)
	assert.Equal(t, 30.0, pct)

	_, ok = Activity{}.ProgressPct()
	assert.False(t, ok)
}
