package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"agenda-activites-report-ui/internal/config"
	"agenda-activites-report-ui/internal/connectors/activities"
	"agenda-activites-report-ui/internal/report"
)

type stubSource struct {
	records []report.Activity
	err     error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) Fetch(_ context.Context) ([]report.Activity, error) {
	return s.records, s.err
}

func testConfig() config.Config {
	return config.Config{
		TopRiskLimit: report.DefaultTopRiskLimit,
		CategoryMax:  12,
		DefaultLimit: 500,
		Risk:         report.DefaultRiskConfig(),
	}
}

func loadedCache(t *testing.T, records []report.Activity) *activities.Cache {
	t.Helper()
	cache := activities.NewCache(stubSource{records: records})
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return cache
}

func testRecords() []report.Activity {
	return []report.Activity{
		{
			CodeActivite:        "A1",
			Titre:               "Formation protection",
			Pilier:              "Protection",
			Bureau:              "Goma",
			DateDebut:           "2024-02-01",
			DateFin:             "2020-01-01",
			StatutPlanificateur: "En cours",
			RisquePriorite:      "Élevé",
			AvancementPct:       report.Num("30"),
		},
		{
			CodeActivite:        "A2",
			Titre:               "Atelier gouvernance",
			Pilier:              "Gouvernance",
			Bureau:              "Bukavu",
			DateDebut:           "2024-03-10",
			DateFin:             "2099-12-31",
			StatutPlanificateur: "Planifiée",
			CommentaireSuivi:    "en attente des fonds",
			AvancementPct:       report.Num("50"),
		},
		{
			CodeActivite:        "A3",
			Titre:               "Campagne VBG",
			Pilier:              "Protection",
			Bureau:              "Goma",
			StatutPlanificateur: "Finalisée",
			AvancementPct:       report.Num("100"),
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestDataHandlers_503BeforeFirstLoad(t *testing.T) {
	cache := activities.NewCache(stubSource{err: errors.New("file missing")})
	_ = cache.Refresh(context.Background())
	cfg := testConfig()

	handlers := map[string]nethttp.HandlerFunc{
		"/api/v1/kpis":              kpisHandler(cache, cfg),
		"/api/v1/charts/categories": categoriesChartHandler(cache, cfg),
		"/api/v1/charts/trend":      trendChartHandler(cache, cfg),
		"/api/v1/risk/top":          topRiskHandler(cache, cfg),
		"/api/v1/activities":        activitiesHandler(cache, cfg),
	}

	for path, handler := range handlers {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(nethttp.MethodGet, path, nil))
		if rec.Code != nethttp.StatusServiceUnavailable {
			t.Errorf("%s: expected 503 before first load, got %d", path, rec.Code)
		}
	}
}

func TestKPIsHandler(t *testing.T) {
	cache := loadedCache(t, testRecords())
	rec := httptest.NewRecorder()
	kpisHandler(cache, testConfig())(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/kpis", nil))

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	if data["total"].(float64) != 3 {
		t.Errorf("expected total 3, got %v", data["total"])
	}
	if data["with_followup"].(float64) != 1 {
		t.Errorf("expected with_followup 1, got %v", data["with_followup"])
	}
	if data["avg_progress_pct"].(float64) != 60 {
		t.Errorf("expected avg 60, got %v", data["avg_progress_pct"])
	}
}

func TestCategoriesChartHandler(t *testing.T) {
	cache := loadedCache(t, testRecords())
	handler := categoriesChartHandler(cache, testConfig())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/charts/categories?by=pilier", nil))
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	pairs := body["data"].([]any)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(pairs))
	}
	first := pairs[0].(map[string]any)
	if first["label"] != "Protection" || first["count"].(float64) != 2 {
		t.Errorf("expected Protection=2 first, got %v", first)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/charts/categories?by=nope", nil))
	if rec.Code != nethttp.StatusBadRequest {
		t.Errorf("expected 400 for unknown by, got %d", rec.Code)
	}
}

func TestTrendChartHandler(t *testing.T) {
	cache := loadedCache(t, testRecords())
	handler := trendChartHandler(cache, testConfig())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/charts/trend?bucket=month", nil))
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	series := body["data"].(map[string]any)
	labels := series["labels"].([]any)
	// A3 has no start date and is skipped.
	if len(labels) != 2 || labels[0] != "2024-02" || labels[1] != "2024-03" {
		t.Errorf("unexpected labels: %v", labels)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/charts/trend?bucket=day", nil))
	if rec.Code != nethttp.StatusBadRequest {
		t.Errorf("expected 400 for unknown bucket, got %d", rec.Code)
	}
}

func TestTopRiskHandler(t *testing.T) {
	cache := loadedCache(t, testRecords())
	rec := httptest.NewRecorder()
	topRiskHandler(cache, testConfig())(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/risk/top?limit=5", nil))

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	rows := body["data"].([]any)
	if len(rows) != 1 {
		t.Fatalf("expected 1 at-risk row, got %d", len(rows))
	}
	top := rows[0].(map[string]any)
	if top["code_activite"] != "A1" {
		t.Errorf("expected A1 at risk, got %v", top["code_activite"])
	}
	if top["score"].(float64) <= 0 {
		t.Errorf("expected positive score, got %v", top["score"])
	}
}

func TestActivitiesHandler_FiltersAndPaginates(t *testing.T) {
	cache := loadedCache(t, testRecords())
	handler := activitiesHandler(cache, testConfig())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/activities?bureau=Goma", nil))
	body := decodeBody(t, rec)
	meta := body["meta"].(map[string]any)
	if meta["filtered"].(float64) != 2 || meta["total"].(float64) != 3 {
		t.Errorf("unexpected meta: %v", meta)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/activities?limit=1&offset=1", nil))
	body = decodeBody(t, rec)
	if count := body["meta"].(map[string]any)["count"].(float64); count != 1 {
		t.Errorf("expected page of 1, got %v", count)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/activities?offset=99", nil))
	body = decodeBody(t, rec)
	if count := body["meta"].(map[string]any)["count"].(float64); count != 0 {
		t.Errorf("expected empty page past the end, got %v", count)
	}
}

func TestActivityOptionsHandler(t *testing.T) {
	cache := loadedCache(t, testRecords())
	rec := httptest.NewRecorder()
	activityOptionsHandler(cache)(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/activities/options", nil))

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	bureaux := data["bureaux"].([]any)
	if len(bureaux) != 2 || bureaux[0] != "Bukavu" || bureaux[1] != "Goma" {
		t.Errorf("unexpected bureaux: %v", bureaux)
	}
}

func TestReadyHandler(t *testing.T) {
	cache := activities.NewCache(stubSource{err: errors.New("boom")})
	_ = cache.Refresh(context.Background())

	rec := httptest.NewRecorder()
	readyHandler(cache)(rec, httptest.NewRequest(nethttp.MethodGet, "/ready", nil))
	if rec.Code != nethttp.StatusServiceUnavailable {
		t.Errorf("expected 503 while loading, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	readyHandler(loadedCache(t, testRecords()))(rec, httptest.NewRequest(nethttp.MethodGet, "/ready", nil))
	if rec.Code != nethttp.StatusOK {
		t.Errorf("expected 200 when loaded, got %d", rec.Code)
	}
}

func TestViewsHandlers_DisabledStore(t *testing.T) {
	rec := httptest.NewRecorder()
	viewsCollectionHandler(nil, 100)(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/views", nil))
	if rec.Code != nethttp.StatusServiceUnavailable {
		t.Errorf("expected 503 without views store, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	viewsItemHandler(nil)(rec, httptest.NewRequest(nethttp.MethodDelete, "/api/v1/views/abc", nil))
	if rec.Code != nethttp.StatusServiceUnavailable {
		t.Errorf("expected 503 without views store, got %d", rec.Code)
	}
}

func TestRiskSettingsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	riskSettingsHandler(testConfig())(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/settings/risk", nil))

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	if data["top_risk_limit"].(float64) != float64(report.DefaultTopRiskLimit) {
		t.Errorf("unexpected top_risk_limit: %v", data["top_risk_limit"])
	}
	risk := data["risk"].(map[string]any)
	if risk["overdue_weight"].(float64) != 100 {
		t.Errorf("unexpected overdue weight: %v", risk["overdue_weight"])
	}
}

func TestSourcesStatusHandler(t *testing.T) {
	cache := loadedCache(t, testRecords())
	rec := httptest.NewRecorder()
	sourcesStatusHandler(cache, nil, nil)(rec, httptest.NewRequest(nethttp.MethodGet, "/api/v1/status/sources", nil))

	body := decodeBody(t, rec)
	sources := body["sources"].(map[string]any)
	act := sources["activities"].(map[string]any)
	if act["loaded"] != true || act["records"].(float64) != 3 {
		t.Errorf("unexpected activities status: %v", act)
	}
	mysql := sources["mysql"].(map[string]any)
	if mysql["enabled"] != false {
		t.Errorf("expected mysql disabled, got %v", mysql)
	}
}
