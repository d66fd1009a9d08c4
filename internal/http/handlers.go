package http

import (
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"agenda-activites-report-ui/internal/config"
	"agenda-activites-report-ui/internal/connectors/activities"
	"agenda-activites-report-ui/internal/report"
)

// snapshotOr503 is the shared read path: every data endpoint serves from
// the current in-memory snapshot and renders the load error state when no
// snapshot has ever been loaded.
func snapshotOr503(w nethttp.ResponseWriter, cache *activities.Cache) (*activities.Snapshot, bool) {
	snap, err := cache.Snapshot()
	if err != nil {
		writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
			"error": "activities snapshot unavailable: " + err.Error(),
		})
		return nil, false
	}
	return snap, true
}

func snapshotMeta(snap *activities.Snapshot) map[string]any {
	return map[string]any{
		"source":    snap.Source,
		"loaded_at": snap.LoadedAt,
		"records":   len(snap.Records),
	}
}

func kpisHandler(cache *activities.Cache, cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap, ok := snapshotOr503(w, cache)
		if !ok {
			return
		}

		records := snap.Records
		crit := parseCriteria(r)
		if !crit.IsZero() {
			records = report.ApplyFilters(records, crit, cfg.Risk, time.Now().UTC())
		}

		meta := snapshotMeta(snap)
		meta["filtered"] = len(records)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": meta,
			"data": report.Summarize(records, cfg.Risk, time.Now().UTC()),
		})
	}
}

func categoriesChartHandler(cache *activities.Cache, cfg config.Config) nethttp.HandlerFunc {
	keyFns := map[string]func(report.Activity) string{
		"pilier":        func(a report.Activity) string { return a.Pilier },
		"bureau":        func(a report.Activity) string { return a.Bureau },
		"type":          func(a report.Activity) string { return a.TypeActivite },
		"statut_planif": func(a report.Activity) string { return a.StatutPlanificateur },
	}

	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap, ok := snapshotOr503(w, cache)
		if !ok {
			return
		}

		by := strings.TrimSpace(r.URL.Query().Get("by"))
		if by == "" {
			by = "pilier"
		}
		keyFn, known := keyFns[by]
		if !known {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"error": "invalid by parameter, expected pilier|bureau|type|statut_planif",
			})
			return
		}

		max := cfg.CategoryMax
		if raw := r.URL.Query().Get("max"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err == nil && parsed > 0 && parsed <= 100 {
				max = parsed
			}
		}

		records := snap.Records
		crit := parseCriteria(r)
		if !crit.IsZero() {
			records = report.ApplyFilters(records, crit, cfg.Risk, time.Now().UTC())
		}

		pairs := report.LimitCategories(report.GroupCount(records, keyFn), max)
		meta := snapshotMeta(snap)
		meta["by"] = by
		meta["max"] = max
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": meta,
			"data": pairs,
		})
	}
}

func trendChartHandler(cache *activities.Cache, cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap, ok := snapshotOr503(w, cache)
		if !ok {
			return
		}

		bucket := strings.TrimSpace(r.URL.Query().Get("bucket"))
		if bucket == "" {
			bucket = "month"
		}
		if bucket != "month" && bucket != "week" {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"error": "invalid bucket parameter, expected month|week",
			})
			return
		}

		dateField := strings.TrimSpace(r.URL.Query().Get("date"))
		if dateField == "" {
			dateField = "debut"
		}
		if dateField != "debut" && dateField != "fin" {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"error": "invalid date parameter, expected debut|fin",
			})
			return
		}

		pickDate := func(a report.Activity) string { return a.DateDebut }
		if dateField == "fin" {
			pickDate = func(a report.Activity) string { return a.DateFin }
		}

		keyFn := func(a report.Activity) string { return report.ToYearMonth(pickDate(a)) }
		if bucket == "week" {
			keyFn = func(a report.Activity) string { return report.ISOWeekKey(pickDate(a)) }
		}

		records := snap.Records
		crit := parseCriteria(r)
		if !crit.IsZero() {
			records = report.ApplyFilters(records, crit, cfg.Risk, time.Now().UTC())
		}

		meta := snapshotMeta(snap)
		meta["bucket"] = bucket
		meta["date"] = dateField
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": meta,
			"data": report.TrendSeries(records, keyFn),
		})
	}
}

func topRiskHandler(cache *activities.Cache, cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap, ok := snapshotOr503(w, cache)
		if !ok {
			return
		}

		limit := cfg.TopRiskLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		rows := cfg.Risk.TopAtRisk(snap.Records, time.Now().UTC(), limit)
		meta := snapshotMeta(snap)
		meta["limit"] = limit
		meta["count"] = len(rows)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": meta,
			"data": rows,
		})
	}
}

func activitiesHandler(cache *activities.Cache, cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap, ok := snapshotOr503(w, cache)
		if !ok {
			return
		}

		crit := parseCriteria(r)
		filtered := report.ApplyFilters(snap.Records, crit, cfg.Risk, time.Now().UTC())
		sorted := report.SortForTable(filtered)

		limit := parseLimit(r, cfg.DefaultLimit)
		offset := parseOffset(r)
		page := sorted
		if offset >= len(page) {
			page = nil
		} else {
			page = page[offset:]
		}
		if len(page) > limit {
			page = page[:limit]
		}

		meta := snapshotMeta(snap)
		meta["total"] = len(snap.Records)
		meta["filtered"] = len(filtered)
		meta["limit"] = limit
		meta["offset"] = offset
		meta["count"] = len(page)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": meta,
			"data": page,
		})
	}
}

// activityOptionsHandler lists the distinct values backing the filter
// dropdowns.
func activityOptionsHandler(cache *activities.Cache) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap, ok := snapshotOr503(w, cache)
		if !ok {
			return
		}

		collect := func(pick func(report.Activity) string) []string {
			values := make([]string, 0, len(snap.Records))
			for _, a := range snap.Records {
				values = append(values, pick(a))
			}
			return report.Unique(values)
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": snapshotMeta(snap),
			"data": map[string]any{
				"piliers":               collect(func(a report.Activity) string { return a.Pilier }),
				"bureaux":               collect(func(a report.Activity) string { return a.Bureau }),
				"types_activite":        collect(func(a report.Activity) string { return a.TypeActivite }),
				"statuts_planificateur": collect(func(a report.Activity) string { return a.StatutPlanificateur }),
				"statuts_suivi":         collect(func(a report.Activity) string { return a.StatutSuivi }),
				"risques_priorite":      collect(func(a report.Activity) string { return a.RisquePriorite }),
			},
		})
	}
}

func parseCriteria(r *nethttp.Request) report.Criteria {
	q := r.URL.Query()
	return report.Criteria{
		Query:        strings.TrimSpace(q.Get("q")),
		Pilier:       strings.TrimSpace(q.Get("pilier")),
		Bureau:       strings.TrimSpace(q.Get("bureau")),
		StatutPlanif: strings.TrimSpace(q.Get("statut_planificateur")),
		StatutSuivi:  strings.TrimSpace(q.Get("statut_suivi")),
		TypeActivite: strings.TrimSpace(q.Get("type_activite")),
		Risque:       strings.TrimSpace(q.Get("risque_priorite")),
		DateFrom:     strings.TrimSpace(q.Get("date_from")),
		DateTo:       strings.TrimSpace(q.Get("date_to")),
		Scope:        strings.TrimSpace(q.Get("scope")),
	}
}

func parseLimit(r *nethttp.Request, defaultLimit int) int {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 && parsed <= 5000 {
			limit = parsed
		}
	}
	return limit
}

func parseOffset(r *nethttp.Request) int {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return offset
}
