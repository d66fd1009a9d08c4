package http

import (
	"encoding/json"
	nethttp "net/http"
	"strings"
	"time"

	viewsstore "agenda-activites-report-ui/internal/connectors/views"
	"agenda-activites-report-ui/internal/report"
)

type saveViewRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Criteria    report.Criteria `json:"criteria"`
}

func viewsCollectionHandler(store *viewsstore.Store, defaultLimit int) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "saved views store disabled (set APP_VIEWS_SQLITE_PATH)",
			})
			return
		}

		switch r.Method {
		case nethttp.MethodGet:
			limit := parseLimit(r, defaultLimit)
			start := time.Now()
			items, err := store.List(r.Context(), limit)
			recordDBQuery("views", "List", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to list saved views"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"limit": limit, "count": len(items)},
				"data": items,
			})
		case nethttp.MethodPost:
			var req saveViewRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
				return
			}
			if strings.TrimSpace(req.Name) == "" {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "view name is required"})
				return
			}

			criteriaJSON, err := json.Marshal(req.Criteria)
			if err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid criteria"})
				return
			}

			startUpsert := time.Now()
			id, err := store.Upsert(r.Context(), req.Name, req.Description, string(criteriaJSON))
			recordDBQuery("views", "Upsert", time.Since(startUpsert).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}

			startGet := time.Now()
			item, err := store.Get(r.Context(), id)
			recordDBQuery("views", "Get", time.Since(startGet).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "view saved but failed to read it back"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"saved": true},
				"data": item,
			})
		default:
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		}
	}
}

func viewsItemHandler(store *viewsstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "saved views store disabled (set APP_VIEWS_SQLITE_PATH)",
			})
			return
		}

		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/views/"), "/")
		if id == "" {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "view id path parameter is required"})
			return
		}

		switch r.Method {
		case nethttp.MethodGet:
			start := time.Now()
			item, err := store.Get(r.Context(), id)
			recordDBQuery("views", "Get", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "view not found"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": item})
		case nethttp.MethodDelete:
			start := time.Now()
			deleted, err := store.Delete(r.Context(), id)
			recordDBQuery("views", "Delete", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to delete view"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"deleted": deleted, "id": id},
			})
		default:
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		}
	}
}
