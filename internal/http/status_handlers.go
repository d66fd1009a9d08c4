package http

import (
	"context"
	nethttp "net/http"
	"time"

	"agenda-activites-report-ui/internal/connectors/activities"
	mysqlstore "agenda-activites-report-ui/internal/connectors/mysql"
	viewsstore "agenda-activites-report-ui/internal/connectors/views"
)

func sourcesStatusHandler(cache *activities.Cache, dbStore *mysqlstore.Store, viewsStore *viewsstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"sources": map[string]any{
				"activities": cache.Status(),
				"mysql":      mysqlStatus(ctx, dbStore),
				"views":      viewsStatus(viewsStore),
			},
		})
	}
}

func mysqlStatus(ctx context.Context, store *mysqlstore.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "database integration disabled"}
	}

	start := time.Now()
	stats, err := store.ServiceStats(ctx)
	recordDBQuery("mysql", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}

func viewsStatus(store *viewsstore.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "saved views store disabled"}
	}
	return map[string]any{"enabled": true, "ok": true, "sqlite_path": store.Path()}
}
