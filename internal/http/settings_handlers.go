package http

import (
	nethttp "net/http"

	"agenda-activites-report-ui/internal/config"
)

// riskSettingsHandler exposes the effective scoring configuration so the
// dashboard can explain how the at-risk table was built.
func riskSettingsHandler(cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{
				"top_risk_limit": cfg.TopRiskLimit,
				"keywords_file":  cfg.RiskKeywordsFile,
				"risk":           cfg.Risk,
			},
		})
	}
}
