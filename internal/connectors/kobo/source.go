package kobo

import (
	"context"
	"time"

	"agenda-activites-report-ui/internal/report"
)

// Source adapts the Kobo client + normalizer into an activities source:
// fetch the raw submissions, then normalize them against the current day.
type Source struct {
	Client *Client
	Risk   report.RiskConfig
}

func (s Source) Name() string { return "kobo" }

func (s Source) Fetch(ctx context.Context) ([]report.Activity, error) {
	subs, err := s.Client.FetchSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(subs, s.Risk, time.Now().UTC()), nil
}
