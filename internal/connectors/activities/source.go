package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"agenda-activites-report-ui/internal/report"
)

// Source produces the full activity record array for one load. A load
// either succeeds completely or fails completely; there is no partial
// snapshot.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]report.Activity, error)
}

// FileSource reads the published activities.json from local disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file" }

func (s FileSource) Fetch(_ context.Context) ([]report.Activity, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return DecodeRecords(raw)
}

// HTTPSource fetches activities.json over HTTP, the way the browser
// dashboard used to.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource builds an HTTP source with its own timeout-bound client.
func NewHTTPSource(url string, timeout time.Duration) HTTPSource {
	return HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (s HTTPSource) Name() string { return "http" }

func (s HTTPSource) Fetch(ctx context.Context) ([]report.Activity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", s.URL, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(raw)
}

// DecodeRecords enforces the input contract: the payload root must be a
// JSON array of activity objects. Anything else is a hard load failure.
func DecodeRecords(raw []byte) ([]report.Activity, error) {
	trimmedRaw := bytes.TrimSpace(raw)
	if len(trimmedRaw) == 0 || trimmedRaw[0] != '[' {
		return nil, fmt.Errorf("activities payload is not a JSON array")
	}

	var records []report.Activity
	if err := json.Unmarshal(trimmedRaw, &records); err != nil {
		return nil, fmt.Errorf("decode activities payload: %w", err)
	}
	return records, nil
}
