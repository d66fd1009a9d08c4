package kobo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Submission is one raw KoboToolbox form submission. Field names depend on
// the XLSForm, so it stays an open map until the normalizer picks it apart.
type Submission map[string]any

// Client talks to the KoboToolbox v2 data API.
type Client struct {
	baseURL  string
	token    string
	assetUID string
	http     *http.Client
}

func NewClient(baseURL, token, assetUID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:    strings.TrimSpace(token),
		assetUID: strings.TrimSpace(assetUID),
		http:     &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client is configured well enough to fetch.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.token != "" && c.assetUID != ""
}

// FetchSubmissions downloads the full submission set for the configured
// asset.
func (c *Client) FetchSubmissions(ctx context.Context) ([]Submission, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("kobo client not configured")
	}

	url := fmt.Sprintf("%s/api/v2/assets/%s/data/?format=json", c.baseURL, c.assetUID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("kobo fetch: HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return DecodeSubmissions(raw)
}

// DecodeSubmissions extracts the results array from a Kobo data payload.
func DecodeSubmissions(raw []byte) ([]Submission, error) {
	var payload struct {
		Results []Submission `json:"results"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode kobo payload: %w", err)
	}
	return payload.Results, nil
}
