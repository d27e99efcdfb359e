// Package dataclient is the shell's client for the external data-analysis
// service, the stateful backend that holds the working set of raw
// consumption series. Analysis requests made by modules run against that
// working set, not against the shell's in-memory state, so keeping the two
// consistent is a correctness requirement of project loading.
package dataclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pv-analysis-be/internal/entity"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type exportResponse struct {
	Series   []entity.SeriesPoint `json:"series"`
	Coverage *entity.YearCoverage `json:"coverage,omitempty"`
}

type restoreRequest struct {
	Series []entity.SeriesPoint `json:"series"`
}

// Export fetches the full-resolution series currently held by the service,
// along with its coverage metadata. Used after an upload to mirror the
// series into the project record without keeping a second in-memory copy.
func (c *Client) Export(ctx context.Context) ([]entity.SeriesPoint, *entity.YearCoverage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/series/export", nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("export series: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, fmt.Errorf("export series: status %d: %s", resp.StatusCode, body)
	}

	var result exportResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, fmt.Errorf("decode export response: %w", err)
	}
	return result.Series, result.Coverage, nil
}

// Restore replaces the service's working set with the given series. Called
// during project load before any DATA_AVAILABLE broadcast goes out.
func (c *Client) Restore(ctx context.Context, series []entity.SeriesPoint) error {
	payload, err := json.Marshal(restoreRequest{Series: series})
	if err != nil {
		return fmt.Errorf("marshal restore request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/series/restore", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("restore series: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("restore series: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Clear drops the service's working set. Called on data clear and project
// switch so a stale series cannot survive into the next project.
func (c *Client) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/series", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clear series: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("clear series: status %d: %s", resp.StatusCode, body)
	}
	return nil
}
