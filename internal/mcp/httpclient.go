package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/trends"
	"github.com/claude/liftlog/internal/workout"
)

// HTTPClient implements DataSource by calling the LiftLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) Trends(ctx context.Context) ([]trends.Trend, error) {
	var out []trends.Trend
	if err := c.get(ctx, "/api/v1/trends", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ExerciseMetrics(ctx context.Context, metaID string, start, end time.Time) (trends.ExerciseProgress, error) {
	var out trends.ExerciseProgress
	path := "/api/v1/exercises/" + url.PathEscape(metaID) + "/metrics"
	if err := c.get(ctx, path, timeParams(start, end), &out); err != nil {
		return trends.ExerciseProgress{}, err
	}
	return out, nil
}

func (c *HTTPClient) ListWorkouts(ctx context.Context, start, end time.Time) ([]models.Workout, error) {
	var out []models.Workout
	if err := c.get(ctx, "/api/v1/workouts", timeParams(start, end), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) WorkoutReport(ctx context.Context, id string) (workout.Report, error) {
	var out workout.Report
	if err := c.get(ctx, "/api/v1/workouts/"+url.PathEscape(id)+"/summary", nil, &out); err != nil {
		return workout.Report{}, err
	}
	return out, nil
}

func (c *HTTPClient) Exercises(ctx context.Context) ([]catalog.Meta, error) {
	var out []catalog.Meta
	if err := c.get(ctx, "/api/v1/catalog", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
