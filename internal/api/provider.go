package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ProviderClient talks to the analytics data provider over HTTP
type ProviderClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewProviderClient creates a new analytics provider client
func NewProviderClient(baseURL, apiKey string, timeout time.Duration) *ProviderClient {
	return &ProviderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Test tests the connection
func (p *ProviderClient) Test() error {
	req, err := http.NewRequest("GET", p.baseURL+"/v1/status", nil)
	if err != nil {
		return err
	}

	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to analytics provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("analytics provider returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// GetUserAnalytics retrieves analytics for a subject over the given window
func (p *ProviderClient) GetUserAnalytics(ctx context.Context, subjectID string, query AnalyticsQuery) (*AnalyticsResult, error) {
	params := url.Values{}
	params.Set("start", strconv.FormatInt(query.StartMs, 10))
	params.Set("end", strconv.FormatInt(query.EndMs, 10))
	if len(query.Metrics) > 0 {
		params.Set("metrics", strings.Join(query.Metrics, ","))
	}
	if query.Granularity != "" {
		params.Set("granularity", query.Granularity)
	}

	endpoint := fmt.Sprintf("/v1/subjects/%s/analytics?%s", url.PathEscape(subjectID), params.Encode())

	var result AnalyticsResult
	if err := p.doRequest(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetMetric retrieves a single named metric for a subject
func (p *ProviderClient) GetMetric(ctx context.Context, subjectID, metric string) (*MetricResult, error) {
	endpoint := fmt.Sprintf("/v1/subjects/%s/metrics/%s", url.PathEscape(subjectID), url.PathEscape(metric))

	var result MetricResult
	if err := p.doRequest(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// doRequest performs an API request
func (p *ProviderClient) doRequest(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+endpoint, nil)
	if err != nil {
		return err
	}

	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get data from analytics provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("analytics provider API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode analytics provider response: %w", err)
	}

	return nil
}
