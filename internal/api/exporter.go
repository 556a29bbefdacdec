package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ExportClient talks to the export service over HTTP
type ExportClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewExportClient creates a new export service client
func NewExportClient(baseURL, apiKey string, timeout time.Duration) *ExportClient {
	return &ExportClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Test tests the connection
func (e *ExportClient) Test() error {
	req, err := http.NewRequest("GET", e.baseURL+"/v1/status", nil)
	if err != nil {
		return err
	}

	req.Header.Set("X-Api-Key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to export service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("export service returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// ExportAnalytics requests an export and blocks until the artifact is ready.
// The service reports no intermediate progress.
func (e *ExportClient) ExportAnalytics(ctx context.Context, subjectID string, opts ExportOptions) (*ExportArtifact, error) {
	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export options: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/subjects/%s/exports", e.baseURL, url.PathEscape(subjectID))

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Api-Key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("export service API returned status %d: %s", resp.StatusCode, string(body))
	}

	var artifact ExportArtifact
	if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("failed to decode export service response: %w", err)
	}

	return &artifact, nil
}
