package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solcial/pulse/internal/analytics"
	"github.com/solcial/pulse/internal/api"
	"github.com/solcial/pulse/internal/config"
	"github.com/solcial/pulse/internal/prefs"
)

type stubProvider struct {
	err error
}

func (p *stubProvider) Test() error { return p.err }

func (p *stubProvider) GetUserAnalytics(ctx context.Context, subjectID string, q api.AnalyticsQuery) (*api.AnalyticsResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &api.AnalyticsResult{SubjectID: subjectID, StartMs: q.StartMs, EndMs: q.EndMs}, nil
}

func (p *stubProvider) GetMetric(ctx context.Context, subjectID, metric string) (*api.MetricResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &api.MetricResult{Metric: metric, Value: 7}, nil
}

type stubExporter struct {
	err error
}

func (e *stubExporter) Test() error { return e.err }

func (e *stubExporter) ExportAnalytics(ctx context.Context, subjectID string, opts api.ExportOptions) (*api.ExportArtifact, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &api.ExportArtifact{URL: "https://exports.example.com/x.csv", Filename: "x.csv", Size: 10}, nil
}

func newTestServer(t *testing.T, provider api.Provider, exporter api.Exporter) (*Server, *prefs.Store) {
	t.Helper()

	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	coordinator := analytics.NewCoordinator(provider, exporter, analytics.Options{
		Prefs:  store,
		Logger: zerolog.Nop(),
	})

	cfg := config.Default()
	srv := NewServer(coordinator, provider, exporter, store, cfg, "test", zerolog.Nop())
	return srv, store
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.HandleHealth)
	mux.HandleFunc("/api/analytics", srv.HandleAnalytics)
	mux.HandleFunc("/api/analytics/refresh", srv.HandleRefresh)
	mux.HandleFunc("/api/analytics/comparison", srv.HandleToggleComparison)
	mux.HandleFunc("/api/analytics/presets", srv.HandlePresets)
	mux.HandleFunc("/api/analytics/metric", srv.HandleMetric)
	mux.HandleFunc("/api/export", srv.HandleExport)
	mux.HandleFunc("/api/export/progress", srv.HandleExportProgress)
	mux.HandleFunc("/api/prefs", srv.HandlePrefs)
	mux.ServeHTTP(rec, req)

	return rec
}

func TestHandleRefresh_Success(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/analytics/refresh", RefreshRequest{SubjectID: "wallet-abc"})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap analytics.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, analytics.StateSuccess, snap.State)
	assert.Equal(t, "wallet-abc", snap.SubjectID)
	require.NotNil(t, snap.Result)
}

func TestHandleRefresh_MissingSubject(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/analytics/refresh", RefreshRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "missing_subject", resp.Code)
}

func TestHandleRefresh_InvalidPreset(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	bad := analytics.Preset("fortnight")
	rec := doRequest(t, srv, http.MethodPost, "/api/analytics/refresh", RefreshRequest{
		SubjectID: "wallet-abc",
		Overrides: &analytics.FilterOverrides{Preset: &bad},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRefresh_ProviderFailure(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{err: errors.New("unreachable")}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/analytics/refresh", RefreshRequest{SubjectID: "wallet-abc"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "fetch_failed", resp.Code)
}

func TestHandleRefresh_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodGet, "/api/analytics/refresh", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleExport_NothingToExport(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/export", api.ExportOptions{Format: "csv"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "nothing_to_export", resp.Code)
}

func TestHandleExport_Success(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	// Load analytics first so the export precondition holds
	rec := doRequest(t, srv, http.MethodPost, "/api/analytics/refresh", RefreshRequest{SubjectID: "wallet-abc"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/export", api.ExportOptions{Format: "csv"})
	require.Equal(t, http.StatusOK, rec.Code)

	var artifact api.ExportArtifact
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&artifact))
	assert.Equal(t, "x.csv", artifact.Filename)
}

func TestHandleExport_InvalidFormat(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/export", api.ExportOptions{Format: "xlsx"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExportProgress_Idle(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodGet, "/api/export/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExportProgressResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Exporting)
	assert.Equal(t, 0, resp.Progress)
}

func TestHandleToggleComparison(t *testing.T) {
	srv, store := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/analytics/comparison", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ComparisonResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.ComparisonEnabled)

	// The flag is persisted
	enabled, err := store.LoadComparisonEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestHandlePresets(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodGet, "/api/analytics/presets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var presets []PresetRange
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&presets))
	require.Len(t, presets, 6)

	byName := map[analytics.Preset]PresetRange{}
	for _, p := range presets {
		byName[p.Preset] = p
	}
	assert.Equal(t, int64(0), byName[analytics.PresetAll].StartMs)
	assert.Less(t, byName[analytics.PresetWeek].StartMs, byName[analytics.PresetWeek].EndMs)
}

func TestHandleMetric(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodGet, "/api/analytics/metric?subject=wallet-abc&name=engagement_rate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result api.MetricResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "engagement_rate", result.Metric)
}

func TestHandlePrefs_Roundtrip(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{}, &stubExporter{})

	tab := "tips"
	rec := doRequest(t, srv, http.MethodPut, "/api/prefs", PrefsUpdateRequest{SelectedTab: &tab})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/prefs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PrefsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tips", resp.SelectedTab)
}

func TestHandleHealth_Degraded(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{err: errors.New("down")}, &stubExporter{})

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["provider"].Status)
	assert.Equal(t, "healthy", resp.Checks["exporter"].Status)
}
