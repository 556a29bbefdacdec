package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderClient_GetUserAnalytics(t *testing.T) {
	var gotPath, gotKey string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		gotQuery = r.URL.Query()

		json.NewEncoder(w).Encode(AnalyticsResult{
			SubjectID: "wallet-abc",
			StartMs:   1000,
			EndMs:     2000,
			Totals:    EngagementStat{Impressions: 420, TipCount: 3, TipLamports: 5_000_000},
			Series: []SeriesPoint{
				{TimestampMs: 1000, Impressions: 200},
				{TimestampMs: 1500, Impressions: 220},
			},
		})
	}))
	defer srv.Close()

	client := NewProviderClient(srv.URL, "secret", 5*time.Second)

	result, err := client.GetUserAnalytics(context.Background(), "wallet-abc", AnalyticsQuery{
		StartMs:     1000,
		EndMs:       2000,
		Metrics:     []string{"impressions", "tips"},
		Granularity: "day",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/subjects/wallet-abc/analytics", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, []string{"1000"}, gotQuery["start"])
	assert.Equal(t, []string{"2000"}, gotQuery["end"])
	assert.Equal(t, []string{"impressions,tips"}, gotQuery["metrics"])
	assert.Equal(t, []string{"day"}, gotQuery["granularity"])

	assert.Equal(t, "wallet-abc", result.SubjectID)
	assert.Equal(t, int64(420), result.Totals.Impressions)
	assert.Len(t, result.Series, 2)
}

func TestProviderClient_GetUserAnalytics_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewProviderClient(srv.URL, "secret", 5*time.Second)

	_, err := client.GetUserAnalytics(context.Background(), "wallet-abc", AnalyticsQuery{StartMs: 0, EndMs: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestProviderClient_GetMetric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subjects/wallet-abc/metrics/engagement_rate", r.URL.Path)
		json.NewEncoder(w).Encode(MetricResult{Metric: "engagement_rate", Value: 0.042, Unit: "ratio"})
	}))
	defer srv.Close()

	client := NewProviderClient(srv.URL, "secret", 5*time.Second)

	result, err := client.GetMetric(context.Background(), "wallet-abc", "engagement_rate")
	require.NoError(t, err)
	assert.Equal(t, "engagement_rate", result.Metric)
	assert.InDelta(t, 0.042, result.Value, 1e-9)
}

func TestExportClient_ExportAnalytics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/subjects/wallet-abc/exports", r.URL.Path)

		var opts ExportOptions
		require.NoError(t, json.NewDecoder(r.Body).Decode(&opts))
		assert.Equal(t, "csv", opts.Format)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ExportArtifact{
			URL:      "https://exports.example.com/abc.csv",
			Filename: "abc.csv",
			Size:     1024,
		})
	}))
	defer srv.Close()

	client := NewExportClient(srv.URL, "secret", 5*time.Second)

	artifact, err := client.ExportAnalytics(context.Background(), "wallet-abc", ExportOptions{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "abc.csv", artifact.Filename)
	assert.Equal(t, int64(1024), artifact.Size)
}

func TestExportClient_ExportAnalytics_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "export quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewExportClient(srv.URL, "secret", 5*time.Second)

	_, err := client.ExportAnalytics(context.Background(), "wallet-abc", ExportOptions{Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestProviderClient_Test(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewProviderClient(srv.URL, "secret", 5*time.Second)
	assert.NoError(t, client.Test())
}
