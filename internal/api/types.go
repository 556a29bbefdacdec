package api

import "time"

// AnalyticsQuery describes the window and shape of an analytics request.
// Timestamps are Unix milliseconds.
type AnalyticsQuery struct {
	StartMs     int64    `json:"startMs"`
	EndMs       int64    `json:"endMs"`
	Metrics     []string `json:"metrics,omitempty"`
	Granularity string   `json:"granularity,omitempty"` // "hour", "day", "week"
}

// AnalyticsResult is a fully-populated analytics payload for one subject and
// one query window. The provider returns it whole or not at all; there is no
// partial or streaming form.
type AnalyticsResult struct {
	SubjectID string         `json:"subjectId"`
	StartMs   int64          `json:"startMs"`
	EndMs     int64          `json:"endMs"`
	Totals    EngagementStat `json:"totals"`
	Series    []SeriesPoint  `json:"series"`
}

// EngagementStat aggregates activity for a subject wallet over a window.
type EngagementStat struct {
	Impressions   int64 `json:"impressions"`
	Engagements   int64 `json:"engagements"`
	ProfileVisits int64 `json:"profileVisits"`
	NewFollowers  int64 `json:"newFollowers"`
	PostsCreated  int64 `json:"postsCreated"`
	TipCount      int64 `json:"tipCount"`
	TipLamports   int64 `json:"tipLamports"`
}

// SeriesPoint is one bucket of the time series.
type SeriesPoint struct {
	TimestampMs int64 `json:"timestampMs"`
	Impressions int64 `json:"impressions"`
	Engagements int64 `json:"engagements"`
	TipLamports int64 `json:"tipLamports"`
}

// MetricResult is a single named metric value for a subject.
type MetricResult struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
}

// ExportOptions controls the shape of an export request.
type ExportOptions struct {
	Format            string   `json:"format"` // "csv" or "json"
	Metrics           []string `json:"metrics,omitempty"`
	StartMs           int64    `json:"startMs"`
	EndMs             int64    `json:"endMs"`
	IncludeComparison bool     `json:"includeComparison,omitempty"`
}

// ExportArtifact is the location of a finished export.
type ExportArtifact struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	ExpiresAt time.Time `json:"expiresAt"`
}
