package server

import "github.com/solcial/pulse/internal/analytics"

// API Response Types - Typed structs instead of map[string]interface{}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string                        `json:"status"`
	Version string                        `json:"version"`
	Checks  map[string]ServiceHealthCheck `json:"checks"`
}

// ServiceHealthCheck represents a collaborator health check result
type ServiceHealthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RefreshRequest is the body of POST /api/analytics/refresh
type RefreshRequest struct {
	SubjectID string                     `json:"subjectId"`
	Overrides *analytics.FilterOverrides `json:"overrides,omitempty"`
}

// ComparisonResponse is the body returned after toggling comparison mode
type ComparisonResponse struct {
	ComparisonEnabled bool `json:"comparisonEnabled"`
}

// PresetRange is one resolved preset in the presets listing
type PresetRange struct {
	Preset  analytics.Preset `json:"preset"`
	StartMs int64            `json:"startMs"`
	EndMs   int64            `json:"endMs"`
}

// ExportProgressResponse reports the state of the export affordance
type ExportProgressResponse struct {
	Exporting bool   `json:"exporting"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
}

// PrefsResponse is the persisted preference set
type PrefsResponse struct {
	Filters           *analytics.Filters `json:"filters,omitempty"`
	ComparisonEnabled bool               `json:"comparisonEnabled"`
	SelectedTab       string             `json:"selectedTab,omitempty"`
}

// PrefsUpdateRequest is the body of PUT /api/prefs
type PrefsUpdateRequest struct {
	SelectedTab *string `json:"selectedTab,omitempty"`
}
