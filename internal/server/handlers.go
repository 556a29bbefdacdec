package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/solcial/pulse/internal/analytics"
	"github.com/solcial/pulse/internal/api"
)

// HandleHealth reports collaborator connectivity
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]ServiceHealthCheck{}
	status := "ok"

	if err := s.provider.Test(); err != nil {
		checks["provider"] = ServiceHealthCheck{Status: "unhealthy", Error: err.Error()}
		status = "degraded"
	} else {
		checks["provider"] = ServiceHealthCheck{Status: "healthy"}
	}

	if err := s.exporter.Test(); err != nil {
		checks["exporter"] = ServiceHealthCheck{Status: "unhealthy", Error: err.Error()}
		status = "degraded"
	} else {
		checks["exporter"] = ServiceHealthCheck{Status: "healthy"}
	}

	if _, err := s.prefs.SelectedTab(); err != nil {
		checks["prefs"] = ServiceHealthCheck{Status: "unhealthy", Error: err.Error()}
		status = "degraded"
	} else {
		checks["prefs"] = ServiceHealthCheck{Status: "healthy"}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, HealthResponse{Status: status, Version: s.version, Checks: checks})
}

// HandleAnalytics returns the current analytics view state
func (s *Server) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	respondJSON(w, http.StatusOK, s.coordinator.Snapshot())
}

// HandleRefresh triggers an analytics fetch for a subject
func (s *Server) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "invalid_request")
		return
	}

	if req.SubjectID == "" {
		respondError(w, http.StatusBadRequest, "subjectId is required", "missing_subject")
		return
	}

	if req.Overrides != nil && req.Overrides.Preset != nil && !req.Overrides.Preset.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown preset", "invalid_preset")
		return
	}

	if err := s.coordinator.FetchAnalytics(r.Context(), req.SubjectID, req.Overrides); err != nil {
		respondError(w, http.StatusBadGateway, err.Error(), "fetch_failed")
		return
	}

	respondJSON(w, http.StatusOK, s.coordinator.Snapshot())
}

// HandleToggleComparison flips comparison mode. It never re-fetches; the
// client follows up with a refresh when it wants comparison data.
func (s *Server) HandleToggleComparison(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	respondJSON(w, http.StatusOK, ComparisonResponse{ComparisonEnabled: s.coordinator.ToggleComparison()})
}

// HandlePresets lists the known presets with their ranges resolved at the
// time of the request
func (s *Server) HandlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	now := time.Now()
	presets := make([]PresetRange, 0, len(analytics.Presets()))
	for _, p := range analytics.Presets() {
		start, end, err := analytics.ResolvePreset(p, now)
		if err != nil {
			continue
		}
		presets = append(presets, PresetRange{Preset: p, StartMs: start, EndMs: end})
	}

	respondJSON(w, http.StatusOK, presets)
}

// HandleMetric returns a single named metric for a subject
func (s *Server) HandleMetric(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	subjectID := r.URL.Query().Get("subject")
	metric := r.URL.Query().Get("name")
	if subjectID == "" || metric == "" {
		respondError(w, http.StatusBadRequest, "subject and name are required", "missing_subject")
		return
	}

	result, err := s.coordinator.FetchMetric(r.Context(), subjectID, metric)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error(), "fetch_failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleExport starts an export of the current analytics and returns the
// artifact location once the export service has finished
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	var opts api.ExportOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "invalid_request")
		return
	}

	if opts.Format != "csv" && opts.Format != "json" {
		respondError(w, http.StatusBadRequest, "format must be csv or json", "invalid_request")
		return
	}

	artifact, err := s.coordinator.Export(r.Context(), opts)
	switch {
	case errors.Is(err, analytics.ErrNothingToExport):
		respondError(w, http.StatusConflict, err.Error(), "nothing_to_export")
		return
	case errors.Is(err, analytics.ErrExportInProgress):
		respondError(w, http.StatusConflict, err.Error(), "export_in_progress")
		return
	case err != nil:
		respondError(w, http.StatusBadGateway, err.Error(), "export_failed")
		return
	}

	respondJSON(w, http.StatusOK, artifact)
}

// HandleExportProgress reports the export affordance state
func (s *Server) HandleExportProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	snap := s.coordinator.Snapshot()
	respondJSON(w, http.StatusOK, ExportProgressResponse{
		Exporting: snap.Exporting,
		Progress:  snap.ExportProgress,
		Error:     snap.ExportError,
	})
}

// HandlePrefs reads (GET) or updates (PUT) persisted preferences. Filters and
// the comparison flag are owned by the coordinator's operations; the only
// directly writable preference is the selected tab.
func (s *Server) HandlePrefs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filters, err := s.prefs.LoadFilters()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to read preferences", "prefs_failed")
			return
		}
		enabled, err := s.prefs.LoadComparisonEnabled()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to read preferences", "prefs_failed")
			return
		}
		tab, err := s.prefs.SelectedTab()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to read preferences", "prefs_failed")
			return
		}

		respondJSON(w, http.StatusOK, PrefsResponse{Filters: filters, ComparisonEnabled: enabled, SelectedTab: tab})

	case http.MethodPut:
		var req PrefsUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body", "invalid_request")
			return
		}

		if req.SelectedTab != nil {
			if err := s.prefs.SaveSelectedTab(*req.SelectedTab); err != nil {
				respondError(w, http.StatusInternalServerError, "Failed to save preferences", "prefs_failed")
				return
			}
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
	}
}
