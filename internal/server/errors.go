package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"` // User-friendly suggestion
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a structured error response
func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, ErrorResponse{
		Error:      message,
		Code:       code,
		Suggestion: getErrorSuggestion(code),
	})
}

// getErrorSuggestion returns a user-friendly suggestion based on error code
func getErrorSuggestion(code string) string {
	suggestions := map[string]string{
		"invalid_request":     "The request body could not be parsed. Check the field names and types.",
		"missing_subject":     "A subject wallet address is required for this operation.",
		"invalid_preset":      "Valid presets are: today, week, month, quarter, year, all.",
		"fetch_failed":        "The analytics provider could not be reached or rejected the request. Try again shortly.",
		"nothing_to_export":   "Load analytics for a subject before requesting an export.",
		"export_in_progress":  "Wait for the running export to finish before starting another.",
		"export_failed":       "The export service rejected the request. Try again shortly.",
		"prefs_failed":        "Preferences could not be read or written. Check permissions on the data directory.",
		"method_not_allowed":  "This endpoint does not support the HTTP method used.",
		"rate_limit_exceeded": "Too many requests in a short period. Wait a moment and retry.",
	}

	return suggestions[code]
}
