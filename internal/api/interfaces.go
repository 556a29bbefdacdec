package api

import "context"

// ServiceClient is a common interface for all collaborator clients
type ServiceClient interface {
	// Test checks the connection to the service
	Test() error
}

// Provider is the analytics data collaborator. It either returns a
// fully-populated result or an error; no partial results are supported.
type Provider interface {
	ServiceClient

	// GetUserAnalytics retrieves analytics for a subject over a query window.
	// Context allows for cancellation while the request is in flight.
	GetUserAnalytics(ctx context.Context, subjectID string, query AnalyticsQuery) (*AnalyticsResult, error)

	// GetMetric retrieves a single named metric for a subject.
	GetMetric(ctx context.Context, subjectID, metric string) (*MetricResult, error)
}

// Exporter is the export collaborator. The returned artifact is already
// complete; any progress shown to the user while the call is in flight is
// client-side decoration.
type Exporter interface {
	ServiceClient

	ExportAnalytics(ctx context.Context, subjectID string, opts ExportOptions) (*ExportArtifact, error)
}

// Ensure the HTTP clients implement their interfaces
var (
	_ Provider = (*ProviderClient)(nil)
	_ Exporter = (*ExportClient)(nil)
)
