package constants

import "time"

// Cache constants
const (
	// DefaultCacheTTL is the default validity window for cached analytics results
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheMaxEntries is the maximum number of cached analytics results.
	// When the cache grows past this, the oldest-inserted entry is evicted.
	DefaultCacheMaxEntries = 50
)

// Export progress constants
const (
	// ExportProgressStep is how much the simulated progress advances per tick
	ExportProgressStep = 10

	// ExportProgressCeiling is the highest value the simulator self-reports.
	// 100 is reserved for actual completion of the export call.
	ExportProgressCeiling = 90

	// ExportTickInterval is how often the simulated progress advances
	ExportTickInterval = 200 * time.Millisecond

	// ExportDisplayDelay is how long the completed (100%) state stays visible
	// before the export affordance resets to idle
	ExportDisplayDelay = 1500 * time.Millisecond
)

// Date preset day counts
const (
	PresetWeekDays    = 7
	PresetMonthDays   = 30
	PresetQuarterDays = 90
	PresetYearDays    = 365
)

// API constants
const (
	// DefaultAPITimeoutSeconds is the default timeout for collaborator requests in seconds
	DefaultAPITimeoutSeconds = 30
)

// Rate limiting constants
const (
	// DefaultRequestsPerSecond is the default rate limit for API endpoints
	DefaultRequestsPerSecond = 10

	// DefaultBurstSize is the default burst size for rate limiting
	DefaultBurstSize = 20
)
