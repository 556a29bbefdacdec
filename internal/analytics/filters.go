package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/solcial/pulse/internal/api"
	"github.com/solcial/pulse/internal/constants"
)

// Preset is a named shorthand for a relative date range
type Preset string

const (
	PresetToday   Preset = "today"
	PresetWeek    Preset = "week"
	PresetMonth   Preset = "month"
	PresetQuarter Preset = "quarter"
	PresetYear    Preset = "year"
	PresetAll     Preset = "all"
)

// Presets lists all known presets in display order
func Presets() []Preset {
	return []Preset{PresetToday, PresetWeek, PresetMonth, PresetQuarter, PresetYear, PresetAll}
}

var presetDays = map[Preset]int{
	PresetWeek:    constants.PresetWeekDays,
	PresetMonth:   constants.PresetMonthDays,
	PresetQuarter: constants.PresetQuarterDays,
	PresetYear:    constants.PresetYearDays,
}

// Valid reports whether p is a known preset
func (p Preset) Valid() bool {
	switch p {
	case PresetToday, PresetWeek, PresetMonth, PresetQuarter, PresetYear, PresetAll:
		return true
	}
	return false
}

// ResolvePreset translates a preset into concrete start/end Unix-millisecond
// timestamps. It is pure given a fixed now, and must be re-invoked every time
// a preset is (re-)applied: end is always "now" at resolution time.
func ResolvePreset(p Preset, now time.Time) (startMs, endMs int64, err error) {
	endMs = now.UnixMilli()

	switch p {
	case PresetToday:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight.UnixMilli(), endMs, nil
	case PresetAll:
		// Epoch origin directly, skipping day-count arithmetic entirely
		return 0, endMs, nil
	}

	days, ok := presetDays[p]
	if !ok {
		return 0, 0, fmt.Errorf("unknown preset: %q", p)
	}

	startMs = now.AddDate(0, 0, -days).UnixMilli()
	return startMs, endMs, nil
}

// Filters bounds an analytics query. Start/End are Unix milliseconds.
// If Preset is set, Start/End equal its deterministic resolution at the time
// the preset was applied.
type Filters struct {
	StartMs     int64    `json:"startMs"`
	EndMs       int64    `json:"endMs"`
	Preset      Preset   `json:"preset,omitempty"`
	Metrics     []string `json:"metrics,omitempty"`
	Granularity string   `json:"granularity,omitempty"`
}

// FilterOverrides carries the fields of a filter update. Nil fields retain
// the previous value.
type FilterOverrides struct {
	Preset      *Preset   `json:"preset,omitempty"`
	StartMs     *int64    `json:"startMs,omitempty"`
	EndMs       *int64    `json:"endMs,omitempty"`
	Metrics     *[]string `json:"metrics,omitempty"`
	Granularity *string   `json:"granularity,omitempty"`
}

// DefaultFilters returns the filter set used before any preference is stored:
// last month, daily buckets.
func DefaultFilters(now time.Time) Filters {
	start, end, _ := ResolvePreset(PresetMonth, now)
	return Filters{
		StartMs:     start,
		EndMs:       end,
		Preset:      PresetMonth,
		Granularity: "day",
	}
}

// Merge applies overrides onto f and returns the effective filter set.
// Applying a preset re-resolves the window at now; applying explicit bounds
// drops any preset, since the window no longer derives from one.
func (f Filters) Merge(o *FilterOverrides, now time.Time) (Filters, error) {
	merged := f

	if o == nil {
		return merged, nil
	}

	if o.Preset != nil {
		start, end, err := ResolvePreset(*o.Preset, now)
		if err != nil {
			return Filters{}, err
		}
		merged.Preset = *o.Preset
		merged.StartMs = start
		merged.EndMs = end
	}

	if o.StartMs != nil {
		merged.StartMs = *o.StartMs
		merged.Preset = ""
	}
	if o.EndMs != nil {
		merged.EndMs = *o.EndMs
		merged.Preset = ""
	}

	if o.Metrics != nil {
		merged.Metrics = *o.Metrics
	}
	if o.Granularity != nil {
		merged.Granularity = *o.Granularity
	}

	if merged.StartMs > merged.EndMs {
		return Filters{}, fmt.Errorf("invalid date range: start %d after end %d", merged.StartMs, merged.EndMs)
	}

	return merged, nil
}

// Query converts the filters into a provider query
func (f Filters) Query() api.AnalyticsQuery {
	return api.AnalyticsQuery{
		StartMs:     f.StartMs,
		EndMs:       f.EndMs,
		Metrics:     f.Metrics,
		Granularity: f.Granularity,
	}
}

// ComparisonWindow derives the window of identical duration immediately
// preceding the primary window.
func (f Filters) ComparisonWindow() (startMs, endMs int64) {
	duration := f.EndMs - f.StartMs
	endMs = f.StartMs - 1
	startMs = endMs - duration
	return startMs, endMs
}

// CacheKey deterministically serializes a subject and filter set. Two calls
// with the same inputs always produce the same key.
func CacheKey(subjectID string, f Filters) string {
	return fmt.Sprintf("%s|%d|%d|%s|%s|%s",
		subjectID, f.StartMs, f.EndMs, f.Preset, f.Granularity, strings.Join(f.Metrics, ","))
}
