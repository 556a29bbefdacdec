package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/solcial/pulse/internal/api"
	"github.com/solcial/pulse/internal/constants"
)

// ErrNothingToExport is returned when an export is requested before any
// analytics result has been loaded.
var ErrNothingToExport = errors.New("no analytics data to export")

// ErrExportInProgress is returned when an export is requested while one is
// already running.
var ErrExportInProgress = errors.New("an export is already in progress")

// Export sends the current analytics to the export service and returns the
// artifact location. The export service reports no intermediate progress, so
// a ticker drives a simulated progress value while the call is in flight:
// fixed increments capped below 100, with 100 reserved for real completion.
//
// The ticker is released exactly once on every exit path. On success the
// completed state stays visible for a display delay before resetting; on
// failure the state resets immediately.
func (c *Coordinator) Export(ctx context.Context, opts api.ExportOptions) (*api.ExportArtifact, error) {
	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return nil, ErrNothingToExport
	}
	if c.exporting {
		c.mu.Unlock()
		return nil, ErrExportInProgress
	}

	subjectID := c.subjectID
	jobID := uuid.New().String()
	c.exporting = true
	c.exportProgress = 0
	c.exportJobID = jobID
	c.exportError = ""

	if opts.StartMs == 0 && opts.EndMs == 0 {
		opts.StartMs = c.filters.StartMs
		opts.EndMs = c.filters.EndMs
	}
	c.mu.Unlock()

	c.log.Info().Str("subject", subjectID).Str("job", jobID).Str("format", opts.Format).Msg("starting export")

	ticker := time.NewTicker(c.exportTick)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.advanceExportProgress(jobID)
			}
		}
	}()

	artifact, err := c.exporter.ExportAnalytics(ctx, subjectID, opts)

	// Single release point for both outcomes. A ticker that outlives the
	// operation would corrupt later unrelated progress displays.
	close(done)
	ticker.Stop()

	if err != nil {
		c.mu.Lock()
		if c.exportJobID == jobID {
			c.exporting = false
			c.exportProgress = 0
			c.exportError = fmt.Sprintf("export failed: %v", err)
		}
		c.mu.Unlock()
		return nil, fmt.Errorf("export analytics for %s: %w", subjectID, err)
	}

	c.mu.Lock()
	if c.exportJobID == jobID {
		c.exportProgress = 100
	}
	c.mu.Unlock()

	c.log.Info().Str("subject", subjectID).Str("job", jobID).Str("file", artifact.Filename).Msg("export completed")

	// Keep the completed state on screen briefly, then reset - unless a
	// newer job has taken over the progress display meanwhile.
	time.AfterFunc(c.exportDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.exportJobID == jobID {
			c.exporting = false
			c.exportProgress = 0
		}
	})

	return artifact, nil
}

// advanceExportProgress moves the simulated progress one step, never past the
// ceiling.
func (c *Coordinator) advanceExportProgress(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exportJobID != jobID || !c.exporting {
		return
	}

	c.exportProgress += constants.ExportProgressStep
	if c.exportProgress > constants.ExportProgressCeiling {
		c.exportProgress = constants.ExportProgressCeiling
	}
}
