// Package app assembles and runs the acheron sync.
//
// NewSyncApp builds every component of a run from the configuration: the
// LIMS pool and sources, one Charon client and sync manager per worker, and
// the coordinator. A single project is synced in-process; recent and all
// selections go through the worker pool.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgsync "github.com/NationalGenomicsInfrastructure/acheron/internal/sync"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/sync/coordinator"
)

// SyncApp encapsulates all components needed to run one sync
type SyncApp struct {
	components *AppComponents
	runID      string
	logger     *slog.Logger
	cleanup    func()
}

// Run syncs the selected projects. Document and project failures are
// reported in the Summary; an error means nothing could be synced.
func (app *SyncApp) Run(ctx context.Context, sel pkgsync.Selection) (*coordinator.Summary, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	if sel.ProjectID != "" {
		return app.syncProject(ctx, sel.ProjectID)
	}

	ids, err := pkgsync.ResolveProjects(ctx, app.components.Source, sel)
	if err != nil {
		return nil, err
	}
	return app.components.Coordinator.Run(ctx, ids), nil
}

// syncProject runs a single project on the pool source, logging straight to
// the main handler
func (app *SyncApp) syncProject(ctx context.Context, projectID string) (*coordinator.Summary, error) {
	start := time.Now()
	manager, err := app.components.Managers(app.components.Source, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync manager: %w", err)
	}

	summary := &coordinator.Summary{RunID: app.runID}
	result, syncErr := manager.PerformSync(ctx, projectID)
	if syncErr != nil {
		summary.Errors = append(summary.Errors, syncErr)
	} else {
		summary.Results = append(summary.Results, result)
	}
	summary.Duration = time.Since(start)
	return summary, nil
}

// Close releases the LIMS pool. It is safe to call more than once.
func (app *SyncApp) Close() {
	if app.cleanup != nil {
		app.cleanup()
		app.cleanup = nil
	}
}
