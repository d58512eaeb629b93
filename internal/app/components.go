package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Pool is the LIMS connection pool, nil when sources are injected
	Pool *pgxpool.Pool

	// Source reads through the pool. It lists projects and serves single
	// project syncs.
	Source lims.Source

	// Sessions opens the dedicated LIMS session of each worker
	Sessions coordinator.SessionFactory

	// Managers creates the sync manager of each worker
	Managers coordinator.ManagerFactory

	// Coordinator runs multi-project syncs
	Coordinator coordinator.Coordinator
}
