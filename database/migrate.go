// Package database holds the LIMS fixture schema used by integration tests
// and helpers to apply it.
package database

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/000001_lims_schema.up.sql
var schemaUp string

//go:embed migrations/000001_lims_schema.down.sql
var schemaDown string

// MigrateUp creates the LIMS fixture schema on the connection
func MigrateUp(ctx context.Context, db *pgx.Conn) error {
	_, err := db.Exec(ctx, schemaUp)
	return err
}

// MigrateDown drops the LIMS fixture schema
func MigrateDown(ctx context.Context, db *pgx.Conn) error {
	_, err := db.Exec(ctx, schemaDown)
	return err
}
