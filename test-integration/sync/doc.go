// Package integration runs whole syncs against a LIMS fixture database in a
// Postgres container and an in-memory Charon.
package integration
