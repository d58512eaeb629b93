// Package lims provides read-only access to the LIMS relational store, the
// source of record for the tracking hierarchy.
//
// The LIMS models everything as processes operating on artifacts derived from
// samples. Library preparations and sequencing runs are processes discovered
// through provenance joins (processiotracker, artifact_sample_map and
// artifact_ancestor_map) rather than stored as first-class rows.
package lims

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrProjectNotFound is returned when no project matches an identifier
	ErrProjectNotFound = errors.New("project not found")

	// ErrAmbiguousProject is returned when an identifier matches several projects
	ErrAmbiguousProject = errors.New("project identifier matches more than one project")
)

// UDF names read by the sync
const (
	UDFBioinformaticQC = "Bioinformatic QC"
	UDFReferenceGenome = "Reference genome"
	UDFUppnexID        = "Uppnex ID"
	UDFManualStatus    = "Status (manual)"
	UDFSampleLinks     = "Sample Links"
	UDFSampleLinkType  = "Sample Link Type"
	UDFRunID           = "Run ID"
)

// UDF is a user-defined field attached to a LIMS entity
type UDF struct {
	Name  string `db:"udfname"`
	Value string `db:"udfvalue"`
}

// UDFs is the ordered list of user-defined fields of an entity
type UDFs []UDF

// Get returns the value of the last field named name
func (u UDFs) Get(name string) (string, bool) {
	for i := len(u) - 1; i >= 0; i-- {
		if u[i].Name == name {
			return u[i].Value, true
		}
	}
	return "", false
}

// Project is a LIMS project
type Project struct {
	ID      int64    `db:"projectid"`
	LUID    string   `db:"luid"`
	Name    string   `db:"name"`
	UDFs    UDFs     `db:"-"`
	Samples []Sample `db:"-"`
}

// Sample is a LIMS sample. ProcessID identifies the sample's originating
// process, which is how artifacts are mapped back to the sample.
type Sample struct {
	ID        int64  `db:"sampleid"`
	Name      string `db:"name"`
	ProcessID int64  `db:"processid"`
	UDFs      UDFs   `db:"-"`
}

// Process is a LIMS process such as a library preparation or a sequencing run
type Process struct {
	ID      int64      `db:"processid"`
	LUID    string     `db:"luid"`
	TypeID  int32      `db:"typeid"`
	DateRun *time.Time `db:"daterun"`
	UDFs    UDFs       `db:"-"`
}

// Source yields LIMS entities and the provenance joins between them
//
//go:generate mockgen -destination=mocks/mock_source.go -package=mocks -source=types.go Source
type Source interface {
	// FetchProject returns the project whose LUID or name matches id, with its
	// annotations and samples loaded
	FetchProject(ctx context.Context, id string) (*Project, error)

	// FetchRecentProjects returns projects with recent activity
	FetchRecentProjects(ctx context.Context) ([]Project, error)

	// FetchAllProjects returns every project considered for syncing
	FetchAllProjects(ctx context.Context) ([]Project, error)

	// LibPrepCandidates returns the library preparation processes run on the sample
	LibPrepCandidates(ctx context.Context, sample Sample) ([]Process, error)

	// OriginatingSamples returns the ids of the samples whose artifacts were
	// inputs to the library preparation
	OriginatingSamples(ctx context.Context, libPrep Process) ([]int64, error)

	// SeqRunCandidates returns the sequencing processes descending from the
	// library preparation for the sample, with their annotations loaded
	SeqRunCandidates(ctx context.Context, libPrep Process, sample Sample) ([]Process, error)
}
