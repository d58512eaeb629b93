package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
)

// ErrNoSelection is returned when a Selection names no projects
var ErrNoSelection = errors.New("exactly one of project, new or all must be selected")

// Selection names the projects of a run
type Selection struct {
	// ProjectID is a single project id or name
	ProjectID string
	// Recent selects projects modified inside the LIMS recent window
	Recent bool
	// All selects every project created after the LIMS cut-off date
	All bool
}

// Validate checks that exactly one mode is selected
func (s Selection) Validate() error {
	n := 0
	if s.ProjectID != "" {
		n++
	}
	if s.Recent {
		n++
	}
	if s.All {
		n++
	}
	if n != 1 {
		return ErrNoSelection
	}
	return nil
}

// ResolveProjects lists the project ids of a recent or all selection, in LIMS
// order. A single project selection resolves to itself without a lookup.
func ResolveProjects(ctx context.Context, source lims.Source, sel Selection) ([]string, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if sel.ProjectID != "" {
		return []string{sel.ProjectID}, nil
	}

	var (
		projects []lims.Project
		err      error
	)
	if sel.Recent {
		projects, err = source.FetchRecentProjects(ctx)
	} else {
		projects, err = source.FetchAllProjects(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.LUID
	}
	return ids, nil
}
