// Package helpers seeds the LIMS fixture database and writes configuration
// files for the integration suite.
package helpers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LIMSProject describes a seeded project: two samples, the first one library
// prepped and sequenced once
type LIMSProject struct {
	ID   int64
	LUID string
	Name string
	// Stale projects were created and last touched in 2010
	Stale bool
}

// NewLIMSProject returns the n-th fixture project
func NewLIMSProject(n int) LIMSProject {
	return LIMSProject{
		ID:   int64(n),
		LUID: fmt.Sprintf("P%d", 1000+n),
		Name: fmt.Sprintf("X.Fixture_26_%02d", n),
	}
}

// SampleName is the name of the i-th sample (1 or 2)
func (p LIMSProject) SampleName(i int) string {
	return fmt.Sprintf("%s_%d", p.LUID, 100+i)
}

// RunID is the sequencing run of the first sample
func (p LIMSProject) RunID() string {
	return fmt.Sprintf("2602%02d_ST-E00201_%04d_AHXXXXCCXY", p.ID%28+1, p.ID)
}

// SeqRunPath is the Charon path of the sequencing run document
func (p LIMSProject) SeqRunPath() string {
	return fmt.Sprintf("seqrun/%s/%s/A/%s", p.LUID, p.SampleName(1), p.RunID())
}

// DocumentCount is the number of Charon documents the project maps to
func (p LIMSProject) DocumentCount() int {
	if p.Stale {
		return 1
	}
	return 5
}

// statements inserts the project. Ids are derived from the project id so
// projects never collide.
func (p LIMSProject) statements() []string {
	if p.Stale {
		return []string{fmt.Sprintf(
			`INSERT INTO project (projectid, luid, name, createddate, lastmodifieddate)
			 VALUES (%d, '%s', '%s', '2010-01-01', '2010-06-01')`, p.ID, p.LUID, p.Name)}
	}

	sub1, sub2 := p.ID*1000+1, p.ID*1000+2
	libPrep, seqRun := p.ID*1000+10, p.ID*1000+20
	art1, art2, pool := p.ID*10000+1, p.ID*10000+2, p.ID*10000+3

	return []string{
		fmt.Sprintf(`INSERT INTO project (projectid, luid, name, createddate) VALUES (%d, '%s', '%s', '2024-01-01')`,
			p.ID, p.LUID, p.Name),
		fmt.Sprintf(`INSERT INTO entity_udf (attachtoid, attachtoclassid, udfname, udfvalue) VALUES
			(%d, 83, 'Reference genome', 'Homo sapiens (GRCh38)')`, p.ID),
		fmt.Sprintf(`INSERT INTO process (processid, luid, typeid, daterun) VALUES
			(%d, 'SUB-%d', 1, '2026-01-01'),
			(%d, 'SUB-%d', 1, '2026-01-01'),
			(%d, '24-%d', 8, '2026-01-10'),
			(%d, '24-%d', 38, '2026-02-01')`,
			sub1, sub1, sub2, sub2, libPrep, libPrep, seqRun, seqRun),
		fmt.Sprintf(`INSERT INTO sample (sampleid, name, projectid, processid) VALUES
			(%d, '%s', %d, %d),
			(%d, '%s', %d, %d)`,
			p.ID*100+1, p.SampleName(1), p.ID, sub1,
			p.ID*100+2, p.SampleName(2), p.ID, sub2),
		fmt.Sprintf(`INSERT INTO artifact (artifactid, luid) VALUES (%d, 'ART-%d'), (%d, 'ART-%d'), (%d, 'ART-%d')`,
			art1, art1, art2, art2, pool, pool),
		fmt.Sprintf(`INSERT INTO artifact_sample_map (artifactid, processid) VALUES (%d, %d), (%d, %d), (%d, %d)`,
			art1, sub1, art2, sub2, pool, sub1),
		fmt.Sprintf(`INSERT INTO artifact_ancestor_map (artifactid, ancestorartifactid) VALUES (%d, %d)`, pool, art1),
		fmt.Sprintf(`INSERT INTO processiotracker (processid, inputartifactid) VALUES (%d, %d), (%d, %d)`,
			libPrep, art1, seqRun, pool),
		fmt.Sprintf(`INSERT INTO process_udf (processid, udfname, udfvalue) VALUES (%d, 'Run ID', '%s')`,
			seqRun, p.RunID()),
	}
}

// SeedLIMS inserts the projects in one transaction
func SeedLIMS(ctx context.Context, conn *pgx.Conn, projects ...LIMSProject) error {
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		for _, p := range projects {
			for _, stmt := range p.statements() {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("failed to seed project %s: %w", p.LUID, err)
				}
			}
		}
		return nil
	})
}
