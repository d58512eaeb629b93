package lims

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/otel"
)

// LIMS class id of project rows in entity_udf_view
const projectClassID = 83

var (
	// DefaultLibPrepTypeIDs are the process types of library preparations
	DefaultLibPrepTypeIDs = []int32{8, 806}

	// DefaultSeqRunTypeIDs are the process types of sequencing runs
	DefaultSeqRunTypeIDs = []int32{38, 46, 714}

	// DefaultAllProjectsSince is the creation cut-off for a full sync
	DefaultAllProjectsSince = time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// DefaultRecentWindow is how far back a project must have changed to be recent
const DefaultRecentWindow = 24 * time.Hour

// Querier runs SQL against the LIMS. *pgxpool.Pool, *pgxpool.Conn and
// *pgx.Conn all satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type options struct {
	querier          Querier
	tracer           trace.Tracer
	logger           *slog.Logger
	libPrepTypeIDs   []int32
	seqRunTypeIDs    []int32
	recentWindow     time.Duration
	allProjectsSince time.Time
	now              func() time.Time
}

// Option is a functional option for configuring the Postgres source
type Option func(*options) error

// WithQuerier sets the connection queries run on. The caller owns it.
func WithQuerier(q Querier) Option {
	return func(o *options) error {
		if q == nil {
			return fmt.Errorf("querier is required")
		}
		o.querier = q
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer. Tracing is disabled when unset.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithLogger sets the logger. slog.Default() is used when unset.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithLibPrepTypeIDs overrides the library preparation process types
func WithLibPrepTypeIDs(ids ...int32) Option {
	return func(o *options) error {
		if len(ids) == 0 {
			return fmt.Errorf("at least one libprep process type is required")
		}
		o.libPrepTypeIDs = ids
		return nil
	}
}

// WithSeqRunTypeIDs overrides the sequencing process types
func WithSeqRunTypeIDs(ids ...int32) Option {
	return func(o *options) error {
		if len(ids) == 0 {
			return fmt.Errorf("at least one seqrun process type is required")
		}
		o.seqRunTypeIDs = ids
		return nil
	}
}

// WithRecentWindow sets how far back FetchRecentProjects looks
func WithRecentWindow(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("recent window must be positive, got %s", d)
		}
		o.recentWindow = d
		return nil
	}
}

// WithAllProjectsSince sets the creation cut-off of FetchAllProjects
func WithAllProjectsSince(t time.Time) Option {
	return func(o *options) error {
		o.allProjectsSince = t
		return nil
	}
}

// WithClock overrides the clock used for the recent window
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		o.now = now
		return nil
	}
}

// pgSource implements Source on the LIMS Postgres schema
type pgSource struct {
	q                Querier
	tracer           trace.Tracer
	logger           *slog.Logger
	libPrepTypeIDs   []int32
	seqRunTypeIDs    []int32
	recentWindow     time.Duration
	allProjectsSince time.Time
	now              func() time.Time
}

var _ Source = (*pgSource)(nil)

// NewPostgresSource creates a Source reading from the LIMS database
func NewPostgresSource(opts ...Option) (Source, error) {
	o := &options{
		libPrepTypeIDs:   DefaultLibPrepTypeIDs,
		seqRunTypeIDs:    DefaultSeqRunTypeIDs,
		recentWindow:     DefaultRecentWindow,
		allProjectsSince: DefaultAllProjectsSince,
		now:              time.Now,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &pgSource{
		q:                o.querier,
		tracer:           o.tracer,
		logger:           o.logger,
		libPrepTypeIDs:   o.libPrepTypeIDs,
		seqRunTypeIDs:    o.seqRunTypeIDs,
		recentWindow:     o.recentWindow,
		allProjectsSince: o.allProjectsSince,
		now:              o.now,
	}, nil
}

// FetchProject implements Source
func (s *pgSource) FetchProject(ctx context.Context, id string) (*Project, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "lims.FetchProject",
		trace.WithAttributes(otel.AttrProjectID.String(id)))
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("pj.projectid", "pj.luid", "pj.name").From("project pj")
	sb.Where(sb.Or(sb.Like("pj.luid", id), sb.Like("pj.name", id)))

	projects, err := s.queryProjects(ctx, sb)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	switch len(projects) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s matched %d projects", ErrAmbiguousProject, id, len(projects))
	}

	project := &projects[0]
	if err := s.loadProjectDetails(ctx, project); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "Fetched project from LIMS",
		"project", project.LUID,
		"samples", len(project.Samples))
	return project, nil
}

// FetchRecentProjects implements Source. A project is recent when it, one of
// its samples' originating processes, or one of its sample artifacts was
// modified inside the window.
func (s *pgSource) FetchRecentProjects(ctx context.Context) ([]Project, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "lims.FetchRecentProjects")
	defer span.End()

	cutoff := s.now().Add(-s.recentWindow)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("pj.projectid", "pj.luid", "pj.name").Distinct().From("project pj")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "sample sa", "sa.projectid = pj.projectid")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "process pc", "pc.processid = sa.processid")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "artifact_sample_map asm", "asm.processid = sa.processid")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "artifact art", "art.artifactid = asm.artifactid")
	sb.Where(sb.Or(
		sb.GreaterThan("pj.lastmodifieddate", cutoff),
		sb.GreaterThan("pc.lastmodifieddate", cutoff),
		sb.GreaterThan("art.lastmodifieddate", cutoff),
	))
	sb.OrderBy("pj.luid")

	projects, err := s.queryProjects(ctx, sb)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(projects)))
	return projects, nil
}

// FetchAllProjects implements Source
func (s *pgSource) FetchAllProjects(ctx context.Context) ([]Project, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "lims.FetchAllProjects")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("pj.projectid", "pj.luid", "pj.name").From("project pj")
	sb.Where(sb.GreaterThan("pj.createddate", s.allProjectsSince))
	sb.OrderBy("pj.luid")

	projects, err := s.queryProjects(ctx, sb)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(projects)))
	return projects, nil
}

// LibPrepCandidates implements Source
func (s *pgSource) LibPrepCandidates(ctx context.Context, sample Sample) ([]Process, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "lims.LibPrepCandidates",
		trace.WithAttributes(otel.AttrSampleID.String(sample.Name)))
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("pc.processid", "pc.luid", "pc.typeid", "pc.daterun").Distinct().From("process pc")
	sb.Join("processiotracker piot", "piot.processid = pc.processid")
	sb.Join("artifact_sample_map asm", "asm.artifactid = piot.inputartifactid")
	sb.Where(
		sb.Equal("asm.processid", sample.ProcessID),
		anyOf(sb, "pc.typeid", s.libPrepTypeIDs),
	)
	sb.OrderBy("pc.processid")

	processes, err := s.queryProcesses(ctx, sb)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list libpreps of sample %s: %w", sample.Name, err)
	}
	return processes, nil
}

// OriginatingSamples implements Source
func (s *pgSource) OriginatingSamples(ctx context.Context, libPrep Process) ([]int64, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "lims.OriginatingSamples")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("sa.sampleid").Distinct().From("sample sa")
	sb.Join("artifact_sample_map asm", "asm.processid = sa.processid")
	sb.Join("processiotracker piot", "piot.inputartifactid = asm.artifactid")
	sb.Where(sb.Equal("piot.processid", libPrep.ID))
	sb.OrderBy("sa.sampleid")

	query, args := sb.Build()
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to query originating samples of %s: %w", libPrep.LUID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to scan originating samples of %s: %w", libPrep.LUID, err)
	}
	return ids, nil
}

// SeqRunCandidates implements Source. Sequencing processes are found through
// the ancestry of their input artifacts: any sequencing input descending from
// an input of the libprep and mapped to the sample belongs to that libprep.
func (s *pgSource) SeqRunCandidates(ctx context.Context, libPrep Process, sample Sample) ([]Process, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "lims.SeqRunCandidates",
		trace.WithAttributes(otel.AttrSampleID.String(sample.Name)))
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("pro.processid", "pro.luid", "pro.typeid", "pro.daterun").Distinct().From("process pro")
	sb.Join("processiotracker pio", "pio.processid = pro.processid")
	sb.Join("artifact_sample_map asm", "asm.artifactid = pio.inputartifactid")
	sb.Join("artifact_ancestor_map aam", "aam.artifactid = pio.inputartifactid")
	sb.Join("processiotracker pio2", "pio2.inputartifactid = aam.ancestorartifactid")
	sb.Where(
		sb.Equal("pio2.processid", libPrep.ID),
		sb.Equal("asm.processid", sample.ProcessID),
		anyOf(sb, "pro.typeid", s.seqRunTypeIDs),
	)
	sb.OrderBy("pro.processid")

	processes, err := s.queryProcesses(ctx, sb)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list seqruns of %s: %w", libPrep.LUID, err)
	}
	if len(processes) == 0 {
		return processes, nil
	}

	ids := make([]int64, len(processes))
	for i, p := range processes {
		ids[i] = p.ID
	}
	udfs, err := s.loadUDFs(ctx, "process_udf_view", "processid", ids)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	for i := range processes {
		processes[i].UDFs = udfs[processes[i].ID]
	}
	return processes, nil
}

func (s *pgSource) queryProjects(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]Project, error) {
	query, args := sb.Build()
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	projects, err := pgx.CollectRows(rows, pgx.RowToStructByName[Project])
	if err != nil {
		return nil, fmt.Errorf("failed to scan projects: %w", err)
	}
	return projects, nil
}

func (s *pgSource) queryProcesses(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]Process, error) {
	query, args := sb.Build()
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Process])
}

// loadProjectDetails fills in the project annotations, its samples and the
// sample annotations
func (s *pgSource) loadProjectDetails(ctx context.Context, project *Project) error {
	ub := sqlbuilder.PostgreSQL.NewSelectBuilder()
	ub.Select("udfname", "udfvalue").From("entity_udf_view")
	ub.Where(
		ub.Equal("attachtoclassid", projectClassID),
		ub.Equal("attachtoid", project.ID),
	)
	query, args := ub.Build()
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query project annotations: %w", err)
	}
	project.UDFs, err = pgx.CollectRows(rows, pgx.RowToStructByName[UDF])
	if err != nil {
		return fmt.Errorf("failed to scan project annotations: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("sa.sampleid", "sa.name", "sa.processid").From("sample sa")
	sb.Where(sb.Equal("sa.projectid", project.ID))
	sb.OrderBy("sa.name")
	query, args = sb.Build()
	rows, err = s.q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query samples: %w", err)
	}
	project.Samples, err = pgx.CollectRows(rows, pgx.RowToStructByName[Sample])
	if err != nil {
		return fmt.Errorf("failed to scan samples: %w", err)
	}
	if len(project.Samples) == 0 {
		return nil
	}

	ids := make([]int64, len(project.Samples))
	for i, sample := range project.Samples {
		ids[i] = sample.ID
	}
	udfs, err := s.loadUDFs(ctx, "sample_udf_view", "sampleid", ids)
	if err != nil {
		return err
	}
	for i := range project.Samples {
		project.Samples[i].UDFs = udfs[project.Samples[i].ID]
	}
	return nil
}

// ownedUDF is a UDF row tagged with the entity it belongs to
type ownedUDF struct {
	OwnerID int64  `db:"ownerid"`
	Name    string `db:"udfname"`
	Value   string `db:"udfvalue"`
}

// loadUDFs reads the annotations of several entities of one kind at once
func (s *pgSource) loadUDFs(ctx context.Context, view, idColumn string, ids []int64) (map[int64]UDFs, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sb.As(idColumn, "ownerid"), "udfname", "udfvalue").From(view)
	sb.Where(anyOf(sb, idColumn, ids))
	sb.OrderBy(idColumn)

	query, args := sb.Build()
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", view, err)
	}
	owned, err := pgx.CollectRows(rows, pgx.RowToStructByName[ownedUDF])
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", view, err)
	}

	out := make(map[int64]UDFs, len(ids))
	for _, u := range owned {
		out[u.OwnerID] = append(out[u.OwnerID], UDF{Name: u.Name, Value: u.Value})
	}
	return out, nil
}

// anyOf renders "field = ANY($n)" with the slice bound as a Postgres array
func anyOf[T int32 | int64](sb *sqlbuilder.SelectBuilder, field string, values []T) string {
	return fmt.Sprintf("%s = ANY(%s)", field, sb.Var(values))
}
