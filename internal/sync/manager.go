package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/charon"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/document"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/hierarchy"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/otel"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/telemetry"
)

// Stages at which a project sync can fail
const (
	StageFetch = "fetch"
	StageBuild = "build"
	StagePush  = "push"
)

// Result counts the documents pushed for one project, per outcome
type Result struct {
	ProjectID string
	Outcomes  map[charon.Outcome]int
}

func newResult(projectID string) *Result {
	return &Result{ProjectID: projectID, Outcomes: make(map[charon.Outcome]int)}
}

// Total is the number of documents pushed
func (r *Result) Total() int {
	n := 0
	for _, c := range r.Outcomes {
		n += c
	}
	return n
}

// Failed is the number of documents Charon did not accept
func (r *Result) Failed() int {
	return r.Outcomes[charon.OutcomeFailed]
}

// Error represents a project sync that stopped before all documents were pushed
type Error struct {
	Err       error
	Message   string
	Stage     string
	ProjectID string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Remote is the Charon side of a sync
//
//go:generate mockgen -destination=mocks/mock_remote.go -package=mocks -source=manager.go Remote,Manager
type Remote interface {
	hierarchy.RemoteState
	Push(ctx context.Context, doc document.Document) (charon.Outcome, error)
}

// Manager synchronizes one project at a time
type Manager interface {
	// PerformSync pushes the whole tracking hierarchy of one project. Document
	// failures are counted in the Result; an Error means the project could not
	// be fetched or built.
	PerformSync(ctx context.Context, projectID string) (*Result, *Error)
}

// Option configures the default manager
type Option func(*defaultSyncManager)

// WithBuilderOptions passes options to the hierarchy builder
func WithBuilderOptions(opts ...hierarchy.Option) Option {
	return func(m *defaultSyncManager) {
		m.builderOpts = append(m.builderOpts, opts...)
	}
}

// WithLogger sets the logger used for project progress
func WithLogger(logger *slog.Logger) Option {
	return func(m *defaultSyncManager) {
		m.logger = logger
	}
}

// WithTracer enables a span per project sync
func WithTracer(tracer trace.Tracer) Option {
	return func(m *defaultSyncManager) {
		m.tracer = tracer
	}
}

// WithSyncMetrics records project durations and document outcomes
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(m *defaultSyncManager) {
		m.metrics = metrics
	}
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	source  lims.Source
	remote  Remote
	builder *hierarchy.Builder

	builderOpts []hierarchy.Option
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *telemetry.SyncMetrics
}

// NewDefaultSyncManager creates a Manager reading from source and pushing to remote
func NewDefaultSyncManager(source lims.Source, remote Remote, opts ...Option) Manager {
	m := &defaultSyncManager{
		source: source,
		remote: remote,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	builderOpts := append([]hierarchy.Option{
		hierarchy.WithLogger(m.logger),
		hierarchy.WithTracer(m.tracer),
	}, m.builderOpts...)
	m.builder = hierarchy.NewBuilder(source, remote, builderOpts...)
	return m
}

// PerformSync fetches the project, builds its documents and pushes them
// parents first
func (m *defaultSyncManager) PerformSync(ctx context.Context, projectID string) (result *Result, syncErr *Error) {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.PerformSync",
		trace.WithAttributes(otel.AttrProjectID.String(projectID)))
	defer func() {
		if syncErr != nil {
			otel.RecordError(span, syncErr)
		}
		if result != nil {
			span.SetAttributes(otel.AttrResultCount.Int(result.Total()))
		}
		span.End()
		m.metrics.RecordProjectSync(ctx, projectID, time.Since(start), syncErr == nil)
	}()

	logger := m.logger.With("project", projectID)

	project, err := m.source.FetchProject(ctx, projectID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch project", "error", err)
		return nil, &Error{
			Err:       err,
			Message:   fmt.Sprintf("Failed to fetch project %s: %v", projectID, err),
			Stage:     StageFetch,
			ProjectID: projectID,
		}
	}

	docs, err := m.builder.Build(ctx, project)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build project documents", "error", err)
		return nil, &Error{
			Err:       err,
			Message:   fmt.Sprintf("Failed to build documents for project %s: %v", projectID, err),
			Stage:     StageBuild,
			ProjectID: projectID,
		}
	}
	document.SortByDepth(docs)

	logger.InfoContext(ctx, "Pushing project", "luid", project.LUID, "documents", len(docs))

	result = newResult(project.LUID)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, &Error{
				Err:       err,
				Message:   fmt.Sprintf("Sync of project %s interrupted: %v", projectID, err),
				Stage:     StagePush,
				ProjectID: projectID,
			}
		}
		// the client logs its own failures with the payload
		outcome, _ := m.remote.Push(ctx, doc)
		result.Outcomes[outcome]++
		m.metrics.RecordDocumentPushed(ctx, string(doc.Doctype()), string(outcome))
	}

	logger.InfoContext(ctx, "Project synced",
		"luid", project.LUID,
		"created", result.Outcomes[charon.OutcomeCreated],
		"updated", result.Outcomes[charon.OutcomeUpdated],
		"unchanged", result.Outcomes[charon.OutcomeUnchanged],
		"failed", result.Failed(),
		"duration", time.Since(start))

	return result, nil
}
