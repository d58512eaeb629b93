package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/charon"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/logging"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/otel"
	pkgsync "github.com/NationalGenomicsInfrastructure/acheron/internal/sync"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/telemetry"
)

// logBuffer is the capacity of the channel carrying worker log records
const logBuffer = 256

// SessionFactory opens the LIMS session of one worker
//
//go:generate mockgen -destination=mocks/mock_session.go -package=mocks -source=coordinator.go SessionFactory
type SessionFactory interface {
	// Open returns a source logging to logger and the func releasing it
	Open(ctx context.Context, logger *slog.Logger) (lims.Source, func(), error)
}

// ManagerFactory creates the sync manager of one worker. The manager must log
// to logger.
type ManagerFactory func(source lims.Source, logger *slog.Logger) (pkgsync.Manager, error)

// Coordinator runs project syncs on a pool of workers
type Coordinator interface {
	// Run syncs every project in projectIDs and returns once all workers
	// have exited
	Run(ctx context.Context, projectIDs []string) *Summary
}

// Summary is the outcome of a run
type Summary struct {
	RunID    string
	Results  []*pkgsync.Result
	Errors   []*pkgsync.Error
	Pending  int
	Duration time.Duration
}

// Documents sums the document outcomes of every synced project
func (s *Summary) Documents() map[charon.Outcome]int {
	out := make(map[charon.Outcome]int)
	for _, r := range s.Results {
		for outcome, n := range r.Outcomes {
			out[outcome] += n
		}
	}
	return out
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithHandler sets the handler worker records are replayed on
func WithHandler(h slog.Handler) Option {
	return func(c *defaultCoordinator) {
		c.handler = h
	}
}

// WithLogLevel sets the lowest level workers forward
func WithLogLevel(level slog.Leveler) Option {
	return func(c *defaultCoordinator) {
		c.level = level
	}
}

// WithRunID tags every worker record with the run id
func WithRunID(id string) Option {
	return func(c *defaultCoordinator) {
		c.runID = id
	}
}

// WithTracer enables a span per run
func WithTracer(tracer trace.Tracer) Option {
	return func(c *defaultCoordinator) {
		c.tracer = tracer
	}
}

// WithPoolMetrics sets the pool metrics for the coordinator
func WithPoolMetrics(metrics *telemetry.PoolMetrics) Option {
	return func(c *defaultCoordinator) {
		c.metrics = metrics
	}
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	cfg      Config
	sessions SessionFactory
	managers ManagerFactory

	handler slog.Handler
	level   slog.Leveler
	runID   string
	tracer  trace.Tracer
	metrics *telemetry.PoolMetrics
}

// collector gathers project outcomes from every worker of a run
type collector struct {
	mu      gosync.Mutex
	summary *Summary
}

func (r *collector) add(result *pkgsync.Result, syncErr *pkgsync.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if syncErr != nil {
		r.summary.Errors = append(r.summary.Errors, syncErr)
		return
	}
	r.summary.Results = append(r.summary.Results, result)
}

// New creates a coordinator with injected dependencies
func New(cfg Config, sessions SessionFactory, managers ManagerFactory, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		managers: managers,
		level:    slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.handler == nil {
		c.handler = slog.Default().Handler()
	}
	return c
}

// Run fans projectIDs out over the workers. It keeps replaying worker log
// records on the main handler until the last worker exits.
func (c *defaultCoordinator) Run(ctx context.Context, projectIDs []string) *Summary {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, c.tracer, "coordinator.Run",
		trace.WithAttributes(otel.AttrResultCount.Int(len(projectIDs))))
	defer span.End()

	summary := &Summary{RunID: c.runID}
	logger := slog.New(c.handler).With("run_id", c.runID)
	if len(projectIDs) == 0 {
		logger.InfoContext(ctx, "No projects to sync")
		return summary
	}

	queue := NewWorkQueue(projectIDs, c.cfg.QueueTimeout)
	workers := min(c.cfg.Workers, len(projectIDs))
	logger.InfoContext(ctx, "Starting sync run", "projects", len(projectIDs), "workers", workers)

	results := &collector{summary: summary}
	logs := make(chan logging.Entry, logBuffer)
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			c.work(ctx, i, queue, logs, results)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	c.drain(logs, done)

	summary.Pending = queue.Len()
	summary.Duration = time.Since(start)
	docs := summary.Documents()
	logger.InfoContext(ctx, "Sync run finished",
		"projects", len(summary.Results),
		"failed_projects", len(summary.Errors),
		"pending", summary.Pending,
		"created", docs[charon.OutcomeCreated],
		"updated", docs[charon.OutcomeUpdated],
		"unchanged", docs[charon.OutcomeUnchanged],
		"failed", docs[charon.OutcomeFailed],
		"duration", summary.Duration)
	return summary
}

// drain replays worker records until done is closed, then flushes the rest
func (c *defaultCoordinator) drain(logs <-chan logging.Entry, done <-chan struct{}) {
	for {
		select {
		case e := <-logs:
			c.replay(e)
		case <-done:
			for {
				select {
				case e := <-logs:
					c.replay(e)
				default:
					return
				}
			}
		}
	}
}

func (c *defaultCoordinator) replay(e logging.Entry) {
	// workers inject their own trace ids
	_ = e.Replay(context.Background(), c.handler)
}

func (c *defaultCoordinator) work(
	ctx context.Context, id int, queue *WorkQueue, logs chan<- logging.Entry, results *collector,
) {
	logger := slog.New(logging.NewTraceHandler(logging.NewChannelHandler(logs, c.level))).
		With("run_id", c.runID, "worker", id)

	c.metrics.WorkerStarted(ctx)
	defer c.metrics.WorkerStopped(ctx)

	source, release, err := c.sessions.Open(ctx, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open LIMS session", "error", err)
		return
	}
	defer release()

	manager, err := c.managers(source, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create sync manager", "error", err)
		return
	}

	for {
		projectID, err := queue.Pop(ctx)
		switch {
		case errors.Is(err, ErrQueueEmpty):
			logger.DebugContext(ctx, "Work queue empty, worker exiting")
			return
		case err != nil:
			logger.InfoContext(ctx, "Worker stopped", "reason", err)
			return
		}

		result, syncErr := c.syncProject(ctx, manager, projectID, logger)
		results.add(result, syncErr)
		c.metrics.RecordProject(ctx, syncErr == nil)
	}
}

// syncProject runs one project, turning a panic into an Error so the worker
// moves on to the next project
func (c *defaultCoordinator) syncProject(
	ctx context.Context, manager pkgsync.Manager, projectID string, logger *slog.Logger,
) (result *pkgsync.Result, syncErr *pkgsync.Error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Project sync panicked", "project", projectID, "panic", r)
			result, syncErr = nil, &pkgsync.Error{
				Err:       fmt.Errorf("panic: %v", r),
				Message:   fmt.Sprintf("Sync of project %s panicked: %v", projectID, r),
				ProjectID: projectID,
			}
		}
	}()
	return manager.PerformSync(ctx, projectID)
}
