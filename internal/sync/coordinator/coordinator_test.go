package coordinator_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/charon"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
	limsmocks "github.com/NationalGenomicsInfrastructure/acheron/internal/lims/mocks"
	pkgsync "github.com/NationalGenomicsInfrastructure/acheron/internal/sync"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/sync/coordinator"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/sync/coordinator/mocks"
	syncmocks "github.com/NationalGenomicsInfrastructure/acheron/internal/sync/mocks"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/telemetry"
)

const testRunID = "run-1"

var fastPool = coordinator.Config{Workers: 4, QueueTimeout: 20 * time.Millisecond}

// fakeManager records the projects it synced and logs through the worker logger
type fakeManager struct {
	logger *slog.Logger
	synced *projectLog
	fail   map[string]bool
	panics map[string]bool
}

type projectLog struct {
	mu  gosync.Mutex
	ids []string
}

func (p *projectLog) add(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
}

func (p *projectLog) sorted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := slices.Clone(p.ids)
	slices.Sort(out)
	return out
}

func (m *fakeManager) PerformSync(ctx context.Context, projectID string) (*pkgsync.Result, *pkgsync.Error) {
	m.synced.add(projectID)
	m.logger.InfoContext(ctx, "Project synced", "project", projectID)
	if m.panics[projectID] {
		panic("corrupt project")
	}
	if m.fail[projectID] {
		return nil, &pkgsync.Error{Err: lims.ErrProjectNotFound, Message: "not found", Stage: pkgsync.StageFetch, ProjectID: projectID}
	}
	return &pkgsync.Result{
		ProjectID: projectID,
		Outcomes:  map[charon.Outcome]int{charon.OutcomeCreated: 2, charon.OutcomeUnchanged: 1},
	}, nil
}

// sessions returns a session factory counting opened and released sessions
func sessions(ctrl *gomock.Controller, opened, released *atomic.Int32) *mocks.MockSessionFactory {
	factory := mocks.NewMockSessionFactory(ctrl)
	factory.EXPECT().Open(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *slog.Logger) (lims.Source, func(), error) {
		opened.Add(1)
		return limsmocks.NewMockSource(ctrl), func() { released.Add(1) }, nil
	}).AnyTimes()
	return factory
}

func managers(synced *projectLog, fail, panics map[string]bool) coordinator.ManagerFactory {
	return func(_ lims.Source, logger *slog.Logger) (pkgsync.Manager, error) {
		return &fakeManager{logger: logger, synced: synced, fail: fail, panics: panics}, nil
	}
}

func projectIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "P" + string(rune('A'+i))
	}
	return ids
}

func parseLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		out = append(out, line)
	}
	return out
}

func TestCoordinator_Run_SyncsEveryProjectOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32
	synced := &projectLog{}
	ids := projectIDs(20)

	coord := coordinator.New(fastPool, sessions(ctrl, &opened, &released), managers(synced, nil, nil),
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		coordinator.WithRunID(testRunID))
	summary := coord.Run(context.Background(), ids)

	assert.Equal(t, ids, synced.sorted())
	assert.Len(t, summary.Results, 20)
	assert.Empty(t, summary.Errors)
	assert.Zero(t, summary.Pending)
	assert.Equal(t, testRunID, summary.RunID)
	assert.Equal(t, map[charon.Outcome]int{charon.OutcomeCreated: 40, charon.OutcomeUnchanged: 20}, summary.Documents())

	assert.Equal(t, int32(4), opened.Load(), "one session per worker")
	assert.Equal(t, opened.Load(), released.Load(), "every session is released")
}

func TestCoordinator_Run_FewerProjectsThanWorkers(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32
	synced := &projectLog{}

	coord := coordinator.New(fastPool, sessions(ctrl, &opened, &released), managers(synced, nil, nil),
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	summary := coord.Run(context.Background(), []string{"P1", "P2"})

	assert.Len(t, summary.Results, 2)
	assert.Equal(t, int32(2), opened.Load())
	assert.Equal(t, int32(2), released.Load())
}

func TestCoordinator_Run_NoProjects(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	factory := mocks.NewMockSessionFactory(ctrl)

	coord := coordinator.New(fastPool, factory, managers(&projectLog{}, nil, nil),
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	summary := coord.Run(context.Background(), nil)

	assert.Empty(t, summary.Results)
	assert.Empty(t, summary.Errors)
}

func TestCoordinator_Run_FunnelsWorkerLogs(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32
	var buf bytes.Buffer

	coord := coordinator.New(fastPool, sessions(ctrl, &opened, &released), managers(&projectLog{}, nil, nil),
		coordinator.WithHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		coordinator.WithLogLevel(slog.LevelDebug),
		coordinator.WithRunID(testRunID))
	coord.Run(context.Background(), projectIDs(8))

	lines := parseLines(t, &buf)
	require.NotEmpty(t, lines)
	assert.Equal(t, "Starting sync run", lines[0]["msg"])
	assert.Equal(t, "Sync run finished", lines[len(lines)-1]["msg"], "worker records are flushed before the run ends")

	var projects []string
	exits := 0
	for _, line := range lines {
		assert.Equal(t, testRunID, line["run_id"])
		switch line["msg"] {
		case "Project synced":
			assert.Contains(t, line, "worker")
			projects = append(projects, line["project"].(string))
		case "Work queue empty, worker exiting":
			exits++
		}
	}
	slices.Sort(projects)
	assert.Equal(t, projectIDs(8), projects)
	assert.Equal(t, 4, exits)
}

func TestCoordinator_Run_SessionLogsGoThroughWorkerChannel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var buf bytes.Buffer

	factory := mocks.NewMockSessionFactory(ctrl)
	factory.EXPECT().Open(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, logger *slog.Logger) (lims.Source, func(), error) {
			assert.NotNil(t, logger)
			logger.WarnContext(ctx, "Failed to acquire database connection, retrying", "retry_in", time.Millisecond)
			return limsmocks.NewMockSource(ctrl), func() {}, nil
		}).Times(2)

	coord := coordinator.New(coordinator.Config{Workers: 2, QueueTimeout: 20 * time.Millisecond},
		factory, managers(&projectLog{}, nil, nil),
		coordinator.WithHandler(slog.NewJSONHandler(&buf, nil)),
		coordinator.WithRunID(testRunID))
	coord.Run(context.Background(), projectIDs(4))

	workers := map[float64]bool{}
	for _, line := range parseLines(t, &buf) {
		if line["msg"] != "Failed to acquire database connection, retrying" {
			continue
		}
		assert.Equal(t, testRunID, line["run_id"])
		require.Contains(t, line, "worker")
		workers[line["worker"].(float64)] = true
	}
	assert.Equal(t, map[float64]bool{0: true, 1: true}, workers, "each worker's session logs carry its id")
}

func TestCoordinator_Run_LogLevel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32
	var buf bytes.Buffer

	coord := coordinator.New(fastPool, sessions(ctrl, &opened, &released), managers(&projectLog{}, nil, nil),
		coordinator.WithHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		coordinator.WithLogLevel(slog.LevelWarn))
	coord.Run(context.Background(), projectIDs(3))

	for _, line := range parseLines(t, &buf) {
		assert.NotEqual(t, "Project synced", line["msg"], "workers drop records below their level")
	}
}

func TestCoordinator_Run_ProjectFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32
	synced := &projectLog{}
	ids := projectIDs(6)

	coord := coordinator.New(fastPool, sessions(ctrl, &opened, &released),
		managers(synced, map[string]bool{"PB": true}, map[string]bool{"PD": true}),
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	summary := coord.Run(context.Background(), ids)

	assert.Equal(t, ids, synced.sorted(), "a failed project never stops the others")
	assert.Len(t, summary.Results, 4)
	require.Len(t, summary.Errors, 2)

	failed := map[string]*pkgsync.Error{}
	for _, e := range summary.Errors {
		failed[e.ProjectID] = e
	}
	assert.ErrorIs(t, failed["PB"], lims.ErrProjectNotFound)
	assert.Contains(t, failed["PD"].Message, "panicked")
	assert.Equal(t, opened.Load(), released.Load())
}

func TestCoordinator_Run_SessionFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	factory := mocks.NewMockSessionFactory(ctrl)
	factory.EXPECT().Open(gomock.Any(), gomock.Any()).Return(nil, nil, errors.New("too many connections")).Times(2)

	coord := coordinator.New(coordinator.Config{Workers: 2, QueueTimeout: 20 * time.Millisecond},
		factory, managers(&projectLog{}, nil, nil),
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	summary := coord.Run(context.Background(), projectIDs(5))

	assert.Empty(t, summary.Results)
	assert.Equal(t, 5, summary.Pending)
}

func TestCoordinator_Run_ManagerFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32
	failing := func(lims.Source, *slog.Logger) (pkgsync.Manager, error) {
		return nil, errors.New("invalid charon URL")
	}

	coord := coordinator.New(coordinator.Config{Workers: 3, QueueTimeout: 20 * time.Millisecond},
		sessions(ctrl, &opened, &released), failing,
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	summary := coord.Run(context.Background(), projectIDs(3))

	assert.Equal(t, 3, summary.Pending)
	assert.Equal(t, int32(3), released.Load(), "sessions are released when the manager cannot be built")
}

func TestCoordinator_Run_Cancelled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord := coordinator.New(coordinator.Config{Workers: 2, QueueTimeout: time.Minute},
		sessions(ctrl, &opened, &released), managers(&projectLog{}, nil, nil),
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	start := time.Now()
	summary := coord.Run(ctx, projectIDs(4))

	assert.Less(t, time.Since(start), 30*time.Second, "cancelled workers never wait for the queue timeout")
	assert.Empty(t, summary.Results)
	assert.Equal(t, 4, summary.Pending)
	assert.Equal(t, opened.Load(), released.Load())
}

func TestCoordinator_Run_WithMockManager(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().PerformSync(gomock.Any(), "P1001").Return(&pkgsync.Result{
		ProjectID: "P1001",
		Outcomes:  map[charon.Outcome]int{charon.OutcomeUpdated: 1},
	}, nil)

	coord := coordinator.New(coordinator.Config{Workers: 1, QueueTimeout: 20 * time.Millisecond},
		sessions(ctrl, &opened, &released),
		func(lims.Source, *slog.Logger) (pkgsync.Manager, error) { return manager, nil },
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	summary := coord.Run(context.Background(), []string{"P1001"})

	require.Len(t, summary.Results, 1)
	assert.Equal(t, 1, summary.Documents()[charon.OutcomeUpdated])
}

func TestCoordinator_Run_Metrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewPoolMetrics(provider)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	var opened, released atomic.Int32

	coord := coordinator.New(fastPool, sessions(ctrl, &opened, &released),
		managers(&projectLog{}, map[string]bool{"PA": true}, nil),
		coordinator.WithHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		coordinator.WithPoolMetrics(metrics))
	coord.Run(context.Background(), projectIDs(5))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			found[m.Name] = m
		}
	}

	projects, ok := found["acheron_projects_synced_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	total := int64(0)
	for _, dp := range projects.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(5), total)

	active, ok := found["acheron_workers_active"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, active.DataPoints, 1)
	assert.Zero(t, active.DataPoints[0].Value, "every worker has stopped")
}
