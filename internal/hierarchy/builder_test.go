package hierarchy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/document"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/hierarchy/mocks"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
	limsmocks "github.com/NationalGenomicsInfrastructure/acheron/internal/lims/mocks"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 123_000_000, time.UTC)

func newTestBuilder(source lims.Source, remote RemoteState, opts ...Option) *Builder {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewBuilder(source, remote, opts...)
}

func docIDs(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = document.ID(d)
	}
	return out
}

func TestParseReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    string
		expected string
	}{
		{"Homo sapiens (human, GRCh38)", "GRCh38"},
		{"Mus musculus (mouse, GRCm39)", "GRCm39"},
		{"Canis familiaris (dog,  CanFam3.1)", "CanFam3.1"},
		{"Homo sapiens (GRCh38)", "other"},
		{"Other (please specify)", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseReference(tt.value), "value %q", tt.value)
	}
}

func TestBuild_ProjectDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		udfs      lims.UDFs
		assertDoc func(t *testing.T, doc *document.Project)
	}{
		{
			name: "no annotations",
			assertDoc: func(t *testing.T, doc *document.Project) {
				t.Helper()
				assert.Nil(t, doc.BestPracticeAnalysis)
				assert.Empty(t, doc.Reference)
				assert.Empty(t, doc.UppnexID)
			},
		},
		{
			name: "whole genome label is mapped",
			udfs: lims.UDFs{{Name: lims.UDFBioinformaticQC, Value: "WG re-seq"}},
			assertDoc: func(t *testing.T, doc *document.Project) {
				t.Helper()
				require.NotNil(t, doc.BestPracticeAnalysis)
				assert.Equal(t, "whole_genome_reseq", *doc.BestPracticeAnalysis)
			},
		},
		{
			name: "other analyses pass through",
			udfs: lims.UDFs{{Name: lims.UDFBioinformaticQC, Value: "exome_resequencing"}},
			assertDoc: func(t *testing.T, doc *document.Project) {
				t.Helper()
				require.NotNil(t, doc.BestPracticeAnalysis)
				assert.Equal(t, "exome_resequencing", *doc.BestPracticeAnalysis)
			},
		},
		{
			name: "reference and uppnex id",
			udfs: lims.UDFs{
				{Name: lims.UDFReferenceGenome, Value: "Homo sapiens (human, GRCh38)"},
				{Name: lims.UDFUppnexID, Value: "  sens2026001\n"},
			},
			assertDoc: func(t *testing.T, doc *document.Project) {
				t.Helper()
				assert.Equal(t, "GRCh38", doc.Reference)
				assert.Equal(t, "sens2026001", doc.UppnexID)
			},
		},
		{
			name: "unparseable reference",
			udfs: lims.UDFs{{Name: lims.UDFReferenceGenome, Value: "Custom assembly"}},
			assertDoc: func(t *testing.T, doc *document.Project) {
				t.Helper()
				assert.Equal(t, "other", doc.Reference)
			},
		},
		{
			name: "repeated annotations take the last value",
			udfs: lims.UDFs{
				{Name: lims.UDFBioinformaticQC, Value: "exome_resequencing"},
				{Name: lims.UDFReferenceGenome, Value: "Mus musculus (mouse, GRCm38)"},
				{Name: lims.UDFUppnexID, Value: "sens2025999"},
				{Name: lims.UDFBioinformaticQC, Value: "WG re-seq"},
				{Name: lims.UDFReferenceGenome, Value: "Homo sapiens (human, GRCh38)"},
				{Name: lims.UDFUppnexID, Value: "sens2026001"},
			},
			assertDoc: func(t *testing.T, doc *document.Project) {
				t.Helper()
				require.NotNil(t, doc.BestPracticeAnalysis)
				assert.Equal(t, "whole_genome_reseq", *doc.BestPracticeAnalysis)
				assert.Equal(t, "GRCh38", doc.Reference)
				assert.Equal(t, "sens2026001", doc.UppnexID)
			},
		},
		{
			name: "empty values are ignored",
			udfs: lims.UDFs{
				{Name: lims.UDFReferenceGenome, Value: ""},
				{Name: lims.UDFUppnexID, Value: ""},
			},
			assertDoc: func(t *testing.T, doc *document.Project) {
				t.Helper()
				assert.Empty(t, doc.Reference)
				assert.Empty(t, doc.UppnexID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			builder := newTestBuilder(limsmocks.NewMockSource(ctrl), mocks.NewMockRemoteState(ctrl),
				WithSequencingFacility("NGI-U"), WithPipeline("sarek"))

			docs, err := builder.Build(context.Background(), &lims.Project{LUID: "P1001", Name: "A.Test_26_01", UDFs: tt.udfs})
			require.NoError(t, err)
			require.Len(t, docs, 1)

			doc, ok := docs[0].(*document.Project)
			require.True(t, ok)
			assert.Equal(t, "P1001", doc.ProjectID)
			assert.Equal(t, "A.Test_26_01", doc.Name)
			assert.Equal(t, document.ProjectStatusOpen, doc.Status)
			assert.Equal(t, "NGI-U", doc.SequencingFacility)
			assert.Equal(t, "sarek", doc.Pipeline)
			assert.Equal(t, document.DeliveryTokenNotUnderDelivery, doc.DeliveryToken)
			assert.Equal(t, "2026-10-16T09:30:00.123Z", doc.Created)
			tt.assertDoc(t, doc)
		})
	}
}

func TestBuild_Hierarchy(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := limsmocks.NewMockSource(ctrl)
	remote := mocks.NewMockRemoteState(ctrl)

	sample := lims.Sample{ID: 10, Name: "P1001_101", ProcessID: 100}
	project := &lims.Project{LUID: "P1001", Name: "A.Test_26_01", Samples: []lims.Sample{sample}}

	older := lims.Process{ID: 200, LUID: "24-200", TypeID: 8, DateRun: at(1)}
	newer := lims.Process{ID: 201, LUID: "24-201", TypeID: 8, DateRun: at(7)}
	pooled := lims.Process{ID: 202, LUID: "24-202", TypeID: 806, DateRun: at(3)}

	source.EXPECT().LibPrepCandidates(gomock.Any(), sample).Return([]lims.Process{older, newer, pooled}, nil)
	source.EXPECT().OriginatingSamples(gomock.Any(), older).Return([]int64{10}, nil)
	source.EXPECT().OriginatingSamples(gomock.Any(), newer).Return([]int64{10}, nil)
	source.EXPECT().OriginatingSamples(gomock.Any(), pooled).Return([]int64{10, 11}, nil)

	source.EXPECT().SeqRunCandidates(gomock.Any(), newer, sample).Return([]lims.Process{
		{ID: 300, LUID: "24-300", UDFs: lims.UDFs{{Name: lims.UDFRunID, Value: "R1"}}},
		{ID: 301, LUID: "24-301"},
	}, nil)
	source.EXPECT().SeqRunCandidates(gomock.Any(), pooled, sample).Return([]lims.Process{
		{ID: 302, LUID: "24-302", UDFs: lims.UDFs{{Name: "Flowcell", Value: "X"}, {Name: lims.UDFRunID, Value: "R2"}}},
	}, nil)

	remote.EXPECT().RemoteSample(gomock.Any(), "P1001", "P1001_101").Return(nil, false, nil)

	docs, err := newTestBuilder(source, remote).Build(context.Background(), project)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"P1001",
		"P1001/P1001_101",
		"P1001/P1001_101/A",
		"P1001/P1001_101/A/R1",
		"P1001/P1001_101/B",
		"P1001/P1001_101/B/R2",
	}, docIDs(docs))

	libPrep, ok := docs[2].(*document.LibPrep)
	require.True(t, ok)
	assert.Equal(t, document.LibPrepQCPassed, libPrep.QC)

	run, ok := docs[3].(*document.SeqRun)
	require.True(t, ok)
	assert.Equal(t, []string{"P1001", "P1001_101", "A", "R1"}, run.Keys())
	assert.Equal(t, document.AlignmentStatusNotRunning, run.AlignmentStatus)
	assert.Equal(t, document.DeliveryStatusNotDelivered, run.DeliveryStatus)

	sampleDoc, ok := docs[1].(*document.Sample)
	require.True(t, ok)
	assert.Equal(t, document.SampleStatusFresh, sampleDoc.Status)
	assert.Equal(t, document.AnalysisStatusToAnalyze, sampleDoc.AnalysisStatus)
}

func TestBuild_SeqRunWithoutRunIDIsDropped(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := limsmocks.NewMockSource(ctrl)
	remote := mocks.NewMockRemoteState(ctrl)

	sample := lims.Sample{ID: 10, Name: "P1001_101", ProcessID: 100}
	libPrep := lims.Process{ID: 200, LUID: "24-200"}

	source.EXPECT().LibPrepCandidates(gomock.Any(), sample).Return([]lims.Process{libPrep}, nil)
	source.EXPECT().OriginatingSamples(gomock.Any(), libPrep).Return([]int64{10}, nil)
	source.EXPECT().SeqRunCandidates(gomock.Any(), libPrep, sample).Return([]lims.Process{
		{ID: 300, LUID: "24-300", UDFs: lims.UDFs{{Name: "Read 1 Cycles", Value: "151"}}},
	}, nil)
	remote.EXPECT().RemoteSample(gomock.Any(), "P1001", "P1001_101").Return(nil, false, nil)

	docs, err := newTestBuilder(source, remote).Build(context.Background(),
		&lims.Project{LUID: "P1001", Samples: []lims.Sample{sample}})
	require.NoError(t, err)

	for _, d := range docs {
		assert.NotEqual(t, document.DoctypeSeqRun, d.Doctype())
	}
	assert.Equal(t, []string{"P1001", "P1001/P1001_101", "P1001/P1001_101/A"}, docIDs(docs))
}

func TestBuild_SampleStatus(t *testing.T) {
	t.Parallel()

	errRemote := errors.New("connection refused")

	tests := []struct {
		name        string
		udfs        lims.UDFs
		setupRemote func(remote *mocks.MockRemoteStateMockRecorder)
		expected    string
		logContains string
	}{
		{
			name: "no remote sample",
			setupRemote: func(remote *mocks.MockRemoteStateMockRecorder) {
				remote.RemoteSample(gomock.Any(), "P1", "S1").Return(nil, false, nil)
			},
			expected: document.SampleStatusFresh,
		},
		{
			name: "stale remote with the same seqruns stays stale",
			setupRemote: func(remote *mocks.MockRemoteStateMockRecorder) {
				remote.RemoteSample(gomock.Any(), "P1", "S1").Return(map[string]any{"status": "STALE"}, true, nil)
				remote.RemoteSeqRunIDs(gomock.Any(), "P1", "S1").Return(document.NewIDSet("R2", "R1"), nil)
			},
			expected: document.SampleStatusStale,
		},
		{
			name: "stale remote with fewer seqruns becomes fresh",
			setupRemote: func(remote *mocks.MockRemoteStateMockRecorder) {
				remote.RemoteSample(gomock.Any(), "P1", "S1").Return(map[string]any{"status": "STALE"}, true, nil)
				remote.RemoteSeqRunIDs(gomock.Any(), "P1", "S1").Return(document.NewIDSet("R1"), nil)
			},
			expected:    document.SampleStatusFresh,
			logContains: `"local_seqruns":["R1","R2"],"remote_seqruns":["R1"]`,
		},
		{
			name: "non-stale remote skips the seqrun check",
			setupRemote: func(remote *mocks.MockRemoteStateMockRecorder) {
				remote.RemoteSample(gomock.Any(), "P1", "S1").Return(map[string]any{"status": "ANALYZED"}, true, nil)
			},
			expected: document.SampleStatusFresh,
		},
		{
			name: "remote sample failure leaves fresh",
			setupRemote: func(remote *mocks.MockRemoteStateMockRecorder) {
				remote.RemoteSample(gomock.Any(), "P1", "S1").Return(nil, false, errRemote)
			},
			expected: document.SampleStatusFresh,
		},
		{
			name: "remote seqrun failure leaves fresh",
			setupRemote: func(remote *mocks.MockRemoteStateMockRecorder) {
				remote.RemoteSample(gomock.Any(), "P1", "S1").Return(map[string]any{"status": "STALE"}, true, nil)
				remote.RemoteSeqRunIDs(gomock.Any(), "P1", "S1").Return(nil, errRemote)
			},
			expected: document.SampleStatusFresh,
		},
		{
			name: "aborted wins over stale",
			udfs: lims.UDFs{{Name: lims.UDFManualStatus, Value: "Aborted"}},
			setupRemote: func(remote *mocks.MockRemoteStateMockRecorder) {
				remote.RemoteSample(gomock.Any(), "P1", "S1").Return(map[string]any{"status": "STALE"}, true, nil)
				remote.RemoteSeqRunIDs(gomock.Any(), "P1", "S1").Return(document.NewIDSet("R1", "R2"), nil)
			},
			expected: document.SampleStatusAborted,
		},
		{
			name: "other manual status is ignored",
			udfs: lims.UDFs{{Name: lims.UDFManualStatus, Value: "In Progress"}},
			setupRemote: func(remote *mocks.MockRemoteStateMockRecorder) {
				remote.RemoteSample(gomock.Any(), "P1", "S1").Return(nil, false, nil)
			},
			expected: document.SampleStatusFresh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			source := limsmocks.NewMockSource(ctrl)
			remote := mocks.NewMockRemoteState(ctrl)

			sample := lims.Sample{ID: 1, Name: "S1", ProcessID: 100, UDFs: tt.udfs}
			libPrep := lims.Process{ID: 200, LUID: "24-200"}
			source.EXPECT().LibPrepCandidates(gomock.Any(), sample).Return([]lims.Process{libPrep}, nil)
			source.EXPECT().OriginatingSamples(gomock.Any(), libPrep).Return([]int64{1}, nil)
			source.EXPECT().SeqRunCandidates(gomock.Any(), libPrep, sample).Return([]lims.Process{
				{ID: 300, UDFs: lims.UDFs{{Name: lims.UDFRunID, Value: "R1"}}},
				{ID: 301, UDFs: lims.UDFs{{Name: lims.UDFRunID, Value: "R2"}}},
			}, nil)
			tt.setupRemote(remote.EXPECT())

			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			docs, err := newTestBuilder(source, remote, WithLogger(logger)).Build(context.Background(),
				&lims.Project{LUID: "P1", Samples: []lims.Sample{sample}})
			require.NoError(t, err)

			sampleDoc, ok := docs[1].(*document.Sample)
			require.True(t, ok)
			assert.Equal(t, tt.expected, sampleDoc.Status)
			if tt.logContains != "" {
				assert.Contains(t, logs.String(), tt.logContains)
			}
		})
	}
}

func TestBuild_SampleLinks(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := limsmocks.NewMockSource(ctrl)
	remote := mocks.NewMockRemoteState(ctrl)

	sample := lims.Sample{ID: 2, Name: "P1_102", ProcessID: 101, UDFs: lims.UDFs{
		{Name: lims.UDFSampleLinks, Value: "P1_101"},
		{Name: lims.UDFSampleLinkType, Value: "tumor"},
	}}
	source.EXPECT().LibPrepCandidates(gomock.Any(), sample).Return(nil, nil)
	remote.EXPECT().RemoteSample(gomock.Any(), "P1", "P1_102").Return(nil, false, nil)

	docs, err := newTestBuilder(source, remote).Build(context.Background(),
		&lims.Project{LUID: "P1", Samples: []lims.Sample{sample}})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	sampleDoc := docs[1].(*document.Sample)
	require.NotNil(t, sampleDoc.Pair)
	require.NotNil(t, sampleDoc.Type)
	assert.Equal(t, "P1_101", *sampleDoc.Pair)
	assert.Equal(t, "tumor", *sampleDoc.Type)
}

func TestBuild_SourceErrorAbortsProject(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := limsmocks.NewMockSource(ctrl)
	remote := mocks.NewMockRemoteState(ctrl)

	sample := lims.Sample{ID: 1, Name: "S1"}
	libPrep := lims.Process{ID: 200, LUID: "24-200"}
	dbErr := errors.New("conn closed")

	source.EXPECT().LibPrepCandidates(gomock.Any(), sample).Return([]lims.Process{libPrep}, nil)
	source.EXPECT().OriginatingSamples(gomock.Any(), libPrep).Return(nil, dbErr)

	docs, err := newTestBuilder(source, remote).Build(context.Background(),
		&lims.Project{LUID: "P1", Samples: []lims.Sample{sample}})
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "24-200")
	assert.Nil(t, docs)
}
