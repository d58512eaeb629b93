// Package hierarchy derives the tracking documents of one project from the
// LIMS: the project itself, its samples, their library preparations and the
// sequencing runs of each preparation.
package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/document"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/otel"
)

const (
	// DefaultSequencingFacility is written to new project documents
	DefaultSequencingFacility = "NGI-S"

	// DefaultPipeline is written to new project documents
	DefaultPipeline = "NGI"

	wholeGenomeReseqLabel = "WG re-seq"
	wholeGenomeReseq      = "whole_genome_reseq"
	otherReference        = "other"
	abortedStatus         = "Aborted"
)

// referencePattern extracts the assembly name from values such as
// "Homo sapiens (GRCh38)" or "Mus musculus (mouse, GRCm39)"
var referencePattern = regexp.MustCompile(`,\s+([0-9A-z._-]+)\)`)

// RemoteState answers questions about what Charon already stores
//
//go:generate mockgen -destination=mocks/mock_remote_state.go -package=mocks -source=builder.go RemoteState
type RemoteState interface {
	// RemoteSample returns the stored sample document, or false when there is none
	RemoteSample(ctx context.Context, projectID, sampleID string) (map[string]any, bool, error)

	// RemoteSeqRunIDs returns the ids of the sequencing runs stored for a sample
	RemoteSeqRunIDs(ctx context.Context, projectID, sampleID string) (document.IDSet, error)
}

// Option configures a Builder
type Option func(*Builder)

// WithSequencingFacility sets the facility written to project documents
func WithSequencingFacility(facility string) Option {
	return func(b *Builder) {
		b.facility = facility
	}
}

// WithPipeline sets the pipeline written to project documents
func WithPipeline(pipeline string) Option {
	return func(b *Builder) {
		b.pipeline = pipeline
	}
}

// WithClock overrides the clock used for created and modified stamps
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithLogger sets the logger. slog.Default() is used when unset.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithTracer enables tracing of builds
func WithTracer(tracer trace.Tracer) Option {
	return func(b *Builder) {
		b.tracer = tracer
	}
}

// Builder derives documents from LIMS entities
type Builder struct {
	source   lims.Source
	remote   RemoteState
	facility string
	pipeline string
	now      func() time.Time
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewBuilder creates a Builder reading provenance from source and remote
// sample state from remote
func NewBuilder(source lims.Source, remote RemoteState, opts ...Option) *Builder {
	b := &Builder{
		source:   source,
		remote:   remote,
		facility: DefaultSequencingFacility,
		pipeline: DefaultPipeline,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Build returns every document of the project. The project document comes
// first, followed by each sample with its library preparations and
// sequencing runs. Any LIMS error aborts the build.
func (b *Builder) Build(ctx context.Context, project *lims.Project) ([]document.Document, error) {
	ctx, span := otel.StartSpan(ctx, b.tracer, "hierarchy.Build",
		trace.WithAttributes(otel.AttrProjectID.String(project.LUID)))
	defer span.End()

	stamps := document.NewStamps(b.now())
	docs := []document.Document{b.projectDocument(project, stamps)}

	for _, sample := range project.Samples {
		children, err := b.sampleChildren(ctx, project, sample, stamps)
		if err != nil {
			otel.RecordError(span, err)
			return nil, err
		}

		local := document.NewIDSet()
		for _, child := range children {
			if run, ok := child.(*document.SeqRun); ok {
				local.Add(run.SeqRunID)
			}
		}

		docs = append(docs, b.sampleDocument(ctx, project, sample, local, stamps))
		docs = append(docs, children...)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(docs)))
	return docs, nil
}

func (b *Builder) projectDocument(project *lims.Project, stamps document.Stamps) *document.Project {
	doc := &document.Project{
		Stamps:             stamps,
		ProjectID:          project.LUID,
		Name:               project.Name,
		Status:             document.ProjectStatusOpen,
		SequencingFacility: b.facility,
		Pipeline:           b.pipeline,
		DeliveryToken:      document.DeliveryTokenNotUnderDelivery,
	}

	if value, ok := project.UDFs.Get(lims.UDFBioinformaticQC); ok {
		if value == wholeGenomeReseqLabel {
			value = wholeGenomeReseq
		}
		doc.BestPracticeAnalysis = &value
	}
	if value, ok := project.UDFs.Get(lims.UDFUppnexID); ok && value != "" {
		doc.UppnexID = strings.TrimSpace(value)
	}
	if value, ok := project.UDFs.Get(lims.UDFReferenceGenome); ok && value != "" {
		doc.Reference = ParseReference(value)
	}

	return doc
}

// ParseReference extracts the reference assembly from a "Reference genome"
// annotation, falling back to "other"
func ParseReference(value string) string {
	if m := referencePattern.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return otherReference
}

func (b *Builder) sampleDocument(
	ctx context.Context,
	project *lims.Project,
	sample lims.Sample,
	localRuns document.IDSet,
	stamps document.Stamps,
) *document.Sample {
	doc := &document.Sample{
		Stamps:         stamps,
		ProjectID:      project.LUID,
		SampleID:       sample.Name,
		Status:         document.SampleStatusFresh,
		AnalysisStatus: document.AnalysisStatusToAnalyze,
	}

	if b.isStale(ctx, project.LUID, sample.Name, localRuns) {
		doc.Status = document.SampleStatusStale
	}

	for _, udf := range sample.UDFs {
		switch udf.Name {
		case lims.UDFManualStatus:
			if udf.Value == abortedStatus {
				doc.Status = document.SampleStatusAborted
			}
		case lims.UDFSampleLinks:
			doc.Pair = &udf.Value
		case lims.UDFSampleLinkType:
			doc.Type = &udf.Value
		}
	}

	return doc
}

// isStale reports whether Charon already marks the sample STALE and still
// knows exactly the sequencing runs found locally. Remote failures leave the
// sample FRESH.
func (b *Builder) isStale(ctx context.Context, projectID, sampleID string, localRuns document.IDSet) bool {
	remote, found, err := b.remote.RemoteSample(ctx, projectID, sampleID)
	if err != nil {
		b.logger.WarnContext(ctx, "Failed to read remote sample, assuming FRESH",
			"project", projectID,
			"sample", sampleID,
			"error", err)
		return false
	}
	if !found || remote["status"] != document.SampleStatusStale {
		return false
	}

	remoteRuns, err := b.remote.RemoteSeqRunIDs(ctx, projectID, sampleID)
	if err != nil {
		b.logger.WarnContext(ctx, "Failed to read remote seqruns, assuming FRESH",
			"project", projectID,
			"sample", sampleID,
			"error", err)
		return false
	}
	if !localRuns.Equal(remoteRuns) {
		b.logger.DebugContext(ctx, "Sequencing runs changed, sample is FRESH again",
			"project", projectID,
			"sample", sampleID,
			"local_seqruns", localRuns.Sorted(),
			"remote_seqruns", remoteRuns.Sorted())
		return false
	}
	return true
}

// sampleChildren returns the library preparations of the sample, each
// followed by its sequencing runs
func (b *Builder) sampleChildren(
	ctx context.Context,
	project *lims.Project,
	sample lims.Sample,
	stamps document.Stamps,
) ([]document.Document, error) {
	processes, err := b.source.LibPrepCandidates(ctx, sample)
	if err != nil {
		return nil, fmt.Errorf("failed to find libpreps of sample %s: %w", sample.Name, err)
	}

	candidates := make([]Candidate, 0, len(processes))
	for _, p := range processes {
		origins, err := b.source.OriginatingSamples(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to find origins of libprep %s: %w", p.LUID, err)
		}
		set := document.NewIDSet()
		for _, id := range origins {
			set.Add(strconv.FormatInt(id, 10))
		}
		candidates = append(candidates, Candidate{Process: p, Origins: set})
	}

	kept := ResolveDuplicates(candidates)
	if dropped := len(candidates) - len(kept); dropped > 0 {
		b.logger.DebugContext(ctx, "Dropped duplicate libpreps",
			"project", project.LUID,
			"sample", sample.Name,
			"dropped", dropped)
	}

	var docs []document.Document
	for i, c := range kept {
		libPrepID := LibPrepID(i)
		docs = append(docs, &document.LibPrep{
			Stamps:    stamps,
			ProjectID: project.LUID,
			SampleID:  sample.Name,
			LibPrepID: libPrepID,
			QC:        document.LibPrepQCPassed,
		})

		runs, err := b.source.SeqRunCandidates(ctx, c.Process, sample)
		if err != nil {
			return nil, fmt.Errorf("failed to find seqruns of libprep %s: %w", c.Process.LUID, err)
		}
		for _, run := range runs {
			runID, ok := run.UDFs.Get(lims.UDFRunID)
			if !ok {
				b.logger.DebugContext(ctx, "Skipping seqrun without run id",
					"project", project.LUID,
					"sample", sample.Name,
					"process", run.LUID)
				continue
			}
			docs = append(docs, &document.SeqRun{
				Stamps:          stamps,
				ProjectID:       project.LUID,
				SampleID:        sample.Name,
				LibPrepID:       libPrepID,
				SeqRunID:        runID,
				AlignmentStatus: document.AlignmentStatusNotRunning,
				DeliveryStatus:  document.DeliveryStatusNotDelivered,
			})
		}
	}

	return docs, nil
}
