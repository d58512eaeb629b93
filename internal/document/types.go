package document

// Status values written by the sync
const (
	ProjectStatusOpen = "OPEN"

	SampleStatusFresh   = "FRESH"
	SampleStatusStale   = "STALE"
	SampleStatusAborted = "ABORTED"

	AnalysisStatusToAnalyze = "TO_ANALYZE"

	LibPrepQCPassed = "PASSED"

	AlignmentStatusNotRunning  = "NOT_RUNNING"
	DeliveryStatusNotDelivered = "NOT_DELIVERED"

	DeliveryTokenNotUnderDelivery = "not_under_delivery"
)

// Project is the root tracking document
type Project struct {
	Stamps
	ProjectID            string  `json:"projectid"`
	Name                 string  `json:"name"`
	Status               string  `json:"status"`
	SequencingFacility   string  `json:"sequencing_facility"`
	Pipeline             string  `json:"pipeline"`
	DeliveryToken        string  `json:"delivery_token"`
	BestPracticeAnalysis *string `json:"best_practice_analysis,omitempty"`
	Reference            string  `json:"reference,omitempty"`
	UppnexID             string  `json:"uppnex_id,omitempty"`
}

// Doctype implements Document
func (*Project) Doctype() Doctype { return DoctypeProject }

// Keys implements Document
func (p *Project) Keys() []string { return []string{p.ProjectID} }

// Fields implements Document
func (p *Project) Fields() map[string]any { return fieldsOf(DoctypeProject, p) }

// OverrideKeys implements Document
func (*Project) OverrideKeys() []string { return nil }

// Sample is a sample of a project
type Sample struct {
	Stamps
	ProjectID              string  `json:"projectid"`
	SampleID               string  `json:"sampleid"`
	Status                 string  `json:"status"`
	AnalysisStatus         string  `json:"analysis_status"`
	DuplicationPC          float64 `json:"duplication_pc"`
	GenotypeConcordance    float64 `json:"genotype_concordance"`
	TotalAutosomalCoverage float64 `json:"total_autosomal_coverage"`
	Pair                   *string `json:"Pair,omitempty"`
	Type                   *string `json:"Type,omitempty"`
}

// Doctype implements Document
func (*Sample) Doctype() Doctype { return DoctypeSample }

// Keys implements Document
func (s *Sample) Keys() []string { return []string{s.ProjectID, s.SampleID} }

// Fields implements Document
func (s *Sample) Fields() map[string]any { return fieldsOf(DoctypeSample, s) }

// OverrideKeys implements Document. Status transitions computed locally must
// reach Charon even when the stored status differs.
func (*Sample) OverrideKeys() []string { return []string{"status"} }

// LibPrep is a library preparation of a sample
type LibPrep struct {
	Stamps
	ProjectID string `json:"projectid"`
	SampleID  string `json:"sampleid"`
	LibPrepID string `json:"libprepid"`
	QC        string `json:"qc"`
}

// Doctype implements Document
func (*LibPrep) Doctype() Doctype { return DoctypeLibPrep }

// Keys implements Document
func (l *LibPrep) Keys() []string { return []string{l.ProjectID, l.SampleID, l.LibPrepID} }

// Fields implements Document
func (l *LibPrep) Fields() map[string]any { return fieldsOf(DoctypeLibPrep, l) }

// OverrideKeys implements Document
func (*LibPrep) OverrideKeys() []string { return nil }

// SeqRun is a sequencing run of a library preparation
type SeqRun struct {
	Stamps
	ProjectID             string  `json:"projectid"`
	SampleID              string  `json:"sampleid"`
	LibPrepID             string  `json:"libprepid"`
	SeqRunID              string  `json:"seqrunid"`
	AlignmentStatus       string  `json:"alignment_status"`
	DeliveryStatus        string  `json:"delivery_status"`
	MeanAutosomalCoverage float64 `json:"mean_autosomal_coverage"`
	TotalReads            int64   `json:"total_reads"`
}

// Doctype implements Document
func (*SeqRun) Doctype() Doctype { return DoctypeSeqRun }

// Keys implements Document
func (r *SeqRun) Keys() []string {
	return []string{r.ProjectID, r.SampleID, r.LibPrepID, r.SeqRunID}
}

// Fields implements Document
func (r *SeqRun) Fields() map[string]any { return fieldsOf(DoctypeSeqRun, r) }

// OverrideKeys implements Document
func (*SeqRun) OverrideKeys() []string { return nil }
