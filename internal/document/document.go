// Package document defines the Charon tracking documents derived from the LIMS.
//
// Each level of the tracking hierarchy (project, sample, libprep, seqrun) is a
// fixed-field record. All variants implement Document, which exposes the key
// chain used to address the document remotely and the JSON-shaped fields used
// when reconciling against what Charon already stores.
package document

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Doctype identifies which level of the hierarchy a document represents
type Doctype string

const (
	// DoctypeProject is the root of the hierarchy
	DoctypeProject Doctype = "project"
	// DoctypeSample is a sample belonging to a project
	DoctypeSample Doctype = "sample"
	// DoctypeLibPrep is a library preparation of a sample
	DoctypeLibPrep Doctype = "libprep"
	// DoctypeSeqRun is a sequencing run of a library preparation
	DoctypeSeqRun Doctype = "seqrun"
)

// DoctypeKey is the field Charon uses as the doctype discriminator
const DoctypeKey = "charon_doctype"

// TimestampLayout is ISO-8601 in UTC with millisecond precision
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var doctypeOrder = []Doctype{DoctypeProject, DoctypeSample, DoctypeLibPrep, DoctypeSeqRun}

// Depth returns the position of the doctype in the hierarchy, parents first.
// Unknown doctypes sort after every known one.
func (d Doctype) Depth() int {
	if i := slices.Index(doctypeOrder, d); i >= 0 {
		return i
	}
	return len(doctypeOrder)
}

// Document is a single tracking record addressed by its ancestor key chain
type Document interface {
	// Doctype returns the discriminator of the variant
	Doctype() Doctype

	// Keys returns the full ancestor key chain, ending with the document's own key
	Keys() []string

	// Fields returns the document as a JSON-shaped map, including the doctype
	Fields() map[string]any

	// OverrideKeys lists the top-level keys whose local value wins over a
	// conflicting remote value during reconciliation
	OverrideKeys() []string
}

// ID renders the key chain of a document for logs, e.g. "P1234/P1234_101/A"
func ID(d Document) string {
	return strings.Join(d.Keys(), "/")
}

// Timestamp formats t the way Charon stores created/modified values
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Stamps holds the creation and modification timestamps shared by all documents
type Stamps struct {
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// NewStamps returns created and modified both set to t
func NewStamps(t time.Time) Stamps {
	ts := Timestamp(t)
	return Stamps{Created: ts, Modified: ts}
}

// Normalize round-trips v through JSON so that it can be compared with a
// document decoded from a Charon response (numbers become float64, structs
// become maps).
func Normalize(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return out, nil
}

// fieldsOf normalizes a variant and stamps its doctype. Variants are plain
// structs of strings and numbers, so marshaling cannot fail.
func fieldsOf(doctype Doctype, v any) map[string]any {
	fields, err := Normalize(v)
	if err != nil {
		panic(fmt.Sprintf("document %s is not JSON-serializable: %v", doctype, err))
	}
	fields[DoctypeKey] = string(doctype)
	return fields
}

// SortByDepth orders documents parents first (project, sample, libprep,
// seqrun), keeping the relative order of documents at the same depth.
func SortByDepth(docs []Document) {
	slices.SortStableFunc(docs, func(a, b Document) int {
		return a.Doctype().Depth() - b.Doctype().Depth()
	})
}

// IDSet is a set of identifiers
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Equal reports whether both sets hold exactly the same identifiers
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the identifiers in lexical order
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
