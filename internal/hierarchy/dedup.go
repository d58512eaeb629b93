package hierarchy

import (
	"slices"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/document"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
)

// Candidate is a library preparation found for a sample, together with the
// set of samples whose material went into it
type Candidate struct {
	Process lims.Process
	Origins document.IDSet
}

// ResolveDuplicates drops library preparations that are structurally
// equivalent to a more recent one. Two candidates are equivalent when their
// origin sets are equal. Candidates are ordered most recent first, a missing
// run date counting as most recent, and only the first of each equivalence
// class survives. The input slice is not modified.
func ResolveDuplicates(candidates []Candidate) []Candidate {
	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b Candidate) int {
		return compareRunDateDesc(a.Process, b.Process)
	})

	duplicate := make([]bool, len(ordered))
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[i].Origins.Equal(ordered[j].Origins) {
				duplicate[j] = true
			}
		}
	}

	kept := ordered[:0]
	for i, c := range ordered {
		if !duplicate[i] {
			kept = append(kept, c)
		}
	}
	return kept
}

func compareRunDateDesc(a, b lims.Process) int {
	switch {
	case a.DateRun == nil && b.DateRun == nil:
		return 0
	case a.DateRun == nil:
		return -1
	case b.DateRun == nil:
		return 1
	default:
		return b.DateRun.Compare(*a.DateRun)
	}
}

// LibPrepID returns the letter identifier of the i-th (zero based) library
// preparation of a sample: A to Z, then AA, AB and so on.
func LibPrepID(i int) string {
	if i < 0 {
		return ""
	}
	var letters []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		letters = append(letters, byte('A'+(n-1)%26))
	}
	slices.Reverse(letters)
	return string(letters)
}
