// Package reconcile merges locally derived documents into the documents
// Charon already stores.
//
// The remote document is the system of record for every field the local
// build does not explicitly own:
//
//   - keys missing remotely take the local value
//   - nested maps present on both sides are merged recursively
//   - conflicting scalars keep the remote value, unless the key is one of the
//     document's override keys (the sample status), where the local value wins
//   - keys present only remotely are never touched
package reconcile

import (
	"reflect"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/document"
)

// Merge returns remote with local reconciled into it. Neither argument is
// modified.
func Merge(remote map[string]any, local document.Document) map[string]any {
	overrides := make(map[string]bool)
	for _, key := range local.OverrideKeys() {
		overrides[key] = true
	}
	return mergeFields(remote, local.Fields(), overrides)
}

// Equal reports whether two JSON-shaped documents hold the same content.
// A merge result equal to the remote document needs no write.
func Equal(a, b map[string]any) bool {
	return reflect.DeepEqual(a, b)
}

func mergeFields(remote, local map[string]any, overrides map[string]bool) map[string]any {
	merged := copyMap(remote)
	if merged == nil {
		merged = make(map[string]any, len(local))
	}

	for key, localValue := range local {
		remoteValue, exists := merged[key]
		if !exists {
			merged[key] = copyValue(localValue)
			continue
		}

		remoteMap, remoteIsMap := remoteValue.(map[string]any)
		localMap, localIsMap := localValue.(map[string]any)
		if remoteIsMap && localIsMap {
			// override keys only apply at the top level of a document
			merged[key] = mergeFields(remoteMap, localMap, nil)
			continue
		}

		if reflect.DeepEqual(remoteValue, localValue) {
			continue
		}

		if overrides[key] {
			merged[key] = copyValue(localValue)
		}
	}

	return merged
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}
