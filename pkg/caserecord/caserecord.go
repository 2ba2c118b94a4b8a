// Package caserecord turns arbitrary key/value case records into the
// fixed shape the categorization prompt expects. Records are caller
// supplied (parsed spreadsheet rows), so the only contract enforced is
// a declared set of required fields; every other key passes through.
package caserecord

import (
	"fmt"
	"sort"

	"triage/internal/models"
)

// NormalizedCase is the two-way partition of a raw record.
// Required and Extra never share a key; their union covers the raw
// record's keys exactly.
type NormalizedCase struct {
	Required map[string]string
	Extra    map[string]any
}

// NormalizationError reports which required fields a record lacked.
type NormalizationError struct {
	MissingFields []string
	Raw           models.CaseRecord
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("record is missing required field(s): %v", e.MissingFields)
}

func (e *NormalizationError) Unwrap() error { return models.ErrValidation }

// Normalize partitions raw into required and passthrough fields.
// A required field counts as present when its key exists and the value
// is not nil; empty strings are accepted. Unknown keys never fail.
func Normalize(raw models.CaseRecord, required []string) (NormalizedCase, error) {
	requiredSet := make(map[string]bool, len(required))
	for _, name := range required {
		requiredSet[name] = true
	}

	nc := NormalizedCase{
		Required: make(map[string]string, len(required)),
		Extra:    make(map[string]any),
	}

	var missing []string
	for _, name := range required {
		v, ok := raw[name]
		if !ok || v == nil {
			missing = append(missing, name)
			continue
		}
		nc.Required[name] = CleanFieldValue(stringify(v))
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return NormalizedCase{}, &NormalizationError{MissingFields: missing, Raw: raw}
	}

	for k, v := range raw {
		if !requiredSet[k] {
			nc.Extra[k] = v
		}
	}
	return nc, nil
}

// Merged rebuilds a single record from both partitions. Required
// fields are written last so the cleaned values win.
func (nc NormalizedCase) Merged() models.CaseRecord {
	merged := make(models.CaseRecord, len(nc.Required)+len(nc.Extra))
	for k, v := range nc.Extra {
		merged[k] = v
	}
	for k, v := range nc.Required {
		merged[k] = v
	}
	return merged
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		// JSON numbers decode as float64; avoid the scientific-notation
		// default for whole case numbers.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
