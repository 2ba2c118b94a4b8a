package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"triage/internal/models"
)

// Defaults applied when the model's JSON answer omits a key. The
// answer is best-effort external input; a missing key never fails the
// whole record.
const (
	DefaultCategory   = "Uncategorized"
	DefaultResolution = "Unresolved"
	DefaultCertainty  = "unknown"
	DefaultReasoning  = "No reasoning provided."
)

// MalformedOutputError means no JSON object could be extracted from
// the raw model output.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	snippet := e.Raw
	// Trim on a rune boundary so a multibyte character at the cut
	// never turns into mojibake in logs.
	if runes := []rune(snippet); len(runes) > 120 {
		snippet = string(runes[:120]) + "..."
	}
	return fmt.Sprintf("model output is not parseable as JSON: %v (output: %q)", e.Err, snippet)
}

func (e *MalformedOutputError) Unwrap() error { return models.ErrMalformedOutput }

// ParsePrediction extracts the JSON object from raw model output and
// fills the four prediction keys, defaulting any that are absent.
// Values are NOT checked against the active taxonomy; exact-match is a
// prompt-level instruction to the model, not a structural guarantee.
func ParsePrediction(raw string) (models.Prediction, error) {
	objText, err := extractJSONObject(raw)
	if err != nil {
		return models.Prediction{}, &MalformedOutputError{Raw: raw, Err: err}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(objText), &fields); err != nil {
		return models.Prediction{}, &MalformedOutputError{Raw: raw, Err: err}
	}

	return models.Prediction{
		Category:   stringField(fields, "category", DefaultCategory),
		Resolution: stringField(fields, "resolution", DefaultResolution),
		Certainty:  stringField(fields, "certainty", DefaultCertainty),
		Reasoning:  stringField(fields, "reasoning", DefaultReasoning),
	}, nil
}

// extractJSONObject tolerates surrounding prose and markdown code
// fences and returns the outermost {...} span.
func extractJSONObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if fenced := fencedBlock(s); fenced != "" {
		s = fenced
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found")
	}
	return s[start : end+1], nil
}

// fencedBlock returns the content of the first ``` block, or "".
func fencedBlock(s string) string {
	open := strings.Index(s, "```")
	if open == -1 {
		return ""
	}
	rest := s[open+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "json" || firstLine == "" {
			rest = rest[nl+1:]
		} else if strings.HasPrefix(firstLine, "json") {
			rest = strings.TrimPrefix(rest, "json")
		}
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func stringField(fields map[string]any, key, fallback string) string {
	v, ok := fields[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}
