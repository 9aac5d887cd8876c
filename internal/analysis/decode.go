package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"research-backend/internal/projects"
)

var (
	errMissing     = errors.New("required field missing")
	errTrailing    = errors.New("unexpected data after JSON object")
	errUnknownMode = errors.New("unknown mode")
)

// decodeResult parses model output into the variant for mode. Unknown fields,
// missing required fields and a status outside correct|incorrect are rejected.
func decodeResult(mode projects.Mode, text string) (projects.AnalysisResult, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		raw = "{}"
	}
	schema := SchemaFor(mode)
	if schema == nil {
		return projects.AnalysisResult{}, &DecodeError{Mode: mode, Err: errUnknownMode}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return projects.AnalysisResult{}, &DecodeError{Mode: mode, Err: err}
	}
	for _, name := range schema.Required {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return projects.AnalysisResult{}, &DecodeError{Mode: mode, Field: name, Err: errMissing}
		}
	}

	switch mode {
	case projects.ModeContradict:
		var out projects.ContradictionResult
		if err := strictUnmarshal(raw, &out); err != nil {
			return projects.AnalysisResult{}, &DecodeError{Mode: mode, Err: err}
		}
		return projects.AnalysisResult{Contradictions: &out}, nil
	case projects.ModeClaim:
		var out projects.ClaimResult
		if err := strictUnmarshal(raw, &out); err != nil {
			return projects.AnalysisResult{}, &DecodeError{Mode: mode, Err: err}
		}
		if out.Status != projects.ClaimCorrect && out.Status != projects.ClaimIncorrect {
			return projects.AnalysisResult{}, &DecodeError{
				Mode:  mode,
				Field: "status",
				Err:   fmt.Errorf("unexpected value %q", out.Status),
			}
		}
		return projects.AnalysisResult{Claims: &out}, nil
	default:
		var out projects.HypothesisResult
		if err := strictUnmarshal(raw, &out); err != nil {
			return projects.AnalysisResult{}, &DecodeError{Mode: mode, Err: err}
		}
		return projects.AnalysisResult{Hypothesis: &out}, nil
	}
}

func strictUnmarshal(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailing
	}
	return nil
}
