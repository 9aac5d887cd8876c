package projects

// ClaimStatus is the verdict of a citation check.
type ClaimStatus string

const (
	ClaimCorrect   ClaimStatus = "correct"
	ClaimIncorrect ClaimStatus = "incorrect"
)

// ContradictionResult lists contradictions found against each corpus scope.
type ContradictionResult struct {
	Uploaded []string `json:"uploaded"`
	External []string `json:"external"`
}

// ClaimResult is the outcome of claim and citation verification.
type ClaimResult struct {
	Status  ClaimStatus `json:"status"`
	Issues  []string    `json:"issues"`
	Details string      `json:"details"`
}

// HypothesisResult holds research gaps and proposed directions.
type HypothesisResult struct {
	Gaps       []string `json:"gaps"`
	Hypotheses []string `json:"hypotheses"`
	NovelIdea  string   `json:"novelIdea"`
}

// AnalysisResult is a closed union; exactly one variant is set.
type AnalysisResult struct {
	Contradictions *ContradictionResult `json:"contradictions,omitempty"`
	Claims         *ClaimResult         `json:"claims,omitempty"`
	Hypothesis     *HypothesisResult    `json:"hypothesis,omitempty"`
}

// Mode reports which variant is populated, or "" if the union is not well formed.
func (r AnalysisResult) Mode() Mode {
	if r.Validate() != nil {
		return ""
	}
	switch {
	case r.Contradictions != nil:
		return ModeContradict
	case r.Claims != nil:
		return ModeClaim
	default:
		return ModeHypothesis
	}
}

// Validate returns ErrInvalidResult unless exactly one variant is set.
func (r AnalysisResult) Validate() error {
	n := 0
	if r.Contradictions != nil {
		n++
	}
	if r.Claims != nil {
		n++
	}
	if r.Hypothesis != nil {
		n++
	}
	if n != 1 {
		return ErrInvalidResult
	}
	return nil
}
