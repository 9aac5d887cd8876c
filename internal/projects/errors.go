package projects

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidResult marks an AnalysisResult with zero or several variants.
	ErrInvalidResult = errors.New("analysis result must hold exactly one variant")
)

// ErrAnalysisFailed marks any failure of the external analysis call.
var ErrAnalysisFailed = errors.New("analysis failed")

// AnalysisFailedMessage is the only failure text shown to clients.
const AnalysisFailedMessage = "Analysis failed. Please check your network and configuration."
