package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"research-backend/internal/extract"
	"research-backend/internal/llm"
	"research-backend/internal/projects"
	"research-backend/internal/shared/metrics"
	"research-backend/internal/shared/telemetry"
)

// Request is everything one analysis call needs.
type Request struct {
	ProjectID string
	Mode      projects.Mode
	Domain    string
	Prompt    string
	Files     []projects.ProjectFile
	Corpus    []projects.CorpusSelector
	UserPaper *projects.ProjectFile
	// Excerpts are sent to the model as extra documents after Contents.
	Excerpts []llm.Document
}

// RequestFor builds a Request from the project's current configuration.
func RequestFor(p projects.Project) Request {
	return Request{
		ProjectID: p.ID,
		Mode:      p.Mode,
		Domain:    p.Domain,
		Prompt:    p.Prompt,
		Files:     p.Files,
		Corpus:    p.Corpus,
		UserPaper: p.UserPaper,
	}
}

// ExcerptLoader returns the stored extracted text of a file.
type ExcerptLoader interface {
	Excerpt(ctx context.Context, f projects.ProjectFile) (string, error)
}

// Invoker calls the generator once per analysis and decodes the reply.
type Invoker struct {
	Generator llm.Generator
	Excerpts  ExcerptLoader

	group singleflight.Group
}

// NewInvoker constructs an Invoker. excerpts may be nil.
func NewInvoker(gen llm.Generator, excerpts ExcerptLoader) *Invoker {
	return &Invoker{Generator: gen, Excerpts: excerpts}
}

var _ projects.Analyzer = (*Invoker)(nil)

// Analyze runs the project's analysis. Concurrent calls for the same user and
// an identical request share one generator call. The shared call is detached
// from any single caller's cancellation; each caller still returns as soon as
// its own context is done.
func (i *Invoker) Analyze(ctx context.Context, userID string, p projects.Project) (projects.AnalysisResult, error) {
	shared := context.WithoutCancel(ctx)
	ch := i.group.DoChan(flightKey(userID, p), func() (any, error) {
		req := RequestFor(p)
		req.Excerpts = i.loadExcerpts(shared, p)
		return i.Run(shared, req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return projects.AnalysisResult{}, res.Err
		}
		return res.Val.(projects.AnalysisResult), nil
	case <-ctx.Done():
		return projects.AnalysisResult{}, fail(ctx.Err())
	}
}

// flightKey identifies an analysis by everything that shapes its prompt.
func flightKey(userID string, p projects.Project) string {
	parts := []string{userID, p.ID, string(p.Mode), p.Domain, p.Prompt}
	for _, c := range p.Corpus {
		parts = append(parts, "c:"+string(c))
	}
	for _, f := range p.Files {
		parts = append(parts, "f:"+f.ID)
	}
	if p.UserPaper != nil {
		parts = append(parts, "p:"+p.UserPaper.ID)
	}
	return strings.Join(parts, "\x00")
}

// Run performs a single analysis call. Every returned error matches
// ErrAnalysisFailed.
func (i *Invoker) Run(ctx context.Context, req Request) (projects.AnalysisResult, error) {
	mode := string(req.Mode)
	start := time.Now()
	metrics.IncAnalysisStarted(mode)
	telemetry.Info("analysis.start", map[string]any{
		"project_id": req.ProjectID,
		"mode":       mode,
		"files":      len(req.Files),
		"excerpts":   len(req.Excerpts),
	})

	result, err := i.run(ctx, req)
	elapsed := time.Since(start)
	metrics.ObserveAnalysisDuration(mode, elapsed)
	if err != nil {
		reason := failureReason(err)
		metrics.IncAnalysisFailed(mode, reason)
		telemetry.Error("analysis.failed", map[string]any{
			"project_id":  req.ProjectID,
			"mode":        mode,
			"reason":      reason,
			"duration_ms": elapsed.Milliseconds(),
			"error":       err,
		})
		return projects.AnalysisResult{}, fail(err)
	}

	metrics.IncAnalysisCompleted(mode)
	telemetry.Info("analysis.complete", map[string]any{
		"project_id":  req.ProjectID,
		"mode":        mode,
		"duration_ms": elapsed.Milliseconds(),
	})
	return result, nil
}

func (i *Invoker) run(ctx context.Context, req Request) (projects.AnalysisResult, error) {
	if !req.Mode.Valid() {
		return projects.AnalysisResult{}, &DecodeError{Mode: req.Mode, Err: errUnknownMode}
	}
	if i.Generator == nil {
		return projects.AnalysisResult{}, llm.ErrNotImplemented
	}

	text, err := i.Generator.Generate(ctx, llm.GenerateRequest{
		SystemInstruction: systemInstruction(req),
		Contents:          contents(req),
		Schema:            SchemaFor(req.Mode),
		Documents:         req.Excerpts,
	})
	if err != nil {
		return projects.AnalysisResult{}, err
	}
	return decodeResult(req.Mode, text)
}

// loadExcerpts reads extracted text for the paper and sources. Files without
// extracted text or that fail to load are skipped.
func (i *Invoker) loadExcerpts(ctx context.Context, p projects.Project) []llm.Document {
	if i.Excerpts == nil {
		return nil
	}
	files := make([]projects.ProjectFile, 0, len(p.Files)+1)
	if p.UserPaper != nil {
		files = append(files, *p.UserPaper)
	}
	files = append(files, p.Files...)

	var docs []llm.Document
	for _, f := range files {
		if f.ExtractedTextKey == "" {
			continue
		}
		text, err := i.Excerpts.Excerpt(ctx, f)
		if err != nil {
			telemetry.Warn("analysis.excerpt_skipped", map[string]any{
				"project_id": p.ID,
				"file_id":    f.ID,
				"error":      err,
			})
			continue
		}
		if text = extract.Truncate(text, extract.ExcerptLimit); text != "" {
			docs = append(docs, llm.Document{Name: f.Name, Text: text})
		}
	}
	return docs
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, llm.ErrNotImplemented):
		return "not_configured"
	case errors.Is(err, llm.ErrProvider):
		return "provider"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}
