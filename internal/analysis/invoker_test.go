package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-backend/internal/llm"
	"research-backend/internal/projects"
)

type fakeGenerator struct {
	mu       sync.Mutex
	text     string
	bySchema map[*llm.Schema]string
	err      error
	requests []llm.GenerateRequest
	entered  chan struct{}
	release  chan struct{}
	calls    atomic.Int32
}

func (g *fakeGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if text, ok := g.bySchema[req.Schema]; ok {
		return text, g.err
	}
	return g.text, g.err
}

func (g *fakeGenerator) last() llm.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type fakeExcerpts map[string]string

func (f fakeExcerpts) Excerpt(ctx context.Context, file projects.ProjectFile) (string, error) {
	text, ok := f[file.ExtractedTextKey]
	if !ok {
		return "", errors.New("object missing")
	}
	return text, nil
}

func sampleRequest(mode projects.Mode) Request {
	return Request{
		ProjectID: "p1",
		Mode:      mode,
		Domain:    "Astrophysics",
		Prompt:    "focus on dark matter",
		Files:     []projects.ProjectFile{{ID: "s1", Name: "a.pdf"}, {ID: "s2", Name: "b.pdf"}},
		Corpus:    []projects.CorpusSelector{projects.CorpusUploaded, projects.CorpusExternal},
		UserPaper: &projects.ProjectFile{ID: "u1", Name: "mine.pdf"},
	}
}

func TestRunContradictBuildsPromptAndDecodes(t *testing.T) {
	gen := &fakeGenerator{text: `{"uploaded":["x contradicts y"],"external":["z"]}`}
	inv := NewInvoker(gen, nil)

	res, err := inv.Run(context.Background(), sampleRequest(projects.ModeContradict))
	require.NoError(t, err)
	require.NotNil(t, res.Contradictions)
	assert.Equal(t, []string{"x contradicts y"}, res.Contradictions.Uploaded)
	assert.Nil(t, res.Claims)
	assert.Nil(t, res.Hypothesis)

	req := gen.last()
	assert.Equal(t, `Analysis of research in domain "Astrophysics". Primary paper: "mine.pdf". Corpus: a.pdf, b.pdf. Additional user prompt: focus on dark matter.`, req.Contents)
	assert.Equal(t, "You are a critical research analyst.\n"+
		"    Primary Paper to Analyze: mine.pdf.\n"+
		"    Domain: Astrophysics.\n"+
		"    Context: focus on dark matter.\n"+
		"    Reference Corpus: General sources provided External research knowledge.\n"+
		"    Identify internal contradictions within \"mine.pdf\" and external contradictions against the reference sources or established knowledge.",
		req.SystemInstruction)
	assert.Same(t, contradictionSchema, req.Schema)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestRunDefaultsForMissingPaperAndPrompt(t *testing.T) {
	gen := &fakeGenerator{text: `{"status":"correct","issues":[],"details":"fine"}`}
	inv := NewInvoker(gen, nil)
	req := sampleRequest(projects.ModeClaim)
	req.UserPaper = nil
	req.Prompt = ""

	_, err := inv.Run(context.Background(), req)
	require.NoError(t, err)

	sent := gen.last()
	assert.Equal(t, `Analysis of research in domain "Astrophysics". Primary paper: "N/A". Corpus: a.pdf, b.pdf. Additional user prompt: None.`, sent.Contents)
	assert.Contains(t, sent.SystemInstruction, "Paper to verify: N/A.")
	assert.Contains(t, sent.SystemInstruction, "Sources to check against: a.pdf, b.pdf.")
}

func TestRunHypothesisReturnsOnlyItsVariant(t *testing.T) {
	gen := &fakeGenerator{text: `{"gaps":["g"],"hypotheses":["h"],"novelIdea":"n"}`}
	inv := NewInvoker(gen, nil)

	res, err := inv.Run(context.Background(), sampleRequest(projects.ModeHypothesis))
	require.NoError(t, err)
	assert.Equal(t, projects.ModeHypothesis, res.Mode())
	assert.Nil(t, res.Contradictions)
	assert.Nil(t, res.Claims)
	assert.True(t, strings.HasPrefix(gen.last().SystemInstruction, "You are a research visionary for Astrophysics.\n"))
}

func TestRunWrapsFailures(t *testing.T) {
	providerErr := &llm.ProviderError{Provider: "gemini", StatusCode: 503, Err: errors.New("unavailable")}

	tests := []struct {
		name  string
		gen   llm.Generator
		extra error
	}{
		{name: "provider", gen: &fakeGenerator{err: providerErr}, extra: llm.ErrProvider},
		{name: "empty output", gen: &fakeGenerator{text: ""}, extra: ErrDecode},
		{name: "unknown field", gen: &fakeGenerator{text: `{"uploaded":[],"external":[],"notes":"x"}`}, extra: ErrDecode},
		{name: "placeholder", gen: llm.PlaceholderGenerator{}, extra: llm.ErrNotImplemented},
		{name: "no generator", gen: nil, extra: llm.ErrNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInvoker(tt.gen, nil)
			_, err := inv.Run(context.Background(), sampleRequest(projects.ModeContradict))
			require.ErrorIs(t, err, ErrAnalysisFailed)
			assert.ErrorIs(t, err, tt.extra)
		})
	}
}

func TestRunCallsGeneratorOnce(t *testing.T) {
	gen := &fakeGenerator{text: `not json`}
	inv := NewInvoker(gen, nil)

	_, err := inv.Run(context.Background(), sampleRequest(projects.ModeClaim))
	require.Error(t, err)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestAnalyzeSendsExcerpts(t *testing.T) {
	gen := &fakeGenerator{text: `{"uploaded":[],"external":[]}`}
	loader := fakeExcerpts{
		"paper.extracted.txt": "paper body",
		"a.extracted.txt":     strings.Repeat("x", 9000),
	}
	inv := NewInvoker(gen, loader)

	p := projects.NewDefault("p1", time.Now())
	p.Domain = "Biology"
	p.Files = []projects.ProjectFile{
		{ID: "s1", Name: "a.pdf", ExtractedTextKey: "a.extracted.txt"},
		{ID: "s2", Name: "b.pdf", ExtractedTextKey: "missing.extracted.txt"},
		{ID: "s3", Name: "c.bin"},
	}
	p.UserPaper = &projects.ProjectFile{ID: "u1", Name: "paper.pdf", ExtractedTextKey: "paper.extracted.txt"}

	_, err := inv.Analyze(context.Background(), "user-1", p)
	require.NoError(t, err)

	docs := gen.last().Documents
	require.Len(t, docs, 2)
	assert.Equal(t, llm.Document{Name: "paper.pdf", Text: "paper body"}, docs[0])
	assert.Equal(t, "a.pdf", docs[1].Name)
	assert.Len(t, []rune(docs[1].Text), 8000)
	assert.Contains(t, gen.last().Contents, "Corpus: a.pdf, b.pdf, c.bin.")
}

func TestAnalyzeSharesInFlightCall(t *testing.T) {
	gen := &fakeGenerator{
		text:    `{"gaps":[],"hypotheses":[],"novelIdea":"n"}`,
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	inv := NewInvoker(gen, nil)
	p := projects.NewDefault("p1", time.Now())
	p.Mode = projects.ModeHypothesis

	var wg sync.WaitGroup
	results := make([]projects.AnalysisResult, 2)
	errs := make([]error, 2)
	run := func(i int) {
		defer wg.Done()
		results[i], errs[i] = inv.Analyze(context.Background(), "user-1", p)
	}

	wg.Add(1)
	go run(0)
	<-gen.entered

	wg.Add(1)
	go run(1)
	// Give the second caller time to join the pending call.
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, int32(1), gen.calls.Load())

	other := p
	other.ID = "p2"
	_, err := inv.Analyze(context.Background(), "user-1", other)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestAnalyzeDoesNotShareAcrossModes(t *testing.T) {
	gen := &fakeGenerator{
		bySchema: map[*llm.Schema]string{
			contradictionSchema: `{"uploaded":["u"],"external":[]}`,
			claimSchema:         `{"status":"incorrect","issues":["i"],"details":"d"}`,
		},
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	inv := NewInvoker(gen, nil)
	contradict := projects.NewDefault("p1", time.Now())
	claim := contradict
	claim.Mode = projects.ModeClaim

	var wg sync.WaitGroup
	var contradictRes, claimRes projects.AnalysisResult
	var contradictErr, claimErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		contradictRes, contradictErr = inv.Analyze(context.Background(), "user-1", contradict)
	}()
	<-gen.entered
	go func() {
		defer wg.Done()
		claimRes, claimErr = inv.Analyze(context.Background(), "user-1", claim)
	}()
	<-gen.entered
	close(gen.release)
	wg.Wait()

	require.NoError(t, contradictErr)
	require.NoError(t, claimErr)
	assert.Equal(t, projects.ModeContradict, contradictRes.Mode())
	assert.Equal(t, projects.ModeClaim, claimRes.Mode())
	require.NotNil(t, claimRes.Claims)
	assert.Equal(t, projects.ClaimIncorrect, claimRes.Claims.Status)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestAnalyzeSharedCallSurvivesFirstCallerCancel(t *testing.T) {
	gen := &fakeGenerator{
		text:    `{"gaps":[],"hypotheses":["h"],"novelIdea":"n"}`,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	inv := NewInvoker(gen, nil)
	p := projects.NewDefault("p1", time.Now())
	p.Mode = projects.ModeHypothesis

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := inv.Analyze(firstCtx, "user-1", p)
		firstErr <- err
	}()
	<-gen.entered

	secondDone := make(chan struct{})
	var second projects.AnalysisResult
	var secondErr error
	go func() {
		defer close(secondDone)
		second, secondErr = inv.Analyze(context.Background(), "user-1", p)
	}()
	// Give the second caller time to join the pending call.
	time.Sleep(50 * time.Millisecond)

	cancel()
	err := <-firstErr
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.ErrorIs(t, err, context.Canceled)

	close(gen.release)
	<-secondDone
	require.NoError(t, secondErr)
	require.NotNil(t, second.Hypothesis)
	assert.Equal(t, []string{"h"}, second.Hypothesis.Hypotheses)
	assert.Equal(t, int32(1), gen.calls.Load())
}
