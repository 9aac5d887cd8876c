package projects

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects which analysis runs for a project.
type Mode string

const (
	ModeContradict Mode = "contradict"
	ModeClaim      Mode = "claim"
	ModeHypothesis Mode = "hypothesis"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeContradict, ModeClaim, ModeHypothesis:
		return true
	}
	return false
}

// CorpusSelector scopes which reference material an analysis may use.
type CorpusSelector string

const (
	CorpusUploaded CorpusSelector = "uploaded"
	CorpusExternal CorpusSelector = "external"
)

// Valid reports whether s is a known selector.
func (s CorpusSelector) Valid() bool {
	return s == CorpusUploaded || s == CorpusExternal
}

// DefaultName is given to projects created without a name.
const DefaultName = "Untitled Project"

// Project is a workspace bundling sources, a primary paper and one analysis configuration.
type Project struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	UpdatedAt  int64            `json:"updatedAt"`
	Bookmarked bool             `json:"bookmarked"`
	Files      []ProjectFile    `json:"files"`
	UserPaper  *ProjectFile     `json:"userPaper,omitempty"`
	Domain     string           `json:"domain"`
	Prompt     string           `json:"prompt"`
	Mode       Mode             `json:"mode"`
	Corpus     []CorpusSelector `json:"corpus"`
	Result     *AnalysisResult  `json:"result,omitempty"`
}

// ProjectFile is an uploaded document owned by a single project.
type ProjectFile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Type       string `json:"type"`
	UploadDate int64  `json:"uploadDate"`

	StorageKey       string `json:"storageKey,omitempty"`
	ExtractedTextKey string `json:"extractedTextKey,omitempty"`
}

// NewDefault returns a fresh project with the default configuration.
func NewDefault(id string, now time.Time) Project {
	return Project{
		ID:        id,
		Name:      DefaultName,
		UpdatedAt: now.UnixMilli(),
		Files:     []ProjectFile{},
		Mode:      ModeContradict,
		Corpus:    []CorpusSelector{CorpusUploaded},
	}
}

// HasCorpus reports whether sel is part of the project's corpus scope.
func (p Project) HasCorpus(sel CorpusSelector) bool {
	for _, c := range p.Corpus {
		if c == sel {
			return true
		}
	}
	return false
}

// AllFiles returns the source files followed by the primary paper, if any.
func (p Project) AllFiles() []ProjectFile {
	out := make([]ProjectFile, 0, len(p.Files)+1)
	out = append(out, p.Files...)
	if p.UserPaper != nil {
		out = append(out, *p.UserPaper)
	}
	return out
}

// ValidateConfig checks the mode and corpus fields of a project.
func ValidateConfig(p Project) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, p.Mode)
	}
	return validateCorpus(p.Corpus)
}

func validateCorpus(corpus []CorpusSelector) error {
	if len(corpus) == 0 {
		return fmt.Errorf("%w: corpus must not be empty", ErrInvalidInput)
	}
	for _, c := range corpus {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown corpus selector %q", ErrInvalidInput, c)
		}
	}
	return nil
}

// normalizeCorpus drops duplicates while keeping the first occurrence order.
func normalizeCorpus(corpus []CorpusSelector) []CorpusSelector {
	seen := make(map[CorpusSelector]bool, len(corpus))
	out := make([]CorpusSelector, 0, len(corpus))
	for _, c := range corpus {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
