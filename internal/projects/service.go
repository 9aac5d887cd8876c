package projects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"research-backend/internal/shared/metrics"
	"research-backend/internal/shared/telemetry"
)

// FileStore persists uploaded documents.
type FileStore interface {
	Upload(ctx context.Context, userID, fileName string, r io.Reader) (ProjectFile, error)
	Remove(ctx context.Context, f ProjectFile) error
}

// Analyzer runs the external analysis for a project that passed the gate.
type Analyzer interface {
	Analyze(ctx context.Context, userID string, p Project) (AnalysisResult, error)
}

// Upload is one incoming file.
type Upload struct {
	Name string
	Body io.Reader
}

// Patch is a partial edit; nil fields are left unchanged.
type Patch struct {
	Name   *string
	Domain *string
	Prompt *string
	Mode   *Mode
	Corpus *[]CorpusSelector
}

// Service contains the project workflows built on Store.
type Service struct {
	Store    *Store
	Files    FileStore
	Analyzer Analyzer
	NewID    func() string
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// List returns the user's projects, newest first.
func (s *Service) List(ctx context.Context, userID string, f Filter) ([]Project, error) {
	return s.Store.List(ctx, userID, f)
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, userID, id string) (Project, error) {
	return s.Store.Get(ctx, userID, id)
}

// CreateDefault stores a new project with default settings.
func (s *Service) CreateDefault(ctx context.Context, userID string) (Project, error) {
	p := NewDefault(s.newID(), time.Now())
	list, err := s.Store.Save(ctx, userID, p)
	if err != nil {
		return Project{}, err
	}
	return list[indexOf(list, p.ID)], nil
}

// Save writes a full project. Server-side storage keys are carried over from
// the stored copy and never taken from the caller.
func (s *Service) Save(ctx context.Context, userID string, p Project) ([]Project, error) {
	p.Corpus = normalizeCorpus(p.Corpus)
	if err := ValidateConfig(p); err != nil {
		return nil, err
	}
	if p.Result != nil {
		if err := p.Result.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = DefaultName
	}

	var dropped []ProjectFile
	list, err := s.Store.Replace(ctx, userID, p, func(prev *Project, next *Project) {
		next.Files, next.UserPaper = reconcileFiles(prev, next.Files, next.UserPaper)
		dropped = droppedFiles(prev, *next)
	})
	if err != nil {
		return nil, err
	}
	s.removeFiles(ctx, p.ID, dropped)
	return list, nil
}

// Update applies a partial edit.
func (s *Service) Update(ctx context.Context, userID, id string, patch Patch) (Project, error) {
	return s.Store.Mutate(ctx, userID, id, func(p *Project) error {
		if patch.Mode != nil {
			if !patch.Mode.Valid() {
				return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, *patch.Mode)
			}
			p.Mode = *patch.Mode
		}
		if patch.Corpus != nil {
			corpus := normalizeCorpus(*patch.Corpus)
			if err := validateCorpus(corpus); err != nil {
				return err
			}
			p.Corpus = corpus
		}
		if patch.Name != nil {
			if name := strings.TrimSpace(*patch.Name); name != "" {
				p.Name = name
			}
		}
		if patch.Domain != nil {
			p.Domain = *patch.Domain
		}
		if patch.Prompt != nil {
			p.Prompt = *patch.Prompt
		}
		return nil
	})
}

// Rename sets a trimmed name; blank names are ignored.
func (s *Service) Rename(ctx context.Context, userID, id, name string) ([]Project, error) {
	return s.Store.Rename(ctx, userID, id, name)
}

// ToggleBookmark flips one project's bookmark.
func (s *Service) ToggleBookmark(ctx context.Context, userID, id string) ([]Project, error) {
	return s.Store.ToggleBookmark(ctx, userID, id)
}

// BulkToggleBookmark flips or force-sets bookmarks.
func (s *Service) BulkToggleBookmark(ctx context.Context, userID string, ids []string, forced *bool) ([]Project, error) {
	return s.Store.BulkToggleBookmark(ctx, userID, ids, forced)
}

// Delete removes a project and its stored files.
func (s *Service) Delete(ctx context.Context, userID, id string) ([]Project, error) {
	return s.BulkDelete(ctx, userID, []string{id})
}

// BulkDelete removes projects and their stored files.
func (s *Service) BulkDelete(ctx context.Context, userID string, ids []string) ([]Project, error) {
	before, err := s.Store.List(ctx, userID, Filter{})
	if err != nil {
		return nil, err
	}
	list, err := s.Store.BulkDelete(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	drop := idSet(ids)
	for _, p := range before {
		if drop[p.ID] {
			s.removeFiles(ctx, p.ID, p.AllFiles())
		}
	}
	return list, nil
}

// AddFiles uploads sources and appends them to the project.
func (s *Service) AddFiles(ctx context.Context, userID, id string, uploads []Upload) (Project, error) {
	if len(uploads) == 0 {
		return Project{}, fmt.Errorf("%w: at least one file is required", ErrInvalidInput)
	}
	if _, err := s.Store.Get(ctx, userID, id); err != nil {
		return Project{}, err
	}

	added := make([]ProjectFile, 0, len(uploads))
	for _, u := range uploads {
		f, err := s.upload(ctx, userID, u)
		if err != nil {
			s.removeFiles(ctx, id, added)
			return Project{}, err
		}
		added = append(added, f)
	}

	p, err := s.Store.Mutate(ctx, userID, id, func(p *Project) error {
		p.Files = append(p.Files, added...)
		return nil
	})
	if err != nil {
		s.removeFiles(ctx, id, added)
		return Project{}, err
	}
	return p, nil
}

// RemoveFiles drops the selected source files.
func (s *Service) RemoveFiles(ctx context.Context, userID, id string, fileIDs []string) (Project, error) {
	drop := idSet(fileIDs)
	var removed []ProjectFile
	p, err := s.Store.Mutate(ctx, userID, id, func(p *Project) error {
		kept := make([]ProjectFile, 0, len(p.Files))
		for _, f := range p.Files {
			if drop[f.ID] {
				removed = append(removed, f)
				continue
			}
			kept = append(kept, f)
		}
		p.Files = kept
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	s.removeFiles(ctx, id, removed)
	return p, nil
}

// ClearFiles drops every source file.
func (s *Service) ClearFiles(ctx context.Context, userID, id string) (Project, error) {
	var removed []ProjectFile
	p, err := s.Store.Mutate(ctx, userID, id, func(p *Project) error {
		removed = p.Files
		p.Files = []ProjectFile{}
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	s.removeFiles(ctx, id, removed)
	return p, nil
}

// SetUserPaper uploads the primary paper, replacing any previous one.
func (s *Service) SetUserPaper(ctx context.Context, userID, id string, u Upload) (Project, error) {
	if _, err := s.Store.Get(ctx, userID, id); err != nil {
		return Project{}, err
	}
	f, err := s.upload(ctx, userID, u)
	if err != nil {
		return Project{}, err
	}

	var previous *ProjectFile
	p, err := s.Store.Mutate(ctx, userID, id, func(p *Project) error {
		previous = p.UserPaper
		p.UserPaper = &f
		return nil
	})
	if err != nil {
		s.removeFiles(ctx, id, []ProjectFile{f})
		return Project{}, err
	}
	if previous != nil {
		s.removeFiles(ctx, id, []ProjectFile{*previous})
	}
	return p, nil
}

// ClearUserPaper removes the primary paper.
func (s *Service) ClearUserPaper(ctx context.Context, userID, id string) (Project, error) {
	var previous *ProjectFile
	p, err := s.Store.Mutate(ctx, userID, id, func(p *Project) error {
		previous = p.UserPaper
		p.UserPaper = nil
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	if previous != nil {
		s.removeFiles(ctx, id, []ProjectFile{*previous})
	}
	return p, nil
}

// Gate reports whether the project may be analyzed right now.
func (s *Service) Gate(ctx context.Context, userID, id string) (*GateFailure, error) {
	p, err := s.Store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return Validate(p), nil
}

// Analyze runs the gate, invokes the analyzer and stores the result. A gate
// failure is returned as *GateFailure.
func (s *Service) Analyze(ctx context.Context, userID, id string) (Project, error) {
	p, err := s.Store.Get(ctx, userID, id)
	if err != nil {
		return Project{}, err
	}
	if failure := Validate(p); failure != nil {
		metrics.IncGateDenied(string(failure.Code))
		return Project{}, failure
	}
	if s.Analyzer == nil {
		return Project{}, errors.New("analyzer not configured")
	}

	result, err := s.Analyzer.Analyze(ctx, userID, p)
	if err != nil {
		return Project{}, err
	}
	if err := result.Validate(); err != nil {
		return Project{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if got := result.Mode(); got != p.Mode {
		return Project{}, fmt.Errorf("%w: %s result for %s project", ErrAnalysisFailed, got, p.Mode)
	}

	return s.Store.Mutate(ctx, userID, id, func(p *Project) error {
		p.Result = &result
		return nil
	})
}

func (s *Service) upload(ctx context.Context, userID string, u Upload) (ProjectFile, error) {
	if strings.TrimSpace(u.Name) == "" || u.Body == nil {
		return ProjectFile{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if s.Files == nil {
		return ProjectFile{}, errors.New("file storage not configured")
	}
	return s.Files.Upload(ctx, userID, u.Name, u.Body)
}

// removeFiles deletes stored objects on a best-effort basis.
func (s *Service) removeFiles(ctx context.Context, projectID string, files []ProjectFile) {
	if s.Files == nil {
		return
	}
	for _, f := range files {
		if err := s.Files.Remove(ctx, f); err != nil {
			telemetry.Warn("projects.file_cleanup_failed", map[string]any{
				"project_id": projectID,
				"file_id":    f.ID,
				"error":      err,
			})
		}
	}
}

// reconcileFiles keeps storage keys only for files the stored project already owns.
// droppedFiles lists stored files that next no longer references.
func droppedFiles(prev *Project, next Project) []ProjectFile {
	if prev == nil {
		return nil
	}
	keep := map[string]bool{}
	for _, f := range next.AllFiles() {
		keep[f.ID] = true
	}
	var out []ProjectFile
	for _, f := range prev.AllFiles() {
		if !keep[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

func reconcileFiles(existing *Project, files []ProjectFile, paper *ProjectFile) ([]ProjectFile, *ProjectFile) {
	known := map[string]ProjectFile{}
	if existing != nil {
		for _, f := range existing.AllFiles() {
			known[f.ID] = f
		}
	}
	restore := func(f ProjectFile) ProjectFile {
		if prev, ok := known[f.ID]; ok {
			f.StorageKey = prev.StorageKey
			f.ExtractedTextKey = prev.ExtractedTextKey
		} else {
			f.StorageKey = ""
			f.ExtractedTextKey = ""
		}
		return f
	}

	out := make([]ProjectFile, 0, len(files))
	for _, f := range files {
		out = append(out, restore(f))
	}
	if paper != nil {
		p := restore(*paper)
		paper = &p
	}
	return out, paper
}
