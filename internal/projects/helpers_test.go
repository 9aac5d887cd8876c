package projects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"research-backend/internal/shared/storage/kv"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Now advances one millisecond per call so each mutation gets a distinct stamp.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newTestStore(t *testing.T) (*Store, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore()
	store := NewStore(mem)
	store.Now = newFakeClock().Now
	return store, mem
}

type fakeFiles struct {
	mu      sync.Mutex
	seq     int
	removed []string
	failOn  string
}

func (f *fakeFiles) Upload(ctx context.Context, userID, fileName string, r io.Reader) (ProjectFile, error) {
	if fileName == f.failOn {
		return ProjectFile{}, errors.New("disk full")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return ProjectFile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return ProjectFile{
		ID:         fmt.Sprintf("f%d", f.seq),
		Name:       fileName,
		Size:       int64(len(body)),
		Type:       "text/plain",
		UploadDate: 1,
		StorageKey: "objects/" + fileName,
	}, nil
}

func (f *fakeFiles) Remove(ctx context.Context, file ProjectFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, file.ID)
	return nil
}

func (f *fakeFiles) removedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

type fakeAnalyzer struct {
	result AnalysisResult
	err    error
	calls  int
	seen   Project
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, userID string, p Project) (AnalysisResult, error) {
	a.calls++
	a.seen = p
	return a.result, a.err
}

func readyProject(id string) Project {
	p := NewDefault(id, time.Now())
	p.Name = "Ready"
	p.Domain = "Physics"
	p.Files = []ProjectFile{{ID: "s1", Name: "source.pdf"}}
	p.UserPaper = &ProjectFile{ID: "paper", Name: "mine.pdf"}
	return p
}
