package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"research-backend/internal/shared/storage/kv"
	"research-backend/internal/shared/util"
)

// SlotKey is the key holding a user's serialized project collection.
const SlotKey = "phd_projects"

// Store owns each user's project collection and persists the full
// collection on every mutation.
type Store struct {
	KV  kv.Store
	Now func() time.Time

	mu sync.Mutex
}

// NewStore builds a Store over the given slot storage.
func NewStore(slots kv.Store) *Store {
	return &Store{KV: slots, Now: time.Now}
}

// Filter narrows List results.
type Filter struct {
	Search         string
	BookmarkedOnly bool
}

// Save inserts the project if its id is new, otherwise overwrites it. It
// always stamps UpdatedAt and returns the sorted collection.
func (s *Store) Save(ctx context.Context, userID string, p Project) ([]Project, error) {
	return s.Replace(ctx, userID, p, nil)
}

// Replace is Save with a merge hook. merge runs under the store lock with the
// stored copy (nil when absent) and may adjust next before it is written.
func (s *Store) Replace(ctx context.Context, userID string, next Project, merge func(prev *Project, next *Project)) ([]Project, error) {
	if strings.TrimSpace(next.ID) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, next.ID)
	if merge != nil {
		var prev *Project
		if idx >= 0 {
			cp := list[idx]
			prev = &cp
		}
		merge(prev, &next)
	}
	next.UpdatedAt = s.nowMillis()
	if idx >= 0 {
		list[idx] = next
	} else {
		list = append(list, next)
	}
	return s.persist(ctx, userID, list)
}

// Delete removes the project; a missing id is not an error.
func (s *Store) Delete(ctx context.Context, userID, id string) ([]Project, error) {
	return s.BulkDelete(ctx, userID, []string{id})
}

// BulkDelete removes every project whose id is in ids.
func (s *Store) BulkDelete(ctx context.Context, userID string, ids []string) ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	drop := idSet(ids)
	kept := list[:0]
	for _, p := range list {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	return s.persist(ctx, userID, kept)
}

// ToggleBookmark flips the bookmarked flag of one project.
func (s *Store) ToggleBookmark(ctx context.Context, userID, id string) ([]Project, error) {
	return s.BulkToggleBookmark(ctx, userID, []string{id}, nil)
}

// BulkToggleBookmark flips each project's flag, or sets it to *forced for every id when forced is non-nil.
func (s *Store) BulkToggleBookmark(ctx context.Context, userID string, ids []string, forced *bool) ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	targets := idSet(ids)
	for i := range list {
		if !targets[list[i].ID] {
			continue
		}
		if forced != nil {
			list[i].Bookmarked = *forced
		} else {
			list[i].Bookmarked = !list[i].Bookmarked
		}
	}
	return s.persist(ctx, userID, list)
}

// Rename sets a trimmed name. A name that trims to empty leaves the collection untouched.
func (s *Store) Rename(ctx context.Context, userID, id, newName string) ([]Project, error) {
	name := strings.TrimSpace(newName)

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return list, nil
	}
	if idx := indexOf(list, id); idx >= 0 {
		list[idx].Name = name
		list[idx].UpdatedAt = s.nowMillis()
	}
	return s.persist(ctx, userID, list)
}

// Get returns the project with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID, id string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		return Project{}, err
	}
	if idx := indexOf(list, id); idx >= 0 {
		return list[idx], nil
	}
	return Project{}, ErrNotFound
}

// List returns the collection in stored order, narrowed by f.
func (s *Store) List(ctx context.Context, userID string, f Filter) ([]Project, error) {
	s.mu.Lock()
	list, err := s.load(ctx, userID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Project, 0, len(list))
	for _, p := range list {
		if f.BookmarkedOnly && !p.Bookmarked {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Mutate applies fn to one project under the store lock, stamps UpdatedAt
// and persists. An error from fn aborts without writing.
func (s *Store) Mutate(ctx context.Context, userID, id string, fn func(*Project) error) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		return Project{}, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return Project{}, ErrNotFound
	}
	p := list[idx]
	if err := fn(&p); err != nil {
		return Project{}, err
	}
	p.ID = list[idx].ID
	p.UpdatedAt = s.nowMillis()
	list[idx] = p
	if _, err := s.persist(ctx, userID, list); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *Store) load(ctx context.Context, userID string) ([]Project, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	raw, err := s.KV.Get(ctx, util.UserNamespace(userID), SlotKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	var list []Project
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	if list == nil {
		list = []Project{}
	}
	return list, nil
}

func (s *Store) persist(ctx context.Context, userID string, list []Project) ([]Project, error) {
	sortByUpdated(list)
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode projects: %w", err)
	}
	if err := s.KV.Put(ctx, util.UserNamespace(userID), SlotKey, raw); err != nil {
		return nil, fmt.Errorf("persist projects: %w", err)
	}
	return list, nil
}

func (s *Store) nowMillis() int64 {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return now().UnixMilli()
}

// sortByUpdated orders newest first; equal timestamps keep their prior order.
func sortByUpdated(list []Project) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt > list[j].UpdatedAt
	})
}

func indexOf(list []Project, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
