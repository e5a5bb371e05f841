package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/stone-age-io/links-health-monitor/internal/tasks"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoResult is returned when no result has been stored yet
var ErrNoResult = errors.New("no result")

// FileStore keeps results in a single JSON file, newest last
type FileStore struct {
	mu        sync.RWMutex
	path      string
	retention int
	results   []*tasks.Result
}

// Open loads the store at path, creating its directory if needed.
// At most retention results are kept.
func Open(path string, retention int) (*FileStore, error) {
	if retention < 1 {
		return nil, fmt.Errorf("retention must be at least 1, got %d", retention)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := &FileStore{path: path, retention: retention}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var results []*tasks.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return fmt.Errorf("unmarshal results: %w", err)
	}
	sortByCreation(results)
	s.results = results
	return nil
}

// Create stores r and trims the oldest results beyond retention
func (s *FileStore) Create(ctx context.Context, r *tasks.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil {
		return errors.New("result is nil")
	}
	if r.Metadata.Name == "" {
		r.Metadata.Name = tasks.NewResultName()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.results {
		if existing.Metadata.Name == r.Metadata.Name {
			return fmt.Errorf("result %q already exists", r.Metadata.Name)
		}
	}

	next := make([]*tasks.Result, 0, len(s.results)+1)
	next = append(next, s.results...)
	next = append(next, r)
	sortByCreation(next)
	if len(next) > s.retention {
		next = next[len(next)-s.retention:]
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.results = next
	return nil
}

// Latest returns the most recently created result
func (s *FileStore) Latest(ctx context.Context) (*tasks.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.results) == 0 {
		return nil, ErrNoResult
	}
	return s.results[len(s.results)-1], nil
}

// Get returns the result with the given name
func (s *FileStore) Get(ctx context.Context, name string) (*tasks.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.results {
		if r.Metadata.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoResult, name)
}

// List returns all results, newest first
func (s *FileStore) List(ctx context.Context) ([]*tasks.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*tasks.Result, len(s.results))
	for i, r := range s.results {
		out[len(s.results)-1-i] = r
	}
	return out, nil
}

// persist writes results to a temporary file and renames it over the store
func (s *FileStore) persist(results []*tasks.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", s.path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func sortByCreation(results []*tasks.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Metadata.CreationTimestamp.Before(results[j].Metadata.CreationTimestamp)
	})
}
