// File path: internal/recipe/store.go
package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/orderflow/workorder-engine/internal/common"
	"github.com/orderflow/workorder-engine/internal/telemetry"
)

// LoadError describes why a single recipe file failed to load. A LoadError
// never aborts loading of the rest of the catalog.
type LoadError struct {
	File   string
	Reason string
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// CatalogStatus is the result of a (re)load, reported to the caller that
// triggered it.
type CatalogStatus struct {
	Loaded int
	Errors []LoadError
}

// NotFoundError is returned by Get when no recipe matches the requested type.
type NotFoundError struct {
	WorkOrderType string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("recipe not found: %s", e.WorkOrderType)
}

// Store holds a validated, read-only catalog of recipes keyed by
// work_order_type. It is safe for concurrent Get/List after a Load call
// returns.
type Store struct {
	mu       sync.RWMutex
	byType   map[string]*Recipe
	ordered  []string
}

// NewStore returns an empty store. Call Load to populate it.
func NewStore() *Store {
	return &Store{byType: make(map[string]*Recipe)}
}

// Load enumerates dir, parses and validates every .json document except one
// named "schema.*" (files with other extensions are ignored), and replaces the store's contents atomically on completion.
// A malformed file is skipped and reported; the rest of the catalog still
// loads.
func (s *Store) Load(dir string) (CatalogStatus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return CatalogStatus{}, fmt.Errorf("read recipe directory: %w", err)
	}

	logger := common.Logger()
	byType := make(map[string]*Recipe)
	var ordered []string
	var loadErrs []LoadError

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if stem == "schema" {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" {
			continue
		}

		path := filepath.Join(dir, name)
		rec, err := loadRecipeFile(path)
		if err != nil {
			logger.Warn("recipe: rejected", "file", path, "error", err)
			telemetry.RecordRecipeLoad(false)
			loadErrs = append(loadErrs, LoadError{File: name, Reason: err.Error()})
			continue
		}
		if _, exists := byType[rec.WorkOrderType]; exists {
			logger.Warn("recipe: rejected", "file", path, "error", "duplicate work_order_type")
			telemetry.RecordRecipeLoad(false)
			loadErrs = append(loadErrs, LoadError{File: name, Reason: fmt.Sprintf("duplicate work_order_type %q", rec.WorkOrderType)})
			continue
		}
		byType[rec.WorkOrderType] = rec
		ordered = append(ordered, rec.WorkOrderType)
		telemetry.RecordRecipeLoad(true)
		logger.Info("recipe: loaded", "work_order_type", rec.WorkOrderType, "steps", len(rec.Steps))
	}

	sort.Strings(ordered)

	s.mu.Lock()
	s.byType = byType
	s.ordered = ordered
	s.mu.Unlock()

	return CatalogStatus{Loaded: len(byType), Errors: loadErrs}, nil
}

// Get returns the recipe registered under workOrderType.
func (s *Store) Get(workOrderType string) (*Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byType[workOrderType]
	if !ok {
		return nil, NotFoundError{WorkOrderType: workOrderType}
	}
	return rec, nil
}

// ListAll returns every loaded recipe, ordered by work_order_type, for the
// Recipe Matcher's prompt construction.
func (s *Store) ListAll() []*Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Recipe, 0, len(s.ordered))
	for _, t := range s.ordered {
		out = append(out, s.byType[t])
	}
	return out
}

func loadRecipeFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var rec Recipe
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := validate(&rec); err != nil {
		return nil, err
	}
	rec.EntryStep = entryStep(&rec)
	return &rec, nil
}

func entryStep(r *Recipe) int {
	lowest := r.Steps[0].StepNum
	for _, s := range r.Steps[1:] {
		if s.StepNum < lowest {
			lowest = s.StepNum
		}
	}
	return lowest
}
