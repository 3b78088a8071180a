package stencil

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is a Store that keeps everything in memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryEntry
}

type memoryEntry struct {
	rec Record
	pkg []byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Put(ctx context.Context, rec Record, pkg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.records[rec.ID]; ok {
		if old.rec.State == StateFinalized {
			return fmt.Errorf("%w: %s is already stored", ErrTemplateFinalized, rec.ID)
		}
		if old.rec.Revision != rec.BaseRevision {
			return fmt.Errorf("%w: %s is stored at revision %d, record is based on %d",
				ErrStaleTemplateVersion, rec.ID, old.rec.Revision, rec.BaseRevision)
		}
	}
	rec.Variables = slices.Clone(rec.Variables)
	s.records[rec.ID] = memoryEntry{rec: rec, pkg: slices.Clone(pkg)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, []byte, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.records[id]
	if !ok {
		return Record{}, nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	rec := entry.rec
	rec.Variables = slices.Clone(rec.Variables)
	return rec, entry.pkg, nil
}

// List returns the records ordered by name and version.
func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]Record, 0, len(s.records))
	for _, entry := range s.records {
		rec := entry.rec
		rec.Variables = slices.Clone(rec.Variables)
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b Record) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		if a.Version != b.Version {
			return a.Version - b.Version
		}
		return strings.Compare(a.ID, b.ID)
	})
	return recs, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	delete(s.records, id)
	return nil
}
