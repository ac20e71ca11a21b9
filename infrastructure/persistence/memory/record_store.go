// Package memory provides an in-process RecordStore used for tests, the CLI
// and single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// RecordStore keeps records in maps guarded by a RWMutex. Secondary indexes
// are maintained on every write.
type RecordStore[T ports.Record] struct {
	mu      sync.RWMutex
	records map[string]T
	order   []string
	indexes map[string]map[string]map[string]struct{} // index -> value -> keys
	history map[string][]ports.Version[T]
	now     func() time.Time
}

// NewRecordStore creates an empty store
func NewRecordStore[T ports.Record]() *RecordStore[T] {
	return &RecordStore[T]{
		records: make(map[string]T),
		indexes: make(map[string]map[string]map[string]struct{}),
		history: make(map[string][]ports.Version[T]),
		now:     time.Now,
	}
}

// Get returns the record stored under key
func (s *RecordStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	return rec, ok, nil
}

// GetAll returns records in insertion order
func (s *RecordStore[T]) GetAll(ctx context.Context, limit int) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.order))
	for _, key := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.records[key])
	}
	return out, nil
}

// Add inserts a new record
func (s *RecordStore[T]) Add(ctx context.Context, record T, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.GetID()
	if _, exists := s.records[key]; exists {
		return pkgerrors.NewConflict(fmt.Sprintf("record %s already exists", key))
	}
	s.write(key, record, description)
	return nil
}

// Put inserts or replaces a record
func (s *RecordStore[T]) Put(ctx context.Context, record T, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.write(record.GetID(), record, description)
	return nil
}

// Delete removes a record
func (s *RecordStore[T]) Delete(ctx context.Context, key string, description string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.records[key]
	if !ok {
		return false, nil
	}
	s.unindex(key, old)
	delete(s.records, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.appendVersion(key, nil, description)
	return true, nil
}

// SearchByIndex returns records in key order whose index value matches
func (s *RecordStore[T]) SearchByIndex(ctx context.Context, index, value string, limit int) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.indexes[index][value]))
	for key := range s.indexes[index][value] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, key := range keys {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.records[key])
	}
	return out, nil
}

// History returns the versions recorded for key
func (s *RecordStore[T]) History(ctx context.Context, key string) ([]ports.Version[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.history[key]
	out := make([]ports.Version[T], len(versions))
	copy(out, versions)
	return out, nil
}

// write must be called with the lock held
func (s *RecordStore[T]) write(key string, record T, description string) {
	if old, exists := s.records[key]; exists {
		s.unindex(key, old)
	} else {
		s.order = append(s.order, key)
	}
	s.records[key] = record
	for index, value := range record.IndexValues() {
		if s.indexes[index] == nil {
			s.indexes[index] = make(map[string]map[string]struct{})
		}
		if s.indexes[index][value] == nil {
			s.indexes[index][value] = make(map[string]struct{})
		}
		s.indexes[index][value][key] = struct{}{}
	}
	rec := record
	s.appendVersion(key, &rec, description)
}

func (s *RecordStore[T]) unindex(key string, record T) {
	for index, value := range record.IndexValues() {
		if keys := s.indexes[index][value]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.indexes[index], value)
			}
		}
	}
}

func (s *RecordStore[T]) appendVersion(key string, record *T, description string) {
	versions := s.history[key]
	s.history[key] = append(versions, ports.Version[T]{
		Version:     len(versions) + 1,
		Record:      record,
		Description: description,
		ChangedAt:   s.now().UTC(),
		Deleted:     record == nil,
	})
}
