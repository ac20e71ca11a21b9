package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/events"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence/memory"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// failingStore wraps the memory store and fails Add and Put for chosen keys
type failingStore struct {
	*memory.RecordStore[entities.ContentLink]

	mu         sync.Mutex
	failWrites map[string]error
	writeCalls map[string]int
}

func newFailingStore() *failingStore {
	return &failingStore{
		RecordStore: memory.NewRecordStore[entities.ContentLink](),
		failWrites:  make(map[string]error),
		writeCalls:  make(map[string]int),
	}
}

func (s *failingStore) failWritesOf(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites[key] = err
}

func (s *failingStore) attempt(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeCalls[key]++
	return s.failWrites[key]
}

func (s *failingStore) Add(ctx context.Context, record entities.ContentLink, description string) error {
	if err := s.attempt(record.ID); err != nil {
		return err
	}
	return s.RecordStore.Add(ctx, record, description)
}

func (s *failingStore) Put(ctx context.Context, record entities.ContentLink, description string) error {
	if err := s.attempt(record.ID); err != nil {
		return err
	}
	return s.RecordStore.Put(ctx, record, description)
}

func (s *failingStore) writesOf(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCalls[key]
}

// gatedStore wraps the memory store and, once armed, parks the next GetAll
// after its read until released
type gatedStore struct {
	*memory.RecordStore[entities.ContentLink]

	mu      sync.Mutex
	armed   bool
	loaded  chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{RecordStore: memory.NewRecordStore[entities.ContentLink]()}
}

// arm returns channels signalling the parked read and releasing it
func (s *gatedStore) arm() (loaded <-chan struct{}, release chan<- struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	s.loaded = make(chan struct{})
	s.release = make(chan struct{})
	return s.loaded, s.release
}

func (s *gatedStore) GetAll(ctx context.Context, limit int) ([]entities.ContentLink, error) {
	links, err := s.RecordStore.GetAll(ctx, limit)

	s.mu.Lock()
	armed, loaded, release := s.armed, s.loaded, s.release
	s.armed = false
	s.mu.Unlock()
	if armed {
		close(loaded)
		<-release
	}
	return links, err
}

var errThrottled = errors.New("throttled")

var (
	_ ports.LinkStore = (*failingStore)(nil)
	_ ports.LinkStore = (*gatedStore)(nil)
)

func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

// countingObserver records link write outcomes
type countingObserver struct {
	mu       sync.Mutex
	created  int
	deleted  int
	rejected map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{rejected: make(map[string]int)}
}

func (o *countingObserver) ObserveLinksCreated(count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created += count
}

func (o *countingObserver) ObserveLinksDeleted(count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted += count
}

func (o *countingObserver) ObserveLinkRejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected[reason]++
}

type MockSnapshotExporter struct {
	mock.Mock
}

func (m *MockSnapshotExporter) Export(ctx context.Context, links []entities.ContentLink) (string, error) {
	args := m.Called(ctx, links)
	return args.String(0), args.Error(1)
}
