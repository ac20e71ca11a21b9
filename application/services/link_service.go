package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/sagas"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/config"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/events"
	domainservices "github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/services"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// Cache key prefixes shared by the link and graph services
const (
	cacheKeyGraph     = "graph:"
	cacheKeyLayout    = "layout:"
	cacheKeyDeps      = "deps:"
	cacheKeyAnalysis  = "analysis:"
	cacheKeyAnalytics = "analytics:links"
)

// LinkObserver receives link write outcomes, typically for metrics
type LinkObserver interface {
	ObserveLinksCreated(count int)
	ObserveLinksDeleted(count int)
	ObserveLinkRejected(reason string)
}

// LinkService is the link store: it validates, pairs and persists links and
// keeps derived caches coherent. Mutations are serialized so validation and
// the write of a pair are observed atomically by other writers.
type LinkService struct {
	mu sync.Mutex

	store     ports.LinkStore
	cache     ports.Cache
	publisher ports.EventPublisher
	observer  LinkObserver
	cycles    *domainservices.CycleDetector
	suggester *domainservices.LinkSuggester
	logger    *zap.Logger
	now       func() time.Time

	cfgMu  sync.RWMutex
	config *config.GraphConfig

	// genMu orders generation bumps against cache fills
	genMu      sync.RWMutex
	generation uint64

	// WriteAttempts and RetryDelay govern retries of each pair write
	WriteAttempts int
	RetryDelay    time.Duration
}

// NewLinkService creates a new link service. A nil publisher drops events.
func NewLinkService(
	store ports.LinkStore,
	cache ports.Cache,
	publisher ports.EventPublisher,
	cycles *domainservices.CycleDetector,
	suggester *domainservices.LinkSuggester,
	cfg *config.GraphConfig,
	logger *zap.Logger,
) *LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultGraphConfig()
	}
	cfg = cfg.Normalize()
	if cycles == nil {
		cycles = domainservices.NewCycleDetector(cfg.MaxTraversalDepth)
	}
	if suggester == nil {
		suggester = domainservices.NewLinkSuggester(nil)
	}
	return &LinkService{
		store:         store,
		cache:         cache,
		publisher:     publisher,
		cycles:        cycles,
		suggester:     suggester,
		logger:        logger,
		now:           time.Now,
		config:        cfg,
		WriteAttempts: 3,
		RetryDelay:    25 * time.Millisecond,
	}
}

// SetClock replaces time.Now for link ids and metadata
func (s *LinkService) SetClock(now func() time.Time) {
	s.now = now
}

// SetObserver registers the receiver of link write outcomes
func (s *LinkService) SetObserver(o LinkObserver) {
	s.observer = o
}

// UpdateConfig swaps the tuning in place
func (s *LinkService) UpdateConfig(cfg *config.GraphConfig) {
	s.cfgMu.Lock()
	s.config = cfg.Normalize()
	s.cfgMu.Unlock()
}

func (s *LinkService) cfg() *config.GraphConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.config
}

// CreateLink validates and stores a link. Bidirectional types also store the
// reverse link; both halves are written or neither is.
func (s *LinkService) CreateLink(
	ctx context.Context,
	sourceID, targetID string,
	linkType entities.RelationshipType,
	opts ...LinkOption,
) (*entities.ContentLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.createLocked(ctx, sourceID, targetID, linkType, opts...)
	if err != nil {
		s.rejected(err)
		return nil, err
	}

	s.InvalidateCache(ctx)
	s.created(*link)
	s.publish(ctx, events.NewLinkCreatedEvent(*link, link.PairID, s.now().UTC()))

	s.logger.Info("Link created",
		zap.String("linkID", link.ID),
		zap.String("sourceID", link.SourceID),
		zap.String("targetID", link.TargetID),
		zap.String("type", string(link.Type)),
	)
	return link, nil
}

func (s *LinkService) createLocked(
	ctx context.Context,
	sourceID, targetID string,
	linkType entities.RelationshipType,
	opts ...LinkOption,
) (*entities.ContentLink, error) {
	cfg := s.cfg()
	o := linkOptions{createdBy: cfg.DefaultAuthor}
	for _, opt := range opts {
		opt(&o)
	}
	if o.createdBy == "" {
		o.createdBy = cfg.DefaultAuthor
	}

	if sourceID == "" || targetID == "" {
		return nil, pkgerrors.NewValidation("source and target ids are required")
	}
	if !linkType.IsValid() {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("unknown relationship type: %s", linkType))
	}
	if sourceID == targetID {
		return nil, pkgerrors.NewValidation("cannot link content to itself")
	}

	if !o.skipValidation {
		if err := s.validateNewLink(ctx, sourceID, targetID, linkType); err != nil {
			return nil, err
		}
	}

	strength := cfg.DefaultStrength
	if o.strength != nil {
		strength = *o.strength
	}
	created := s.now().UTC()
	link := entities.ContentLink{
		ID:       entities.NewLinkID(sourceID, targetID, linkType, created, o.automatic),
		SourceID: sourceID,
		TargetID: targetID,
		Type:     linkType,
		Strength: entities.ClampStrength(strength),
		Metadata: entities.LinkMetadata{
			Created:     created,
			CreatedBy:   o.createdBy,
			Description: o.description,
			Automatic:   o.automatic,
		},
	}

	if !linkType.IsBidirectional() {
		err := s.newSaga("create-link").AddStep(sagas.Step{
			Name:        "write-link",
			Execute:     func(ctx context.Context) error { return s.store.Add(ctx, link, "created") },
			MaxAttempts: s.WriteAttempts,
			RetryDelay:  s.RetryDelay,
		}).Run(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to store link")
		}
		return &link, nil
	}

	reverse := link.Reverse()
	link.PairID = reverse.ID
	err := s.newSaga("create-link-pair").
		AddStep(sagas.Step{
			Name:        "write-forward",
			Execute:     func(ctx context.Context) error { return s.store.Add(ctx, link, "created") },
			Compensate:  func(ctx context.Context) error { return s.remove(ctx, link.ID, "rollback: reverse write failed") },
			MaxAttempts: s.WriteAttempts,
			RetryDelay:  s.RetryDelay,
		}).
		AddStep(sagas.Step{
			Name:        "write-reverse",
			Execute:     func(ctx context.Context) error { return s.store.Add(ctx, reverse, "created as reverse of "+link.ID) },
			MaxAttempts: s.WriteAttempts,
			RetryDelay:  s.RetryDelay,
		}).
		Run(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to store link pair")
	}
	return &link, nil
}

// validateNewLink rejects duplicate triples and prerequisite cycles
func (s *LinkService) validateNewLink(ctx context.Context, sourceID, targetID string, linkType entities.RelationshipType) error {
	outgoing, err := s.store.SearchByIndex(ctx, entities.IndexSourceID, sourceID, 0)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to check for duplicate links")
	}
	for _, l := range outgoing {
		if l.TargetID == targetID && l.Type == linkType {
			return pkgerrors.NewValidation(fmt.Sprintf("link already exists: %s", l.ID))
		}
	}

	if linkType != entities.RelationshipPrerequisite {
		return nil
	}
	all, err := s.store.GetAll(ctx, 0)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to load links for cycle check")
	}
	if s.cycles.WouldCreateCycle(all, sourceID, targetID) {
		return pkgerrors.NewValidation(fmt.Sprintf("link %s -> %s would create a circular dependency", sourceID, targetID))
	}
	return nil
}

// CreateLinksBatch writes many links under one lock. Entries that fail are
// logged and skipped. If the committed prerequisite links form a cycle, either
// among themselves or together with stored links, every link written by the
// batch is rolled back and a batch validation error is returned.
func (s *LinkService) CreateLinksBatch(ctx context.Context, ops []LinkOperation) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &BatchResult{
		BatchID: uuid.New().String(),
		Created: []entities.ContentLink{},
		Failed:  []BatchFailure{},
	}

	for i, op := range ops {
		link, err := s.createLocked(ctx, op.SourceID, op.TargetID, op.Type, op.options()...)
		if err != nil {
			s.logger.Warn("Skipping batch link",
				zap.String("batchID", result.BatchID),
				zap.Int("index", i),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, BatchFailure{Index: i, Error: err.Error()})
			s.rejected(err)
			continue
		}
		result.Created = append(result.Created, *link)
	}

	if len(result.Created) > 0 {
		s.InvalidateCache(ctx)
	}

	if cycles := s.cycles.ValidateBatchForCircularDependencies(result.Created); len(cycles) > 0 {
		s.rollbackBatch(ctx, result)
		return nil, pkgerrors.NewBatchValidation("batch would create circular dependencies: " + formatCycles(cycles))
	}

	all, err := s.store.GetAll(ctx, 0)
	if err != nil {
		s.rollbackBatch(ctx, result)
		return nil, pkgerrors.Wrap(err, "failed to re-validate batch")
	}
	if cycles := involvingBatch(s.cycles.DetectCycles(all), s.cycles.StronglyConnected(all), result.Created); len(cycles) > 0 {
		s.rollbackBatch(ctx, result)
		return nil, pkgerrors.NewBatchValidation("batch closes circular dependencies with existing links: " + formatCycles(cycles))
	}

	ids := make([]string, 0, len(result.Created))
	for _, l := range result.Created {
		ids = append(ids, l.ID)
		s.created(l)
	}
	s.publish(ctx, events.NewLinksBatchCreatedEvent(result.BatchID, ids, len(ops), len(result.Failed), s.now().UTC()))

	s.logger.Info("Link batch committed",
		zap.String("batchID", result.BatchID),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Failed)),
	)
	return result, nil
}

func (s *LinkService) rollbackBatch(ctx context.Context, result *BatchResult) {
	ctx = context.WithoutCancel(ctx)
	for i := len(result.Created) - 1; i >= 0; i-- {
		link := result.Created[i]
		if link.PairID != "" {
			if err := s.remove(ctx, link.PairID, "rollback batch "+result.BatchID); err != nil {
				s.logger.Error("Failed to roll back reverse link", zap.String("linkID", link.PairID), zap.Error(err))
			}
		}
		if err := s.remove(ctx, link.ID, "rollback batch "+result.BatchID); err != nil {
			s.logger.Error("Failed to roll back link", zap.String("linkID", link.ID), zap.Error(err))
		}
	}
	s.InvalidateCache(ctx)
	if s.observer != nil {
		s.observer.ObserveLinkRejected("batch_cycle")
	}
	s.logger.Warn("Link batch rolled back",
		zap.String("batchID", result.BatchID),
		zap.Int("links", len(result.Created)),
	)
}

// involvingBatch returns a cycle for every batch prerequisite link whose
// endpoints share a strongly connected component. Cycles come from the
// reverse walk, so a link source->target appears as target, source.
func involvingBatch(cycles, components [][]string, batch []entities.ContentLink) [][]string {
	componentOf := make(map[string]int)
	for i, c := range components {
		for _, id := range c {
			componentOf[id] = i
		}
	}

	var out [][]string
	added := make(map[int]bool)
	for _, l := range batch {
		if l.Type != entities.RelationshipPrerequisite {
			continue
		}
		src, okSrc := componentOf[l.SourceID]
		tgt, okTgt := componentOf[l.TargetID]
		if !okSrc || !okTgt || src != tgt {
			continue
		}
		if cycle := cycleThrough(cycles, l.TargetID, l.SourceID); cycle != nil {
			key := strings.Join(cycle, "\x00")
			if !containsCycle(out, key) {
				out = append(out, cycle)
			}
			continue
		}
		if !added[src] {
			added[src] = true
			out = append(out, append(append([]string{}, components[src]...), components[src][0]))
		}
	}
	return out
}

// cycleThrough finds a cycle that steps from one node straight to the next
func cycleThrough(cycles [][]string, from, to string) []string {
	for _, c := range cycles {
		for i := 0; i+1 < len(c); i++ {
			if c[i] == from && c[i+1] == to {
				return c
			}
		}
	}
	return nil
}

func containsCycle(cycles [][]string, key string) bool {
	for _, c := range cycles {
		if strings.Join(c, "\x00") == key {
			return true
		}
	}
	return false
}

func formatCycles(cycles [][]string) string {
	parts := make([]string, 0, len(cycles))
	for _, c := range cycles {
		parts = append(parts, strings.Join(c, " -> "))
	}
	return strings.Join(parts, "; ")
}

// UpdateLink changes strength or description. Strength changes propagate to
// the paired link. Returns nil when the link does not exist.
func (s *LinkService) UpdateLink(ctx context.Context, id string, update LinkUpdate) (*entities.ContentLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load link")
	}
	if !ok {
		return nil, nil
	}

	updated := current
	if update.Strength != nil {
		updated.Strength = entities.ClampStrength(*update.Strength)
	}
	if update.Description != nil {
		updated.Metadata.Description = *update.Description
	}

	saga := s.newSaga("update-link").AddStep(sagas.Step{
		Name:        "write-link",
		Execute:     func(ctx context.Context) error { return s.store.Put(ctx, updated, "updated") },
		Compensate:  func(ctx context.Context) error { return s.store.Put(ctx, current, "rollback: pair update failed") },
		MaxAttempts: s.WriteAttempts,
		RetryDelay:  s.RetryDelay,
	})

	if update.Strength != nil && current.PairID != "" {
		pair, found, err := s.store.Get(ctx, current.PairID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to load paired link")
		}
		if found {
			pairUpdated := pair
			pairUpdated.Strength = updated.Strength
			saga.AddStep(sagas.Step{
				Name:        "write-pair",
				Execute:     func(ctx context.Context) error { return s.store.Put(ctx, pairUpdated, "strength synced from "+id) },
				MaxAttempts: s.WriteAttempts,
				RetryDelay:  s.RetryDelay,
			})
		}
	}

	if err := saga.Run(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to update link")
	}

	s.InvalidateCache(ctx)
	s.publish(ctx, events.NewLinkUpdatedEvent(updated, updated.PairID, s.now().UTC()))
	return &updated, nil
}

// DeleteLink removes a link and its pair, pair first. Returns false when the
// link does not exist.
func (s *LinkService) DeleteLink(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(err, "failed to load link")
	}
	if !ok {
		return false, nil
	}

	saga := s.newSaga("delete-link")
	removed := 1
	if link.PairID != "" {
		pair, found, err := s.store.Get(ctx, link.PairID)
		if err != nil {
			return false, pkgerrors.Wrap(err, "failed to load paired link")
		}
		if found {
			removed++
			saga.AddStep(sagas.Step{
				Name:        "delete-pair",
				Execute:     func(ctx context.Context) error { return s.remove(ctx, pair.ID, "deleted with "+id) },
				Compensate:  func(ctx context.Context) error { return s.store.Put(ctx, pair, "rollback: delete failed") },
				MaxAttempts: s.WriteAttempts,
				RetryDelay:  s.RetryDelay,
			})
		}
	}
	saga.AddStep(sagas.Step{
		Name:        "delete-link",
		Execute:     func(ctx context.Context) error { return s.remove(ctx, id, "deleted") },
		MaxAttempts: s.WriteAttempts,
		RetryDelay:  s.RetryDelay,
	})
	if err := saga.Run(ctx); err != nil {
		return false, pkgerrors.Wrap(err, "failed to delete link")
	}

	if link.Type.IsDependency() {
		s.cache.Delete(ctx, cacheKeyDeps+link.SourceID)
		s.cache.Delete(ctx, cacheKeyDeps+link.TargetID)
	}
	s.InvalidateCache(ctx)
	if s.observer != nil {
		s.observer.ObserveLinksDeleted(removed)
	}
	s.publish(ctx, events.NewLinkDeletedEvent(link, link.PairID, s.now().UTC()))

	s.logger.Info("Link deleted", zap.String("linkID", id), zap.String("pairID", link.PairID))
	return true, nil
}

// remove deletes a key, treating an already missing key as success
func (s *LinkService) remove(ctx context.Context, id, description string) error {
	_, err := s.store.Delete(ctx, id, description)
	return err
}

// GetLink returns one link or a not found error
func (s *LinkService) GetLink(ctx context.Context, id string) (*entities.ContentLink, error) {
	link, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load link")
	}
	if !ok {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("link %s not found", id))
	}
	return &link, nil
}

// AllLinks returns every stored link
func (s *LinkService) AllLinks(ctx context.Context) ([]entities.ContentLink, error) {
	links, err := s.store.GetAll(ctx, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load links")
	}
	return links, nil
}

// FindLinks returns links matching every set filter field, ordered by creation
// time then id. A single narrowing dimension is answered from the store index.
func (s *LinkService) FindLinks(ctx context.Context, filter LinkFilter) ([]entities.ContentLink, error) {
	candidates, err := s.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]entities.ContentLink, 0, len(candidates))
	for _, l := range candidates {
		if filter.Matches(l) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Metadata.Created.Equal(out[j].Metadata.Created) {
			return out[i].Metadata.Created.Before(out[j].Metadata.Created)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *LinkService) candidates(ctx context.Context, filter LinkFilter) ([]entities.ContentLink, error) {
	var index string
	var values []string
	narrowing := 0
	if len(filter.SourceIDs) > 0 {
		narrowing++
		index, values = entities.IndexSourceID, filter.SourceIDs
	}
	if len(filter.TargetIDs) > 0 {
		narrowing++
		index, values = entities.IndexTargetID, filter.TargetIDs
	}
	if len(filter.Types) > 0 {
		narrowing++
		index, values = entities.IndexType, make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			values = append(values, string(t))
		}
	}

	if narrowing != 1 {
		return s.AllLinks(ctx)
	}

	seen := make(map[string]bool)
	var out []entities.ContentLink
	for _, v := range values {
		found, err := s.store.SearchByIndex(ctx, index, v, 0)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to search links")
		}
		for _, l := range found {
			if !seen[l.ID] {
				seen[l.ID] = true
				out = append(out, l)
			}
		}
	}
	return out, nil
}

// GetLinksForContent returns the links entering and leaving a content id
func (s *LinkService) GetLinksForContent(ctx context.Context, contentID string) (*ContentLinks, error) {
	outgoing, err := s.store.SearchByIndex(ctx, entities.IndexSourceID, contentID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load outgoing links")
	}
	incoming, err := s.store.SearchByIndex(ctx, entities.IndexTargetID, contentID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load incoming links")
	}

	result := &ContentLinks{
		Incoming: append([]entities.ContentLink{}, incoming...),
		Outgoing: append([]entities.ContentLink{}, outgoing...),
		All:      make([]entities.ContentLink, 0, len(incoming)+len(outgoing)),
	}
	seen := make(map[string]bool)
	for _, l := range append(outgoing, incoming...) {
		if !seen[l.ID] {
			seen[l.ID] = true
			result.All = append(result.All, l)
		}
	}
	return result, nil
}

// DetectCircularDependencies reports every prerequisite cycle in the store
func (s *LinkService) DetectCircularDependencies(ctx context.Context) ([][]string, error) {
	links, err := s.AllLinks(ctx)
	if err != nil {
		return nil, err
	}
	cycles := s.cycles.DetectCycles(links)
	if cycles == nil {
		cycles = [][]string{}
	}
	return cycles, nil
}

// CycleReport pairs the reported cycles with the strongly connected components
// that contain them
type CycleReport struct {
	Cycles            [][]string `json:"cycles"`
	StronglyConnected [][]string `json:"stronglyConnected"`
}

// AuditCycles reports cycles and their strongly connected components
func (s *LinkService) AuditCycles(ctx context.Context) (*CycleReport, error) {
	links, err := s.AllLinks(ctx)
	if err != nil {
		return nil, err
	}
	report := &CycleReport{
		Cycles:            s.cycles.DetectCycles(links),
		StronglyConnected: s.cycles.StronglyConnected(links),
	}
	if report.Cycles == nil {
		report.Cycles = [][]string{}
	}
	if report.StronglyConnected == nil {
		report.StronglyConnected = [][]string{}
	}
	return report, nil
}

// GenerateAutomaticLinks proposes unsaved links between similar modules.
// Non-positive threshold or maxPerModule fall back to configured defaults.
func (s *LinkService) GenerateAutomaticLinks(
	ctx context.Context,
	modules []entities.ContentModule,
	threshold float64,
	maxPerModule int,
) ([]domainservices.LinkSuggestion, error) {
	cfg := s.cfg()
	if threshold <= 0 {
		threshold = cfg.SimilarityThreshold
	}
	if maxPerModule <= 0 {
		maxPerModule = cfg.MaxSuggestionsPerModule
	}

	existing, err := s.AllLinks(ctx)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.suggester.Suggest(ctx, modules, existing, domainservices.SuggestionOptions{
		Threshold:    threshold,
		MaxPerModule: maxPerModule,
		Workers:      cfg.ScoringWorkers,
		Now:          s.now().UTC(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to generate link suggestions")
	}
	s.logger.Debug("Generated link suggestions",
		zap.Int("modules", len(modules)),
		zap.Int("suggestions", len(suggestions)),
	)
	return suggestions, nil
}

// AcceptSuggestions persists previously suggested links as one batch
func (s *LinkService) AcceptSuggestions(ctx context.Context, links []entities.ContentLink) (*BatchResult, error) {
	ops := make([]LinkOperation, 0, len(links))
	for _, l := range links {
		strength := l.Strength
		ops = append(ops, LinkOperation{
			SourceID:    l.SourceID,
			TargetID:    l.TargetID,
			Type:        l.Type,
			Strength:    &strength,
			Description: l.Metadata.Description,
			CreatedBy:   l.Metadata.CreatedBy,
			Automatic:   true,
		})
	}
	return s.CreateLinksBatch(ctx, ops)
}

// GetAnalytics summarizes all links; the result is cached
func (s *LinkService) GetAnalytics(ctx context.Context) (*domainservices.LinkAnalytics, error) {
	if cached, ok := s.cache.Get(ctx, cacheKeyAnalytics); ok {
		return cached.(*domainservices.LinkAnalytics), nil
	}

	gen := s.Generation()
	links, err := s.AllLinks(ctx)
	if err != nil {
		return nil, err
	}
	cfg := s.cfg()
	analytics := domainservices.ComputeLinkAnalytics(links, cfg.MostConnectedLimit, cfg.ExtremeLinksLimit)
	s.cacheIfCurrent(ctx, gen, cacheKeyAnalytics, &analytics, cfg.CacheTTL)
	return &analytics, nil
}

// History returns every stored version of a link
func (s *LinkService) History(ctx context.Context, id string) ([]ports.LinkVersion, error) {
	versions, err := s.store.History(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load link history")
	}
	if len(versions) == 0 {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("no history for link %s", id))
	}
	return versions, nil
}

// ExportSnapshot writes every stored link through the exporter and returns
// where the snapshot landed and how many links it holds
func (s *LinkService) ExportSnapshot(ctx context.Context, exporter ports.SnapshotExporter) (string, int, error) {
	if exporter == nil {
		return "", 0, pkgerrors.NewValidation("no snapshot exporter configured")
	}
	links, err := s.AllLinks(ctx)
	if err != nil {
		return "", 0, err
	}
	location, err := exporter.Export(ctx, links)
	if err != nil {
		return "", 0, pkgerrors.Wrap(err, "failed to export link snapshot")
	}
	s.logger.Info("Link snapshot exported",
		zap.String("location", location),
		zap.Int("links", len(links)),
	)
	return location, len(links), nil
}

// InvalidateCache drops every derived view and starts a new generation, so
// views computed from links read before this call are never cached
func (s *LinkService) InvalidateCache(ctx context.Context) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generation++
	s.cache.Clear(ctx, "*")
}

// Generation identifies the link state derived views are computed from
func (s *LinkService) Generation() uint64 {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.generation
}

// cacheIfCurrent stores value only when no invalidation happened since gen
func (s *LinkService) cacheIfCurrent(ctx context.Context, gen uint64, key string, value interface{}, ttl time.Duration) bool {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	if s.generation != gen {
		return false
	}
	s.cache.Set(ctx, key, value, ttl)
	return true
}

func (s *LinkService) created(link entities.ContentLink) {
	if s.observer == nil {
		return
	}
	if link.PairID != "" {
		s.observer.ObserveLinksCreated(2)
		return
	}
	s.observer.ObserveLinksCreated(1)
}

func (s *LinkService) rejected(err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveLinkRejected(strings.ToLower(string(pkgerrors.TypeOf(err))))
}

func (s *LinkService) newSaga(name string) *sagas.Saga {
	return sagas.New(name, s.logger, isTransient)
}

func (s *LinkService) publish(ctx context.Context, evt events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish link event",
			zap.String("eventType", evt.GetEventType()),
			zap.String("aggregateID", evt.GetAggregateID()),
			zap.Error(err),
		)
	}
}

// isTransient reports whether a write error is worth retrying
func isTransient(err error) bool {
	switch pkgerrors.TypeOf(err) {
	case pkgerrors.ErrorTypeValidation, pkgerrors.ErrorTypeBatchValidation,
		pkgerrors.ErrorTypeNotFound, pkgerrors.ErrorTypeConflict:
		return false
	default:
		return true
	}
}
