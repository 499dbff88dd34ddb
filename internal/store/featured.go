package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"storefront-catalog/internal/domain"
)

// FeaturedStore holds the bounded, ordered featured subset. Entries are copies taken from
// the catalog when added; later catalog edits are not propagated.
type FeaturedStore struct {
	mu         sync.Mutex
	entries    []domain.FeaturedEntry
	doc        Document
	catalog    ProductLookup
	replicator Replicator
	logger     *zap.Logger
}

// FeaturedOption configures a FeaturedStore.
type FeaturedOption func(*FeaturedStore)

// WithFeaturedReplicator mirrors every committed featured write to r.
func WithFeaturedReplicator(r Replicator) FeaturedOption {
	return func(s *FeaturedStore) { s.replicator = r }
}

// NewFeaturedStore loads the featured document. Entries beyond capacity are dropped.
func NewFeaturedStore(doc Document, catalog ProductLookup, logger *zap.Logger, opts ...FeaturedOption) (*FeaturedStore, error) {
	entries, err := LoadDocument[domain.FeaturedEntry](doc.DataPath)
	if err != nil {
		return nil, err
	}
	s := &FeaturedStore{
		doc:     doc,
		catalog: catalog,
		logger:  logger.Named("featured"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(entries) > domain.FeaturedCapacity {
		s.logger.Warn("featured document over capacity, extra entries ignored",
			zap.Int("count", len(entries)), zap.Int("capacity", domain.FeaturedCapacity))
		entries = entries[:domain.FeaturedCapacity]
	}
	s.entries = entries
	return s, nil
}

// List returns a snapshot of the featured entries in display order.
func (s *FeaturedStore) List() []domain.FeaturedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Slots returns exactly FeaturedCapacity slots; unfilled slots carry a nil Entry.
func (s *FeaturedStore) Slots() []domain.FeaturedSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := make([]domain.FeaturedSlot, domain.FeaturedCapacity)
	for i := range slots {
		slots[i].Position = i + 1
		if i < len(s.entries) {
			entry := s.entries[i]
			slots[i].Entry = &entry
		}
	}
	return slots
}

// Add copies the catalog product with productID into the next free slot.
func (s *FeaturedStore) Add(ctx context.Context, productID string) (*domain.FeaturedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= domain.FeaturedCapacity {
		return nil, fmt.Errorf("%w: capacity is %d", ErrFeaturedFull, domain.FeaturedCapacity)
	}
	if slices.ContainsFunc(s.entries, func(e domain.FeaturedEntry) bool { return e.ID == productID }) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyFeatured, productID)
	}
	product, ok := s.catalog.ProductByID(productID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	entry := product.Featured()
	next := append(slices.Clone(s.entries), entry)
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("product featured", zap.String("product_id", productID), zap.Int("position", len(next)))
	return &entry, nil
}

// Remove deletes the entry at position. An out-of-range position is a no-op.
func (s *FeaturedStore) Remove(ctx context.Context, position int) (*domain.FeaturedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 1 || position > len(s.entries) {
		return nil, nil
	}
	removed := s.entries[position-1]
	next := slices.Delete(slices.Clone(s.entries), position-1, position)
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("product unfeatured", zap.String("product_id", removed.ID), zap.Int("position", position))
	return &removed, nil
}

// MoveUp swaps the entry at position with its predecessor. No-op for the first entry.
func (s *FeaturedStore) MoveUp(ctx context.Context, position int) error {
	return s.swap(ctx, position, position-1)
}

// MoveDown swaps the entry at position with its successor. No-op for the last entry.
func (s *FeaturedStore) MoveDown(ctx context.Context, position int) error {
	return s.swap(ctx, position, position+1)
}

func (s *FeaturedStore) swap(ctx context.Context, a, b int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	if a < 1 || a > n || b < 1 || b > n {
		return nil
	}
	next := slices.Clone(s.entries)
	next[a-1], next[b-1] = next[b-1], next[a-1]
	return s.commit(ctx, next)
}

// RebuildMirror regenerates the featured mirror from the structured file.
func (s *FeaturedStore) RebuildMirror() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RegenerateMirror[domain.FeaturedEntry](s.doc)
}

func (s *FeaturedStore) commit(ctx context.Context, next []domain.FeaturedEntry) error {
	err := WriteDocument(s.doc, next)
	if err != nil && !errors.Is(err, ErrMirrorStale) {
		return err
	}
	if err != nil {
		s.logger.Warn("featured mirror is stale", zap.Error(err))
	}
	s.entries = next
	if s.replicator != nil {
		if err := s.replicator.ReplicateFeatured(ctx, slices.Clone(next)); err != nil {
			s.logger.Warn("featured replication failed", zap.Error(err))
		}
	}
	return nil
}
