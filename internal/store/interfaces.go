package store

import (
	"context"
	"errors"

	"storefront-catalog/internal/domain"
)

// Predefined errors for store operations
var (
	ErrValidation      = errors.New("store: validation failed")
	ErrMissingImage    = errors.New("store: product image is required")
	ErrEmptyIdentifier = errors.New("store: product name does not yield an identifier")
	ErrInvalidPosition = errors.New("store: position out of range")
	ErrProductNotFound = errors.New("store: product not found")
	ErrFeaturedFull    = errors.New("store: featured slots are full")
	ErrAlreadyFeatured = errors.New("store: product is already featured")
	ErrMirrorStale     = errors.New("store: mirror file not updated")
)

// IsValidation reports whether err is a validation failure, i.e. the operation was
// rejected before any mutation or I/O took place.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrMissingImage, ErrEmptyIdentifier, ErrInvalidPosition,
		ErrProductNotFound, ErrFeaturedFull, ErrAlreadyFeatured,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// CatalogStorer defines the operations on the ordered product catalog.
// Positions are 1-based.
type CatalogStorer interface {
	List() []domain.Product
	Get(id string) (domain.Product, int, error) // Returns the product and its position
	Create(ctx context.Context, input domain.ProductInput, imageSource string) (*domain.Product, error)
	Update(ctx context.Context, position int, update domain.ProductUpdate, imageSource string) (*domain.Product, error)
	UpdateByID(ctx context.Context, id string, update domain.ProductUpdate, imageSource string) (*domain.Product, error)
	Delete(ctx context.Context, position int) (*domain.Product, error) // nil, nil when position is out of range
	DeleteByID(ctx context.Context, id string) (*domain.Product, error)
	Move(ctx context.Context, from, to int) error
	MoveByID(ctx context.Context, id string, target MoveTarget) error
	MoveUp(ctx context.Context, position int) error
	MoveDown(ctx context.Context, position int) error
	MoveToTop(ctx context.Context, position int) error
	MoveToBottom(ctx context.Context, position int) error
	RebuildMirror() error
}

// MoveTarget computes the 1-based destination of a move from the current position and
// the number of products.
type MoveTarget func(position, count int) int

// Standard move targets. Up and Down stop at the ends of the catalog.
var (
	Up     MoveTarget = func(position, _ int) int { return max(position-1, 1) }
	Down   MoveTarget = func(position, count int) int { return min(position+1, count) }
	Top    MoveTarget = func(_, _ int) int { return 1 }
	Bottom MoveTarget = func(_, count int) int { return count }
)

// ToPosition targets an absolute 1-based position.
func ToPosition(to int) MoveTarget {
	return func(_, _ int) int { return to }
}

// FeaturedStorer defines the operations on the bounded featured subset.
// Positions are 1-based.
type FeaturedStorer interface {
	List() []domain.FeaturedEntry
	Slots() []domain.FeaturedSlot
	Add(ctx context.Context, productID string) (*domain.FeaturedEntry, error)
	Remove(ctx context.Context, position int) (*domain.FeaturedEntry, error) // nil, nil when position is out of range
	MoveUp(ctx context.Context, position int) error
	MoveDown(ctx context.Context, position int) error
	RebuildMirror() error
}

// ProductLookup resolves catalog products by id. The featured subset uses it to check
// membership without touching the catalog's backing sequence.
type ProductLookup interface {
	ProductByID(id string) (domain.Product, bool)
}

// Replicator receives the full ordered state of a store after every committed write.
type Replicator interface {
	ReplicateCatalog(ctx context.Context, products []domain.Product) error
	ReplicateFeatured(ctx context.Context, entries []domain.FeaturedEntry) error
}
