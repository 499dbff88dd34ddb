package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront-catalog/internal/assets"
	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/ident"
)

// AssetManager is the part of assets.Manager the catalog depends on.
type AssetManager interface {
	StoreImage(productID, sourcePath string) (string, error)
	GenerateQR(productID, link string) string
	RemoveAssets(imagePath, qrPath string)
}

var _ AssetManager = (*assets.Manager)(nil)

// qrStem is the suffix assets.Manager appends to a product id to name its QR file.
const qrStem = "_qr"

// CatalogStore keeps the ordered product catalog in memory and persists it after every
// mutation. A mutation builds the next sequence, writes it, and only then makes it current,
// so a failed write leaves the in-memory catalog unchanged.
type CatalogStore struct {
	mu         sync.Mutex
	products   []domain.Product
	doc        Document
	assets     AssetManager
	replicator Replicator
	validate   *validator.Validate
	logger     *zap.Logger
}

// CatalogOption configures a CatalogStore.
type CatalogOption func(*CatalogStore)

// WithCatalogReplicator mirrors every committed catalog write to r.
func WithCatalogReplicator(r Replicator) CatalogOption {
	return func(s *CatalogStore) { s.replicator = r }
}

// NewCatalogStore loads the catalog document and returns a store over it.
func NewCatalogStore(doc Document, am AssetManager, logger *zap.Logger, opts ...CatalogOption) (*CatalogStore, error) {
	products, err := LoadDocument[domain.Product](doc.DataPath)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Description = domain.NormalizeDescription(products[i].Description)
	}
	s := &CatalogStore{
		products: products,
		doc:      doc,
		assets:   am,
		validate: validator.New(),
		logger:   logger.Named("catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Info("catalog loaded", zap.String("path", doc.DataPath), zap.Int("count", len(products)))
	return s, nil
}

// List returns a snapshot of the catalog in display order.
func (s *CatalogStore) List() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProducts(s.products)
}

// Len returns the number of products.
func (s *CatalogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// Get returns the first product with the given id and its 1-based position.
func (s *CatalogStore) Get(id string) (domain.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Product{}, 0, ErrProductNotFound
	}
	return s.products[i].Clone(), i + 1, nil
}

// ProductByID implements ProductLookup.
func (s *CatalogStore) ProductByID(id string) (domain.Product, bool) {
	p, _, err := s.Get(id)
	return p, err == nil
}

// Create validates input, allocates an id, stores the image and QR assets and appends
// the new product to the end of the catalog.
func (s *CatalogStore) Create(ctx context.Context, input domain.ProductInput, imageSource string) (*domain.Product, error) {
	input = input.Normalize()
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := checkImageSource(imageSource); err != nil {
		return nil, err
	}
	base := ident.Generate(input.Name)
	if base == "" {
		return nil, ErrEmptyIdentifier
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocateID(base)
	product := domain.Product{
		ID:            id,
		Name:          input.Name,
		PriceNow:      input.PriceNow,
		PriceOriginal: input.PriceOriginal,
		Discount:      input.Discount,
		BuyLink:       input.BuyLink,
		Description:   input.Description,
	}
	if image, err := s.assets.StoreImage(id, imageSource); err != nil {
		s.logger.Warn("image copy failed, product saved without image", zap.String("product_id", id), zap.Error(err))
	} else {
		product.Image = image
	}
	product.QRImage = s.assets.GenerateQR(id, product.BuyLink)

	next := append(cloneProducts(s.products), product)
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("product created", zap.String("product_id", id), zap.Int("position", len(next)))
	created := product.Clone()
	return &created, nil
}

// Update merges update into the product at position. A non-empty imageSource replaces the
// stored image; the previous file is left in place. The QR image is regenerated under the
// same file name whenever the product has a purchase link.
func (s *CatalogStore) Update(ctx context.Context, position int, update domain.ProductUpdate, imageSource string) (*domain.Product, error) {
	if imageSource != "" {
		if err := checkImageSource(imageSource); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPosition(position); err != nil {
		return nil, err
	}
	return s.updateAt(ctx, position-1, update, imageSource)
}

// UpdateByID is Update addressed by product id.
func (s *CatalogStore) UpdateByID(ctx context.Context, id string, update domain.ProductUpdate, imageSource string) (*domain.Product, error) {
	if imageSource != "" {
		if err := checkImageSource(imageSource); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrProductNotFound
	}
	return s.updateAt(ctx, i, update, imageSource)
}

func (s *CatalogStore) updateAt(ctx context.Context, i int, update domain.ProductUpdate, imageSource string) (*domain.Product, error) {
	product := update.Apply(s.products[i].Clone())
	if err := s.validate.Struct(domain.ProductInput{
		Name:     product.Name,
		PriceNow: product.PriceNow,
		BuyLink:  product.BuyLink,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if imageSource != "" {
		if image, err := s.assets.StoreImage(product.ID, imageSource); err != nil {
			s.logger.Warn("image replacement failed, keeping previous image", zap.String("product_id", product.ID), zap.Error(err))
		} else {
			product.Image = image
		}
	}
	if qr := s.assets.GenerateQR(product.ID, product.BuyLink); qr != "" {
		product.QRImage = qr
	}

	next := cloneProducts(s.products)
	next[i] = product
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("product updated", zap.String("product_id", product.ID), zap.Int("position", i+1))
	updated := product.Clone()
	return &updated, nil
}

// Delete removes the product at position together with its image and QR files.
// An out-of-range position is a no-op and returns nil, nil.
func (s *CatalogStore) Delete(ctx context.Context, position int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkPosition(position) != nil {
		s.logger.Warn("delete ignored, position out of range", zap.Int("position", position), zap.Int("count", len(s.products)))
		return nil, nil
	}
	return s.deleteAt(ctx, position-1)
}

func (s *CatalogStore) deleteAt(ctx context.Context, i int) (*domain.Product, error) {
	removed := s.products[i].Clone()
	s.assets.RemoveAssets(removed.Image, removed.QRImage)

	next := slices.Delete(cloneProducts(s.products), i, i+1)
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("product deleted", zap.String("product_id", removed.ID), zap.Int("position", i+1))
	return &removed, nil
}

// DeleteByID is Delete addressed by product id. The id is resolved under the same lock
// as the removal, so a concurrent reorder cannot redirect it to another product.
func (s *CatalogStore) DeleteByID(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrProductNotFound
	}
	return s.deleteAt(ctx, i)
}

// Move takes the product at from out of the catalog and reinserts it so that it ends up
// at position to. Both positions must lie in [1, len]. The catalog is persisted even when
// the order does not change.
func (s *CatalogStore) Move(ctx context.Context, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(ctx, from, to)
}

// MoveUp moves the product at position one slot towards the front.
func (s *CatalogStore) MoveUp(ctx context.Context, position int) error {
	return s.moveTo(ctx, position, Up)
}

// MoveDown moves the product at position one slot towards the back.
func (s *CatalogStore) MoveDown(ctx context.Context, position int) error {
	return s.moveTo(ctx, position, Down)
}

// MoveToTop moves the product at position to the front of the catalog.
func (s *CatalogStore) MoveToTop(ctx context.Context, position int) error {
	return s.moveTo(ctx, position, Top)
}

// MoveToBottom moves the product at position to the end of the catalog.
func (s *CatalogStore) MoveToBottom(ctx context.Context, position int) error {
	return s.moveTo(ctx, position, Bottom)
}

// MoveByID moves the product with the given id to the position computed by target.
// The id is resolved under the same lock as the move.
func (s *CatalogStore) MoveByID(ctx context.Context, id string, target MoveTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrProductNotFound
	}
	return s.move(ctx, i+1, target(i+1, len(s.products)))
}

func (s *CatalogStore) moveTo(ctx context.Context, position int, target MoveTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(ctx, position, target(position, len(s.products)))
}

func (s *CatalogStore) move(ctx context.Context, from, to int) error {
	if err := s.checkPosition(from); err != nil {
		return fmt.Errorf("move from %d: %w", from, err)
	}
	if err := s.checkPosition(to); err != nil {
		return fmt.Errorf("move to %d: %w", to, err)
	}
	next := cloneProducts(s.products)
	moved := next[from-1]
	next = slices.Delete(next, from-1, from)
	next = slices.Insert(next, to-1, moved)
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Info("product moved", zap.String("product_id", moved.ID), zap.Int("from", from), zap.Int("to", to))
	return nil
}

// RebuildMirror regenerates the catalog mirror from the structured file.
func (s *CatalogStore) RebuildMirror() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RegenerateMirror[domain.Product](s.doc)
}

// commit persists next and makes it the current catalog. A stale mirror is logged and
// tolerated because the structured file is authoritative.
func (s *CatalogStore) commit(ctx context.Context, next []domain.Product) error {
	err := WriteDocument(s.doc, next)
	if err != nil && !errors.Is(err, ErrMirrorStale) {
		return err
	}
	if err != nil {
		s.logger.Warn("catalog mirror is stale", zap.Error(err))
	}
	s.products = next
	if s.replicator != nil {
		if err := s.replicator.ReplicateCatalog(ctx, cloneProducts(next)); err != nil {
			s.logger.Warn("catalog replication failed", zap.Error(err))
		}
	}
	return nil
}

func (s *CatalogStore) checkPosition(position int) error {
	if position < 1 || position > len(s.products) {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidPosition, position, len(s.products))
	}
	return nil
}

func (s *CatalogStore) indexOf(id string) int {
	return slices.IndexFunc(s.products, func(p domain.Product) bool { return p.ID == id })
}

// allocateID returns base, or base_2, base_3, ... when base is already taken, so that
// two products never share asset files.
func (s *CatalogStore) allocateID(base string) string {
	if !s.idTaken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if !s.idTaken(candidate) {
			return candidate
		}
	}
}

// idTaken reports whether id, or one of the asset names it produces, is in use.
// An id equal to another's QR stem ("<id>_qr") would write its image over that QR file.
func (s *CatalogStore) idTaken(id string) bool {
	return slices.ContainsFunc(s.products, func(p domain.Product) bool {
		return p.ID == id || p.ID+qrStem == id || id+qrStem == p.ID
	})
}

func checkImageSource(path string) error {
	if path == "" {
		return ErrMissingImage
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s is not a readable file", ErrMissingImage, path)
	}
	return nil
}

func cloneProducts(products []domain.Product) []domain.Product {
	out := make([]domain.Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
