package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/store"
)

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	catalog  store.CatalogStorer
	featured store.FeaturedStorer
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(cs store.CatalogStorer, fs store.FeaturedStorer, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		catalog:  cs,
		featured: fs,
		validate: validator.New(),
		logger:   logger.Named("http"),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *HTTPHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error("failed to encode JSON response", zap.Error(err))
		}
	}
}

// respondWithStoreError maps store errors onto HTTP status codes.
func (h *HTTPHandler) respondWithStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		h.respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrAlreadyFeatured):
		h.respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrFeaturedFull):
		h.respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case store.IsValidation(err):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// --- Product Handlers ---

// ProductCreateInput defines the expected input for creating a product.
// ImageSource is a local file path supplied by the file picker of the admin front end.
type ProductCreateInput struct {
	domain.ProductInput
	ImageSource string `json:"imageSource" validate:"required"`
}

// ProductUpdateInput defines the expected input for updating a product.
type ProductUpdateInput struct {
	domain.ProductUpdate
	ImageSource string `json:"imageSource,omitempty"`
}

// MoveInput moves a product either to an absolute 1-based position or by a direction.
type MoveInput struct {
	To        int    `json:"to,omitempty" validate:"omitempty,gte=1"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=up down top bottom"`
}

// FeaturedAddInput defines the expected input for featuring a product.
type FeaturedAddInput struct {
	ProductID string `json:"productId" validate:"required"`
}

// FeaturedMoveInput defines the expected input for reordering a featured entry.
type FeaturedMoveInput struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.List()
	if products == nil {
		products = []domain.Product{}
	}
	h.respondWithJSON(w, http.StatusOK, struct {
		Data  []domain.Product `json:"data"`
		Total int              `json:"total"`
	}{Data: products, Total: len(products)})
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductCreateInput
	if !h.decode(w, r, &input) {
		return
	}

	created, err := h.catalog.Create(r.Context(), input.ProductInput, input.ImageSource)
	if err != nil {
		h.respondWithStoreError(w, "create product", err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, position, err := h.catalog.Get(chi.URLParam(r, "productId"))
	if err != nil {
		h.respondWithStoreError(w, "retrieve product", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, struct {
		domain.Product
		Position int `json:"position"`
	}{Product: product, Position: position})
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductUpdateInput
	if !h.decode(w, r, &input) {
		return
	}

	updated, err := h.catalog.UpdateByID(r.Context(), chi.URLParam(r, "productId"), input.ProductUpdate, input.ImageSource)
	if err != nil {
		h.respondWithStoreError(w, "update product", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, err := h.catalog.DeleteByID(r.Context(), chi.URLParam(r, "productId")); err != nil {
		h.respondWithStoreError(w, "delete product", err)
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) MoveProduct(w http.ResponseWriter, r *http.Request) {
	var input MoveInput
	if !h.decode(w, r, &input) {
		return
	}
	if input.To == 0 && input.Direction == "" {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: either to or direction is required")
		return
	}
	var target store.MoveTarget
	switch input.Direction {
	case "up":
		target = store.Up
	case "down":
		target = store.Down
	case "top":
		target = store.Top
	case "bottom":
		target = store.Bottom
	default:
		target = store.ToPosition(input.To)
	}
	if err := h.catalog.MoveByID(r.Context(), chi.URLParam(r, "productId"), target); err != nil {
		h.respondWithStoreError(w, "move product", err)
		return
	}
	h.ListProducts(w, r)
}

// --- Featured Handlers ---

func (h *HTTPHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, struct {
		Data     []domain.FeaturedSlot `json:"data"`
		Capacity int                   `json:"capacity"`
	}{Data: h.featured.Slots(), Capacity: domain.FeaturedCapacity})
}

func (h *HTTPHandler) AddFeatured(w http.ResponseWriter, r *http.Request) {
	var input FeaturedAddInput
	if !h.decode(w, r, &input) {
		return
	}
	entry, err := h.featured.Add(r.Context(), input.ProductID)
	if err != nil {
		h.respondWithStoreError(w, "feature product", err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, entry)
}

func (h *HTTPHandler) RemoveFeatured(w http.ResponseWriter, r *http.Request) {
	position, ok := h.positionParam(w, r)
	if !ok {
		return
	}
	removed, err := h.featured.Remove(r.Context(), position)
	if err != nil {
		h.respondWithStoreError(w, "remove featured product", err)
		return
	}
	if removed == nil {
		h.respondWithError(w, http.StatusNotFound, "No featured product at that position")
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) MoveFeatured(w http.ResponseWriter, r *http.Request) {
	position, ok := h.positionParam(w, r)
	if !ok {
		return
	}
	var input FeaturedMoveInput
	if !h.decode(w, r, &input) {
		return
	}

	var err error
	if input.Direction == "up" {
		err = h.featured.MoveUp(r.Context(), position)
	} else {
		err = h.featured.MoveDown(r.Context(), position)
	}
	if err != nil {
		h.respondWithStoreError(w, "move featured product", err)
		return
	}
	h.ListFeatured(w, r)
}

func (h *HTTPHandler) RebuildMirrors(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RebuildMirror(); err != nil {
		h.respondWithStoreError(w, "rebuild catalog mirror", err)
		return
	}
	if err := h.featured.RebuildMirror(); err != nil {
		h.respondWithStoreError(w, "rebuild featured mirror", err)
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) positionParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || position < 1 || position > domain.FeaturedCapacity {
		h.respondWithError(w, http.StatusBadRequest, "Invalid featured position")
		return 0, false
	}
	return position, true
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct) // POST /api/v1/products
		r.Get("/", h.ListProducts)   // GET /api/v1/products
		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", h.GetProduct)       // GET /api/v1/products/{productId}
			r.Put("/", h.UpdateProduct)    // PUT /api/v1/products/{productId}
			r.Delete("/", h.DeleteProduct) // DELETE /api/v1/products/{productId}
			r.Post("/move", h.MoveProduct) // POST /api/v1/products/{productId}/move
		})
	})

	r.Route("/api/v1/featured", func(r chi.Router) {
		r.Get("/", h.ListFeatured) // GET /api/v1/featured
		r.Post("/", h.AddFeatured) // POST /api/v1/featured
		r.Route("/{position}", func(r chi.Router) {
			r.Delete("/", h.RemoveFeatured) // DELETE /api/v1/featured/{position}
			r.Post("/move", h.MoveFeatured) // POST /api/v1/featured/{position}/move
		})
	})

	r.Post("/api/v1/mirrors/rebuild", h.RebuildMirrors)
	r.Get("/api/v1/exports/products.csv", h.ExportProductsCSV)
}
