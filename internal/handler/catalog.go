package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/service"
)

// CatalogReader defines the service methods needed by catalog handlers.
// Satisfied by *service.CatalogService.
type CatalogReader interface {
	ListCategories(ctx context.Context) ([]database.Category, error)
	ListProducts(ctx context.Context, branchID, categoryID *uuid.UUID) ([]service.ProductDetail, error)
	GetProduct(ctx context.Context, id uuid.UUID) (service.ProductDetail, error)
}

// CatalogHandler serves the public menu.
type CatalogHandler struct {
	svc CatalogReader
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(svc CatalogReader) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategories)
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
}

// --- Response types ---

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SortOrder int32     `json:"sortOrder"`
}

type productResponse struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  *uuid.UUID      `json:"categoryId"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	ImageURL    *string         `json:"imageUrl"`
	Price       string          `json:"price"`
	Discount    string          `json:"discount"`
	Addons      []addonResponse `json:"addons"`
}

type addonResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price string    `json:"price"`
}

// --- Handlers ---

// ListCategories handles GET /categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, "list categories", err)
		return
	}

	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListProducts handles GET /products?branchId=&categoryId=.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	branchID, ok := optionalUUIDQuery(w, r, "branchId")
	if !ok {
		return
	}
	categoryID, ok := optionalUUIDQuery(w, r, "categoryId")
	if !ok {
		return
	}

	products, err := h.svc.ListProducts(r.Context(), branchID, categoryID)
	if err != nil {
		writeServiceError(w, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct handles GET /products/{id}.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "id", "invalid product ID")
		return
	}

	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func toProductResponse(p service.ProductDetail) productResponse {
	return productResponse{
		ID:          p.Product.ID,
		CategoryID:  uuidPtr(p.Product.CategoryID),
		Name:        p.Product.Name,
		Description: textPtr(p.Product.Description),
		ImageURL:    textPtr(p.Product.ImageUrl),
		Price:       numericToString(p.Product.Price),
		Discount:    numericToString(p.Product.Discount),
		Addons:      toAddonResponses(p.Addons),
	}
}

func toAddonResponses(addons []database.AddonItem) []addonResponse {
	resp := make([]addonResponse, len(addons))
	for i, a := range addons {
		resp[i] = addonResponse{ID: a.ID, Name: a.Name, Price: numericToString(a.Price)}
	}
	return resp
}

// optionalUUIDQuery parses an optional id query parameter. It writes a 400
// and reports false when the value is malformed.
func optionalUUIDQuery(w http.ResponseWriter, r *http.Request, key string) (*uuid.UUID, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, key, "invalid "+key)
		return nil, false
	}
	return &id, true
}
