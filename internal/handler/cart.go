package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/middleware"
	"github.com/resto-order/api/internal/service"
)

// CartServicer defines the service methods needed by cart handlers.
// Satisfied by *service.CartService.
type CartServicer interface {
	AddToCart(ctx context.Context, userID uuid.UUID, req service.AddToCartRequest) (database.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, productID uuid.UUID, quantity *int32) (*database.CartItem, error)
	DeleteFromCart(ctx context.Context, userID, productID uuid.UUID) (database.CartItem, error)
	FetchCart(ctx context.Context, userID uuid.UUID) (service.CartView, error)
	SetDeliveryType(ctx context.Context, userID uuid.UUID, deliveryType string) (database.Cart, error)
}

// CartHandler handles the caller's shopping cart.
type CartHandler struct {
	svc CartServicer
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(svc CartServicer) *CartHandler {
	return &CartHandler{svc: svc}
}

// RegisterRoutes registers cart endpoints. Expected under /cart behind
// authentication.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create", h.Add)
	r.Post("/delete/{id}", h.Delete)
	r.Patch("/update", h.Update)
	r.Get("/fetch", h.Fetch)
}

// --- Request / Response types ---

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	Notes     string `json:"notes"`
}

type updateCartRequest struct {
	ProductID    string  `json:"productId"`
	Quantity     *int32  `json:"quantity"`
	DeliveryType *string `json:"deliveryType"`
}

type cartItemResponse struct {
	ID        uuid.UUID  `json:"id"`
	CartID    uuid.UUID  `json:"cartId"`
	ProductID *uuid.UUID `json:"productId"`
	Quantity  int32      `json:"quantity"`
	Notes     *string    `json:"notes"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type cartLineResponse struct {
	cartItemResponse
	Product *cartProductResponse `json:"product"`
	Addons  []addonResponse      `json:"addons"`
}

type cartProductResponse struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	Price       string  `json:"price"`
	Discount    string  `json:"discount"`
	IsActive    bool    `json:"isActive"`
}

type cartResponse struct {
	ID           *uuid.UUID         `json:"id"`
	DeliveryType *string            `json:"deliveryType"`
	Items        []cartLineResponse `json:"items"`
}

// --- Handlers ---

// Add handles POST /cart/create.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.AddToCart(r.Context(), claims.UserID, service.AddToCartRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		var se *service.Error
		if errors.As(err, &se) && errors.Is(err, service.ErrValidation) && se.Field == "productId" {
			writeFieldError(w, http.StatusUnprocessableEntity, se.Field, se.Error())
			return
		}
		writeServiceError(w, "add to cart", err)
		return
	}

	writeJSON(w, http.StatusOK, toCartItemResponse(item))
}

// Delete handles POST /cart/delete/{id}, where id is the product id.
func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "id", "invalid product ID")
		return
	}

	item, err := h.svc.DeleteFromCart(r.Context(), claims.UserID, productID)
	if err != nil {
		writeServiceError(w, "delete from cart", err)
		return
	}

	writeJSON(w, http.StatusOK, toCartItemResponse(item))
}

// Update handles PATCH /cart/update. It changes a line's quantity, the
// cart's delivery type, or both.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" && req.DeliveryType == nil {
		writeFieldError(w, http.StatusBadRequest, "productId", "productId is required")
		return
	}

	if req.DeliveryType != nil {
		if _, err := h.svc.SetDeliveryType(r.Context(), claims.UserID, *req.DeliveryType); err != nil {
			writeServiceError(w, "set delivery type", err)
			return
		}
	}

	if req.ProductID != "" {
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			writeFieldError(w, http.StatusBadRequest, "productId", "productId is not a valid id")
			return
		}
		if _, err := h.svc.UpdateCartItem(r.Context(), claims.UserID, productID, req.Quantity); err != nil {
			writeServiceError(w, "update cart item", err)
			return
		}
	}

	h.writeCart(w, r, claims.UserID)
}

// Fetch handles GET /cart/fetch.
func (h *CartHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	h.writeCart(w, r, claims.UserID)
}

func (h *CartHandler) writeCart(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	view, err := h.svc.FetchCart(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "fetch cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

// --- Mapping ---

func toCartItemResponse(i database.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:        i.ID,
		CartID:    i.CartID,
		ProductID: uuidPtr(i.ProductID),
		Quantity:  i.Quantity,
		Notes:     textPtr(i.Notes),
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func toCartResponse(v service.CartView) cartResponse {
	resp := cartResponse{Items: make([]cartLineResponse, len(v.Items))}
	if v.Cart != nil {
		resp.ID = &v.Cart.ID
		resp.DeliveryType = &v.Cart.DeliveryType
	}
	for i, line := range v.Items {
		row := line.Item
		lr := cartLineResponse{
			cartItemResponse: toCartItemResponse(row.CartItem),
			Addons:           toAddonResponses(line.Addons),
		}
		// Product is null once the product has been deleted.
		if row.ProductName.Valid {
			lr.Product = &cartProductResponse{
				Name:        row.ProductName.String,
				Description: textPtr(row.ProductDescription),
				ImageURL:    textPtr(row.ProductImageUrl),
				Price:       numericToString(row.ProductPrice),
				Discount:    numericToString(row.ProductDiscount),
				IsActive:    row.ProductIsActive.Bool,
			}
		}
		resp.Items[i] = lr
	}
	return resp
}
