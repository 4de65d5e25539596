package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-order/api/internal/auth"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/enum"
	mw "github.com/resto-order/api/internal/middleware"
	"github.com/resto-order/api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderPlacer defines the service methods that create orders.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, req service.PlaceOrderRequest) (*service.OrderResult, error)
	PlacePosOrder(ctx context.Context, operatorID uuid.UUID, req service.PlacePosOrderRequest) (*service.OrderResult, error)
}

// OrderStateServicer defines the service methods that read and move orders.
// Satisfied by *service.OrderStateService.
type OrderStateServicer interface {
	AcceptOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID, riderID *uuid.UUID) (database.Order, error)
	AssignRider(ctx context.Context, actor service.Actor, orderID, riderID uuid.UUID) (database.Order, error)
	UpdateOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID, patch service.OrderPatch) (database.Order, error)
	GetRiderOrders(ctx context.Context, riderID uuid.UUID) ([]service.OrderDetail, error)
	FetchOrders(ctx context.Context, actor service.Actor, status string) ([]service.OrderDetail, error)
	GetOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID) (service.OrderDetail, error)
	ExportOrders(ctx context.Context, status string) ([]service.OrderDetail, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	placer OrderPlacer
	state  OrderStateServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(placer OrderPlacer, state OrderStateServicer) *OrderHandler {
	return &OrderHandler{placer: placer, state: state}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected under /order behind authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.With(mw.RequirePermission(enum.PermissionAddOrder)).Post("/create-order", h.Create)
	r.With(mw.RequirePermission(enum.PermissionAddPOS)).Post("/create-pos-order", h.CreatePos)
	r.Get("/fetch-order", h.List)
	r.With(mw.RequireRole(enum.UserRoleRider, enum.UserRoleAdmin)).Get("/rider-orders", h.RiderOrders)
	r.With(mw.RequireRole(enum.UserRoleAdmin)).Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.With(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager), mw.RequirePermission(enum.PermissionUpdateOrder)).
		Patch("/{id}/assign-rider", h.AssignRider)
	r.With(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager, enum.UserRoleRider)).Patch("/{id}/accept", h.Accept)
	r.Patch("/{id}", h.Update)
}

// --- Request / Response types ---

type orderFieldsRequest struct {
	DeliveryType  string `json:"deliveryType"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	CustomerEmail string `json:"customerEmail"`
	Location      string `json:"location"`
	Landmark      string `json:"landmark"`
	ChangeRequest string `json:"changeRequest"`
	BranchID      string `json:"branchId"`
}

func (f orderFieldsRequest) toService() service.OrderFields {
	return service.OrderFields{
		DeliveryType:  f.DeliveryType,
		CustomerName:  f.CustomerName,
		CustomerPhone: f.CustomerPhone,
		CustomerEmail: f.CustomerEmail,
		Location:      f.Location,
		Landmark:      f.Landmark,
		ChangeRequest: f.ChangeRequest,
		BranchID:      f.BranchID,
	}
}

type createOrderRequest struct {
	CartID string `json:"cartId"`
	orderFieldsRequest
}

type posItemRequest struct {
	ProductID    string `json:"productId"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Quantity     int32  `json:"quantity"`
	Instructions string `json:"instructions"`
}

type createPosOrderRequest struct {
	Items []posItemRequest `json:"items"`
	orderFieldsRequest
}

type riderRequest struct {
	RiderID string `json:"riderId"`
}

type updateOrderRequest struct {
	Status        *string `json:"status"`
	CustomerName  *string `json:"customerName"`
	CustomerPhone *string `json:"customerPhone"`
	Location      *string `json:"location"`
	Landmark      *string `json:"landmark"`
	ChangeRequest *string `json:"changeRequest"`
	DeliveryType  *string `json:"deliveryType"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	Status        string              `json:"status"`
	DeliveryType  string              `json:"deliveryType"`
	Source        string              `json:"source"`
	CustomerName  string              `json:"customerName"`
	CustomerPhone string              `json:"customerPhone"`
	CustomerEmail *string             `json:"customerEmail"`
	Location      string              `json:"location"`
	Landmark      *string             `json:"landmark"`
	ChangeRequest *string             `json:"changeRequest"`
	UserID        *uuid.UUID          `json:"userId"`
	BranchID      *uuid.UUID          `json:"branchId"`
	BranchName    *string             `json:"branchName,omitempty"`
	RiderID       *uuid.UUID          `json:"riderId"`
	TotalAmount   string              `json:"totalAmount"`
	AcceptedAt    *time.Time          `json:"acceptedAt"`
	PickedUpAt    *time.Time          `json:"pickedUpAt"`
	DeliveredAt   *time.Time          `json:"deliveredAt"`
	CancelledAt   *time.Time          `json:"cancelledAt"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    *uuid.UUID `json:"productId"`
	ProductName  string     `json:"productName"`
	Quantity     int32      `json:"quantity"`
	UnitPrice    string     `json:"unitPrice"`
	Subtotal     string     `json:"subtotal"`
	Instructions *string    `json:"instructions"`
}

// --- Handlers ---

// Create handles POST /order/create-order, checking out the caller's cart.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.placer.PlaceOrder(r.Context(), claims.UserID, service.PlaceOrderRequest{
		CartID:      req.CartID,
		OrderFields: req.orderFieldsRequest.toService(),
	})
	if err != nil {
		writeServiceError(w, "place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, "", result.Items))
}

// CreatePos handles POST /order/create-pos-order for staff-entered orders.
func (h *OrderHandler) CreatePos(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createPosOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.DirectItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.DirectItem{
			ProductID:    it.ProductID,
			Name:         it.Name,
			Price:        it.Price,
			Quantity:     it.Quantity,
			Instructions: it.Instructions,
		}
	}

	result, err := h.placer.PlacePosOrder(r.Context(), claims.UserID, service.PlacePosOrderRequest{
		Items:       items,
		OrderFields: req.orderFieldsRequest.toService(),
	})
	if err != nil {
		writeServiceError(w, "place pos order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, "", result.Items))
}

// AssignRider handles PATCH /order/{id}/assign-rider.
func (h *OrderHandler) AssignRider(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req riderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RiderID == "" {
		writeFieldError(w, http.StatusBadRequest, "riderId", "riderId is required")
		return
	}
	riderID, err := uuid.Parse(req.RiderID)
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "riderId", "riderId is not a valid id")
		return
	}

	order, err := h.state.AssignRider(r.Context(), actorFromClaims(claims), orderID, riderID)
	if err != nil {
		writeServiceError(w, "assign rider", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, "", nil))
}

// Accept handles PATCH /order/{id}/accept. The body is optional for
// riders and managers, who accept for themselves.
func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req riderRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	var riderID *uuid.UUID
	if req.RiderID != "" {
		id, err := uuid.Parse(req.RiderID)
		if err != nil {
			writeFieldError(w, http.StatusBadRequest, "riderId", "riderId is not a valid id")
			return
		}
		riderID = &id
	}

	order, err := h.state.AcceptOrder(r.Context(), actorFromClaims(claims), orderID, riderID)
	if err != nil {
		writeServiceError(w, "accept order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, "", nil))
}

// Update handles PATCH /order/{id}. Customers may cancel their own pending
// orders; everyone else needs the update permission.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if claims.Role != enum.UserRoleCustomer && !claims.Can(enum.PermissionUpdateOrder) {
		writeMessage(w, http.StatusForbidden, "missing permission: "+enum.PermissionUpdateOrder)
		return
	}

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.state.UpdateOrder(r.Context(), actorFromClaims(claims), orderID, service.OrderPatch{
		Status:        req.Status,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Location:      req.Location,
		Landmark:      req.Landmark,
		ChangeRequest: req.ChangeRequest,
		DeliveryType:  req.DeliveryType,
	})
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, "", nil))
}

// List handles GET /order/fetch-order?status=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	details, err := h.state.FetchOrders(r.Context(), actorFromClaims(claims), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, "fetch orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(details))
}

// RiderOrders handles GET /order/rider-orders. Riders see their own active
// orders; admins pass ?riderId=.
func (h *OrderHandler) RiderOrders(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	riderID := claims.UserID
	if claims.Role == enum.UserRoleAdmin {
		s := r.URL.Query().Get("riderId")
		if s == "" {
			writeFieldError(w, http.StatusBadRequest, "riderId", "riderId is required")
			return
		}
		id, err := uuid.Parse(s)
		if err != nil {
			writeFieldError(w, http.StatusBadRequest, "riderId", "riderId is not a valid id")
			return
		}
		riderID = id
	}

	details, err := h.state.GetRiderOrders(r.Context(), riderID)
	if err != nil {
		writeServiceError(w, "get rider orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(details))
}

// Get handles GET /order/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	d, err := h.state.GetOrder(r.Context(), actorFromClaims(claims), orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(d.Order, d.BranchName, d.Items))
}

// --- Helpers ---

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "id", "invalid order ID")
		return uuid.Nil, false
	}
	return id, true
}

func actorFromClaims(c *auth.Claims) service.Actor {
	return service.Actor{UserID: c.UserID, Role: c.Role}
}

func toOrderResponses(details []service.OrderDetail) []orderResponse {
	resp := make([]orderResponse, len(details))
	for i, d := range details {
		resp[i] = toOrderResponse(d.Order, d.BranchName, d.Items)
		if resp[i].Items == nil {
			resp[i].Items = []orderItemResponse{}
		}
	}
	return resp
}

func toOrderResponse(o database.Order, branchName string, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		Status:        string(o.Status),
		DeliveryType:  o.DeliveryType,
		Source:        o.Source,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: textPtr(o.CustomerEmail),
		Location:      o.Location,
		Landmark:      textPtr(o.Landmark),
		ChangeRequest: textPtr(o.ChangeRequest),
		UserID:        uuidPtr(o.UserID),
		BranchID:      uuidPtr(o.BranchID),
		RiderID:       uuidPtr(o.RiderID),
		TotalAmount:   numericToString(o.TotalAmount),
		AcceptedAt:    timestamptzPtr(o.AcceptedAt),
		PickedUpAt:    timestamptzPtr(o.PickedUpAt),
		DeliveredAt:   timestamptzPtr(o.DeliveredAt),
		CancelledAt:   timestamptzPtr(o.CancelledAt),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if branchName != "" {
		resp.BranchName = &branchName
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = toOrderItemResponse(it)
		}
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	unit := service.NumericToDecimal(it.UnitPrice)
	return orderItemResponse{
		ID:           it.ID,
		ProductID:    uuidPtr(it.ProductID),
		ProductName:  it.ProductName,
		Quantity:     it.Quantity,
		UnitPrice:    unit.StringFixed(2),
		Subtotal:     unit.Mul(decimal.NewFromInt32(it.Quantity)).StringFixed(2),
		Instructions: textPtr(it.Instructions),
	}
}

func numericToString(n pgtype.Numeric) string {
	return service.NumericToDecimal(n).StringFixed(2)
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
