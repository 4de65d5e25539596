package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/enum"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool runs statements directly and starts transactions.
// Satisfied by *pgxpool.Pool.
type Pool interface {
	database.DBTX
	TxBeginner
}

// OrderStore defines the DB methods needed to place orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	LockCart(ctx context.Context, id uuid.UUID) (database.Cart, error)
	ListCartItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsWithProductsRow, error)
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Product, error)
	UpsertCustomerByEmail(ctx context.Context, arg database.UpsertCustomerByEmailParams) (uuid.UUID, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItems(ctx context.Context, arg database.CreateOrderItemsParams) ([]database.OrderItem, error)
	DeleteCartItemsByCart(ctx context.Context, cartID uuid.UUID) (int64, error)
	DeleteCartByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Gate decides whether orders may be placed right now.
// Satisfied by *PauseService.
type Gate interface {
	CanPlaceOrder(ctx context.Context, branchID *uuid.UUID) (GateDecision, error)
}

// OrderFields are the customer-facing fields of a new order.
type OrderFields struct {
	DeliveryType  string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Location      string
	Landmark      string
	ChangeRequest string
	BranchID      string
}

// PlaceOrderRequest checks out the cart CartID.
type PlaceOrderRequest struct {
	CartID string
	OrderFields
}

// DirectItem is an order line entered without a cart. Lines with a
// ProductID are priced from the catalog; lines without one are custom lines
// that keep the caller's Name and Price.
type DirectItem struct {
	ProductID    string
	Name         string
	Price        string
	Quantity     int32
	Instructions string
}

// PlacePosOrderRequest is a staff-entered order.
type PlacePosOrderRequest struct {
	Items []DirectItem
	OrderFields
}

// OrderResult is a committed order with its lines.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService assembles orders from carts and direct item lists.
type OrderService struct {
	pool     Pool
	newStore NewOrderStore
	gate     Gate
	notifier OrderNotifier
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool Pool, newStore NewOrderStore, gate Gate, notifier OrderNotifier) *OrderService {
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		gate:     gate,
		notifier: notifierOrNoop(notifier),
	}
}

// orderLine is a priced line ready to insert.
type orderLine struct {
	productID    pgtype.UUID
	name         string
	quantity     int32
	unitPrice    decimal.Decimal
	instructions pgtype.Text
}

// PlaceOrder converts the user's cart into a pending order. The cart row is
// locked for the whole transaction, so a concurrent checkout of the same
// cart waits and then finds it empty.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, req PlaceOrderRequest) (*OrderResult, error) {
	if req.CartID == "" {
		return nil, validationError("cartId", "cartId is required")
	}
	cartID, err := uuid.Parse(req.CartID)
	if err != nil {
		return nil, validationError("cartId", "cartId is not a valid id")
	}
	branchID, err := validateOrderFields(req.OrderFields)
	if err != nil {
		return nil, err
	}
	if err := s.checkGate(ctx, branchID); err != nil {
		return nil, err
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	cart, err := store.LockCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Cart not found")
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	if !cart.UserID.Valid || uuid.UUID(cart.UserID.Bytes) != userID {
		return nil, notFoundError("Cart not found")
	}

	rows, err := store.ListCartItemsWithProducts(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(rows) == 0 {
		return nil, &Error{Kind: ErrEmptyCart}
	}

	lines := make([]orderLine, len(rows))
	for i, row := range rows {
		if !row.ProductID.Valid || !row.ProductName.Valid || !row.ProductIsActive.Bool {
			return nil, &Error{
				Kind:  ErrMissingProduct,
				Msg:   "A product in your cart is no longer available",
				Field: fmt.Sprintf("items[%d]", i),
			}
		}
		lines[i] = orderLine{
			productID:    row.ProductID,
			name:         row.ProductName.String,
			quantity:     row.Quantity,
			unitPrice:    effectivePrice(row.ProductPrice, row.ProductDiscount),
			instructions: row.Notes,
		}
	}

	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = cart.DeliveryType
	}

	result, err := insertOrder(ctx, store, orderHeader{
		source:       enum.OrderSourceApp,
		deliveryType: deliveryType,
		fields:       req.OrderFields,
		userID:       pgtype.UUID{Bytes: userID, Valid: true},
		branchID:     branchID,
	}, lines)
	if err != nil {
		return nil, err
	}

	if _, err := store.DeleteCartItemsByCart(ctx, cartID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.OrderEvent(enum.EventOrderCreated, result.Order)
	return result, nil
}

// PlacePosOrder records a staff-entered order. The customer, when an email
// is given, is found or created and owns the order; the operator never
// does. After commit the operator's own cart is discarded on a best-effort
// basis.
func (s *OrderService) PlacePosOrder(ctx context.Context, operatorID uuid.UUID, req PlacePosOrderRequest) (*OrderResult, error) {
	result, err := s.placeDirect(ctx, enum.OrderSourcePOS, req.Items, req.OrderFields)
	if err != nil {
		return nil, err
	}

	if _, err := s.newStore(s.pool).DeleteCartByUser(ctx, operatorID); err != nil {
		log.Printf("WARN: clear operator cart %s after pos order %s: %v", operatorID, result.Order.ID, err)
	}
	return result, nil
}

// PlaceChatbotOrder records an order collected by the chatbot conversation.
func (s *OrderService) PlaceChatbotOrder(ctx context.Context, items []DirectItem, fields OrderFields) (*OrderResult, error) {
	return s.placeDirect(ctx, enum.OrderSourceChatbot, items, fields)
}

func (s *OrderService) placeDirect(ctx context.Context, source string, items []DirectItem, fields OrderFields) (*OrderResult, error) {
	if len(items) == 0 {
		return nil, validationError("items", "items are required")
	}

	// --- Validate items ---
	type parsedItem struct {
		productID *uuid.UUID
		price     decimal.Decimal
	}
	parsed := make([]parsedItem, len(items))
	var catalogIDs []uuid.UUID
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, validationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be > 0")
		}
		if item.ProductID != "" {
			pid, err := uuid.Parse(item.ProductID)
			if err != nil {
				return nil, validationError(fmt.Sprintf("items[%d].productId", i), "productId is not a valid id")
			}
			parsed[i].productID = &pid
			catalogIDs = append(catalogIDs, pid)
			continue
		}
		if strings.TrimSpace(item.Name) == "" {
			return nil, validationError(fmt.Sprintf("items[%d].name", i), "name is required for items without productId")
		}
		price, err := decimal.NewFromString(item.Price)
		if err != nil || price.IsNegative() {
			return nil, validationError(fmt.Sprintf("items[%d].price", i), "price must be a non-negative number")
		}
		parsed[i].price = price
	}

	branchID, err := validateOrderFields(fields)
	if err != nil {
		return nil, err
	}
	if err := s.checkGate(ctx, branchID); err != nil {
		return nil, err
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	products := map[uuid.UUID]database.Product{}
	if len(catalogIDs) > 0 {
		list, err := store.ListProductsByIDs(ctx, catalogIDs)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		for _, p := range list {
			products[p.ID] = p
		}
	}

	lines := make([]orderLine, len(items))
	for i, item := range items {
		line := orderLine{
			quantity:     item.Quantity,
			instructions: optionalText(item.Instructions),
		}
		if pid := parsed[i].productID; pid != nil {
			p, ok := products[*pid]
			if !ok {
				return nil, &Error{
					Kind:  ErrMissingProduct,
					Msg:   fmt.Sprintf("product %s is not available", pid),
					Field: fmt.Sprintf("items[%d].productId", i),
				}
			}
			line.productID = pgtype.UUID{Bytes: *pid, Valid: true}
			line.name = p.Name
			line.unitPrice = effectivePrice(p.Price, p.Discount)
		} else {
			line.name = strings.TrimSpace(item.Name)
			line.unitPrice = parsed[i].price
		}
		lines[i] = line
	}

	var customerID pgtype.UUID
	if email := strings.TrimSpace(fields.CustomerEmail); email != "" {
		id, err := store.UpsertCustomerByEmail(ctx, database.UpsertCustomerByEmailParams{
			Email:    strings.ToLower(email),
			FullName: fields.CustomerName,
			Phone:    optionalText(fields.CustomerPhone),
		})
		if err != nil {
			return nil, fmt.Errorf("upsert customer: %w", err)
		}
		customerID = pgtype.UUID{Bytes: id, Valid: true}
	}

	deliveryType := fields.DeliveryType
	if deliveryType == "" {
		deliveryType = enum.DeliveryTypePickup
	}

	result, err := insertOrder(ctx, store, orderHeader{
		source:       source,
		deliveryType: deliveryType,
		fields:       fields,
		userID:       customerID,
		branchID:     branchID,
	}, lines)
	if err != nil {
		return nil, err
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.OrderEvent(enum.EventOrderCreated, result.Order)
	return result, nil
}

func (s *OrderService) checkGate(ctx context.Context, branchID *uuid.UUID) error {
	decision, err := s.gate.CanPlaceOrder(ctx, branchID)
	if err != nil {
		return fmt.Errorf("check pause gate: %w", err)
	}
	if !decision.Allowed {
		return &Error{Kind: ErrUnavailable, Msg: decision.Reason}
	}
	return nil
}

type orderHeader struct {
	source       string
	deliveryType string
	fields       OrderFields
	userID       pgtype.UUID
	branchID     *uuid.UUID
}

// insertOrder writes the order header and all its lines.
func insertOrder(ctx context.Context, store OrderStore, h orderHeader, lines []orderLine) (*OrderResult, error) {
	total := decimal.Zero
	params := database.CreateOrderItemsParams{
		ProductIDs:   make([]pgtype.UUID, len(lines)),
		ProductNames: make([]string, len(lines)),
		Quantities:   make([]int32, len(lines)),
		UnitPrices:   make([]pgtype.Numeric, len(lines)),
		Instructions: make([]pgtype.Text, len(lines)),
	}
	for i, l := range lines {
		total = total.Add(l.unitPrice.Mul(decimal.NewFromInt32(l.quantity)))
		params.ProductIDs[i] = l.productID
		params.ProductNames[i] = l.name
		params.Quantities[i] = l.quantity
		params.UnitPrices[i] = decimalToNumeric(l.unitPrice)
		params.Instructions[i] = l.instructions
	}

	var branch pgtype.UUID
	if h.branchID != nil {
		branch = pgtype.UUID{Bytes: *h.branchID, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		DeliveryType:  h.deliveryType,
		Source:        h.source,
		CustomerName:  strings.TrimSpace(h.fields.CustomerName),
		CustomerPhone: strings.TrimSpace(h.fields.CustomerPhone),
		CustomerEmail: optionalText(strings.TrimSpace(h.fields.CustomerEmail)),
		Location:      strings.TrimSpace(h.fields.Location),
		Landmark:      optionalText(h.fields.Landmark),
		ChangeRequest: optionalText(h.fields.ChangeRequest),
		UserID:        h.userID,
		BranchID:      branch,
		TotalAmount:   decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	params.OrderID = order.ID
	items, err := store.CreateOrderItems(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create order items: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// validateOrderFields checks the contact fields and returns the parsed
// branch id. An empty delivery type is left for the caller to default.
func validateOrderFields(f OrderFields) (*uuid.UUID, error) {
	if f.DeliveryType != "" && !isValidDeliveryType(f.DeliveryType) {
		return nil, validationError("deliveryType", "deliveryType must be delivery or pickup")
	}
	if strings.TrimSpace(f.CustomerName) == "" {
		return nil, validationError("customerName", "customerName is required")
	}
	if f.DeliveryType == enum.DeliveryTypeDelivery {
		if strings.TrimSpace(f.CustomerPhone) == "" {
			return nil, validationError("customerPhone", "customerPhone is required for delivery")
		}
		if strings.TrimSpace(f.Location) == "" {
			return nil, validationError("location", "location is required for delivery")
		}
	}
	if f.BranchID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(f.BranchID)
	if err != nil {
		return nil, validationError("branchId", "branchId is not a valid id")
	}
	return &id, nil
}
