package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-order/api/internal/database"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockPool implements Pool. Statements never reach it because the store
// factory ignores the DBTX it is given.
type mockPool struct {
	tx       *mockTx
	beginErr error
	begun    int
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	m.begun++
	return m.tx, nil
}
func (m *mockPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic("not implemented")
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	lockCartFn              func(ctx context.Context, id uuid.UUID) (database.Cart, error)
	listCartItemsFn         func(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsWithProductsRow, error)
	listProductsByIDsFn     func(ctx context.Context, ids []uuid.UUID) ([]database.Product, error)
	upsertCustomerByEmailFn func(ctx context.Context, arg database.UpsertCustomerByEmailParams) (uuid.UUID, error)
	createOrderFn           func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemsFn      func(ctx context.Context, arg database.CreateOrderItemsParams) ([]database.OrderItem, error)
	deleteCartItemsFn       func(ctx context.Context, cartID uuid.UUID) (int64, error)
	deleteCartByUserFn      func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (m *mockOrderStore) LockCart(ctx context.Context, id uuid.UUID) (database.Cart, error) {
	return m.lockCartFn(ctx, id)
}
func (m *mockOrderStore) ListCartItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsWithProductsRow, error) {
	return m.listCartItemsFn(ctx, cartID)
}
func (m *mockOrderStore) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Product, error) {
	return m.listProductsByIDsFn(ctx, ids)
}
func (m *mockOrderStore) UpsertCustomerByEmail(ctx context.Context, arg database.UpsertCustomerByEmailParams) (uuid.UUID, error) {
	return m.upsertCustomerByEmailFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItems(ctx context.Context, arg database.CreateOrderItemsParams) ([]database.OrderItem, error) {
	return m.createOrderItemsFn(ctx, arg)
}
func (m *mockOrderStore) DeleteCartItemsByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	return m.deleteCartItemsFn(ctx, cartID)
}
func (m *mockOrderStore) DeleteCartByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return m.deleteCartByUserFn(ctx, userID)
}

type mockGate struct {
	decision GateDecision
	err      error
	called   bool
}

func (m *mockGate) CanPlaceOrder(ctx context.Context, branchID *uuid.UUID) (GateDecision, error) {
	m.called = true
	return m.decision, m.err
}

// recordingNotifier remembers the events it receives.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) OrderEvent(event string, order database.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := NumericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func cartRow(productID uuid.UUID, name, price, discount string, qty int32) database.ListCartItemsWithProductsRow {
	return database.ListCartItemsWithProductsRow{
		CartItem: database.CartItem{
			ID:        uuid.New(),
			ProductID: pgUUID(productID),
			Quantity:  qty,
		},
		ProductName:     pgtype.Text{String: name, Valid: true},
		ProductPrice:    makeNumeric(price),
		ProductDiscount: makeNumeric(discount),
		ProductIsActive: pgtype.Bool{Bool: true, Valid: true},
	}
}

// orderFixture wires an OrderService to mocks. The store records what the
// service wrote so tests can inspect it.
type orderFixture struct {
	svc      *OrderService
	pool     *mockPool
	tx       *mockTx
	store    *mockOrderStore
	gate     *mockGate
	notifier *recordingNotifier

	createdOrder *database.CreateOrderParams
	createdItems *database.CreateOrderItemsParams
	cartCleared  bool
}

func newOrderFixture(userID, cartID uuid.UUID, rows []database.ListCartItemsWithProductsRow) *orderFixture {
	f := &orderFixture{
		tx:       &mockTx{},
		gate:     &mockGate{decision: GateDecision{Allowed: true}},
		notifier: &recordingNotifier{},
	}
	f.pool = &mockPool{tx: f.tx}
	f.store = &mockOrderStore{
		lockCartFn: func(ctx context.Context, id uuid.UUID) (database.Cart, error) {
			if id != cartID {
				return database.Cart{}, pgx.ErrNoRows
			}
			return database.Cart{ID: cartID, UserID: pgUUID(userID), DeliveryType: "delivery"}, nil
		},
		listCartItemsFn: func(ctx context.Context, id uuid.UUID) ([]database.ListCartItemsWithProductsRow, error) {
			return rows, nil
		},
		listProductsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]database.Product, error) {
			return nil, nil
		},
		upsertCustomerByEmailFn: func(ctx context.Context, arg database.UpsertCustomerByEmailParams) (uuid.UUID, error) {
			return uuid.New(), nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			f.createdOrder = &arg
			return database.Order{
				ID:           uuid.New(),
				Status:       database.OrderStatusPending,
				DeliveryType: arg.DeliveryType,
				Source:       arg.Source,
				UserID:       arg.UserID,
				BranchID:     arg.BranchID,
				TotalAmount:  arg.TotalAmount,
			}, nil
		},
		createOrderItemsFn: func(ctx context.Context, arg database.CreateOrderItemsParams) ([]database.OrderItem, error) {
			f.createdItems = &arg
			items := make([]database.OrderItem, len(arg.ProductNames))
			for i := range items {
				items[i] = database.OrderItem{
					ID:          uuid.New(),
					OrderID:     arg.OrderID,
					ProductID:   arg.ProductIDs[i],
					ProductName: arg.ProductNames[i],
					Quantity:    arg.Quantities[i],
					UnitPrice:   arg.UnitPrices[i],
				}
			}
			return items, nil
		},
		deleteCartItemsFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			f.cartCleared = true
			return int64(len(rows)), nil
		},
		deleteCartByUserFn: func(ctx context.Context, userID uuid.UUID) (int64, error) {
			return 1, nil
		},
	}
	newStore := func(db database.DBTX) OrderStore { return f.store }
	f.svc = NewOrderService(f.pool, newStore, f.gate, f.notifier)
	return f
}

func validFields() OrderFields {
	return OrderFields{
		DeliveryType:  "delivery",
		CustomerName:  "Budi",
		CustomerPhone: "08123456789",
		Location:      "Jl. Merdeka 1",
	}
}

// --- PlaceOrder ---

func TestPlaceOrder_Success(t *testing.T) {
	userID, cartID := uuid.New(), uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	rows := []database.ListCartItemsWithProductsRow{
		cartRow(p1, "Nasi Goreng", "25000", "0", 2),
		cartRow(p2, "Es Teh", "5000", "1000", 1),
	}
	f := newOrderFixture(userID, cartID, rows)

	result, err := f.svc.PlaceOrder(context.Background(), userID, PlaceOrderRequest{
		CartID:      cartID.String(),
		OrderFields: validFields(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Order.Status != database.OrderStatusPending {
		t.Errorf("status: got %s, want pending", result.Order.Status)
	}
	if len(result.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(result.Items))
	}
	if result.Items[0].ProductName != "Nasi Goreng" || result.Items[1].ProductName != "Es Teh" {
		t.Errorf("snapshotted names: got %q, %q", result.Items[0].ProductName, result.Items[1].ProductName)
	}
	// Es Teh: 5000 - 1000 discount
	if !numericEquals(result.Items[1].UnitPrice, "4000") {
		t.Errorf("effective unit price: got %v, want 4000", NumericToDecimal(result.Items[1].UnitPrice))
	}
	// 2*25000 + 1*4000
	if !numericEquals(f.createdOrder.TotalAmount, "54000") {
		t.Errorf("total: got %v, want 54000", NumericToDecimal(f.createdOrder.TotalAmount))
	}
	if f.createdOrder.Source != "app" {
		t.Errorf("source: got %q, want app", f.createdOrder.Source)
	}
	if uuid.UUID(f.createdOrder.UserID.Bytes) != userID {
		t.Errorf("order owner: got %v, want %v", f.createdOrder.UserID, userID)
	}
	if !f.cartCleared {
		t.Error("cart items should be deleted")
	}
	if !f.tx.committed {
		t.Error("transaction should be committed")
	}
	if got := f.notifier.Events(); len(got) != 1 || got[0] != "order.created" {
		t.Errorf("events: got %v, want [order.created]", got)
	}
}

func TestPlaceOrder_MissingCartID(t *testing.T) {
	f := newOrderFixture(uuid.New(), uuid.New(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), uuid.New(), PlaceOrderRequest{OrderFields: validFields()})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Field != "cartId" {
		t.Errorf("field: got %+v, want cartId", se)
	}
	if f.pool.begun != 0 {
		t.Error("no transaction should be started")
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	userID, cartID := uuid.New(), uuid.New()
	f := newOrderFixture(userID, cartID, []database.ListCartItemsWithProductsRow{})
	f.store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		t.Fatal("CreateOrder must not be called for an empty cart")
		return database.Order{}, nil
	}

	_, err := f.svc.PlaceOrder(context.Background(), userID, PlaceOrderRequest{
		CartID:      cartID.String(),
		OrderFields: validFields(),
	})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if err.Error() != "Cannot place an order with an empty cart." {
		t.Errorf("message: got %q", err.Error())
	}
	if f.tx.committed {
		t.Error("transaction must not be committed")
	}
}

func TestPlaceOrder_MissingProductRollsBack(t *testing.T) {
	userID, cartID := uuid.New(), uuid.New()
	deleted := cartRow(uuid.New(), "Gone", "1000", "0", 1)
	deleted.ProductID = pgtype.UUID{}
	deleted.ProductName = pgtype.Text{}
	f := newOrderFixture(userID, cartID, []database.ListCartItemsWithProductsRow{
		cartRow(uuid.New(), "Nasi Goreng", "25000", "0", 1),
		deleted,
	})

	_, err := f.svc.PlaceOrder(context.Background(), userID, PlaceOrderRequest{
		CartID:      cartID.String(),
		OrderFields: validFields(),
	})
	if !errors.Is(err, ErrMissingProduct) {
		t.Fatalf("expected ErrMissingProduct, got %v", err)
	}
	if f.createdOrder != nil {
		t.Error("no order should be written")
	}
	if f.cartCleared || f.tx.committed {
		t.Error("cart must stay intact and the transaction uncommitted")
	}
}

func TestPlaceOrder_InactiveProductIsMissing(t *testing.T) {
	userID, cartID := uuid.New(), uuid.New()
	row := cartRow(uuid.New(), "Seasonal", "1000", "0", 1)
	row.ProductIsActive = pgtype.Bool{Bool: false, Valid: true}
	f := newOrderFixture(userID, cartID, []database.ListCartItemsWithProductsRow{row})

	_, err := f.svc.PlaceOrder(context.Background(), userID, PlaceOrderRequest{
		CartID:      cartID.String(),
		OrderFields: validFields(),
	})
	if !errors.Is(err, ErrMissingProduct) {
		t.Fatalf("expected ErrMissingProduct, got %v", err)
	}
}

func TestPlaceOrder_CartOfAnotherUser(t *testing.T) {
	owner, cartID := uuid.New(), uuid.New()
	f := newOrderFixture(owner, cartID, []database.ListCartItemsWithProductsRow{
		cartRow(uuid.New(), "Nasi Goreng", "25000", "0", 1),
	})

	_, err := f.svc.PlaceOrder(context.Background(), uuid.New(), PlaceOrderRequest{
		CartID:      cartID.String(),
		OrderFields: validFields(),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaceOrder_GateClosed(t *testing.T) {
	userID, cartID := uuid.New(), uuid.New()
	f := newOrderFixture(userID, cartID, nil)
	f.gate.decision = GateDecision{Allowed: false, Reason: "Kitchen maintenance"}

	_, err := f.svc.PlaceOrder(context.Background(), userID, PlaceOrderRequest{
		CartID:      cartID.String(),
		OrderFields: validFields(),
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err.Error() != "Kitchen maintenance" {
		t.Errorf("message: got %q, want gate reason", err.Error())
	}
	if f.pool.begun != 0 {
		t.Error("gate must be consulted before opening a transaction")
	}
}

func TestPlaceOrder_ClearCartFailureRollsBack(t *testing.T) {
	userID, cartID := uuid.New(), uuid.New()
	f := newOrderFixture(userID, cartID, []database.ListCartItemsWithProductsRow{
		cartRow(uuid.New(), "Nasi Goreng", "25000", "0", 1),
	})
	f.store.deleteCartItemsFn = func(ctx context.Context, id uuid.UUID) (int64, error) {
		return 0, errors.New("connection reset")
	}

	_, err := f.svc.PlaceOrder(context.Background(), userID, PlaceOrderRequest{
		CartID:      cartID.String(),
		OrderFields: validFields(),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if f.tx.committed {
		t.Error("transaction must not be committed")
	}
	if len(f.notifier.Events()) != 0 {
		t.Error("no event should be published for a failed order")
	}
}

func TestPlaceOrder_DefaultsDeliveryTypeFromCart(t *testing.T) {
	userID, cartID := uuid.New(), uuid.New()
	f := newOrderFixture(userID, cartID, []database.ListCartItemsWithProductsRow{
		cartRow(uuid.New(), "Nasi Goreng", "25000", "0", 1),
	})
	fields := validFields()
	fields.DeliveryType = ""

	if _, err := f.svc.PlaceOrder(context.Background(), userID, PlaceOrderRequest{CartID: cartID.String(), OrderFields: fields}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.createdOrder.DeliveryType != "delivery" {
		t.Errorf("delivery type: got %q, want cart's delivery", f.createdOrder.DeliveryType)
	}
}

func TestPlaceOrder_InvalidFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*OrderFields)
		field string
	}{
		{"bad delivery type", func(f *OrderFields) { f.DeliveryType = "drone" }, "deliveryType"},
		{"missing name", func(f *OrderFields) { f.CustomerName = " " }, "customerName"},
		{"delivery without location", func(f *OrderFields) { f.Location = "" }, "location"},
		{"bad branch id", func(f *OrderFields) { f.BranchID = "nope" }, "branchId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(uuid.New(), uuid.New(), nil)
			fields := validFields()
			tt.edit(&fields)

			_, err := f.svc.PlaceOrder(context.Background(), uuid.New(), PlaceOrderRequest{
				CartID:      uuid.New().String(),
				OrderFields: fields,
			})
			var se *Error
			if !errors.As(err, &se) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if se.Field != tt.field {
				t.Errorf("field: got %q, want %q", se.Field, tt.field)
			}
		})
	}
}

// --- PlacePosOrder ---

func TestPlacePosOrder_RepricesCatalogItems(t *testing.T) {
	operator := uuid.New()
	productID := uuid.New()
	customerID := uuid.New()
	f := newOrderFixture(operator, uuid.New(), nil)
	f.store.listProductsByIDsFn = func(ctx context.Context, ids []uuid.UUID) ([]database.Product, error) {
		return []database.Product{{
			ID:       productID,
			Name:     "Ayam Bakar",
			Price:    makeNumeric("30000"),
			Discount: makeNumeric("5000"),
			IsActive: true,
		}}, nil
	}
	var upserted string
	f.store.upsertCustomerByEmailFn = func(ctx context.Context, arg database.UpsertCustomerByEmailParams) (uuid.UUID, error) {
		upserted = arg.Email
		return customerID, nil
	}
	var clearedFor uuid.UUID
	f.store.deleteCartByUserFn = func(ctx context.Context, userID uuid.UUID) (int64, error) {
		clearedFor = userID
		return 1, nil
	}

	fields := validFields()
	fields.CustomerEmail = "Walkin@Example.com"
	result, err := f.svc.PlacePosOrder(context.Background(), operator, PlacePosOrderRequest{
		Items: []DirectItem{
			{ProductID: productID.String(), Name: "Client Name", Price: "1", Quantity: 2},
			{Name: "Extra sambal", Price: "2000", Quantity: 1},
		},
		OrderFields: fields,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.createdItems.ProductNames[0] != "Ayam Bakar" {
		t.Errorf("catalog name: got %q, want Ayam Bakar", f.createdItems.ProductNames[0])
	}
	if !numericEquals(f.createdItems.UnitPrices[0], "25000") {
		t.Errorf("catalog price: got %v, want 25000", NumericToDecimal(f.createdItems.UnitPrices[0]))
	}
	if f.createdItems.ProductIDs[1].Valid {
		t.Error("custom line should have no product id")
	}
	if !numericEquals(f.createdItems.UnitPrices[1], "2000") {
		t.Errorf("custom price: got %v, want 2000", NumericToDecimal(f.createdItems.UnitPrices[1]))
	}
	// 2*25000 + 2000
	if !numericEquals(f.createdOrder.TotalAmount, "52000") {
		t.Errorf("total: got %v, want 52000", NumericToDecimal(f.createdOrder.TotalAmount))
	}
	if upserted != "walkin@example.com" {
		t.Errorf("upserted email: got %q", upserted)
	}
	if uuid.UUID(result.Order.UserID.Bytes) != customerID {
		t.Error("order should belong to the customer, not the operator")
	}
	if f.createdOrder.Source != "pos" {
		t.Errorf("source: got %q, want pos", f.createdOrder.Source)
	}
	if clearedFor != operator {
		t.Errorf("operator cart cleanup: got %v, want %v", clearedFor, operator)
	}
}

func TestPlacePosOrder_EmptyItems(t *testing.T) {
	f := newOrderFixture(uuid.New(), uuid.New(), nil)

	_, err := f.svc.PlacePosOrder(context.Background(), uuid.New(), PlacePosOrderRequest{OrderFields: validFields()})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if f.gate.called {
		t.Error("validation must fail before the gate is consulted")
	}
}

func TestPlacePosOrder_InvalidItems(t *testing.T) {
	tests := []struct {
		name string
		item DirectItem
	}{
		{"zero quantity", DirectItem{Name: "x", Price: "1", Quantity: 0}},
		{"custom without name", DirectItem{Price: "1", Quantity: 1}},
		{"custom negative price", DirectItem{Name: "x", Price: "-5", Quantity: 1}},
		{"custom bad price", DirectItem{Name: "x", Price: "abc", Quantity: 1}},
		{"bad product id", DirectItem{ProductID: "nope", Quantity: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(uuid.New(), uuid.New(), nil)
			_, err := f.svc.PlacePosOrder(context.Background(), uuid.New(), PlacePosOrderRequest{
				Items:       []DirectItem{tt.item},
				OrderFields: validFields(),
			})
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestPlacePosOrder_UnknownProduct(t *testing.T) {
	f := newOrderFixture(uuid.New(), uuid.New(), nil)

	_, err := f.svc.PlacePosOrder(context.Background(), uuid.New(), PlacePosOrderRequest{
		Items:       []DirectItem{{ProductID: uuid.New().String(), Quantity: 1}},
		OrderFields: validFields(),
	})
	if !errors.Is(err, ErrMissingProduct) {
		t.Fatalf("expected ErrMissingProduct, got %v", err)
	}
	if f.tx.committed {
		t.Error("transaction must not be committed")
	}
}

func TestPlacePosOrder_CleanupFailureIsNotFatal(t *testing.T) {
	f := newOrderFixture(uuid.New(), uuid.New(), nil)
	f.store.deleteCartByUserFn = func(ctx context.Context, userID uuid.UUID) (int64, error) {
		return 0, errors.New("boom")
	}

	result, err := f.svc.PlacePosOrder(context.Background(), uuid.New(), PlacePosOrderRequest{
		Items:       []DirectItem{{Name: "Kerupuk", Price: "3000", Quantity: 1}},
		OrderFields: validFields(),
	})
	if err != nil {
		t.Fatalf("cleanup failure must not fail the order: %v", err)
	}
	if result == nil || !f.tx.committed {
		t.Error("order should be committed")
	}
}

func TestPlacePosOrder_WithoutEmailHasNoOwner(t *testing.T) {
	f := newOrderFixture(uuid.New(), uuid.New(), nil)
	f.store.upsertCustomerByEmailFn = func(ctx context.Context, arg database.UpsertCustomerByEmailParams) (uuid.UUID, error) {
		t.Fatal("no customer lookup without an email")
		return uuid.Nil, nil
	}

	_, err := f.svc.PlacePosOrder(context.Background(), uuid.New(), PlacePosOrderRequest{
		Items:       []DirectItem{{Name: "Kerupuk", Price: "3000", Quantity: 1}},
		OrderFields: validFields(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.createdOrder.UserID.Valid {
		t.Error("walk-in order should have no owner")
	}
}

func TestPlaceChatbotOrder_Source(t *testing.T) {
	productID := uuid.New()
	f := newOrderFixture(uuid.New(), uuid.New(), nil)
	f.store.listProductsByIDsFn = func(ctx context.Context, ids []uuid.UUID) ([]database.Product, error) {
		return []database.Product{{ID: productID, Name: "Es Teh", Price: makeNumeric("5000"), IsActive: true}}, nil
	}
	f.store.deleteCartByUserFn = func(ctx context.Context, userID uuid.UUID) (int64, error) {
		t.Fatal("chatbot orders have no operator cart")
		return 0, nil
	}

	_, err := f.svc.PlaceChatbotOrder(context.Background(), []DirectItem{{ProductID: productID.String(), Quantity: 3}}, validFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.createdOrder.Source != "chatbot" {
		t.Errorf("source: got %q, want chatbot", f.createdOrder.Source)
	}
}

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		price, discount, want string
	}{
		{"10000", "0", "10000"},
		{"10000", "2500", "7500"},
		{"1000", "5000", "0"},
	}
	for _, tt := range tests {
		got := effectivePrice(makeNumeric(tt.price), makeNumeric(tt.discount))
		want, _ := decimal.NewFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("effectivePrice(%s, %s): got %s, want %s", tt.price, tt.discount, got, tt.want)
		}
	}
}
