package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-order/api/internal/database"
)

// memCartStore keeps carts in memory, one per user.
type memCartStore struct {
	products map[uuid.UUID]database.Product
	addons   []database.AddonItem
	carts    map[uuid.UUID]database.Cart // keyed by user id
	items    map[uuid.UUID]map[uuid.UUID]database.CartItem
}

func newMemCartStore(products ...database.Product) *memCartStore {
	m := &memCartStore{
		products: map[uuid.UUID]database.Product{},
		carts:    map[uuid.UUID]database.Cart{},
		items:    map[uuid.UUID]map[uuid.UUID]database.CartItem{},
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memCartStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := m.products[id]
	if !ok || !p.IsActive {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memCartStore) GetCartByUser(ctx context.Context, userID uuid.UUID) (database.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		return database.Cart{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memCartStore) FindOrCreateCart(ctx context.Context, userID uuid.UUID) (database.Cart, error) {
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	c := database.Cart{ID: uuid.New(), UserID: pgtype.UUID{Bytes: userID, Valid: true}, DeliveryType: "delivery"}
	m.carts[userID] = c
	m.items[c.ID] = map[uuid.UUID]database.CartItem{}
	return c, nil
}

func (m *memCartStore) UpsertCartItem(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error) {
	item, ok := m.items[arg.CartID][arg.ProductID]
	if ok {
		if item.Quantity+arg.Quantity > arg.MaxQuantity {
			return database.CartItem{}, pgx.ErrNoRows
		}
		item.Quantity += arg.Quantity
		if arg.Notes.Valid {
			item.Notes = arg.Notes
		}
	} else {
		item = database.CartItem{
			ID:        uuid.New(),
			CartID:    arg.CartID,
			ProductID: pgtype.UUID{Bytes: arg.ProductID, Valid: true},
			Quantity:  arg.Quantity,
			Notes:     arg.Notes,
		}
	}
	m.items[arg.CartID][arg.ProductID] = item
	return item, nil
}

func (m *memCartStore) UpdateCartItemQuantity(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error) {
	item, ok := m.items[arg.CartID][arg.ProductID]
	if !ok {
		return database.CartItem{}, pgx.ErrNoRows
	}
	item.Quantity = arg.Quantity
	m.items[arg.CartID][arg.ProductID] = item
	return item, nil
}

func (m *memCartStore) DeleteCartItem(ctx context.Context, arg database.DeleteCartItemParams) (database.CartItem, error) {
	item, ok := m.items[arg.CartID][arg.ProductID]
	if !ok {
		return database.CartItem{}, pgx.ErrNoRows
	}
	delete(m.items[arg.CartID], arg.ProductID)
	return item, nil
}

func (m *memCartStore) ListCartItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsWithProductsRow, error) {
	var rows []database.ListCartItemsWithProductsRow
	for pid, item := range m.items[cartID] {
		p := m.products[pid]
		rows = append(rows, database.ListCartItemsWithProductsRow{
			CartItem:     item,
			ProductName:  pgtype.Text{String: p.Name, Valid: true},
			ProductPrice: p.Price,
		})
	}
	return rows, nil
}

func (m *memCartStore) ListAddonsByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]database.AddonItem, error) {
	return m.addons, nil
}

func (m *memCartStore) UpdateCartDeliveryType(ctx context.Context, arg database.UpdateCartDeliveryTypeParams) (database.Cart, error) {
	c := m.carts[arg.UserID]
	c.DeliveryType = arg.DeliveryType
	m.carts[arg.UserID] = c
	return c, nil
}

func activeProduct(name, price string) database.Product {
	return database.Product{ID: uuid.New(), Name: name, Price: makeNumeric(price), IsActive: true}
}

func TestAddToCart_MergesQuantity(t *testing.T) {
	p := activeProduct("Nasi Goreng", "25000")
	store := newMemCartStore(p)
	svc := NewCartService(store)
	userID := uuid.New()

	if _, err := svc.AddToCart(context.Background(), userID, AddToCartRequest{ProductID: p.ID.String(), Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, err := svc.AddToCart(context.Background(), userID, AddToCartRequest{ProductID: p.ID.String(), Quantity: 3, Notes: "extra pedas"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Quantity != 5 {
		t.Errorf("quantity: got %d, want 5", item.Quantity)
	}
	if item.Notes.String != "extra pedas" {
		t.Errorf("notes: got %q", item.Notes.String)
	}
	if len(store.carts) != 1 {
		t.Errorf("carts: got %d, want 1", len(store.carts))
	}
}

func TestAddToCart_QuantityLimit(t *testing.T) {
	p := activeProduct("Kerupuk", "2000")
	store := newMemCartStore(p)
	svc := NewCartService(store)
	userID := uuid.New()

	_, err := svc.AddToCart(context.Background(), userID, AddToCartRequest{ProductID: p.ID.String(), Quantity: 2147483647})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("huge quantity: expected ErrValidation, got %v", err)
	}

	if _, err := svc.AddToCart(context.Background(), userID, AddToCartRequest{ProductID: p.ID.String(), Quantity: MaxCartQuantity}); err != nil {
		t.Fatalf("at limit: unexpected error: %v", err)
	}
	_, err = svc.AddToCart(context.Background(), userID, AddToCartRequest{ProductID: p.ID.String(), Quantity: 1})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != ErrValidation || svcErr.Field != "quantity" {
		t.Fatalf("merge past limit: expected quantity validation error, got %v", err)
	}
	cart := store.carts[userID]
	if got := store.items[cart.ID][p.ID].Quantity; got != MaxCartQuantity {
		t.Errorf("quantity after rejected merge: got %d, want %d", got, MaxCartQuantity)
	}

	big := int32(MaxCartQuantity + 1)
	if _, err := svc.UpdateCartItem(context.Background(), userID, p.ID, &big); !errors.Is(err, ErrValidation) {
		t.Errorf("update past limit: expected ErrValidation, got %v", err)
	}
}

func TestAddToCart_DefaultsQuantity(t *testing.T) {
	p := activeProduct("Es Teh", "5000")
	svc := NewCartService(newMemCartStore(p))

	item, err := svc.AddToCart(context.Background(), uuid.New(), AddToCartRequest{ProductID: p.ID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Quantity != 1 {
		t.Errorf("quantity: got %d, want 1", item.Quantity)
	}
}

func TestAddToCart_Errors(t *testing.T) {
	inactive := activeProduct("Seasonal", "1000")
	inactive.IsActive = false
	svc := NewCartService(newMemCartStore(inactive))

	tests := []struct {
		name      string
		productID string
		want      error
	}{
		{"missing product id", "", ErrValidation},
		{"malformed product id", "abc", ErrValidation},
		{"unknown product", uuid.New().String(), ErrNotFound},
		{"inactive product", inactive.ID.String(), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddToCart(context.Background(), uuid.New(), AddToCartRequest{ProductID: tt.productID, Quantity: 1})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateCartItem(t *testing.T) {
	p := activeProduct("Nasi Goreng", "25000")
	store := newMemCartStore(p)
	svc := NewCartService(store)
	userID := uuid.New()
	if _, err := svc.AddToCart(context.Background(), userID, AddToCartRequest{ProductID: p.ID.String(), Quantity: 2}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	qty := int32(7)
	item, err := svc.UpdateCartItem(context.Background(), userID, p.ID, &qty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item == nil || item.Quantity != 7 {
		t.Fatalf("quantity: got %+v, want 7", item)
	}

	zero := int32(0)
	item, err = svc.UpdateCartItem(context.Background(), userID, p.ID, &zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Error("zero quantity should remove the line")
	}
	view, err := svc.FetchCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(view.Items) != 0 {
		t.Errorf("items: got %d, want 0", len(view.Items))
	}

	if _, err := svc.UpdateCartItem(context.Background(), userID, p.ID, &qty); !errors.Is(err, ErrNotFound) {
		t.Errorf("removed line: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateCartItem(context.Background(), userID, p.ID, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("nil quantity: expected ErrValidation, got %v", err)
	}
	neg := int32(-1)
	if _, err := svc.UpdateCartItem(context.Background(), userID, p.ID, &neg); !errors.Is(err, ErrValidation) {
		t.Errorf("negative quantity: expected ErrValidation, got %v", err)
	}
}

func TestUpdateCartItem_NoCart(t *testing.T) {
	svc := NewCartService(newMemCartStore())
	qty := int32(1)

	_, err := svc.UpdateCartItem(context.Background(), uuid.New(), uuid.New(), &qty)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteFromCart(t *testing.T) {
	p := activeProduct("Nasi Goreng", "25000")
	svc := NewCartService(newMemCartStore(p))
	userID := uuid.New()
	if _, err := svc.AddToCart(context.Background(), userID, AddToCartRequest{ProductID: p.ID.String(), Quantity: 1}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	removed, err := svc.DeleteFromCart(context.Background(), userID, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uuid.UUID(removed.ProductID.Bytes) != p.ID {
		t.Error("removed line should be returned")
	}
	if _, err := svc.DeleteFromCart(context.Background(), userID, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestFetchCart_NoCartIsEmpty(t *testing.T) {
	svc := NewCartService(newMemCartStore())

	view, err := svc.FetchCart(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Cart != nil || view.Items == nil || len(view.Items) != 0 {
		t.Errorf("got %+v, want empty view", view)
	}
}

func TestFetchCart_AttachesAddons(t *testing.T) {
	p := activeProduct("Mie Ayam", "20000")
	store := newMemCartStore(p)
	store.addons = []database.AddonItem{{ID: uuid.New(), ProductID: p.ID, Name: "Pangsit", Price: makeNumeric("3000")}}
	svc := NewCartService(store)
	userID := uuid.New()
	if _, err := svc.AddToCart(context.Background(), userID, AddToCartRequest{ProductID: p.ID.String(), Quantity: 1}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	view, err := svc.FetchCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Items) != 1 || len(view.Items[0].Addons) != 1 {
		t.Fatalf("got %+v, want one line with one addon", view.Items)
	}
	if view.Items[0].Item.ProductName.String != "Mie Ayam" {
		t.Errorf("product name: got %q", view.Items[0].Item.ProductName.String)
	}
}

func TestSetDeliveryType(t *testing.T) {
	store := newMemCartStore()
	svc := NewCartService(store)
	userID := uuid.New()

	cart, err := svc.SetDeliveryType(context.Background(), userID, "pickup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.DeliveryType != "pickup" {
		t.Errorf("delivery type: got %q, want pickup", cart.DeliveryType)
	}
	if _, err := svc.SetDeliveryType(context.Background(), userID, "teleport"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCatalogListProducts_GroupsAddons(t *testing.T) {
	p1, p2 := activeProduct("Sate", "30000"), activeProduct("Soto", "20000")
	store := &mockCatalogStore{
		products: []database.Product{p1, p2},
		addons:   []database.AddonItem{{ProductID: p1.ID, Name: "Lontong"}, {ProductID: p1.ID, Name: "Kerupuk"}},
	}
	svc := NewCatalogService(store)
	branchID := uuid.New()

	got, err := svc.ListProducts(context.Background(), &branchID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || len(got[0].Addons) != 2 || len(got[1].Addons) != 0 {
		t.Errorf("got %+v", got)
	}
	if !store.lastParams.BranchID.Valid || store.lastParams.CategoryID.Valid {
		t.Errorf("params: got %+v", store.lastParams)
	}

	if _, err := svc.GetProduct(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown product: expected ErrNotFound, got %v", err)
	}
}

type mockCatalogStore struct {
	products   []database.Product
	addons     []database.AddonItem
	lastParams database.ListProductsParams
}

func (m *mockCatalogStore) ListCategories(ctx context.Context) ([]database.Category, error) {
	return nil, nil
}
func (m *mockCatalogStore) ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error) {
	m.lastParams = arg
	return m.products, nil
}
func (m *mockCatalogStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return database.Product{}, pgx.ErrNoRows
}
func (m *mockCatalogStore) ListAddonsByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]database.AddonItem, error) {
	return m.addons, nil
}
