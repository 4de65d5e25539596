package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/enum"
)

// CartStore defines the DB methods needed by the cart.
// Satisfied by *database.Queries.
type CartStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetCartByUser(ctx context.Context, userID uuid.UUID) (database.Cart, error)
	FindOrCreateCart(ctx context.Context, userID uuid.UUID) (database.Cart, error)
	UpsertCartItem(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error)
	DeleteCartItem(ctx context.Context, arg database.DeleteCartItemParams) (database.CartItem, error)
	ListCartItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsWithProductsRow, error)
	ListAddonsByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]database.AddonItem, error)
	UpdateCartDeliveryType(ctx context.Context, arg database.UpdateCartDeliveryTypeParams) (database.Cart, error)
}

// MaxCartQuantity is the largest quantity a single cart line may hold.
const MaxCartQuantity = 999

// AddToCartRequest is the input of AddToCart. A Quantity below 1 counts as 1.
type AddToCartRequest struct {
	ProductID string
	Quantity  int32
	Notes     string
}

// CartLine is a cart item with its product display fields and addons.
type CartLine struct {
	Item   database.ListCartItemsWithProductsRow
	Addons []database.AddonItem
}

// CartView is the caller's cart. Cart is nil when none exists yet.
type CartView struct {
	Cart  *database.Cart
	Items []CartLine
}

// CartService owns the per-user shopping cart.
type CartService struct {
	store CartStore
}

// NewCartService creates a new CartService.
func NewCartService(store CartStore) *CartService {
	return &CartService{store: store}
}

// AddToCart adds quantity of a product to the user's cart, creating the cart
// on first use. Adding a product already in the cart merges the quantities.
func (s *CartService) AddToCart(ctx context.Context, userID uuid.UUID, req AddToCartRequest) (database.CartItem, error) {
	if req.ProductID == "" {
		return database.CartItem{}, validationError("productId", "productId is required")
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return database.CartItem{}, validationError("productId", "productId is not a valid id")
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}
	if quantity > MaxCartQuantity {
		return database.CartItem{}, quantityLimitError()
	}

	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CartItem{}, notFoundError("Product not found")
		}
		return database.CartItem{}, fmt.Errorf("get product: %w", err)
	}

	cart, err := s.store.FindOrCreateCart(ctx, userID)
	if err != nil {
		return database.CartItem{}, fmt.Errorf("find or create cart: %w", err)
	}

	item, err := s.store.UpsertCartItem(ctx, database.UpsertCartItemParams{
		CartID:      cart.ID,
		ProductID:   productID,
		Quantity:    quantity,
		Notes:       optionalText(req.Notes),
		MaxQuantity: MaxCartQuantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CartItem{}, quantityLimitError()
		}
		return database.CartItem{}, fmt.Errorf("upsert cart item: %w", err)
	}
	return item, nil
}

// UpdateCartItem overwrites the quantity of a cart line. Zero removes it.
func (s *CartService) UpdateCartItem(ctx context.Context, userID, productID uuid.UUID, quantity *int32) (*database.CartItem, error) {
	if quantity == nil {
		return nil, validationError("quantity", "quantity is required")
	}
	if *quantity < 0 {
		return nil, validationError("quantity", "quantity must be >= 0")
	}
	if *quantity > MaxCartQuantity {
		return nil, quantityLimitError()
	}

	cart, err := s.cartFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	if *quantity == 0 {
		if _, err := s.deleteItem(ctx, cart.ID, productID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	item, err := s.store.UpdateCartItemQuantity(ctx, database.UpdateCartItemQuantityParams{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  *quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Item not found in cart")
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return &item, nil
}

// DeleteFromCart removes a product from the user's cart and returns the
// removed line.
func (s *CartService) DeleteFromCart(ctx context.Context, userID, productID uuid.UUID) (database.CartItem, error) {
	cart, err := s.cartFor(ctx, userID)
	if err != nil {
		return database.CartItem{}, err
	}
	return s.deleteItem(ctx, cart.ID, productID)
}

// FetchCart returns the user's cart lines. A user without a cart gets an
// empty view, not an error.
func (s *CartService) FetchCart(ctx context.Context, userID uuid.UUID) (CartView, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CartView{Items: []CartLine{}}, nil
		}
		return CartView{}, fmt.Errorf("get cart: %w", err)
	}

	rows, err := s.store.ListCartItemsWithProducts(ctx, cart.ID)
	if err != nil {
		return CartView{}, fmt.Errorf("list cart items: %w", err)
	}

	var productIDs []uuid.UUID
	for _, r := range rows {
		if r.ProductID.Valid {
			productIDs = append(productIDs, uuid.UUID(r.ProductID.Bytes))
		}
	}
	addons := map[uuid.UUID][]database.AddonItem{}
	if len(productIDs) > 0 {
		list, err := s.store.ListAddonsByProductIDs(ctx, productIDs)
		if err != nil {
			return CartView{}, fmt.Errorf("list addons: %w", err)
		}
		for _, a := range list {
			addons[a.ProductID] = append(addons[a.ProductID], a)
		}
	}

	lines := make([]CartLine, len(rows))
	for i, r := range rows {
		lines[i] = CartLine{Item: r}
		if r.ProductID.Valid {
			lines[i].Addons = addons[uuid.UUID(r.ProductID.Bytes)]
		}
	}
	return CartView{Cart: &cart, Items: lines}, nil
}

// SetDeliveryType tags the user's cart as delivery or pickup.
func (s *CartService) SetDeliveryType(ctx context.Context, userID uuid.UUID, deliveryType string) (database.Cart, error) {
	if !isValidDeliveryType(deliveryType) {
		return database.Cart{}, validationError("deliveryType", "deliveryType must be delivery or pickup")
	}
	if _, err := s.store.FindOrCreateCart(ctx, userID); err != nil {
		return database.Cart{}, fmt.Errorf("find or create cart: %w", err)
	}
	cart, err := s.store.UpdateCartDeliveryType(ctx, database.UpdateCartDeliveryTypeParams{
		UserID:       userID,
		DeliveryType: deliveryType,
	})
	if err != nil {
		return database.Cart{}, fmt.Errorf("update cart delivery type: %w", err)
	}
	return cart, nil
}

func (s *CartService) cartFor(ctx context.Context, userID uuid.UUID) (database.Cart, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Cart{}, notFoundError("Cart not found")
		}
		return database.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) deleteItem(ctx context.Context, cartID, productID uuid.UUID) (database.CartItem, error) {
	item, err := s.store.DeleteCartItem(ctx, database.DeleteCartItemParams{
		CartID:    cartID,
		ProductID: productID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CartItem{}, notFoundError("Item not found in cart")
		}
		return database.CartItem{}, fmt.Errorf("delete cart item: %w", err)
	}
	return item, nil
}

func isValidDeliveryType(s string) bool {
	switch s {
	case enum.DeliveryTypeDelivery, enum.DeliveryTypePickup:
		return true
	}
	return false
}

func quantityLimitError() error {
	return validationError("quantity", fmt.Sprintf("quantity cannot exceed %d per item", MaxCartQuantity))
}
