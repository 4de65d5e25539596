package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const cartColumns = `id, user_id, delivery_type, created_at, updated_at`

func scanCart(row scanner) (Cart, error) {
	var i Cart
	err := row.Scan(&i.ID, &i.UserID, &i.DeliveryType, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const cartItemColumns = `id, cart_id, product_id, quantity, notes, created_at, updated_at`

func scanCartItem(row scanner) (CartItem, error) {
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCartByUser = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1`

func (q *Queries) GetCartByUser(ctx context.Context, userID uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, getCartByUser, userID))
}

// The no-op update makes RETURNING yield the existing row on conflict.
const findOrCreateCart = `INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING ` + cartColumns

func (q *Queries) FindOrCreateCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, findOrCreateCart, userID))
}

const lockCart = `SELECT ` + cartColumns + ` FROM carts WHERE id = $1 FOR UPDATE`

// LockCart reads the cart and holds its row lock until the surrounding
// transaction ends.
func (q *Queries) LockCart(ctx context.Context, id uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, lockCart, id))
}

const updateCartDeliveryType = `UPDATE carts SET delivery_type = $2, updated_at = now()
WHERE user_id = $1
RETURNING ` + cartColumns

type UpdateCartDeliveryTypeParams struct {
	UserID       uuid.UUID
	DeliveryType string
}

func (q *Queries) UpdateCartDeliveryType(ctx context.Context, arg UpdateCartDeliveryTypeParams) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, updateCartDeliveryType, arg.UserID, arg.DeliveryType))
}

const deleteCartByUser = `DELETE FROM carts WHERE user_id = $1`

func (q *Queries) DeleteCartByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartByUser, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const upsertCartItem = `INSERT INTO cart_items (cart_id, product_id, quantity, notes)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cart_id, product_id) DO UPDATE SET
    quantity = cart_items.quantity + EXCLUDED.quantity,
    notes = COALESCE(EXCLUDED.notes, cart_items.notes),
    updated_at = now()
WHERE cart_items.quantity + EXCLUDED.quantity <= $5
RETURNING ` + cartItemColumns

type UpsertCartItemParams struct {
	CartID      uuid.UUID
	ProductID   uuid.UUID
	Quantity    int32
	Notes       pgtype.Text
	MaxQuantity int32
}

// UpsertCartItem adds Quantity to an existing line for the product or
// inserts a new one. Notes are replaced only when supplied. When the merged
// quantity would exceed MaxQuantity nothing is written and pgx.ErrNoRows is
// returned.
func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, upsertCartItem, arg.CartID, arg.ProductID, arg.Quantity, arg.Notes, arg.MaxQuantity))
}

const updateCartItemQuantity = `UPDATE cart_items SET quantity = $3, updated_at = now()
WHERE cart_id = $1 AND product_id = $2
RETURNING ` + cartItemColumns

type UpdateCartItemQuantityParams struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, updateCartItemQuantity, arg.CartID, arg.ProductID, arg.Quantity))
}

const deleteCartItem = `DELETE FROM cart_items
WHERE cart_id = $1 AND product_id = $2
RETURNING ` + cartItemColumns

type DeleteCartItemParams struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, deleteCartItem, arg.CartID, arg.ProductID))
}

const deleteCartItemsByCart = `DELETE FROM cart_items WHERE cart_id = $1`

func (q *Queries) DeleteCartItemsByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItemsByCart, cartID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Product columns are nullable because the product may have been deleted
// after it was added to the cart.
const listCartItemsWithProducts = `SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.notes,
    ci.created_at, ci.updated_at,
    p.name, p.description, p.image_url, p.price, p.discount, p.is_active
FROM cart_items ci
LEFT JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at, ci.id`

type ListCartItemsWithProductsRow struct {
	CartItem
	ProductName        pgtype.Text
	ProductDescription pgtype.Text
	ProductImageUrl    pgtype.Text
	ProductPrice       pgtype.Numeric
	ProductDiscount    pgtype.Numeric
	ProductIsActive    pgtype.Bool
}

func (q *Queries) ListCartItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]ListCartItemsWithProductsRow, error) {
	rows, err := q.db.Query(ctx, listCartItemsWithProducts, cartID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (ListCartItemsWithProductsRow, error) {
		var i ListCartItemsWithProductsRow
		err := row.Scan(
			&i.ID,
			&i.CartID,
			&i.ProductID,
			&i.Quantity,
			&i.Notes,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.ProductName,
			&i.ProductDescription,
			&i.ProductImageUrl,
			&i.ProductPrice,
			&i.ProductDiscount,
			&i.ProductIsActive,
		)
		return i, err
	})
}
