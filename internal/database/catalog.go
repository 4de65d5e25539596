package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `p.id, p.category_id, p.name, p.description, p.image_url,
	p.price, p.discount, p.is_active, p.created_at, p.updated_at`

func scanProduct(row scanner) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Name,
		&i.Description,
		&i.ImageUrl,
		&i.Price,
		&i.Discount,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listCategories = `SELECT id, name, sort_order, is_active
FROM categories
WHERE is_active = true
ORDER BY sort_order, name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (Category, error) {
		var i Category
		err := row.Scan(&i.ID, &i.Name, &i.SortOrder, &i.IsActive)
		return i, err
	})
}

// Products without a branch_products row count as available in every branch.
const listProducts = `SELECT ` + productColumns + `
FROM products p
LEFT JOIN branch_products bp ON bp.product_id = p.id AND bp.branch_id = $1
WHERE p.is_active = true
  AND ($1::uuid IS NULL OR bp.is_available IS NULL OR bp.is_available)
  AND ($2::uuid IS NULL OR p.category_id = $2)
ORDER BY p.name`

type ListProductsParams struct {
	BranchID   pgtype.UUID
	CategoryID pgtype.UUID
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.BranchID, arg.CategoryID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProduct)
}

const getProduct = `SELECT ` + productColumns + `
FROM products p
WHERE p.id = $1 AND p.is_active = true`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProductsByIDs = `SELECT ` + productColumns + `
FROM products p
WHERE p.id = ANY($1::uuid[]) AND p.is_active = true`

func (q *Queries) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProduct)
}

const listAddonsByProductIDs = `SELECT id, product_id, name, price
FROM addon_items
WHERE product_id = ANY($1::uuid[])
ORDER BY name`

func (q *Queries) ListAddonsByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]AddonItem, error) {
	rows, err := q.db.Query(ctx, listAddonsByProductIDs, productIDs)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (AddonItem, error) {
		var i AddonItem
		err := row.Scan(&i.ID, &i.ProductID, &i.Name, &i.Price)
		return i, err
	})
}
