package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-order/api/internal/database"
)

// CatalogStore defines the read-only DB methods for the catalog.
// Satisfied by *database.Queries.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]database.Category, error)
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListAddonsByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]database.AddonItem, error)
}

// ProductDetail is a product with its addon items.
type ProductDetail struct {
	Product database.Product
	Addons  []database.AddonItem
}

// CatalogService reads products and categories.
type CatalogService struct {
	store CatalogStore
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]database.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// ListProducts returns active products. With a branch, products the branch
// marked unavailable are left out.
func (s *CatalogService) ListProducts(ctx context.Context, branchID, categoryID *uuid.UUID) ([]ProductDetail, error) {
	params := database.ListProductsParams{}
	if branchID != nil {
		params.BranchID = pgtype.UUID{Bytes: *branchID, Valid: true}
	}
	if categoryID != nil {
		params.CategoryID = pgtype.UUID{Bytes: *categoryID, Valid: true}
	}

	products, err := s.store.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	addons, err := s.ListAddons(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ProductDetail, len(products))
	for i, p := range products {
		out[i] = ProductDetail{Product: p, Addons: addons[p.ID]}
	}
	return out, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (ProductDetail, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductDetail{}, notFoundError("Product not found")
		}
		return ProductDetail{}, fmt.Errorf("get product: %w", err)
	}
	addons, err := s.ListAddons(ctx, []uuid.UUID{id})
	if err != nil {
		return ProductDetail{}, err
	}
	return ProductDetail{Product: product, Addons: addons[id]}, nil
}

// ListAddons groups the addon items of the given products by product id.
func (s *CatalogService) ListAddons(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]database.AddonItem, error) {
	out := make(map[uuid.UUID][]database.AddonItem)
	if len(productIDs) == 0 {
		return out, nil
	}
	addons, err := s.store.ListAddonsByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("list addons: %w", err)
	}
	for _, a := range addons {
		out[a.ProductID] = append(out[a.ProductID], a)
	}
	return out, nil
}
