package app

import (
	"context"
	"strings"

	"storefront/internal/adapter/remote"
	"storefront/internal/domain"
)

// CatalogService reads the public product catalog.
type CatalogService struct {
	api *remote.Session
}

var _ ProductSource = (*CatalogService)(nil)

// NewCatalogService creates a CatalogService making anonymous calls.
func NewCatalogService(api *remote.Client) *CatalogService {
	return &CatalogService{api: api.Session(nil)}
}

func (s *CatalogService) Products(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	return s.api.Products(ctx, q).Unwrap()
}

func (s *CatalogService) Product(ctx context.Context, id int64) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, domain.ErrInvalidProductID
	}
	return s.api.Product(ctx, id).Unwrap()
}

// Search returns products matching query, optionally within category.
func (s *CatalogService) Search(ctx context.Context, query string, category int64) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	return s.api.SearchProducts(ctx, query, category).Unwrap()
}

func (s *CatalogService) Deals(ctx context.Context) ([]domain.Product, error) {
	return s.api.DealOfTheDay(ctx).Unwrap()
}

func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.api.Categories(ctx).Unwrap()
}

func (s *CatalogService) Category(ctx context.Context, id int64) (domain.Category, error) {
	return s.api.Category(ctx, id).Unwrap()
}
