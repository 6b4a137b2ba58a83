package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/domain"
)

func (s *Session) Products(ctx context.Context, q domain.ProductQuery) Result[domain.ProductPage] {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	return call[domain.ProductPage](ctx, s, Request{Method: http.MethodGet, Path: "/products/products/", Query: params})
}

func (s *Session) Product(ctx context.Context, id int64) Result[domain.Product] {
	return call[domain.Product](ctx, s, Request{Method: http.MethodGet, Path: fmt.Sprintf("/products/products/%d/", id)})
}

// SearchProducts runs a free-text search, optionally within a category.
func (s *Session) SearchProducts(ctx context.Context, query string, category int64) Result[[]domain.Product] {
	params := url.Values{"q": {query}}
	if category > 0 {
		params.Set("category", strconv.FormatInt(category, 10))
	}
	return call[[]domain.Product](ctx, s, Request{Method: http.MethodGet, Path: "/products/products/search/", Query: params})
}

func (s *Session) DealOfTheDay(ctx context.Context) Result[[]domain.Product] {
	return call[[]domain.Product](ctx, s, Request{Method: http.MethodGet, Path: "/products/products/deal-of-the-day/"})
}

func (s *Session) Categories(ctx context.Context) Result[[]domain.Category] {
	return call[[]domain.Category](ctx, s, Request{Method: http.MethodGet, Path: "/products/categories/"})
}

func (s *Session) Category(ctx context.Context, id int64) Result[domain.Category] {
	return call[domain.Category](ctx, s, Request{Method: http.MethodGet, Path: fmt.Sprintf("/products/categories/%d/", id)})
}
