package app

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

var (
	// ErrNotSignedIn indicates the visitor holds no credentials.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrEmptyCart indicates checkout was attempted with an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// ProductSource looks up catalog products.
type ProductSource interface {
	Product(ctx context.Context, id int64) (domain.Product, error)
}

// CartService runs cart use cases against a persisted snapshot. Every
// mutation for one visitor is load, apply, save under the visitor's lock.
// An emptied cart is deleted from the store instead of saved.
type CartService struct {
	repo     domain.CartRepository
	products ProductSource
	log      *logger.Logger
	locks    *keyedMutex
}

// NewCartService creates a CartService. products may be nil, in which case
// AddProduct is unavailable.
func NewCartService(repo domain.CartRepository, products ProductSource, log *logger.Logger) *CartService {
	if log == nil {
		log = logger.Nop()
	}
	return &CartService{repo: repo, products: products, log: log, locks: newKeyedMutex()}
}

// Get returns the visitor's cart.
func (s *CartService) Get(ctx context.Context, visitor string) (domain.CartSnapshot, error) {
	c, err := s.load(ctx, visitor)
	if err != nil {
		return domain.CartSnapshot{}, err
	}
	return c.Snapshot(), nil
}

// AddItem adds one unit of item.
func (s *CartService) AddItem(ctx context.Context, visitor string, item domain.Item) (domain.CartSnapshot, error) {
	if err := item.Validate(); err != nil {
		return domain.CartSnapshot{}, err
	}
	return s.mutate(ctx, visitor, func(c *domain.Cart) error {
		c.AddItem(item)
		return nil
	})
}

// AddProduct looks up the product and adds one unit of it at the catalog
// price.
func (s *CartService) AddProduct(ctx context.Context, visitor string, productID int64, unit string) (domain.CartSnapshot, error) {
	if productID <= 0 {
		return domain.CartSnapshot{}, domain.ErrInvalidProductID
	}
	if s.products == nil {
		return domain.CartSnapshot{}, errors.New("cart: no product source configured")
	}
	p, err := s.products.Product(ctx, productID)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("lookup product %d: %w", productID, err)
	}
	return s.AddItem(ctx, visitor, p.CartItem(unit))
}

// RemoveItem removes the line with id. Unknown ids leave the cart as is.
func (s *CartService) RemoveItem(ctx context.Context, visitor string, id int64) (domain.CartSnapshot, error) {
	return s.mutate(ctx, visitor, func(c *domain.Cart) error {
		c.RemoveItem(id)
		return nil
	})
}

// UpdateQuantity sets a line's quantity; zero removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, visitor string, id int64, quantity int) (domain.CartSnapshot, error) {
	if quantity < 0 {
		return domain.CartSnapshot{}, domain.ErrInvalidQuantity
	}
	return s.mutate(ctx, visitor, func(c *domain.Cart) error {
		return c.UpdateQuantity(id, quantity)
	})
}

// DecrementItem lowers a line's quantity by one.
func (s *CartService) DecrementItem(ctx context.Context, visitor string, id int64) (domain.CartSnapshot, error) {
	return s.mutate(ctx, visitor, func(c *domain.Cart) error {
		c.DecrementItem(id)
		return nil
	})
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, visitor string) (domain.CartSnapshot, error) {
	return s.mutate(ctx, visitor, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
}

// RemoveOrdered takes the ordered quantities out of the cart.
func (s *CartService) RemoveOrdered(ctx context.Context, visitor string, items []domain.OrderItem) (domain.CartSnapshot, error) {
	return s.mutate(ctx, visitor, func(c *domain.Cart) error {
		c.RemoveOrdered(items)
		return nil
	})
}

// OrderItems returns the cart as an order placement payload.
func (s *CartService) OrderItems(ctx context.Context, visitor string) ([]domain.OrderItem, error) {
	c, err := s.load(ctx, visitor)
	if err != nil {
		return nil, err
	}
	return c.OrderItems(), nil
}

func (s *CartService) mutate(ctx context.Context, visitor string, apply func(*domain.Cart) error) (domain.CartSnapshot, error) {
	unlock := s.locks.Lock(visitor)
	defer unlock()

	c, err := s.load(ctx, visitor)
	if err != nil {
		return domain.CartSnapshot{}, err
	}
	if err := apply(c); err != nil {
		return domain.CartSnapshot{}, err
	}
	snap := c.Snapshot()
	key := domain.CartKey(visitor)
	if len(snap.Items) == 0 {
		if err := s.repo.DeleteCart(ctx, key); err != nil {
			return domain.CartSnapshot{}, fmt.Errorf("delete cart: %w", err)
		}
		return snap, nil
	}
	if err := s.repo.SaveCart(ctx, key, snap); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("save cart: %w", err)
	}
	return snap, nil
}

func (s *CartService) load(ctx context.Context, visitor string) (*domain.Cart, error) {
	snap, err := s.repo.LoadCart(ctx, domain.CartKey(visitor))
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if snap == nil {
		return domain.NewCart(), nil
	}
	c, repaired := domain.RestoreCart(*snap)
	if repaired {
		s.log.Warn("cart snapshot repaired", "visitor", visitor, "storedItems", snap.TotalItems, "items", c.TotalItems())
	}
	return c, nil
}
