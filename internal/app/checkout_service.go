package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

// DeliveryFee is the flat fee added to every order.
var DeliveryFee = decimal.NewFromInt(40)

// Quote is the price breakdown shown before placing an order.
type Quote struct {
	Items       []domain.CartLine `json:"items"`
	TotalItems  int               `json:"totalItems"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	DeliveryFee decimal.Decimal   `json:"deliveryFee"`
	Total       decimal.Decimal   `json:"total"`
}

// CheckoutService turns a visitor's cart into an order.
type CheckoutService struct {
	carts *CartService
	auth  *AuthService
	log   *logger.Logger
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(carts *CartService, auth *AuthService, log *logger.Logger) *CheckoutService {
	if log == nil {
		log = logger.Nop()
	}
	return &CheckoutService{carts: carts, auth: auth, log: log}
}

// Quote prices the visitor's current cart.
func (s *CheckoutService) Quote(ctx context.Context, visitor string) (Quote, error) {
	snap, err := s.carts.Get(ctx, visitor)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Items:       snap.Items,
		TotalItems:  snap.TotalItems,
		Subtotal:    snap.TotalPrice,
		DeliveryFee: DeliveryFee,
		Total:       snap.TotalPrice.Add(DeliveryFee),
	}, nil
}

// PlaceOrder submits the cart as an order and, on success, removes the
// ordered quantities from it.
func (s *CheckoutService) PlaceOrder(ctx context.Context, visitor, paymentMethod, shippingAddress string) (domain.PlacedOrder, error) {
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		return domain.PlacedOrder{}, invalid("payment method is required")
	}
	if err := s.requireSignIn(ctx, visitor); err != nil {
		return domain.PlacedOrder{}, err
	}
	items, err := s.carts.OrderItems(ctx, visitor)
	if err != nil {
		return domain.PlacedOrder{}, err
	}
	if len(items) == 0 {
		return domain.PlacedOrder{}, ErrEmptyCart
	}

	placed, err := s.auth.Session(visitor).PlaceOrder(ctx, domain.PlaceOrderRequest{
		OrderItem:       items,
		PaymentMethod:   paymentMethod,
		ShippingAddress: shippingAddress,
	}).Unwrap()
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("place order: %w", err)
	}
	if _, err := s.carts.RemoveOrdered(ctx, visitor, items); err != nil {
		s.log.Error("remove ordered items from cart", "visitor", visitor, "order", placed.Order.ID, "error", err)
	}
	s.log.Info("order placed", "visitor", visitor, "order", placed.Order.ID, "items", len(items))
	return placed, nil
}

// VerifyPayment confirms an online payment for one of the visitor's orders.
func (s *CheckoutService) VerifyPayment(ctx context.Context, visitor string, in domain.PaymentVerification) (domain.Order, error) {
	if err := s.requireSignIn(ctx, visitor); err != nil {
		return domain.Order{}, err
	}
	return s.auth.Session(visitor).VerifyPayment(ctx, in).Unwrap()
}

// Orders lists the visitor's orders.
func (s *CheckoutService) Orders(ctx context.Context, visitor string) ([]domain.Order, error) {
	if err := s.requireSignIn(ctx, visitor); err != nil {
		return nil, err
	}
	return s.auth.Session(visitor).Orders(ctx).Unwrap()
}

// Order returns one of the visitor's orders.
func (s *CheckoutService) Order(ctx context.Context, visitor string, id int64) (domain.Order, error) {
	if err := s.requireSignIn(ctx, visitor); err != nil {
		return domain.Order{}, err
	}
	return s.auth.Session(visitor).Order(ctx, id).Unwrap()
}

// CancelOrder asks the API to cancel an order.
func (s *CheckoutService) CancelOrder(ctx context.Context, visitor string, id int64) (domain.Order, error) {
	if err := s.requireSignIn(ctx, visitor); err != nil {
		return domain.Order{}, err
	}
	return s.auth.Session(visitor).CancelOrder(ctx, id).Unwrap()
}

// DeliveryAreas lists the active delivery areas.
func (s *CheckoutService) DeliveryAreas(ctx context.Context, visitor string) ([]domain.DeliveryArea, error) {
	return s.auth.Session(visitor).ActiveDeliveryAreas(ctx).Unwrap()
}

// CheckPincode reports whether pincode is serviceable.
func (s *CheckoutService) CheckPincode(ctx context.Context, visitor, pincode string) (bool, error) {
	pincode = strings.TrimSpace(pincode)
	if pincode == "" {
		return false, invalid("pincode is required")
	}
	return s.auth.Session(visitor).PincodeServiceable(ctx, pincode).Unwrap()
}

func (s *CheckoutService) requireSignIn(ctx context.Context, visitor string) error {
	return s.auth.requireSignIn(ctx, visitor)
}
