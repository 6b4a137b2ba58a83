package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/domain"
)

func (s *Session) PlaceOrder(ctx context.Context, in domain.PlaceOrderRequest) Result[domain.PlacedOrder] {
	return call[domain.PlacedOrder](ctx, s, Request{Method: http.MethodPost, Path: "/orders/place/", Body: in})
}

func (s *Session) VerifyPayment(ctx context.Context, in domain.PaymentVerification) Result[domain.Order] {
	return call[domain.Order](ctx, s, Request{Method: http.MethodPost, Path: "/orders/verify-payment/", Body: in})
}

func (s *Session) Orders(ctx context.Context) Result[[]domain.Order] {
	return call[[]domain.Order](ctx, s, Request{Method: http.MethodGet, Path: "/orders/my-orders/"})
}

func (s *Session) Order(ctx context.Context, id int64) Result[domain.Order] {
	return call[domain.Order](ctx, s, Request{Method: http.MethodGet, Path: fmt.Sprintf("/orders/order/%d/", id)})
}

func (s *Session) CancelOrder(ctx context.Context, id int64) Result[domain.Order] {
	return call[domain.Order](ctx, s, Request{Method: http.MethodPost, Path: fmt.Sprintf("/orders/order/%d/cancel/", id)})
}

func (s *Session) ActiveDeliveryAreas(ctx context.Context) Result[[]domain.DeliveryArea] {
	return call[[]domain.DeliveryArea](ctx, s, Request{Method: http.MethodGet, Path: "/addresses/delivery-areas/active_areas/"})
}

// PincodeServiceable reports whether deliveries reach pincode.
func (s *Session) PincodeServiceable(ctx context.Context, pincode string) Result[bool] {
	res := call[struct {
		Serviceable bool `json:"serviceable"`
	}](ctx, s, Request{Method: http.MethodGet, Path: "/addresses/check-pincode/", Query: url.Values{"pincode": {pincode}}})
	if res.Err != nil {
		return Err[bool](res.Err)
	}
	return Ok(res.Value.Serviceable, res.Message, res.Code)
}
