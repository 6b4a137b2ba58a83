package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserProfile is the signed-in customer's profile.
type UserProfile struct {
	ID              int64  `json:"id"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	ContactNumber   string `json:"contact_number,omitempty"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

// SignInRequest carries sign-in credentials.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest carries account creation fields.
type SignUpRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number,omitempty"`
}

// ContactMessage is a message sent through the contact form.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// ProductImage is one gallery image of a product.
type ProductImage struct {
	ID      int64  `json:"id"`
	Image   string `json:"image"`
	AltText string `json:"alt_text,omitempty"`
}

// Product is a catalog entry. The API sends price as a string or a number.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    int64           `json:"category"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Images      []ProductImage  `json:"images"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CartItem converts the product into the item put into a cart.
func (p Product) CartItem(unit string) Item {
	image := p.Thumbnail
	if image == "" && len(p.Images) > 0 {
		image = p.Images[0].Image
	}
	return Item{ID: p.ID, Name: p.Name, UnitPrice: p.Price, Unit: unit, Image: image}
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Results  []Product `json:"results"`
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
}

// ProductQuery filters a product listing.
type ProductQuery struct {
	Page     int
	Search   string
	Category string
}

// Category groups products.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// OrderItem is one line of an order placement.
type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// PlaceOrderRequest is sent to create an order.
type PlaceOrderRequest struct {
	OrderItem       []OrderItem `json:"orderItem"`
	PaymentMethod   string      `json:"payment_method"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
}

// OrderItemResponse is one line of a placed order.
type OrderItemResponse struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Order is a placed order.
type Order struct {
	ID              int64               `json:"id"`
	TotalPrice      decimal.Decimal     `json:"total_price"`
	Status          string              `json:"status"`
	Items           []OrderItemResponse `json:"items"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	PaymentID       string              `json:"payment_id,omitempty"`
	FormattedStatus string              `json:"formatted_status,omitempty"`
	PaymentMethod   string              `json:"payment_method,omitempty"`
}

// PlacedOrder is the result of placing an order.
type PlacedOrder struct {
	Order           Order           `json:"order"`
	RazorpayOrderID string          `json:"razorpay_order_id,omitempty"`
	RazorpayAmount  decimal.Decimal `json:"razorpay_amount"`
	Currency        string          `json:"currency,omitempty"`
}

// PaymentVerification confirms an online payment.
type PaymentVerification struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// DeliveryArea is a serviceable delivery region.
type DeliveryArea struct {
	ID                    int64           `json:"id"`
	City                  string          `json:"city"`
	State                 string          `json:"state"`
	PinCode               string          `json:"pin_code"`
	IsActive              bool            `json:"is_active"`
	DeliveryCharges       decimal.Decimal `json:"delivery_charges"`
	EstimatedDeliveryDays int             `json:"estimated_delivery_days"`
}
