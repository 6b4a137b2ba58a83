package adapthttp

import (
	"net/http"

	"storefront/internal/app"
	"storefront/internal/logger"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	carts         *app.CartService
	auth          *app.AuthService
	catalog       *app.CatalogService
	checkout      *app.CheckoutService
	log           *logger.Logger
	webDir        string
	secureCookies bool
}

// New creates a Server wired to the given application services.
func New(cs *app.CartService, as *app.AuthService, cat *app.CatalogService, co *app.CheckoutService, log *logger.Logger, webDir string) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{carts: cs, auth: as, catalog: cat, checkout: co, log: log, webDir: webDir}
}

// WithSecureCookies marks the visitor cookie Secure.
func (s *Server) WithSecureCookies(secure bool) *Server {
	s.secureCookies = secure
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/cart", s.handleCart)
	api.HandleFunc("/cart/items", s.handleCartAdd)
	api.HandleFunc("/cart/items/{id}", s.handleCartItem)
	api.HandleFunc("/cart/items/{id}/decrement", s.handleCartDecrement)
	api.HandleFunc("/cart/clear", s.handleCartClear)

	api.HandleFunc("/auth/signin", s.handleSignIn)
	api.HandleFunc("/auth/signup", s.handleSignUp)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/me", s.handleMe)
	api.HandleFunc("/auth/email/send", s.handleEmailSend)
	api.HandleFunc("/auth/email/verify", s.handleEmailVerify)
	api.HandleFunc("/auth/password/change", s.handlePasswordChange)
	api.HandleFunc("/auth/password/reset", s.handlePasswordReset)
	api.HandleFunc("/contact", s.handleContact)

	api.HandleFunc("/products", s.handleProducts)
	api.HandleFunc("/products/search", s.handleProductSearch)
	api.HandleFunc("/products/{id}", s.handleProduct)
	api.HandleFunc("/deals", s.handleDeals)
	api.HandleFunc("/categories", s.handleCategories)
	api.HandleFunc("/categories/{id}", s.handleCategory)

	api.HandleFunc("/checkout", s.handleCheckout)
	api.HandleFunc("/checkout/verify", s.handleCheckoutVerify)
	api.HandleFunc("/orders", s.handleOrders)
	api.HandleFunc("/orders/{id}", s.handleOrder)
	api.HandleFunc("/orders/{id}/cancel", s.handleOrderCancel)
	api.HandleFunc("/delivery/areas", s.handleDeliveryAreas)
	api.HandleFunc("/delivery/pincode/{pincode}", s.handlePincode)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", s.visitorMiddleware(api)))
	root.Handle("/", spaFromDisk(s.webDir))

	return withNoCache(s.loggingMiddleware(root))
}
