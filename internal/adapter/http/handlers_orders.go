package adapthttp

import (
	"net/http"

	"storefront/internal/domain"
)

// handleCheckout returns the price quote on GET and places the order on
// POST.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q, err := s.checkout.Quote(r.Context(), visitorFrom(r))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	case http.MethodPost:
		var body struct {
			PaymentMethod   string `json:"payment_method"`
			ShippingAddress string `json:"shipping_address"`
		}
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		placed, err := s.checkout.PlaceOrder(r.Context(), visitorFrom(r), body.PaymentMethod, body.ShippingAddress)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, placed)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCheckoutVerify(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body domain.PaymentVerification
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order, err := s.checkout.VerifyPayment(r.Context(), visitorFrom(r), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	orders, err := s.checkout.Orders(r.Context(), visitorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orders})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order, err := s.checkout.Order(r.Context(), visitorFrom(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleOrderCancel(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order, err := s.checkout.CancelOrder(r.Context(), visitorFrom(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleDeliveryAreas(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	areas, err := s.checkout.DeliveryAreas(r.Context(), visitorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": areas})
}

func (s *Server) handlePincode(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	pincode := r.PathValue("pincode")
	ok, err := s.checkout.CheckPincode(r.Context(), visitorFrom(r), pincode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pincode": pincode, "serviceable": ok})
}
