package adapthttp

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap, err := s.carts.Get(r.Context(), visitorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleCartAdd adds one unit. A body with a price is added as given;
// otherwise the product is looked up in the catalog.
func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		ID    any              `json:"id"`
		Name  string           `json:"name"`
		Price *decimal.Decimal `json:"price"`
		Unit  string           `json:"unit"`
		Image string           `json:"image"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := domain.ParseProductID(body.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var snap domain.CartSnapshot
	if body.Price != nil {
		snap, err = s.carts.AddItem(r.Context(), visitorFrom(r), domain.Item{
			ID:        id,
			Name:      body.Name,
			UnitPrice: *body.Price,
			Unit:      body.Unit,
			Image:     body.Image,
		})
	} else {
		snap, err = s.carts.AddProduct(r.Context(), visitorFrom(r), id, body.Unit)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var snap domain.CartSnapshot
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Quantity *int `json:"quantity"`
		}
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if body.Quantity == nil {
			writeError(w, http.StatusBadRequest, errors.New("quantity is required"))
			return
		}
		snap, err = s.carts.UpdateQuantity(r.Context(), visitorFrom(r), id, *body.Quantity)
	case http.MethodDelete:
		snap, err = s.carts.RemoveItem(r.Context(), visitorFrom(r), id)
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCartDecrement(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := s.carts.DecrementItem(r.Context(), visitorFrom(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	snap, err := s.carts.Clear(r.Context(), visitorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
