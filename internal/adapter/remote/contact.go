package remote

import (
	"context"
	"net/http"

	"storefront/internal/domain"
)

// SendContactMessage submits the contact form.
func (s *Session) SendContactMessage(ctx context.Context, in domain.ContactMessage) Result[domain.ContactMessage] {
	return call[domain.ContactMessage](ctx, s, Request{Method: http.MethodPost, Path: "/contact/", Body: in})
}
