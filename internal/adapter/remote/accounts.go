package remote

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/domain"
)

// SignInData is returned by sign-in and sign-up: the tokens plus whatever
// profile fields the API includes.
type SignInData struct {
	AuthTokens
	domain.UserProfile
}

func (s *Session) SignIn(ctx context.Context, in domain.SignInRequest) Result[SignInData] {
	return call[SignInData](ctx, s, Request{Method: http.MethodPost, Path: "/accounts/signin/", Body: in})
}

func (s *Session) SignUp(ctx context.Context, in domain.SignUpRequest) Result[SignInData] {
	return call[SignInData](ctx, s, Request{Method: http.MethodPost, Path: "/accounts/signup/", Body: in})
}

func (s *Session) Profile(ctx context.Context) Result[domain.UserProfile] {
	return call[domain.UserProfile](ctx, s, Request{Method: http.MethodGet, Path: "/accounts/profile/"})
}

// UpdateProfile patches the editable profile fields.
func (s *Session) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) Result[domain.UserProfile] {
	return call[domain.UserProfile](ctx, s, Request{Method: http.MethodPatch, Path: "/accounts/profile/", Body: in})
}

func (s *Session) SendEmailVerification(ctx context.Context, email string) Result[Empty] {
	return call[Empty](ctx, s, Request{Method: http.MethodPost, Path: "/accounts/email/send/", Body: map[string]string{"email": email}})
}

func (s *Session) VerifyEmail(ctx context.Context, token string) Result[Empty] {
	return call[Empty](ctx, s, Request{Method: http.MethodPost, Path: "/accounts/email/verify/", Body: map[string]string{"token": token}})
}

func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) Result[Empty] {
	return call[Empty](ctx, s, Request{Method: http.MethodPost, Path: "/accounts/password/change/", Body: map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}})
}

func (s *Session) RequestPasswordReset(ctx context.Context, email string) Result[Empty] {
	return call[Empty](ctx, s, Request{Method: http.MethodPost, Path: "/accounts/password/reset/request/", Body: map[string]string{"email": email}})
}

// PasswordResetTokenValid reports whether a reset token may still be used.
func (s *Session) PasswordResetTokenValid(ctx context.Context, token string) Result[bool] {
	res := call[struct {
		Valid bool `json:"valid"`
	}](ctx, s, Request{Method: http.MethodGet, Path: "/accounts/password/reset/verify-token/", Query: url.Values{"token": {token}}})
	if res.Err != nil {
		return Err[bool](res.Err)
	}
	return Ok(res.Value.Valid, res.Message, res.Code)
}

func (s *Session) ResetPassword(ctx context.Context, token, newPassword string) Result[Empty] {
	return call[Empty](ctx, s, Request{Method: http.MethodPost, Path: "/accounts/password/reset/", Body: map[string]string{
		"token":        token,
		"new_password": newPassword,
	}})
}
