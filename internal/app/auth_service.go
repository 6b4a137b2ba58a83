// Package app holds the application services and business logic.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"storefront/internal/adapter/remote"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

var (
	emailPattern  = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// AuthService handles sign-in and the per-visitor credentials held on the
// server.
type AuthService struct {
	sessions domain.SessionRepository
	sealer   Sealer
	api      *remote.Client
	log      *logger.Logger
	now      func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(sessions domain.SessionRepository, sealer Sealer, api *remote.Client, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthService{
		sessions: sessions,
		sealer:   sealer,
		api:      api,
		log:      log,
		now:      time.Now,
	}
}

// Tokens returns the credential store of visitor.
func (s *AuthService) Tokens(visitor string) *SessionTokens {
	return NewSessionTokens(visitor, s.sessions, s.sealer)
}

// Session returns an API session that authenticates as visitor.
func (s *AuthService) Session(visitor string) *remote.Session {
	return s.api.Session(s.Tokens(visitor))
}

// SignedIn reports whether visitor holds a usable access or refresh token.
func (s *AuthService) SignedIn(ctx context.Context, visitor string) (bool, error) {
	tokens := s.Tokens(visitor)
	now := s.now()
	for _, get := range []func(context.Context) (domain.Token, bool, error){tokens.AccessToken, tokens.RefreshToken} {
		tok, ok, err := get(ctx)
		if err != nil {
			return false, err
		}
		if ok && !tok.Expired(now) {
			return true, nil
		}
	}
	return false, nil
}

// SignIn authenticates with the API and stores the returned tokens.
func (s *AuthService) SignIn(ctx context.Context, visitor string, in domain.SignInRequest) (*domain.UserProfile, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return nil, invalid("email and password are required")
	}
	data, err := s.api.Session(nil).SignIn(ctx, in).Unwrap()
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, visitor, data)
}

// SignUp creates an account and signs the visitor in with it.
func (s *AuthService) SignUp(ctx context.Context, visitor string, in domain.SignUpRequest) (*domain.UserProfile, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" || in.Username == "" {
		return nil, invalid("email, username and password are required")
	}
	data, err := s.api.Session(nil).SignUp(ctx, in).Unwrap()
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, visitor, data)
}

func (s *AuthService) establish(ctx context.Context, visitor string, data remote.SignInData) (*domain.UserProfile, error) {
	session := data.Session(s.now())
	if session.Access.Value == "" {
		return nil, errors.New("sign-in response carried no access token")
	}
	tokens := s.Tokens(visitor)
	if err := tokens.SetAccessToken(ctx, session.Access); err != nil {
		return nil, err
	}
	if session.Refresh.Value != "" {
		if err := tokens.SetRefreshToken(ctx, session.Refresh); err != nil {
			return nil, err
		}
	}
	profile := data.UserProfile
	if err := s.cacheUser(ctx, visitor, profile, session.Refresh.ExpiresAt); err != nil {
		s.log.Warn("cache user profile", "visitor", visitor, "error", err)
	}
	s.log.Info("visitor signed in", "visitor", visitor, "user", profile.ID)
	return &profile, nil
}

// Logout forgets the visitor's credentials.
func (s *AuthService) Logout(ctx context.Context, visitor string) error {
	return s.Tokens(visitor).Clear(ctx)
}

// CurrentUser returns the cached profile, fetching it when the cache is
// empty.
func (s *AuthService) CurrentUser(ctx context.Context, visitor string) (*domain.UserProfile, error) {
	ok, err := s.SignedIn(ctx, visitor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotSignedIn
	}

	raw, entry, err := s.Tokens(visitor).getValue(ctx, domain.EntryUser)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		var p domain.UserProfile
		if err := json.Unmarshal([]byte(raw), &p); err == nil && p.ID != 0 {
			return &p, nil
		}
	}

	p, err := s.Session(visitor).Profile(ctx).Unwrap()
	if err != nil {
		return nil, err
	}
	if err := s.cacheUser(ctx, visitor, p, s.refreshExpiry(ctx, visitor)); err != nil {
		s.log.Warn("cache user profile", "visitor", visitor, "error", err)
	}
	return &p, nil
}

func (s *AuthService) cacheUser(ctx context.Context, visitor string, p domain.UserProfile, expiresAt time.Time) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Tokens(visitor).put(ctx, domain.EntryUser, string(b), expiresAt)
}

// UpdateProfile saves the editable profile fields and refreshes the cached
// profile.
func (s *AuthService) UpdateProfile(ctx context.Context, visitor string, in domain.ProfileUpdate) (*domain.UserProfile, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	switch {
	case in.FullName == "":
		return nil, invalid("full name is required")
	case !emailPattern.MatchString(in.Email):
		return nil, invalid("a valid email is required")
	case in.ContactNumber != "" && !digitsPattern.MatchString(in.ContactNumber):
		return nil, invalid("contact number must contain only digits")
	}
	if err := s.requireSignIn(ctx, visitor); err != nil {
		return nil, err
	}
	p, err := s.Session(visitor).UpdateProfile(ctx, in).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := s.cacheUser(ctx, visitor, p, s.refreshExpiry(ctx, visitor)); err != nil {
		s.log.Warn("cache user profile", "visitor", visitor, "error", err)
	}
	return &p, nil
}

// SendEmailVerification mails a verification link to email. An empty email
// falls back to the signed-in visitor's address.
func (s *AuthService) SendEmailVerification(ctx context.Context, visitor, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		if p, err := s.CurrentUser(ctx, visitor); err == nil {
			email = p.Email
		}
	}
	if email == "" {
		return invalid("email is required")
	}
	_, err := s.Session(visitor).SendEmailVerification(ctx, email).Unwrap()
	return err
}

// VerifyEmail confirms an address with the mailed token and marks the
// cached profile as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, visitor, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return invalid("token is required")
	}
	if _, err := s.Session(visitor).VerifyEmail(ctx, token).Unwrap(); err != nil {
		return err
	}
	raw, entry, err := s.Tokens(visitor).getValue(ctx, domain.EntryUser)
	if err != nil {
		s.log.Warn("read cached user profile", "visitor", visitor, "error", err)
		return nil
	}
	var p domain.UserProfile
	if entry == nil || json.Unmarshal([]byte(raw), &p) != nil {
		return nil
	}
	p.IsEmailVerified = true
	if err := s.cacheUser(ctx, visitor, p, entry.ExpiresAt); err != nil {
		s.log.Warn("cache user profile", "visitor", visitor, "error", err)
	}
	return nil
}

// SendContactMessage forwards a contact form submission.
func (s *AuthService) SendContactMessage(ctx context.Context, visitor string, in domain.ContactMessage) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Message = strings.TrimSpace(in.Message)
	switch {
	case in.Name == "" || in.Message == "":
		return invalid("name and message are required")
	case !emailPattern.MatchString(in.Email):
		return invalid("a valid email is required")
	}
	if _, err := s.Session(visitor).SendContactMessage(ctx, in).Unwrap(); err != nil {
		return fmt.Errorf("send contact message: %w", err)
	}
	return nil
}

func (s *AuthService) refreshExpiry(ctx context.Context, visitor string) time.Time {
	if refresh, ok, _ := s.Tokens(visitor).RefreshToken(ctx); ok {
		return refresh.ExpiresAt
	}
	return time.Time{}
}

func (s *AuthService) requireSignIn(ctx context.Context, visitor string) error {
	ok, err := s.SignedIn(ctx, visitor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSignedIn
	}
	return nil
}

// ChangePassword changes the signed-in visitor's password.
func (s *AuthService) ChangePassword(ctx context.Context, visitor, oldPassword, newPassword string) error {
	if newPassword == "" {
		return invalid("new password is required")
	}
	if err := s.requireSignIn(ctx, visitor); err != nil {
		return err
	}
	if _, err := s.Session(visitor).ChangePassword(ctx, oldPassword, newPassword).Unwrap(); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// RequestPasswordReset asks the API to mail a reset link.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email is required")
	}
	_, err := s.api.Session(nil).RequestPasswordReset(ctx, email).Unwrap()
	return err
}

// ResetPassword completes a reset with the mailed token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return invalid("token and new password are required")
	}
	valid, err := s.api.Session(nil).PasswordResetTokenValid(ctx, token).Unwrap()
	if err != nil {
		return err
	}
	if !valid {
		return invalid("reset link is invalid or has expired")
	}
	_, err = s.api.Session(nil).ResetPassword(ctx, token, newPassword).Unwrap()
	return err
}
