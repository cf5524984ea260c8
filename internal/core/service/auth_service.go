package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/password"
)

// PasswordVerifier checks a password against a stored hash.
type PasswordVerifier func(ctx context.Context, encodedHash, password string) (bool, error)

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithPasswordVerifier replaces the inline password check, e.g. with a
// bounded worker pool.
func WithPasswordVerifier(v PasswordVerifier) AuthOption {
	return func(s *AuthService) { s.verify = v }
}

func verifyInline(_ context.Context, encodedHash, pw string) (bool, error) {
	return password.Verify(encodedHash, pw)
}

// AuthService implements login: credential lookup, password verification
// and token issuance.
type AuthService struct {
	store  ports.CredentialStore
	tokens ports.TokenIssuer
	verify PasswordVerifier
	log    zerolog.Logger
}

func NewAuthService(store ports.CredentialStore, tokens ports.TokenIssuer, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{store: store, tokens: tokens, verify: verifyInline, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login returns a signed token for valid credentials. Unknown users, empty or
// wrong passwords and hashing failures all return domain.ErrAuthentication.
func (s *AuthService) Login(ctx context.Context, username, pw, clientIP string) (*ports.LoginResult, error) {
	attempt := s.log.With().Str("ip", clientIP).Str("username", username).Logger()

	if username == "" || pw == "" {
		attempt.Info().Str("outcome", "rejected").Msg("login attempt with missing credentials")
		return nil, domain.ErrAuthentication
	}

	rec, err := s.store.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			attempt.Info().Str("outcome", "unknown_user").Msg("login attempt failed")
		} else {
			attempt.Error().Err(err).Str("outcome", "lookup_error").Msg("login attempt failed")
		}
		return nil, domain.ErrAuthentication
	}

	ok, err := s.verify(ctx, rec.PasswordHash, pw)
	if err != nil {
		attempt.Error().Err(err).Str("outcome", "hash_error").Msg("could not validate user account")
		return nil, domain.ErrAuthentication
	}
	if !ok {
		attempt.Info().Str("outcome", "bad_password").Msg("login attempt failed")
		return nil, domain.ErrAuthentication
	}

	principal := rec.Principal()
	token, expiresAt, err := s.tokens.Issue(principal)
	if err != nil {
		attempt.Error().Err(err).Str("outcome", "issue_error").Msg("could not issue token")
		return nil, domain.ErrAuthentication
	}

	attempt.Info().Str("outcome", "success").Str("role", principal.Role).Msg("user successfully logged in")
	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, Principal: principal}, nil
}
