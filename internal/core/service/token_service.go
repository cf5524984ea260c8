package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
)

// DefaultTokenTTL is the lifetime of every issued bearer token.
const DefaultTokenTTL = time.Hour

// Claims is the payload of a bearer token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 bearer tokens with a shared secret
// injected at start-up. The issuing and verifying services each build their
// own TokenService from the same configuration value.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	now      func() time.Time
	denylist ports.Denylist
	log      zerolog.Logger
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithDenylist makes Verify consult d after signature and expiry checks.
func WithDenylist(d ports.Denylist) TokenOption {
	return func(s *TokenService) { s.denylist = d }
}

// WithIssuer sets the iss claim written and required by the service.
func WithIssuer(iss string) TokenOption {
	return func(s *TokenService) { s.issuer = iss }
}

// WithLogger attaches a logger for rejected-token diagnostics.
func WithLogger(log zerolog.Logger) TokenOption {
	return func(s *TokenService) { s.log = log }
}

func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token service: signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue mints a token for p expiring exactly ttl after issuance.
func (s *TokenService) Issue(p domain.Principal) (string, time.Time, error) {
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	claims := Claims{
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.Username,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks structure, signature and expiry, in that order, then claim
// presence and the denylist. Every failure collapses to
// domain.ErrAuthentication; the cause is only logged at debug level.
func (s *TokenService) Verify(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, domain.ErrAuthentication
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil || !parsed.Valid {
		s.log.Debug().Err(err).Msg("bearer token rejected")
		return domain.Principal{}, domain.ErrAuthentication
	}

	if claims.Username == "" || claims.Role == "" {
		s.log.Debug().Msg("bearer token rejected: missing identity claims")
		return domain.Principal{}, domain.ErrAuthentication
	}

	if s.denylist != nil {
		revoked, err := s.denylist.Revoked(ctx, claims.ID)
		if err != nil || revoked {
			s.log.Debug().Err(err).Bool("revoked", revoked).Msg("bearer token rejected by denylist")
			return domain.Principal{}, domain.ErrAuthentication
		}
	}

	return domain.Principal{Username: claims.Username, Role: claims.Role}, nil
}
