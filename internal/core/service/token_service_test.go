package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

type stubDenylist struct {
	revoked map[string]bool
	err     error
}

func (d *stubDenylist) Revoked(_ context.Context, id string) (bool, error) {
	return d.revoked[id], d.err
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService("secret", time.Hour)
	require.NoError(t, err)

	for _, p := range []domain.Principal{
		{Username: "alice", Role: domain.RoleEditor},
		{Username: "bob", Role: domain.RoleViewer},
		{Username: "admin", Role: domain.RoleAdmin},
	} {
		token, _, err := svc.Issue(p)
		require.NoError(t, err)

		got, err := svc.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	assert.Error(t, err)
}

func TestTokenService_ExpiredTokenIsInvalid(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, err := NewTokenService("secret", time.Hour, WithClock(clock))
	require.NoError(t, err)

	token, exp, err := svc.Issue(domain.Principal{Username: "alice", Role: domain.RoleEditor})
	require.NoError(t, err)

	now = exp.Add(-time.Second)
	_, err = svc.Verify(context.Background(), token)
	require.NoError(t, err)

	now = exp
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAuthentication, "token must be invalid once now >= exp")

	now = exp.Add(24 * time.Hour)
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestTokenService_DifferentSecretIsInvalid(t *testing.T) {
	issuer, _ := NewTokenService("secret-a", time.Hour)
	verifier, _ := NewTokenService("secret-b", time.Hour)

	token, _, err := issuer.Issue(domain.Principal{Username: "alice", Role: domain.RoleEditor})
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc, _ := NewTokenService("secret", time.Hour)
	claims := Claims{
		Username: "alice",
		Role:     domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), none)
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), hs512)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestTokenService_RejectsMalformedAndIncomplete(t *testing.T) {
	svc, _ := NewTokenService("secret", time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.Verify(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrAuthentication, "token %q", token)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "alice", Role: "editor"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), noExp)
	assert.ErrorIs(t, err, domain.ErrAuthentication, "exp is required")

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), noRole)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestTokenService_Issuer(t *testing.T) {
	a, _ := NewTokenService("secret", time.Hour, WithIssuer("auth-a"))
	b, _ := NewTokenService("secret", time.Hour, WithIssuer("auth-b"))

	token, _, err := a.Issue(domain.Principal{Username: "alice", Role: domain.RoleEditor})
	require.NoError(t, err)

	_, err = a.Verify(context.Background(), token)
	assert.NoError(t, err)
	_, err = b.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestTokenService_Denylist(t *testing.T) {
	deny := &stubDenylist{revoked: map[string]bool{}}
	svc, _ := NewTokenService("secret", time.Hour, WithDenylist(deny))

	token, _, err := svc.Issue(domain.Principal{Username: "alice", Role: domain.RoleEditor})
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), token)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	require.NoError(t, err)
	deny.revoked[parsed.Claims.(*Claims).ID] = true

	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	deny.revoked = map[string]bool{}
	deny.err = errors.New("denylist down")
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAuthentication, "denylist errors fail closed")
}
