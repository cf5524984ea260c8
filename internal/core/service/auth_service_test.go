package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/password"
)

var cheapParams = password.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type stubStore struct {
	records map[string]domain.CredentialRecord
	err     error
}

func (s *stubStore) Lookup(_ context.Context, username string) (*domain.CredentialRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.records[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &r, nil
}

func newStubStore(t *testing.T) *stubStore {
	t.Helper()
	hash, err := password.Hash("correct", cheapParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &stubStore{records: map[string]domain.CredentialRecord{
		"alice": {Username: "alice", PasswordHash: hash, Role: domain.RoleEditor},
		"broken": {Username: "broken", PasswordHash: "$argon2id$garbage", Role: domain.RoleViewer},
	}}
}

func newTokens(t *testing.T, now func() time.Time) *TokenService {
	t.Helper()
	opts := []TokenOption{}
	if now != nil {
		opts = append(opts, WithClock(now))
	}
	svc, err := NewTokenService("secret", time.Hour, opts...)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

func TestAuthService_Login_Success(t *testing.T) {
	tokens := newTokens(t, nil)
	svc := NewAuthService(newStubStore(t), tokens, zerolog.Nop())

	res, err := svc.Login(context.Background(), "alice", "correct", "10.0.0.1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token, got empty")
	}

	p, err := tokens.Verify(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if p != (domain.Principal{Username: "alice", Role: domain.RoleEditor}) {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	cases := []struct {
		name     string
		store    *stubStore
		username string
		password string
	}{
		{"unknown user", newStubStore(t), "mallory", "correct"},
		{"wrong password", newStubStore(t), "alice", "wrong"},
		{"empty password", newStubStore(t), "alice", ""},
		{"empty username", newStubStore(t), "", "correct"},
		{"malformed hash", newStubStore(t), "broken", "whatever"},
		{"store error", &stubStore{err: errors.New("boom")}, "alice", "correct"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewAuthService(tc.store, newTokens(t, nil), zerolog.Nop())
			res, err := svc.Login(context.Background(), tc.username, tc.password, "10.0.0.1")
			if err != domain.ErrAuthentication {
				t.Fatalf("expected ErrAuthentication, got %v", err)
			}
			if res != nil {
				t.Fatalf("expected no result on failure")
			}
		})
	}
}

func TestAuthService_Login_NeverLogsPassword(t *testing.T) {
	var buf bytes.Buffer
	svc := NewAuthService(newStubStore(t), newTokens(t, nil), zerolog.New(&buf))

	_, _ = svc.Login(context.Background(), "alice", "correct", "10.0.0.1")
	_, _ = svc.Login(context.Background(), "alice", "sup3r-secret", "10.0.0.1")

	out := buf.String()
	if strings.Contains(out, "sup3r-secret") || strings.Contains(out, `"correct"`) {
		t.Fatalf("password leaked into logs: %s", out)
	}
	if !strings.Contains(out, `"ip":"10.0.0.1"`) || !strings.Contains(out, `"outcome":"bad_password"`) {
		t.Fatalf("expected attempt to be logged with ip and outcome: %s", out)
	}
}

func TestAuthService_Login_TokenExpiresInOneHour(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := NewAuthService(newStubStore(t), newTokens(t, func() time.Time { return now }), zerolog.Nop())

	res, err := svc.Login(context.Background(), "alice", "correct", "10.0.0.1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if want := now.Add(time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, res.ExpiresAt)
	}
}

func TestAuthService_Login_CustomVerifier(t *testing.T) {
	calls := 0
	verify := func(ctx context.Context, _, _ string) (bool, error) {
		calls++
		return false, ctx.Err()
	}
	svc := NewAuthService(newStubStore(t), newTokens(t, nil), zerolog.Nop(), WithPasswordVerifier(verify))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Login(ctx, "alice", "correct", "10.0.0.1"); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected custom verifier to be used once, got %d", calls)
	}
}
