package ports

import (
	"context"
	"time"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

// TokenIssuer mints signed, time-bounded bearer tokens.
type TokenIssuer interface {
	Issue(p domain.Principal) (token string, expiresAt time.Time, err error)
}

// TokenVerifier validates a bearer token and extracts the principal. Any
// failure is reported as domain.ErrAuthentication.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}

// Denylist is consulted after signature and expiry checks succeed.
type Denylist interface {
	Revoked(ctx context.Context, tokenID string) (bool, error)
}
