package ports

import (
	"context"
	"time"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

// LoginResult is what a successful login hands back to the transport layer.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Principal domain.Principal
}

// AuthService verifies credentials and issues bearer tokens.
type AuthService interface {
	Login(ctx context.Context, username, password, clientIP string) (*LoginResult, error)
}
