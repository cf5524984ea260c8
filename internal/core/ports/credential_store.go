package ports

import (
	"context"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

// CredentialStore is the read-only credential directory consulted at login.
// Lookup returns domain.ErrUserNotFound for unknown usernames.
type CredentialStore interface {
	Lookup(ctx context.Context, username string) (*domain.CredentialRecord, error)
}
