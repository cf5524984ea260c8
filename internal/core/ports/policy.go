package ports

import (
	"context"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

// PolicyDecider asks the external policy engine for a verdict. Engine
// failures are returned as errors wrapping domain.ErrPolicyEngineUnavailable,
// never as a default decision.
type PolicyDecider interface {
	Decide(ctx context.Context, req domain.AuthorizationRequest) (domain.Decision, error)
}
