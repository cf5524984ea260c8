package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/core/ports"
)

var actionPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// CSRFCheck validates the anti-forgery token pair of the current request.
type CSRFCheck func() error

// GatewayOptions toggles the optional stages of the pipeline.
type GatewayOptions struct {
	// CSRF enables the anti-forgery stage. Only the deliberately vulnerable
	// demo endpoint and the JSON API run without it.
	CSRF bool
	// ValidateInput requires a non-empty alphanumeric action name.
	ValidateInput bool
}

// ActionRequest is the input of a single gated action.
type ActionRequest struct {
	Action      string
	BearerToken string
	ClientIP    string
	// CSRF is invoked when the CSRF stage is enabled; a nil check fails.
	CSRF CSRFCheck
}

// Outcome is the terminal state of a gateway run.
type Outcome struct {
	Stage     domain.Stage
	Reason    domain.RejectReason
	Principal domain.Principal
	Decision  domain.Decision
	Err       error
}

// Allowed reports whether the action passed every stage.
func (o Outcome) Allowed() bool {
	return o.Stage == domain.StageDone
}

// OutcomeObserver is notified of every terminal outcome (metrics).
type OutcomeObserver func(endpoint string, o Outcome, elapsed time.Duration)

// Gateway runs CSRF check, input validation, token verification and the
// policy decision strictly in that order. A failure at any stage ends the
// request in StageRejected and no later stage runs.
type Gateway struct {
	endpoint string
	opts     GatewayOptions
	verifier ports.TokenVerifier
	policy   ports.PolicyDecider
	resource domain.Resource
	observe  OutcomeObserver
	log      zerolog.Logger
}

// NewGateway builds a gateway for one endpoint.
func NewGateway(
	endpoint string,
	opts GatewayOptions,
	verifier ports.TokenVerifier,
	policy ports.PolicyDecider,
	resource domain.Resource,
	log zerolog.Logger,
) *Gateway {
	return &Gateway{
		endpoint: endpoint,
		opts:     opts,
		verifier: verifier,
		policy:   policy,
		resource: resource,
		log:      log.With().Str("endpoint", endpoint).Logger(),
	}
}

// Observe registers fn to receive every terminal outcome.
func (g *Gateway) Observe(fn OutcomeObserver) *Gateway {
	g.observe = fn
	return g
}

// Handle runs the state machine for req.
func (g *Gateway) Handle(ctx context.Context, req ActionRequest) Outcome {
	started := time.Now()
	run := &gatewayRun{stage: domain.StageStart}

	g.step(run, func() (domain.RejectReason, error) {
		if !g.opts.CSRF {
			return domain.ReasonNone, nil
		}
		if req.CSRF == nil {
			return domain.ReasonCSRFFailed, domain.ErrCSRFTokenMissing
		}
		if err := req.CSRF(); err != nil {
			return domain.ReasonCSRFFailed, err
		}
		return domain.ReasonNone, nil
	}, domain.StageCSRFChecked)

	g.step(run, func() (domain.RejectReason, error) {
		if g.opts.ValidateInput {
			if err := ValidateAction(req.Action); err != nil {
				return domain.ReasonInvalidInput, err
			}
		}
		p, err := g.verifier.Verify(ctx, req.BearerToken)
		if err != nil {
			return domain.ReasonNotAuthenticated, err
		}
		run.principal = p
		return domain.ReasonNone, nil
	}, domain.StageAuthenticated)

	g.step(run, func() (domain.RejectReason, error) {
		d, err := g.policy.Decide(ctx, domain.AuthorizationRequest{
			Principal: run.principal,
			Resource:  g.resource,
			Action:    req.Action,
		})
		if err != nil {
			if !errors.Is(err, domain.ErrPolicyEngineUnavailable) {
				err = errors.Join(domain.ErrPolicyEngineUnavailable, err)
			}
			return domain.ReasonPolicyEngineError, err
		}
		run.decision = d
		if !d.Allowed {
			return domain.ReasonNotAuthorized, domain.ErrAuthorizationDenied
		}
		return domain.ReasonNone, nil
	}, domain.StageAuthorized)

	g.step(run, func() (domain.RejectReason, error) {
		return domain.ReasonNone, nil
	}, domain.StageDone)

	out := Outcome{
		Stage:     run.stage,
		Reason:    run.reason,
		Principal: run.principal,
		Decision:  run.decision,
		Err:       run.err,
	}
	g.record(req, out)
	if g.observe != nil {
		g.observe(g.endpoint, out, time.Since(started))
	}
	return out
}

type gatewayRun struct {
	stage     domain.Stage
	reason    domain.RejectReason
	err       error
	principal domain.Principal
	decision  domain.Decision
}

// step runs fn unless the run already terminated, then advances to next or
// to StageRejected.
func (g *Gateway) step(run *gatewayRun, fn func() (domain.RejectReason, error), next domain.Stage) {
	if run.stage.Terminal() {
		return
	}
	if !run.stage.CanTransitionTo(next) {
		run.err = fmt.Errorf("%w: illegal gateway transition from %s to %s", domain.ErrUnexpected, run.stage, next)
		run.stage, run.reason = domain.StageRejected, domain.ReasonInternalError
		return
	}
	if reason, err := fn(); reason != domain.ReasonNone {
		run.stage, run.reason, run.err = domain.StageRejected, reason, err
		return
	}
	run.stage = next
}

func (g *Gateway) record(req ActionRequest, out Outcome) {
	var ev *zerolog.Event
	switch out.Reason {
	case domain.ReasonNone:
		ev = g.log.Info()
	case domain.ReasonPolicyEngineError, domain.ReasonInternalError:
		ev = g.log.Error().Err(out.Err)
	default:
		ev = g.log.Warn()
	}
	ev = ev.Str("stage", string(out.Stage)).Str("ip", req.ClientIP).Str("action", req.Action)
	if out.Reason != domain.ReasonNone {
		ev = ev.Str("reason", string(out.Reason))
	}
	if out.Principal.Username != "" {
		ev = ev.Str("username", out.Principal.Username).Str("role", out.Principal.Role)
	}
	if out.Allowed() {
		ev.Msg("action performed")
		return
	}
	ev.Msg("action rejected")
}

// ValidateAction enforces a non-empty alphanumeric action name. There is no
// length cap; the request body limit bounds it.
func ValidateAction(action string) error {
	if !actionPattern.MatchString(action) {
		return &domain.ValidationError{Field: "action", Message: "Action failed validation"}
	}
	return nil
}
