// Package policy talks to the external policy decision engine.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

const (
	checkResourcesPath = "/api/check/resources"
	effectAllow        = "EFFECT_ALLOW"
	maxResponseBytes   = 1 << 20

	// DefaultTimeout bounds a single decision request.
	DefaultTimeout = 2 * time.Second
)

// Observer receives the result ("allow", "deny" or "error") and latency of
// every engine round trip.
type Observer func(result string, elapsed time.Duration)

// Config describes how to reach the engine and which resource is checked.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Resource domain.Resource
}

// CerbosClient implements ports.PolicyDecider over the Cerbos HTTP API.
// Decisions are never cached and failed calls are never retried.
type CerbosClient struct {
	baseURL  string
	timeout  time.Duration
	resource domain.Resource
	http     *http.Client
	observe  Observer
	log      zerolog.Logger
}

// Option customises a CerbosClient.
type Option func(*CerbosClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cc *CerbosClient) { cc.http = c }
}

// WithObserver registers fn to receive every round trip result.
func WithObserver(fn Observer) Option {
	return func(cc *CerbosClient) { cc.observe = fn }
}

// NewCerbosClient validates cfg and returns a client.
func NewCerbosClient(cfg Config, log zerolog.Logger, opts ...Option) (*CerbosClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("policy: engine URL is required")
	}
	if cfg.Resource.Kind == "" || cfg.Resource.ID == "" {
		return nil, fmt.Errorf("policy: resource kind and id are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &CerbosClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timeout:  cfg.Timeout,
		resource: cfg.Resource,
		http:     &http.Client{},
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resource returns the resource every decision is made for.
func (c *CerbosClient) Resource() domain.Resource {
	return c.resource
}

type checkRequest struct {
	RequestID string          `json:"requestId"`
	Principal principalEntry  `json:"principal"`
	Resources []resourceEntry `json:"resources"`
}

type principalEntry struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

type resourceEntry struct {
	Actions  []string        `json:"actions"`
	Resource domain.Resource `json:"resource"`
}

type checkResponse struct {
	RequestID string        `json:"requestId"`
	Results   []checkResult `json:"results"`
}

type checkResult struct {
	Resource domain.Resource   `json:"resource"`
	Actions  map[string]string `json:"actions"`
}

// Decide asks the engine whether req.Principal may perform req.Action on
// req.Resource. When req.Resource is empty the configured resource is used.
// Every failure wraps domain.ErrPolicyEngineUnavailable.
func (c *CerbosClient) Decide(ctx context.Context, req domain.AuthorizationRequest) (domain.Decision, error) {
	started := time.Now()
	d, err := c.decide(ctx, req)
	elapsed := time.Since(started)

	result := "deny"
	switch {
	case err != nil:
		result = "error"
		c.log.Error().Err(err).
			Str("username", req.Principal.Username).
			Str("action", req.Action).
			Dur("elapsed", elapsed).
			Msg("policy engine request failed")
	case d.Allowed:
		result = "allow"
	}
	if c.observe != nil {
		c.observe(result, elapsed)
	}
	return d, err
}

func (c *CerbosClient) decide(ctx context.Context, req domain.AuthorizationRequest) (domain.Decision, error) {
	resource := req.Resource
	if resource.Kind == "" {
		resource = c.resource
	}

	body, err := json.Marshal(checkRequest{
		RequestID: uuid.NewString(),
		Principal: principalEntry{ID: req.Principal.Username, Roles: []string{req.Principal.Role}},
		Resources: []resourceEntry{{Actions: []string{req.Action}, Resource: resource}},
	})
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: encode request: %v", domain.ErrPolicyEngineUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkResourcesPath, bytes.NewReader(body))
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: build request: %v", domain.ErrPolicyEngineUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %v", domain.ErrPolicyEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Decision{}, fmt.Errorf("%w: unexpected status %d", domain.ErrPolicyEngineUnavailable, resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: decode response: %v", domain.ErrPolicyEngineUnavailable, err)
	}
	if len(out.Results) == 0 {
		return domain.Decision{}, fmt.Errorf("%w: empty result set", domain.ErrPolicyEngineUnavailable)
	}
	effect, ok := out.Results[0].Actions[req.Action]
	if !ok {
		return domain.Decision{}, fmt.Errorf("%w: no effect for action %q", domain.ErrPolicyEngineUnavailable, req.Action)
	}

	return domain.Decision{Action: req.Action, Allowed: effect == effectAllow}, nil
}
