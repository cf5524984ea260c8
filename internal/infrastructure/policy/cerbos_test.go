package policy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

var assets = domain.Resource{Kind: "assets", ID: "31337"}

// fakeEngine allows editors everything except delete.
func fakeEngine(t *testing.T, seen *checkRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, checkResourcesPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req checkRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if seen != nil {
			*seen = req
		}

		actions := map[string]string{}
		for _, a := range req.Resources[0].Actions {
			effect := "EFFECT_DENY"
			if req.Principal.Roles[0] == domain.RoleEditor && a != "delete" {
				effect = effectAllow
			}
			actions[a] = effect
		}
		_ = json.NewEncoder(w).Encode(checkResponse{
			RequestID: req.RequestID,
			Results:   []checkResult{{Resource: req.Resources[0].Resource, Actions: actions}},
		})
	}
}

func newClient(t *testing.T, url string, opts ...Option) *CerbosClient {
	t.Helper()
	c, err := NewCerbosClient(Config{BaseURL: url, Timeout: 200 * time.Millisecond, Resource: assets}, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func request(role, action string) domain.AuthorizationRequest {
	return domain.AuthorizationRequest{
		Principal: domain.Principal{Username: "alice", Role: role},
		Resource:  assets,
		Action:    action,
	}
}

func TestCerbosClient_Decide(t *testing.T) {
	var seen checkRequest
	srv := httptest.NewServer(fakeEngine(t, &seen))
	defer srv.Close()
	c := newClient(t, srv.URL+"/")

	d, err := c.Decide(context.Background(), request(domain.RoleEditor, "edit"))
	require.NoError(t, err)
	assert.Equal(t, domain.Decision{Action: "edit", Allowed: true}, d)

	assert.NotEmpty(t, seen.RequestID)
	assert.Equal(t, principalEntry{ID: "alice", Roles: []string{"editor"}}, seen.Principal)
	require.Len(t, seen.Resources, 1)
	assert.Equal(t, []string{"edit"}, seen.Resources[0].Actions)
	assert.Equal(t, assets, seen.Resources[0].Resource)

	d, err = c.Decide(context.Background(), request(domain.RoleEditor, "delete"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = c.Decide(context.Background(), request(domain.RoleViewer, "edit"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCerbosClient_DefaultsResource(t *testing.T) {
	var seen checkRequest
	srv := httptest.NewServer(fakeEngine(t, &seen))
	defer srv.Close()

	req := request(domain.RoleEditor, "view")
	req.Resource = domain.Resource{}
	_, err := newClient(t, srv.URL).Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, assets, seen.Resources[0].Resource)
}

func TestCerbosClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad request", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}},
		{"empty results", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"requestId":"x","results":[]}`))
		}},
		{"action missing from result", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":[{"actions":{"other":"EFFECT_ALLOW"}}]}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			d, err := newClient(t, srv.URL).Decide(context.Background(), request(domain.RoleEditor, "edit"))
			require.ErrorIs(t, err, domain.ErrPolicyEngineUnavailable)
			assert.False(t, d.Allowed, "failure must never yield an allow decision")
		})
	}
}

func TestCerbosClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).Decide(context.Background(), request(domain.RoleEditor, "edit"))
	require.ErrorIs(t, err, domain.ErrPolicyEngineUnavailable)
}

func TestCerbosClient_Observer(t *testing.T) {
	srv := httptest.NewServer(fakeEngine(t, nil))
	defer srv.Close()

	var results []string
	c := newClient(t, srv.URL, WithObserver(func(result string, _ time.Duration) {
		results = append(results, result)
	}))

	_, _ = c.Decide(context.Background(), request(domain.RoleEditor, "edit"))
	_, _ = c.Decide(context.Background(), request(domain.RoleEditor, "delete"))
	srv.Close()
	_, _ = c.Decide(context.Background(), request(domain.RoleEditor, "edit"))

	assert.Equal(t, []string{"allow", "deny", "error"}, results)
}

func TestNewCerbosClient_Validation(t *testing.T) {
	_, err := NewCerbosClient(Config{Resource: assets}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewCerbosClient(Config{BaseURL: "http://localhost:3592"}, zerolog.Nop())
	assert.Error(t, err)

	c, err := NewCerbosClient(Config{BaseURL: "http://localhost:3592", Resource: assets}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)
}
