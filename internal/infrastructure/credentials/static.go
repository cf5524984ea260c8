// Package credentials provides the fixed, in-memory credential directory.
package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/password"
)

// StaticStore is a credential directory built once at start-up and never
// mutated afterwards, so concurrent lookups need no locking.
type StaticStore struct {
	records map[string]domain.CredentialRecord
}

// NewStaticStore builds a store from records. Duplicate or incomplete
// entries are rejected.
func NewStaticStore(records []domain.CredentialRecord) (*StaticStore, error) {
	m := make(map[string]domain.CredentialRecord, len(records))
	for i, r := range records {
		if r.Username == "" || r.PasswordHash == "" || r.Role == "" {
			return nil, fmt.Errorf("credentials: entry %d: username, password_hash and role are required", i)
		}
		if _, dup := m[r.Username]; dup {
			return nil, fmt.Errorf("credentials: duplicate username %q", r.Username)
		}
		m[r.Username] = r
	}
	return &StaticStore{records: m}, nil
}

// Lookup satisfies ports.CredentialStore.
func (s *StaticStore) Lookup(_ context.Context, username string) (*domain.CredentialRecord, error) {
	r, ok := s.records[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &r, nil
}

// Len returns the number of entries.
func (s *StaticStore) Len() int {
	return len(s.records)
}

type directoryFile struct {
	Users []domain.CredentialRecord `yaml:"users"`
}

// LoadFile reads a YAML directory of the form
//
//	users:
//	  - username: alice
//	    password_hash: $argon2id$v=19$...
//	    role: editor
func LoadFile(path string) (*StaticStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML credential directory.
func Parse(data []byte) (*StaticStore, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("credentials: decode: %w", err)
	}
	for i := range f.Users {
		f.Users[i].Username = strings.TrimSpace(f.Users[i].Username)
		f.Users[i].Role = strings.TrimSpace(f.Users[i].Role)
	}
	return NewStaticStore(f.Users)
}

// demoUsers is the built-in demo directory. Passwords are hashed when the
// store is built so the binary never ships with precomputed hashes.
var demoUsers = []struct {
	username, password, role string
}{
	{"alice", "correct", domain.RoleEditor},
	{"bob", "hunter2", domain.RoleViewer},
	{"admin", "admin-demo-only", domain.RoleAdmin},
}

// NewDemoStore hashes the built-in demo accounts with params.
func NewDemoStore(params password.Params) (*StaticStore, error) {
	records := make([]domain.CredentialRecord, 0, len(demoUsers))
	for _, u := range demoUsers {
		hash, err := password.Hash(u.password, params)
		if err != nil {
			return nil, fmt.Errorf("credentials: hash demo user %s: %w", u.username, err)
		}
		records = append(records, domain.CredentialRecord{Username: u.username, PasswordHash: hash, Role: u.role})
	}
	return NewStaticStore(records)
}
