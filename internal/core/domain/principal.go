package domain

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Principal is an authenticated actor: who it is and which role it holds.
type Principal struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CredentialRecord is a single entry of the credential directory.
type CredentialRecord struct {
	Username     string `json:"username" yaml:"username" bson:"username"`
	PasswordHash string `json:"-" yaml:"password_hash" bson:"password_hash"`
	Role         string `json:"role" yaml:"role" bson:"role"`
}

// Principal returns the identity part of the record.
func (r CredentialRecord) Principal() Principal {
	return Principal{Username: r.Username, Role: r.Role}
}
