package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

const credentialCollection = "credentials"

// CredentialRepository is a read-only credential directory backed by MongoDB.
// It never writes: users and roles are provisioned outside this system.
type CredentialRepository struct {
	coll *mongo.Collection
}

// NewCredentialRepository reads from collection, "credentials" when empty.
func NewCredentialRepository(db *mongo.Database, collection string) *CredentialRepository {
	if collection == "" {
		collection = credentialCollection
	}
	return &CredentialRepository{coll: db.Collection(collection)}
}

type mongoCredential struct {
	Username     string `bson:"username"`
	PasswordHash string `bson:"password_hash"`
	Role         string `bson:"role"`
}

// Lookup satisfies ports.CredentialStore.
func (r *CredentialRepository) Lookup(ctx context.Context, username string) (*domain.CredentialRecord, error) {
	var mc mongoCredential
	opts := options.FindOne().SetProjection(bson.M{"_id": 0, "username": 1, "password_hash": 1, "role": 1})
	if err := r.coll.FindOne(ctx, bson.M{"username": username}, opts).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}

	return &domain.CredentialRecord{
		Username:     mc.Username,
		PasswordHash: mc.PasswordHash,
		Role:         mc.Role,
	}, nil
}
