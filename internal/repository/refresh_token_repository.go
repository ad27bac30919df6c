package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type refreshToken struct {
	Hash      string        `bson:"_id"`
	UserID    bson.ObjectID `bson:"user_id"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
}

// RefreshTokenRepository keeps refresh sessions in MongoDB when Redis is not configured.
// Expired documents are purged by the TTL index on expires_at.
type RefreshTokenRepository struct {
	Col *mongo.Collection
}

func NewRefreshTokenRepository(db *mongo.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{Col: db.Collection("refresh_tokens")}
}

func (r *RefreshTokenRepository) SaveRefreshSession(ctx context.Context, tokenHash string, userID bson.ObjectID, expiresAt time.Time) error {
	_, err := r.Col.InsertOne(ctx, refreshToken{
		Hash:      tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	})
	return wrap(err, "refreshTokens.save")
}

func (r *RefreshTokenRepository) LookupRefreshSession(ctx context.Context, tokenHash string) (bson.ObjectID, error) {
	var doc refreshToken
	if err := r.Col.FindOne(ctx, bson.M{"_id": tokenHash}).Decode(&doc); err != nil {
		return bson.NilObjectID, wrap(err, "refreshTokens.lookup")
	}
	// the TTL monitor runs once a minute
	if !time.Now().Before(doc.ExpiresAt) {
		return bson.NilObjectID, errors.Wrap(ErrNotFound, "refreshTokens.lookup")
	}
	return doc.UserID, nil
}

func (r *RefreshTokenRepository) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := r.Col.DeleteOne(ctx, bson.M{"_id": tokenHash})
	return wrap(err, "refreshTokens.revoke")
}
