package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

type refreshRow struct {
	userID    bson.ObjectID
	expiresAt time.Time
}

type refreshTable struct {
	mutex sync.Mutex
	rows  map[string]refreshRow
}

type RefreshTokenRepository struct {
	db *refreshTable
}

func NewRefreshTokenRepository(db *DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db.refresh}
}

func (repo *RefreshTokenRepository) SaveRefreshSession(_ context.Context, tokenHash string, userID bson.ObjectID, expiresAt time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.rows[tokenHash] = refreshRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (repo *RefreshTokenRepository) LookupRefreshSession(_ context.Context, tokenHash string) (bson.ObjectID, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[tokenHash]
	if !ok || !time.Now().Before(row.expiresAt) {
		delete(repo.db.rows, tokenHash)
		return bson.NilObjectID, errors.Wrap(repository.ErrNotFound, "refreshTokens.lookup")
	}
	return row.userID, nil
}

func (repo *RefreshTokenRepository) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.rows, tokenHash)
	return nil
}
