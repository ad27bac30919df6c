package inmem

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

type CommentRepository struct {
	db *table[models.Comment]
}

func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{db: db.comments}
}

func (repo *CommentRepository) Create(_ context.Context, c *models.Comment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	repo.db.rows[c.ID] = clone(c)
	return nil
}

func (repo *CommentRepository) FindByID(_ context.Context, id bson.ObjectID) (*models.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.rows[id]; ok {
		return clone(row), nil
	}
	return nil, errors.Wrap(repository.ErrNotFound, "comments.findByID")
}

func (repo *CommentRepository) Update(_ context.Context, c *models.Comment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[c.ID]
	if !ok {
		return errors.Wrap(repository.ErrNotFound, "comments.update")
	}
	if row.Version != c.Version {
		return errors.Wrap(repository.ErrVersionConflict, "comments.update")
	}
	c.Version++
	repo.db.rows[c.ID] = clone(c)
	return nil
}

func (repo *CommentRepository) ListByPost(_ context.Context, postID bson.ObjectID, after *models.After, limit int) ([]models.Comment, string, error) {
	repo.db.mutex.RLock()
	all := values(repo.db, func(c *models.Comment) bool { return c.PostID == postID && !c.IsDeleted })
	repo.db.mutex.RUnlock()

	items, next := page(all, func(c models.Comment) (time.Time, bson.ObjectID) { return c.CreatedAt, c.ID }, after, limit)
	return items, next, nil
}

func (repo *CommentRepository) SoftDeleteByPost(_ context.Context, postID bson.ObjectID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := time.Now().UTC()
	for _, c := range repo.db.rows {
		if c.PostID == postID && !c.IsDeleted {
			c.IsDeleted = true
			c.UpdatedAt = now
			c.Version++
		}
	}
	return nil
}
