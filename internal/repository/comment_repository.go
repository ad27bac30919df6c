package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/muthuabi/coros-vite-sub000/internal/cursor"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

type CommentRepository struct {
	ColComments *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) *CommentRepository {
	return &CommentRepository{ColComments: db.Collection("comments")}
}

func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	_, err := r.ColComments.InsertOne(ctx, c)
	return wrap(err, "comments.create")
}

func (r *CommentRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error) {
	return findOne[models.Comment](ctx, r.ColComments, bson.M{"_id": id}, "comments.findByID")
}

func (r *CommentRepository) Update(ctx context.Context, c *models.Comment) error {
	expected := c.Version
	c.Version++
	if err := replaceVersioned(ctx, r.ColComments, c.ID, expected, c, "comments.update"); err != nil {
		c.Version = expected
		return err
	}
	return nil
}

// ListByPost returns live comments newest first with keyset pagination.
func (r *CommentRepository) ListByPost(ctx context.Context, postID bson.ObjectID, after *models.After, limit int) ([]models.Comment, string, error) {
	filter := bson.M{"post_id": postID, "is_deleted": false}
	afterFilter(filter, after)

	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit + 1))
	cur, err := r.ColComments.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", wrap(err, "comments.list")
	}
	defer cur.Close(ctx)

	all := []models.Comment{}
	if err := cur.All(ctx, &all); err != nil {
		return nil, "", errors.Wrap(err, "comments.list")
	}
	items, next := cursor.Next(all, limit, func(c models.Comment) (time.Time, bson.ObjectID) { return c.CreatedAt, c.ID })
	return items, next, nil
}

// SoftDeleteByPost hides every comment of a deleted post.
func (r *CommentRepository) SoftDeleteByPost(ctx context.Context, postID bson.ObjectID) error {
	now := time.Now().UTC()
	_, err := r.ColComments.UpdateMany(ctx,
		bson.M{"post_id": postID, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true, "updated_at": now}, "$inc": bson.M{"version": 1}},
	)
	return wrap(err, "comments.softDeleteByPost")
}
