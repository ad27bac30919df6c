package repository

import (
	"context"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrDuplicate       = errors.New("duplicate key")
	ErrVersionConflict = errors.New("version conflict")
)

func isDupKey(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}

// wrap maps driver errors onto the package sentinels and annotates them with op.
func wrap(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrap(ErrNotFound, op)
	case isDupKey(err):
		return errors.Wrap(ErrDuplicate, op)
	}
	return errors.Wrap(err, op)
}

// replaceVersioned writes doc over the stored document only when its version still equals
// expected. A miss on an existing id is reported as ErrVersionConflict.
func replaceVersioned(ctx context.Context, col *mongo.Collection, id bson.ObjectID, expected int64, doc any, op string) error {
	res, err := col.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, doc)
	if err != nil {
		return wrap(err, op)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return wrap(err, op)
	}
	if n == 0 {
		return errors.Wrap(ErrNotFound, op)
	}
	return errors.Wrap(ErrVersionConflict, op)
}

func findMany[T any](ctx context.Context, col *mongo.Collection, ids []bson.ObjectID, op string) ([]T, error) {
	out := []T{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, wrap(err, op)
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrap(err, op)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter any, op string) (*T, error) {
	var doc T
	if err := col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, wrap(err, op)
	}
	return &doc, nil
}

// afterFilter is the (created_at, _id) descending keyset condition.
func afterFilter(filter bson.M, at *models.After) {
	if at == nil {
		return
	}
	and(filter, bson.M{"$or": []bson.M{
		{"created_at": bson.M{"$lt": at.CreatedAt}},
		{"created_at": at.CreatedAt, "_id": bson.M{"$lt": at.ID}},
	}})
}

func and(filter bson.M, clause bson.M) {
	list, _ := filter["$and"].([]bson.M)
	filter["$and"] = append(list, clause)
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
