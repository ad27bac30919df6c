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

type NotificationRepository struct {
	Col *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{Col: db.Collection("notifications")}
}

// InsertMany writes the batch with one BulkWrite.
func (r *NotificationRepository) InsertMany(ctx context.Context, items []models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(items))
	for i := range items {
		if items[i].UserID.IsZero() {
			return errors.New("notifications.insertMany: zero userID in payload")
		}
		if items[i].ID.IsZero() {
			items[i].ID = bson.NewObjectID()
		}
		writes = append(writes, mongo.NewInsertOneModel().SetDocument(items[i]))
	}
	_, err := r.Col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return wrap(err, "notifications.insertMany")
}

func (r *NotificationRepository) List(ctx context.Context, userID bson.ObjectID, unreadOnly bool, after *models.After, limit int) ([]models.Notification, string, error) {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}
	afterFilter(filter, after)
	cur, err := r.Col.Find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(limit+1)))
	if err != nil {
		return nil, "", wrap(err, "notifications.list")
	}
	defer cur.Close(ctx)
	all := []models.Notification{}
	if err := cur.All(ctx, &all); err != nil {
		return nil, "", errors.Wrap(err, "notifications.list")
	}
	items, next := cursor.Next(all, limit, func(n models.Notification) (time.Time, bson.ObjectID) { return n.CreatedAt, n.ID })
	return items, next, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID bson.ObjectID) (int64, error) {
	n, err := r.Col.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
	return n, wrap(err, "notifications.countUnread")
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id bson.ObjectID) error {
	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return wrap(err, "notifications.markRead")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "notifications.markRead")
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID bson.ObjectID) (int64, error) {
	res, err := r.Col.UpdateMany(ctx, bson.M{"user_id": userID, "read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, wrap(err, "notifications.markAllRead")
	}
	return res.ModifiedCount, nil
}
