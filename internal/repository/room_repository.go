package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/muthuabi/coros-vite-sub000/internal/cursor"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

type RoomRepository struct {
	Col *mongo.Collection
}

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	return &RoomRepository{Col: db.Collection("rooms")}
}

func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID.IsZero() {
		room.ID = bson.NewObjectID()
	}
	_, err := r.Col.InsertOne(ctx, room)
	return wrap(err, "rooms.create")
}

func (r *RoomRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Room, error) {
	return findOne[models.Room](ctx, r.Col, bson.M{"_id": id}, "rooms.findByID")
}

func (r *RoomRepository) FindMany(ctx context.Context, ids []bson.ObjectID) ([]models.Room, error) {
	return findMany[models.Room](ctx, r.Col, ids, "rooms.findMany")
}

func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	expected := room.Version
	room.Version++
	if err := replaceVersioned(ctx, r.Col, room.ID, expected, room, "rooms.update"); err != nil {
		room.Version = expected
		return err
	}
	return nil
}

func roomFilter(q models.RoomQuery) bson.M {
	filter := bson.M{"is_deleted": false}
	if q.MemberID != nil {
		and(filter, bson.M{"$or": []bson.M{{"admins": *q.MemberID}, {"members": *q.MemberID}}})
	} else if !q.IncludeHidden {
		filter["is_visible"] = true
	}
	if tag := strings.ToLower(strings.TrimSpace(q.Tag)); tag != "" {
		filter["tags"] = tag
	}
	if q.RoomType != "" {
		filter["room_type"] = q.RoomType
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		rx := bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		and(filter, bson.M{"$or": []bson.M{{"name": rx}, {"description": rx}, {"tags": rx}}})
	}
	afterFilter(filter, q.After)
	return filter
}

func (r *RoomRepository) List(ctx context.Context, q models.RoomQuery) ([]models.Room, string, error) {
	cur, err := r.Col.Find(ctx, roomFilter(q), options.Find().SetSort(newestFirst).SetLimit(int64(q.Limit+1)))
	if err != nil {
		return nil, "", wrap(err, "rooms.list")
	}
	defer cur.Close(ctx)
	all := []models.Room{}
	if err := cur.All(ctx, &all); err != nil {
		return nil, "", errors.Wrap(err, "rooms.list")
	}
	items, next := cursor.Next(all, q.Limit, func(room models.Room) (time.Time, bson.ObjectID) { return room.CreatedAt, room.ID })
	return items, next, nil
}

// Trending returns visible rooms ordered by engagement score.
func (r *RoomRepository) Trending(ctx context.Context, limit int) ([]models.Room, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "engagement_score", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.Col.Find(ctx, bson.M{"is_deleted": false, "is_visible": true}, opts)
	if err != nil {
		return nil, wrap(err, "rooms.trending")
	}
	defer cur.Close(ctx)
	out := []models.Room{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "rooms.trending")
	}
	return out, nil
}

// Search is the fallback used when the search index is unavailable.
func (r *RoomRepository) Search(ctx context.Context, q string, limit int) ([]models.Room, error) {
	items, _, err := r.List(ctx, models.RoomQuery{Search: q, Limit: limit})
	return items, err
}

func clampedAdd(field string, delta int64) bson.D {
	return bson.D{{Key: "$max", Value: bson.A{
		0,
		bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, 0}}},
			delta,
		}}},
	}}}
}

// AdjustCounters applies post-side deltas atomically, clamps at zero, recomputes the
// engagement score and bumps the version so concurrent replaces retry.
func (r *RoomRepository) AdjustCounters(ctx context.Context, id bson.ObjectID, posts, likes, comments int64) error {
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "posts_count", Value: clampedAdd("posts_count", posts)},
			{Key: "total_likes", Value: clampedAdd("total_likes", likes)},
			{Key: "total_comments", Value: clampedAdd("total_comments", comments)},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "engagement_score", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$multiply", Value: bson.A{"$posts_count", 2}}},
				"$total_likes",
				bson.D{{Key: "$multiply", Value: bson.A{"$total_comments", 3}}},
			}}}},
			{Key: "version", Value: bson.D{{Key: "$add", Value: bson.A{"$version", 1}}}},
			{Key: "updated_at", Value: "$$NOW"},
		}}},
	}
	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrap(err, "rooms.adjustCounters")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "rooms.adjustCounters")
	}
	return nil
}
