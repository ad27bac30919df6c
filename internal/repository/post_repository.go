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

type PostRepository struct {
	Col *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{Col: db.Collection("posts")}
}

func (r *PostRepository) Create(ctx context.Context, p *models.Post) error {
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	_, err := r.Col.InsertOne(ctx, p)
	return wrap(err, "posts.create")
}

func (r *PostRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Post, error) {
	return findOne[models.Post](ctx, r.Col, bson.M{"_id": id}, "posts.findByID")
}

func (r *PostRepository) FindMany(ctx context.Context, ids []bson.ObjectID) ([]models.Post, error) {
	return findMany[models.Post](ctx, r.Col, ids, "posts.findMany")
}

func (r *PostRepository) Update(ctx context.Context, p *models.Post) error {
	expected := p.Version
	p.Version++
	if err := replaceVersioned(ctx, r.Col, p.ID, expected, p, "posts.update"); err != nil {
		p.Version = expected
		return err
	}
	return nil
}

func postFilter(q models.PostQuery) bson.M {
	filter := bson.M{}
	if !q.IncludeDeleted {
		filter["is_deleted"] = false
	}
	if q.RoomID != nil {
		filter["room_id"] = *q.RoomID
	}
	if q.AuthorID != nil {
		filter["author_id"] = *q.AuthorID
	}
	if q.ParentQuestionID != nil {
		filter["parent_question_id"] = *q.ParentQuestionID
	} else if q.TopLevel {
		filter["parent_question_id"] = bson.M{"$exists": false}
	}
	if len(q.Scopes) > 0 {
		filter["scope"] = bson.M{"$in": q.Scopes}
	}
	if q.Type != "" {
		filter["type"] = q.Type
	}
	if tag := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(q.Hashtag), "#")); tag != "" {
		filter["hashtags"] = tag
	}
	afterFilter(filter, q.After)
	return filter
}

func (r *PostRepository) List(ctx context.Context, q models.PostQuery) ([]models.Post, string, error) {
	cur, err := r.Col.Find(ctx, postFilter(q), options.Find().SetSort(newestFirst).SetLimit(int64(q.Limit+1)))
	if err != nil {
		return nil, "", wrap(err, "posts.list")
	}
	defer cur.Close(ctx)
	all := []models.Post{}
	if err := cur.All(ctx, &all); err != nil {
		return nil, "", errors.Wrap(err, "posts.list")
	}
	items, next := cursor.Next(all, q.Limit, func(p models.Post) (time.Time, bson.ObjectID) { return p.CreatedAt, p.ID })
	return items, next, nil
}

// Search matches content and question titles of live posts. Room posts are filtered by the caller.
func (r *PostRepository) Search(ctx context.Context, q string, limit int) ([]models.Post, error) {
	rx := bson.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(q)), Options: "i"}
	filter := bson.M{
		"is_deleted": false,
		"$or": []bson.M{
			{"content": rx},
			{"question_details.title": rx},
			{"hashtags": strings.ToLower(strings.TrimPrefix(strings.TrimSpace(q), "#"))},
		},
	}
	cur, err := r.Col.Find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
	if err != nil {
		return nil, wrap(err, "posts.search")
	}
	defer cur.Close(ctx)
	out := []models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "posts.search")
	}
	return out, nil
}

// TrendingHashtags counts hashtags on live posts created since the given time.
func (r *PostRepository) TrendingHashtags(ctx context.Context, since time.Time, limit int) ([]models.HashtagCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"is_deleted": false,
			"created_at": bson.M{"$gte": since},
			"hashtags":   bson.M{"$exists": true, "$ne": bson.A{}},
		}}},
		{{Key: "$unwind", Value: "$hashtags"}},
		{{Key: "$group", Value: bson.M{"_id": "$hashtags", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cur, err := r.Col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrap(err, "posts.trendingHashtags")
	}
	defer cur.Close(ctx)
	out := []models.HashtagCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "posts.trendingHashtags")
	}
	return out, nil
}

// AdjustComments moves comments_count by delta (clamped at zero), recomputes the
// engagement score and bumps the version.
func (r *PostRepository) AdjustComments(ctx context.Context, id bson.ObjectID, delta int64) error {
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "comments_count", Value: clampedAdd("comments_count", delta)},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "engagement_score", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$multiply", Value: bson.A{"$votes.score", 2}}},
				"$likes_count",
				bson.D{{Key: "$multiply", Value: bson.A{"$comments_count", 3}}},
				bson.D{{Key: "$multiply", Value: bson.A{"$view_count", 0.1}}},
				bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$type", string(models.PostAnswer)}}},
						"$is_accepted",
					}}},
					models.AcceptedBonus,
					0,
				}}},
			}}}},
			{Key: "version", Value: bson.D{{Key: "$add", Value: bson.A{"$version", 1}}}},
		}}},
	}
	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrap(err, "posts.adjustComments")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "posts.adjustComments")
	}
	return nil
}
