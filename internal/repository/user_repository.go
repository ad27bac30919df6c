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

type UserRepository struct {
	Col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{Col: db.Collection("users")}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	_, err := r.Col.InsertOne(ctx, u)
	return wrap(err, "users.create")
}

func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, r.Col, bson.M{"_id": id}, "users.findByID")
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.Col, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}, "users.findByEmail")
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return findOne[models.User](ctx, r.Col, bson.M{"username": strings.TrimSpace(username)}, "users.findByUsername")
}

func (r *UserRepository) FindMany(ctx context.Context, ids []bson.ObjectID) ([]models.User, error) {
	return findMany[models.User](ctx, r.Col, ids, "users.findMany")
}

// Update persists u when nobody else wrote it since it was loaded, and bumps its version.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	expected := u.Version
	u.Version++
	if err := replaceVersioned(ctx, r.Col, u.ID, expected, u, "users.update"); err != nil {
		u.Version = expected
		return err
	}
	return nil
}

// Search matches username or full name, case-insensitively.
func (r *UserRepository) Search(ctx context.Context, q string, limit int) ([]models.User, error) {
	rx := bson.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(q)), Options: "i"}
	filter := bson.M{"$or": []bson.M{{"username": rx}, {"full_name": rx}}}
	cur, err := r.Col.Find(ctx, filter, options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, wrap(err, "users.search")
	}
	defer cur.Close(ctx)
	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "users.search")
	}
	return out, nil
}

func (r *UserRepository) List(ctx context.Context, q models.UserQuery) ([]models.User, string, error) {
	filter := bson.M{}
	afterFilter(filter, q.After)
	cur, err := r.Col.Find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(q.Limit+1)))
	if err != nil {
		return nil, "", wrap(err, "users.list")
	}
	defer cur.Close(ctx)
	all := []models.User{}
	if err := cur.All(ctx, &all); err != nil {
		return nil, "", errors.Wrap(err, "users.list")
	}
	items, next := cursor.Next(all, q.Limit, func(u models.User) (time.Time, bson.ObjectID) { return u.CreatedAt, u.ID })
	return items, next, nil
}
