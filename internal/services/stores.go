package services

import (
	"context"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

// The store interfaces are satisfied by both the MongoDB repositories and the
// in-memory ones.

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindMany(ctx context.Context, ids []bson.ObjectID) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	Search(ctx context.Context, q string, limit int) ([]models.User, error)
	List(ctx context.Context, q models.UserQuery) ([]models.User, string, error)
}

type RoomStore interface {
	Create(ctx context.Context, r *models.Room) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Room, error)
	FindMany(ctx context.Context, ids []bson.ObjectID) ([]models.Room, error)
	Update(ctx context.Context, r *models.Room) error
	List(ctx context.Context, q models.RoomQuery) ([]models.Room, string, error)
	Trending(ctx context.Context, limit int) ([]models.Room, error)
	AdjustCounters(ctx context.Context, id bson.ObjectID, posts, likes, comments int64) error
}

type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Post, error)
	FindMany(ctx context.Context, ids []bson.ObjectID) ([]models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	List(ctx context.Context, q models.PostQuery) ([]models.Post, string, error)
	TrendingHashtags(ctx context.Context, since time.Time, limit int) ([]models.HashtagCount, error)
	AdjustComments(ctx context.Context, id bson.ObjectID, delta int64) error
}

type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error)
	Update(ctx context.Context, c *models.Comment) error
	ListByPost(ctx context.Context, postID bson.ObjectID, after *models.After, limit int) ([]models.Comment, string, error)
	SoftDeleteByPost(ctx context.Context, postID bson.ObjectID) error
}

type NotificationStore interface {
	InsertMany(ctx context.Context, items []models.Notification) error
	List(ctx context.Context, userID bson.ObjectID, unreadOnly bool, after *models.After, limit int) ([]models.Notification, string, error)
	CountUnread(ctx context.Context, userID bson.ObjectID) (int64, error)
	MarkRead(ctx context.Context, userID, id bson.ObjectID) error
	MarkAllRead(ctx context.Context, userID bson.ObjectID) (int64, error)
}

// SessionStore keeps refresh-token hashes. Implemented by the Redis session store and
// the refresh_tokens collection.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, userID bson.ObjectID, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (bson.ObjectID, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// Indexer receives entity changes for the search index.
type Indexer interface {
	IndexRoom(r *models.Room)
	IndexPost(p *models.Post)
}

type nopIndexer struct{}

func (nopIndexer) IndexRoom(*models.Room) {}
func (nopIndexer) IndexPost(*models.Post) {}

// FileStore is the upload sink, see the storage package.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Upload is one file taken from a multipart form.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Page is a cursor-paginated slice.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

func newPage[T any](items []T, next string) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, NextCursor: next, HasMore: next != ""}
}
