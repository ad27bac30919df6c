package inmem

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

type NotificationRepository struct {
	db *table[models.Notification]
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db.notifications}
}

func (repo *NotificationRepository) InsertMany(_ context.Context, items []models.Notification) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range items {
		if items[i].UserID.IsZero() {
			return errors.New("notifications.insertMany: zero userID in payload")
		}
		if items[i].ID.IsZero() {
			items[i].ID = bson.NewObjectID()
		}
		repo.db.rows[items[i].ID] = clone(&items[i])
	}
	return nil
}

func (repo *NotificationRepository) List(_ context.Context, userID bson.ObjectID, unreadOnly bool, after *models.After, limit int) ([]models.Notification, string, error) {
	repo.db.mutex.RLock()
	all := values(repo.db, func(n *models.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.Read)
	})
	repo.db.mutex.RUnlock()

	items, next := page(all, func(n models.Notification) (time.Time, bson.ObjectID) { return n.CreatedAt, n.ID }, after, limit)
	return items, next, nil
}

func (repo *NotificationRepository) CountUnread(_ context.Context, userID bson.ObjectID) (int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int64
	for _, row := range repo.db.rows {
		if row.UserID == userID && !row.Read {
			n++
		}
	}
	return n, nil
}

func (repo *NotificationRepository) MarkRead(_ context.Context, userID, id bson.ObjectID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[id]
	if !ok || row.UserID != userID {
		return errors.Wrap(repository.ErrNotFound, "notifications.markRead")
	}
	row.Read = true
	return nil
}

func (repo *NotificationRepository) MarkAllRead(_ context.Context, userID bson.ObjectID) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	for _, row := range repo.db.rows {
		if row.UserID == userID && !row.Read {
			row.Read = true
			n++
		}
	}
	return n, nil
}
