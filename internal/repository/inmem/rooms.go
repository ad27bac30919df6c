package inmem

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

type RoomRepository struct {
	db *table[models.Room]
}

func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{db: db.rooms}
}

func (repo *RoomRepository) unique(r *models.Room) error {
	for id, row := range repo.db.rows {
		if id != r.ID && row.NameKey == r.NameKey {
			return errors.Wrap(repository.ErrDuplicate, "rooms")
		}
	}
	return nil
}

func (repo *RoomRepository) Create(_ context.Context, r *models.Room) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if r.ID.IsZero() {
		r.ID = bson.NewObjectID()
	}
	if err := repo.unique(r); err != nil {
		return err
	}
	repo.db.rows[r.ID] = clone(r)
	return nil
}

func (repo *RoomRepository) FindByID(_ context.Context, id bson.ObjectID) (*models.Room, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.rows[id]; ok {
		return clone(row), nil
	}
	return nil, errors.Wrap(repository.ErrNotFound, "rooms.findByID")
}

func (repo *RoomRepository) FindMany(_ context.Context, ids []bson.ObjectID) ([]models.Room, error) {
	return findMany(repo.db, ids), nil
}

func (repo *RoomRepository) Update(_ context.Context, r *models.Room) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[r.ID]
	if !ok {
		return errors.Wrap(repository.ErrNotFound, "rooms.update")
	}
	if row.Version != r.Version {
		return errors.Wrap(repository.ErrVersionConflict, "rooms.update")
	}
	if err := repo.unique(r); err != nil {
		return err
	}
	r.Version++
	repo.db.rows[r.ID] = clone(r)
	return nil
}

func (repo *RoomRepository) AdjustCounters(_ context.Context, id bson.ObjectID, posts, likes, comments int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[id]
	if !ok {
		return errors.Wrap(repository.ErrNotFound, "rooms.adjustCounters")
	}
	row.AdjustCounters(posts, likes, comments)
	row.EngagementScore = float64(row.PostsCount*2 + row.TotalLikes + row.TotalComments*3)
	row.UpdatedAt = time.Now().UTC()
	row.Version++
	return nil
}

func matchRoom(q models.RoomQuery) func(*models.Room) bool {
	tag := strings.ToLower(strings.TrimSpace(q.Tag))
	search := strings.ToLower(strings.TrimSpace(q.Search))
	return func(r *models.Room) bool {
		if r.IsDeleted {
			return false
		}
		if q.MemberID != nil {
			if !r.HasMember(*q.MemberID) {
				return false
			}
		} else if !q.IncludeHidden && !r.IsVisible {
			return false
		}
		if tag != "" && !slices.Contains(r.Tags, tag) {
			return false
		}
		if q.RoomType != "" && r.RoomType != q.RoomType {
			return false
		}
		if search != "" {
			hit := strings.Contains(strings.ToLower(r.Name), search) ||
				strings.Contains(strings.ToLower(r.Description), search) ||
				slices.ContainsFunc(r.Tags, func(t string) bool { return strings.Contains(t, search) })
			if !hit {
				return false
			}
		}
		return true
	}
}

func (repo *RoomRepository) List(_ context.Context, q models.RoomQuery) ([]models.Room, string, error) {
	repo.db.mutex.RLock()
	all := values(repo.db, matchRoom(q))
	repo.db.mutex.RUnlock()

	items, next := page(all, func(r models.Room) (time.Time, bson.ObjectID) { return r.CreatedAt, r.ID }, q.After, q.Limit)
	return items, next, nil
}

func (repo *RoomRepository) Trending(_ context.Context, limit int) ([]models.Room, error) {
	repo.db.mutex.RLock()
	all := values(repo.db, func(r *models.Room) bool { return !r.IsDeleted && r.IsVisible })
	repo.db.mutex.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].EngagementScore != all[j].EngagementScore {
			return all[i].EngagementScore > all[j].EngagementScore
		}
		return all[i].ID.Hex() > all[j].ID.Hex()
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (repo *RoomRepository) Search(ctx context.Context, q string, limit int) ([]models.Room, error) {
	items, _, err := repo.List(ctx, models.RoomQuery{Search: q, Limit: limit})
	return items, err
}
