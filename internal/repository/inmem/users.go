package inmem

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

type UserRepository struct {
	db *table[models.User]
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.users}
}

// unique checks the email and username indexes, ignoring the row being replaced.
func (repo *UserRepository) unique(u *models.User) error {
	for id, row := range repo.db.rows {
		if id == u.ID {
			continue
		}
		if row.Email == u.Email || row.Username == u.Username {
			return errors.Wrap(repository.ErrDuplicate, "users")
		}
	}
	return nil
}

func (repo *UserRepository) Create(_ context.Context, u *models.User) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	if _, ok := repo.db.rows[u.ID]; ok {
		return errors.Wrap(repository.ErrDuplicate, "users.create")
	}
	if err := repo.unique(u); err != nil {
		return err
	}
	repo.db.rows[u.ID] = clone(u)
	return nil
}

func (repo *UserRepository) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.rows[id]; ok {
		return clone(row), nil
	}
	return nil, errors.Wrap(repository.ErrNotFound, "users.findByID")
}

func (repo *UserRepository) findBy(match func(*models.User) bool, op string) (*models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, row := range repo.db.rows {
		if match(row) {
			return clone(row), nil
		}
	}
	return nil, errors.Wrap(repository.ErrNotFound, op)
}

func (repo *UserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return repo.findBy(func(u *models.User) bool { return u.Email == email }, "users.findByEmail")
}

func (repo *UserRepository) FindByUsername(_ context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	return repo.findBy(func(u *models.User) bool { return u.Username == username }, "users.findByUsername")
}

func (repo *UserRepository) FindMany(_ context.Context, ids []bson.ObjectID) ([]models.User, error) {
	return findMany(repo.db, ids), nil
}

func (repo *UserRepository) Update(_ context.Context, u *models.User) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[u.ID]
	if !ok {
		return errors.Wrap(repository.ErrNotFound, "users.update")
	}
	if row.Version != u.Version {
		return errors.Wrap(repository.ErrVersionConflict, "users.update")
	}
	if err := repo.unique(u); err != nil {
		return err
	}
	u.Version++
	repo.db.rows[u.ID] = clone(u)
	return nil
}

func (repo *UserRepository) Search(_ context.Context, q string, limit int) ([]models.User, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	repo.db.mutex.RLock()
	out := values(repo.db, func(u *models.User) bool {
		return strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.FullName), q)
	})
	repo.db.mutex.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (repo *UserRepository) List(_ context.Context, q models.UserQuery) ([]models.User, string, error) {
	repo.db.mutex.RLock()
	all := values(repo.db, nil)
	repo.db.mutex.RUnlock()

	items, next := page(all, func(u models.User) (time.Time, bson.ObjectID) { return u.CreatedAt, u.ID }, q.After, q.Limit)
	return items, next, nil
}
