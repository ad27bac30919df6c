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

type PostRepository struct {
	db *table[models.Post]
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db.posts}
}

func (repo *PostRepository) Create(_ context.Context, p *models.Post) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	if _, ok := repo.db.rows[p.ID]; ok {
		return errors.Wrap(repository.ErrDuplicate, "posts.create")
	}
	repo.db.rows[p.ID] = clone(p)
	return nil
}

func (repo *PostRepository) FindByID(_ context.Context, id bson.ObjectID) (*models.Post, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.rows[id]; ok {
		return clone(row), nil
	}
	return nil, errors.Wrap(repository.ErrNotFound, "posts.findByID")
}

func (repo *PostRepository) FindMany(_ context.Context, ids []bson.ObjectID) ([]models.Post, error) {
	return findMany(repo.db, ids), nil
}

func (repo *PostRepository) Update(_ context.Context, p *models.Post) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[p.ID]
	if !ok {
		return errors.Wrap(repository.ErrNotFound, "posts.update")
	}
	if row.Version != p.Version {
		return errors.Wrap(repository.ErrVersionConflict, "posts.update")
	}
	p.Version++
	repo.db.rows[p.ID] = clone(p)
	return nil
}

func (repo *PostRepository) AdjustComments(_ context.Context, id bson.ObjectID, delta int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.rows[id]
	if !ok {
		return errors.Wrap(repository.ErrNotFound, "posts.adjustComments")
	}
	row.CommentsCount = max(0, row.CommentsCount+delta)
	updated := row.UpdatedAt
	row.BeforeSave(updated)
	row.Version++
	return nil
}

func matchPost(q models.PostQuery) func(*models.Post) bool {
	tag := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(q.Hashtag), "#"))
	return func(p *models.Post) bool {
		switch {
		case !q.IncludeDeleted && p.IsDeleted:
			return false
		case q.RoomID != nil && !p.InRoom(*q.RoomID):
			return false
		case q.AuthorID != nil && p.AuthorID != *q.AuthorID:
			return false
		case q.ParentQuestionID != nil && (p.ParentQuestionID == nil || *p.ParentQuestionID != *q.ParentQuestionID):
			return false
		case q.TopLevel && p.ParentQuestionID != nil:
			return false
		case len(q.Scopes) > 0 && !slices.Contains(q.Scopes, p.Scope):
			return false
		case q.Type != "" && p.Type != q.Type:
			return false
		case tag != "" && !slices.Contains(p.Hashtags, tag):
			return false
		}
		return true
	}
}

func (repo *PostRepository) List(_ context.Context, q models.PostQuery) ([]models.Post, string, error) {
	repo.db.mutex.RLock()
	all := values(repo.db, matchPost(q))
	repo.db.mutex.RUnlock()

	items, next := page(all, func(p models.Post) (time.Time, bson.ObjectID) { return p.CreatedAt, p.ID }, q.After, q.Limit)
	return items, next, nil
}

func (repo *PostRepository) Search(_ context.Context, q string, limit int) ([]models.Post, error) {
	needle := strings.ToLower(strings.TrimSpace(q))
	tag := strings.TrimPrefix(needle, "#")
	repo.db.mutex.RLock()
	all := values(repo.db, func(p *models.Post) bool {
		if p.IsDeleted {
			return false
		}
		if strings.Contains(strings.ToLower(p.Content), needle) || slices.Contains(p.Hashtags, tag) {
			return true
		}
		return p.QuestionDetails != nil && strings.Contains(strings.ToLower(p.QuestionDetails.Title), needle)
	})
	repo.db.mutex.RUnlock()

	items, _ := page(all, func(p models.Post) (time.Time, bson.ObjectID) { return p.CreatedAt, p.ID }, nil, limit)
	return items, nil
}

func (repo *PostRepository) TrendingHashtags(_ context.Context, since time.Time, limit int) ([]models.HashtagCount, error) {
	counts := map[string]int64{}
	repo.db.mutex.RLock()
	for _, p := range repo.db.rows {
		if p.IsDeleted || p.CreatedAt.Before(since) {
			continue
		}
		for _, h := range p.Hashtags {
			counts[h]++
		}
	}
	repo.db.mutex.RUnlock()

	out := make([]models.HashtagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, models.HashtagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
