package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/auth"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
	"github.com/muthuabi/coros-vite-sub000/internal/storage"
)

type UserService struct {
	users UserStore
	rooms RoomStore
	posts PostStore
	files FileStore
	noti  *Notifier
	now   func() time.Time
}

// ProfileInput holds the optional profile fields; nil means unchanged.
type ProfileInput struct {
	Username *string
	FullName *string
	Bio      *string
	Location *string
	Website  *string
}

func (s *UserService) Get(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return loadUser(ctx, s.users, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return u, nil
}

// UpdateProfile applies in and, when given, stores a new avatar.
func (s *UserService) UpdateProfile(ctx context.Context, uid bson.ObjectID, in ProfileInput, avatar *Upload) (*models.User, error) {
	var avatarURL string
	if avatar != nil {
		if !strings.HasPrefix(avatar.ContentType, "image/") {
			return nil, apperr.BadRequest("VALIDATION_ERROR", "avatar must be an image")
		}
		url, err := s.files.Save(ctx, storage.Key(uid, uid, avatar.Name), avatar.Body, avatar.Size, avatar.ContentType)
		if err != nil {
			return nil, err
		}
		avatarURL = url
	}

	var out *models.User
	err := withRetry(func() error {
		u, err := loadUser(ctx, s.users, uid)
		if err != nil {
			return err
		}
		if in.Username != nil {
			name := strings.TrimSpace(*in.Username)
			if name != u.Username {
				if _, err := s.users.FindByUsername(ctx, name); err == nil {
					return ErrUsernameTaken
				} else if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				u.Username = name
			}
		}
		set := func(dst *string, src *string) {
			if src != nil {
				*dst = strings.TrimSpace(*src)
			}
		}
		set(&u.FullName, in.FullName)
		set(&u.Bio, in.Bio)
		set(&u.Location, in.Location)
		set(&u.Website, in.Website)
		if avatarURL != "" {
			u.AvatarURL = avatarURL
		}
		u.UpdatedAt = s.now()
		if err := s.users.Update(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUsernameTaken
			}
			return err
		}
		out = u
		return nil
	})
	return out, err
}

func (s *UserService) ChangePassword(ctx context.Context, uid bson.ObjectID, current, next string) error {
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return withRetry(func() error {
		u, err := loadUser(ctx, s.users, uid)
		if err != nil {
			return err
		}
		if !auth.CheckPassword(u.PasswordHash, current) {
			return ErrWrongPassword
		}
		u.PasswordHash = hash
		u.UpdatedAt = s.now()
		return s.users.Update(ctx, u)
	})
}

// Follow makes uid follow target. Following twice is a no-op.
func (s *UserService) Follow(ctx context.Context, uid, target bson.ObjectID) error {
	if uid == target {
		return ErrFollowSelf
	}
	followed, err := loadUser(ctx, s.users, target)
	if err != nil {
		return err
	}
	var actor *models.User
	changed := false
	err = withRetry(func() error {
		u, err := loadUser(ctx, s.users, uid)
		if err != nil {
			return err
		}
		actor = u
		if u.IsFollowing(target) {
			return nil
		}
		u.Following = append(u.Following, target)
		u.UpdatedAt = s.now()
		changed = true
		return s.users.Update(ctx, u)
	})
	if err != nil {
		return err
	}
	err = s.updateFollowers(ctx, followed.ID, func(u *models.User) { u.Followers = addID(u.Followers, uid) })
	if err != nil {
		return err
	}
	if changed {
		s.noti.NotifyOne(ctx, target, models.NotiNewFollower,
			models.Ref{Entity: "user", ID: uid}, models.NotiParams{ActorName: displayName(actor)})
	}
	return nil
}

func (s *UserService) Unfollow(ctx context.Context, uid, target bson.ObjectID) error {
	if uid == target {
		return ErrFollowSelf
	}
	err := withRetry(func() error {
		u, err := loadUser(ctx, s.users, uid)
		if err != nil {
			return err
		}
		if !u.IsFollowing(target) {
			return nil
		}
		u.Following = removeID(u.Following, target)
		u.UpdatedAt = s.now()
		return s.users.Update(ctx, u)
	})
	if err != nil {
		return err
	}
	return s.updateFollowers(ctx, target, func(u *models.User) { u.Followers = removeID(u.Followers, uid) })
}

func (s *UserService) updateFollowers(ctx context.Context, id bson.ObjectID, mutate func(*models.User)) error {
	return withRetry(func() error {
		u, err := loadUser(ctx, s.users, id)
		if err != nil {
			return err
		}
		mutate(u)
		u.UpdatedAt = s.now()
		return s.users.Update(ctx, u)
	})
}

func (s *UserService) Followers(ctx context.Context, id bson.ObjectID) ([]models.UserSummary, error) {
	u, err := loadUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, s.users, u.Followers)
}

func (s *UserService) Following(ctx context.Context, id bson.ObjectID) ([]models.UserSummary, error) {
	u, err := loadUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, s.users, u.Following)
}

// Rooms lists the rooms of id that viewer is allowed to see.
func (s *UserService) Rooms(ctx context.Context, viewer, id bson.ObjectID, after *models.After, limit int) (Page[models.Room], error) {
	if _, err := loadUser(ctx, s.users, id); err != nil {
		return Page[models.Room]{}, err
	}
	items, next, err := s.rooms.List(ctx, models.RoomQuery{MemberID: &id, After: after, Limit: limit})
	if err != nil {
		return Page[models.Room]{}, err
	}
	out := make([]models.Room, 0, len(items))
	for i := range items {
		if r := &items[i]; r.IsVisible || r.HasMember(viewer) {
			out = append(out, redactRoom(*r, viewer))
		}
	}
	return newPage(out, next), nil
}

// Posts lists posts authored by id, dropping those in rooms viewer cannot read.
func (s *UserService) Posts(ctx context.Context, viewer, id bson.ObjectID, after *models.After, limit int) (Page[models.Post], error) {
	if _, err := loadUser(ctx, s.users, id); err != nil {
		return Page[models.Post]{}, err
	}
	items, next, err := s.posts.List(ctx, models.PostQuery{AuthorID: &id, After: after, Limit: limit})
	if err != nil {
		return Page[models.Post]{}, err
	}
	visible, err := filterReadable(ctx, s.rooms, viewer, items)
	if err != nil {
		return Page[models.Post]{}, err
	}
	return newPage(visible, next), nil
}

func (s *UserService) Search(ctx context.Context, q string, limit int) ([]models.UserSummary, error) {
	users, err := s.users.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

// List is the site-admin directory of all users.
func (s *UserService) List(ctx context.Context, actor *models.User, after *models.After, limit int) (Page[models.User], error) {
	if !actor.IsSiteAdmin() {
		return Page[models.User]{}, apperr.ErrForbidden
	}
	items, next, err := s.users.List(ctx, models.UserQuery{After: after, Limit: limit})
	if err != nil {
		return Page[models.User]{}, err
	}
	return newPage(items, next), nil
}

// SetRole lets a site admin assign any role to another user.
func (s *UserService) SetRole(ctx context.Context, actor *models.User, id bson.ObjectID, role models.Role) (*models.User, error) {
	if !actor.IsSiteAdmin() {
		return nil, apperr.ErrForbidden
	}
	if !role.Valid() {
		return nil, apperr.BadRequest("VALIDATION_ERROR", "unknown role")
	}
	if actor.ID == id {
		return nil, ErrOwnRole
	}
	var out *models.User
	err := withRetry(func() error {
		u, err := loadUser(ctx, s.users, id)
		if err != nil {
			return err
		}
		u.Role = role
		u.UpdatedAt = s.now()
		out = u
		return s.users.Update(ctx, u)
	})
	return out, err
}

func summaries(ctx context.Context, users UserStore, ids []bson.ObjectID) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := users.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[bson.ObjectID]models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}

func displayName(u *models.User) string {
	if u == nil {
		return "Someone"
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func addID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
