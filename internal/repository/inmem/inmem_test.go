package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/cursor"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(NewDB())

	require.NoError(t, repo.Create(ctx, &models.User{Username: "ann", Email: "ann@x.io"}))
	err := repo.Create(ctx, &models.User{Username: "ann", Email: "other@x.io"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	err = repo.Create(ctx, &models.User{Username: "bob", Email: "ann@x.io"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	u, err := repo.FindByEmail(ctx, " ANN@x.io ")
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Username)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVersionedUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository(NewDB())
	room := models.NewRoom(bson.NewObjectID(), "r", "", nil, models.RoomPublic, time.Now())
	require.NoError(t, repo.Create(ctx, room))

	a, err := repo.FindByID(ctx, room.ID)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, room.ID)
	require.NoError(t, err)

	a.Description = "first"
	require.NoError(t, repo.Update(ctx, a))
	assert.EqualValues(t, 1, a.Version)

	b.Description = "second"
	assert.ErrorIs(t, repo.Update(ctx, b), repository.ErrVersionConflict)
	assert.EqualValues(t, 0, b.Version)

	got, err := repo.FindByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Description)

	require.NoError(t, repo.AdjustCounters(ctx, room.ID, 1, 2, 1))
	got, _ = repo.FindByID(ctx, room.ID)
	assert.EqualValues(t, 2, got.Version)
	assert.Equal(t, float64(2+2+3), got.EngagementScore)
	assert.ErrorIs(t, repo.Update(ctx, a), repository.ErrVersionConflict)
}

func TestCommentUpdateIsVersioned(t *testing.T) {
	ctx := context.Background()
	repo := NewCommentRepository(NewDB())
	postID := bson.NewObjectID()
	c := &models.Comment{PostID: postID, Text: "hi", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, c))

	stale, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, repo.SoftDeleteByPost(ctx, postID))
	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.EqualValues(t, 1, got.Version)

	stale.ToggleLike(bson.NewObjectID())
	assert.ErrorIs(t, repo.Update(ctx, stale), repository.ErrVersionConflict)

	got, _ = repo.FindByID(ctx, c.ID)
	assert.True(t, got.IsDeleted)
	assert.Zero(t, got.LikesCount)

	got.Text = "edited"
	require.NoError(t, repo.Update(ctx, got))
	assert.EqualValues(t, 2, got.Version)
}

func TestRoomNameUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository(NewDB())
	require.NoError(t, repo.Create(ctx, models.NewRoom(bson.NewObjectID(), "Gophers", "", nil, models.RoomPublic, time.Now())))
	err := repo.Create(ctx, models.NewRoom(bson.NewObjectID(), " gophers", "", nil, models.RoomPublic, time.Now()))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestPostListPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(NewDB())
	room := bson.NewObjectID()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	var ids []bson.ObjectID
	for i := 0; i < 5; i++ {
		p := &models.Post{ID: bson.NewObjectID(), RoomID: &room, Scope: models.ScopeRoom, Type: models.PostText, Content: "x", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, p))
		ids = append(ids, p.ID)
	}
	deleted := &models.Post{ID: bson.NewObjectID(), RoomID: &room, Scope: models.ScopeRoom, IsDeleted: true, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, deleted))

	first, next, err := repo.List(ctx, models.PostQuery{RoomID: &room, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[4], first[0].ID)
	assert.Equal(t, ids[3], first[1].ID)
	require.NotEmpty(t, next)

	after, err := cursor.DecodeCursor(next)
	require.NoError(t, err)
	second, next, err := repo.List(ctx, models.PostQuery{RoomID: &room, Limit: 2, After: after})
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{ids[2], ids[1]}, []bson.ObjectID{second[0].ID, second[1].ID})

	after, _ = cursor.DecodeCursor(next)
	third, next, err := repo.List(ctx, models.PostQuery{RoomID: &room, Limit: 2, After: after})
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, ids[0], third[0].ID)
	assert.Empty(t, next)
}

func TestClonePreventsAliasing(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(NewDB())
	u := bson.NewObjectID()
	p := &models.Post{Type: models.PostText, Scope: models.ScopeGlobal, Content: "x", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, p))

	p.Likes = append(p.Likes, u)
	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)
}

func TestTrendingHashtags(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(NewDB())
	now := time.Now().UTC()
	for _, tags := range [][]string{{"go", "fiber"}, {"go"}, {"mongo", "go"}} {
		require.NoError(t, repo.Create(ctx, &models.Post{Type: models.PostText, Scope: models.ScopeGlobal, Hashtags: tags, CreatedAt: now}))
	}
	require.NoError(t, repo.Create(ctx, &models.Post{Hashtags: []string{"old"}, CreatedAt: now.AddDate(0, 0, -30)}))

	got, err := repo.TrendingHashtags(ctx, now.AddDate(0, 0, -7), 2)
	require.NoError(t, err)
	assert.Equal(t, []models.HashtagCount{{Tag: "go", Count: 3}, {Tag: "fiber", Count: 1}}, got)
}

func TestNotificationsReadFlow(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(NewDB())
	u := bson.NewObjectID()
	now := time.Now()
	require.NoError(t, repo.InsertMany(ctx, []models.Notification{
		{UserID: u, Type: models.NotiNewFollower, CreatedAt: now},
		{UserID: u, Type: models.NotiNewComment, CreatedAt: now.Add(time.Second)},
		{UserID: bson.NewObjectID(), Type: models.NotiNewComment, CreatedAt: now},
	}))

	n, _ := repo.CountUnread(ctx, u)
	assert.EqualValues(t, 2, n)

	items, _, err := repo.List(ctx, u, true, nil, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.NotiNewComment, items[0].Type)

	require.NoError(t, repo.MarkRead(ctx, u, items[0].ID))
	assert.ErrorIs(t, repo.MarkRead(ctx, bson.NewObjectID(), items[1].ID), repository.ErrNotFound)
	changed, _ := repo.MarkAllRead(ctx, u)
	assert.EqualValues(t, 1, changed)

	assert.Error(t, repo.InsertMany(ctx, []models.Notification{{}}))
}

func TestRefreshSessions(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepository(NewDB())
	u := bson.NewObjectID()

	require.NoError(t, repo.SaveRefreshSession(ctx, "live", u, time.Now().Add(time.Hour)))
	require.NoError(t, repo.SaveRefreshSession(ctx, "stale", u, time.Now().Add(-time.Second)))

	got, err := repo.LookupRefreshSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = repo.LookupRefreshSession(ctx, "stale")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.RevokeRefreshSession(ctx, "live"))
	_, err = repo.LookupRefreshSession(ctx, "live")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
