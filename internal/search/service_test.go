package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository/inmem"
)

type fakeBackend struct {
	mu      sync.Mutex
	healthy bool
	fail    bool
	hits    map[Kind][]string
	rooms   []RoomRecord
	posts   []PostRecord
	deleted []string
}

func (f *fakeBackend) Healthy() bool { return f.healthy }

func (f *fakeBackend) SearchIDs(kind Kind, _ string, _ int) ([]string, error) {
	if f.fail {
		return nil, errors.New("boom")
	}
	return f.hits[kind], nil
}

func (f *fakeBackend) IndexRooms(rooms []RoomRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, rooms...)
	return nil
}

func (f *fakeBackend) IndexPosts(posts []PostRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, posts...)
	return nil
}

func (f *fakeBackend) DeleteRoom(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) DeletePost(id string) error { return f.DeleteRoom(id) }

type fixture struct {
	svc     *Service
	rooms   *inmem.RoomRepository
	posts   *inmem.PostRepository
	users   *inmem.UserRepository
	backend *fakeBackend
}

func setup(t *testing.T, backend *fakeBackend) fixture {
	t.Helper()
	db := inmem.NewDB()
	f := fixture{
		rooms:   inmem.NewRoomRepository(db),
		posts:   inmem.NewPostRepository(db),
		users:   inmem.NewUserRepository(db),
		backend: backend,
	}
	var b Backend
	if backend != nil {
		b = backend
	}
	f.svc = NewService(b, f.rooms, f.posts, f.users, logger.Nop{})
	return f
}

func roomPost(roomID bson.ObjectID, content string) *models.Post {
	return &models.Post{RoomID: &roomID, Scope: models.ScopeRoom, Type: models.PostText, Content: content, CreatedAt: time.Now()}
}

func TestSearchFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	owner, outsider := bson.NewObjectID(), bson.NewObjectID()

	open := models.NewRoom(owner, "Golang Lovers", "", nil, models.RoomPublic, time.Now())
	closed := models.NewRoom(owner, "Golang Secret", "", nil, models.RoomPrivate, time.Now())
	require.NoError(t, f.rooms.Create(ctx, open))
	require.NoError(t, f.rooms.Create(ctx, closed))
	require.NoError(t, f.posts.Create(ctx, roomPost(open.ID, "golang tips")))
	require.NoError(t, f.posts.Create(ctx, roomPost(closed.ID, "golang secrets")))
	require.NoError(t, f.users.Create(ctx, &models.User{Username: "golang_dev", Email: "g@x.io", FullName: "Go Dev"}))

	resp, err := f.svc.Search(ctx, outsider, "golang", "", 10)
	require.NoError(t, err)
	assert.Equal(t, SourceStore, resp.Source)
	assert.Len(t, resp.Rooms, 2, "private rooms stay discoverable")
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "golang tips", resp.Posts[0].Content)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "golang_dev", resp.Users[0].Username)

	resp, err = f.svc.Search(ctx, owner, "golang", KindPost, 10)
	require.NoError(t, err)
	assert.Len(t, resp.Posts, 2)
	assert.Empty(t, resp.Rooms)
	assert.Empty(t, resp.Users)
}

func TestSearchUsesEngineOrder(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{healthy: true, hits: map[Kind][]string{}}
	f := setup(t, backend)
	owner := bson.NewObjectID()

	a := models.NewRoom(owner, "alpha", "", nil, models.RoomPublic, time.Now())
	b := models.NewRoom(owner, "beta", "", nil, models.RoomPublic, time.Now())
	hidden := models.NewRoom(owner, "gamma", "", nil, models.RoomPublic, time.Now())
	hidden.IsVisible = false
	for _, r := range []*models.Room{a, b, hidden} {
		require.NoError(t, f.rooms.Create(ctx, r))
	}
	backend.hits[KindRoom] = []string{b.ID.Hex(), "not-an-id", hidden.ID.Hex(), a.ID.Hex()}

	resp, err := f.svc.Search(ctx, bson.NewObjectID(), "anything", KindRoom, 10)
	require.NoError(t, err)
	assert.Equal(t, SourceMeili, resp.Source)
	require.Len(t, resp.Rooms, 2)
	assert.Equal(t, b.ID, resp.Rooms[0].ID)
	assert.Equal(t, a.ID, resp.Rooms[1].ID)

	// members still see the hidden room
	resp, err = f.svc.Search(ctx, owner, "anything", KindRoom, 10)
	require.NoError(t, err)
	assert.Len(t, resp.Rooms, 3)
}

func TestSearchEngineErrorFallsBack(t *testing.T) {
	ctx := context.Background()
	f := setup(t, &fakeBackend{healthy: true, fail: true})
	require.NoError(t, f.rooms.Create(ctx, models.NewRoom(bson.NewObjectID(), "fallback room", "", nil, models.RoomPublic, time.Now())))

	resp, err := f.svc.Search(ctx, bson.NilObjectID, "fallback", KindRoom, 10)
	require.NoError(t, err)
	assert.Equal(t, SourceStore, resp.Source)
	assert.Len(t, resp.Rooms, 1)
}

func TestSearchRequiresQuery(t *testing.T) {
	f := setup(t, nil)
	_, err := f.svc.Search(context.Background(), bson.NilObjectID, "", "", 10)
	assert.Error(t, err)
}

func TestIndexingIsAsyncAndSkippedWhenUnhealthy(t *testing.T) {
	backend := &fakeBackend{healthy: true}
	f := setup(t, backend)

	room := models.NewRoom(bson.NewObjectID(), "indexed", "", []string{"go"}, models.RoomPublic, time.Now())
	f.svc.IndexRoom(room)
	post := roomPost(room.ID, "hello #go")
	post.ID = bson.NewObjectID()
	post.Hashtags = []string{"go"}
	f.svc.IndexPost(post)
	post.SoftDelete(time.Now())
	f.svc.IndexPost(post)
	f.svc.Wait()

	require.Len(t, backend.rooms, 1)
	assert.Equal(t, "indexed", backend.rooms[0].Name)
	require.Len(t, backend.posts, 1)
	assert.Equal(t, room.ID.Hex(), backend.posts[0].RoomID)
	assert.Equal(t, []string{post.ID.Hex()}, backend.deleted)

	backend.healthy = false
	f.svc.IndexRoom(room)
	f.svc.Wait()
	assert.Len(t, backend.rooms, 1)
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{healthy: true}
	f := setup(t, backend)
	owner := bson.NewObjectID()
	for _, name := range []string{"one", "two", "three"} {
		r := models.NewRoom(owner, name, "", nil, models.RoomPublic, time.Now())
		require.NoError(t, f.rooms.Create(ctx, r))
		require.NoError(t, f.posts.Create(ctx, roomPost(r.ID, "post in "+name)))
	}

	require.NoError(t, f.svc.Reindex(ctx))
	assert.Len(t, backend.rooms, 3)
	assert.Len(t, backend.posts, 3)
}
