package services

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/auth"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository/inmem"
	"github.com/muthuabi/coros-vite-sub000/internal/storage"
)

type env struct {
	*Services
	rooms *inmem.RoomRepository
	posts *inmem.PostRepository
	users *inmem.UserRepository
	files *storage.Local
}

func newEnv(t *testing.T) *env {
	return newEnvWith(t, func(c CommentStore) CommentStore { return c })
}

// newEnvWith lets a test put a wrapper in front of the comment store.
func newEnvWith(t *testing.T, comments func(CommentStore) CommentStore) *env {
	t.Helper()
	db := inmem.NewDB()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	e := &env{
		rooms: inmem.NewRoomRepository(db),
		posts: inmem.NewPostRepository(db),
		users: inmem.NewUserRepository(db),
		files: files,
	}
	e.Services = New(Deps{
		Users:         e.users,
		Rooms:         e.rooms,
		Posts:         e.posts,
		Comments:      comments(inmem.NewCommentRepository(db)),
		Notifications: inmem.NewNotificationRepository(db),
		Sessions:      inmem.NewRefreshTokenRepository(db),
		Files:         files,
		Issuer:        auth.NewIssuer("test-secret", time.Minute),
		RefreshTTL:    time.Hour,
		Log:           logger.Nop{},
	})
	return e
}

func (e *env) user(t *testing.T, name string) *models.User {
	t.Helper()
	s, err := e.Auth.Register(context.Background(), RegisterInput{
		Username: name, Email: name + "@example.com", Password: "password123", FullName: strings.ToUpper(name),
	})
	require.NoError(t, err)
	return s.User
}

func (e *env) room(t *testing.T, owner *models.User, name string, typ models.RoomType) *models.Room {
	t.Helper()
	v, err := e.Rooms.Create(context.Background(), owner.ID, RoomInput{Name: name, RoomType: typ}, nil)
	require.NoError(t, err)
	return &v.Room
}

func (e *env) reload(t *testing.T, id bson.ObjectID) *models.Room {
	t.Helper()
	r, err := e.rooms.FindByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (e *env) unread(t *testing.T, uid bson.ObjectID) []models.Notification {
	t.Helper()
	l, err := e.Notifications.List(context.Background(), uid, true, nil, 50)
	require.NoError(t, err)
	return l.Items
}

func TestAuthRegisterLoginRefresh(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ann := e.user(t, "ann")
	assert.Equal(t, models.RoleGeneral, ann.Role)

	_, err := e.Auth.Register(ctx, RegisterInput{Username: "other", Email: "ANN@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = e.Auth.Register(ctx, RegisterInput{Username: "ann", Email: "x@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = e.Auth.Login(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s, err := e.Auth.Login(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, s.AccessToken)

	rotated, err := e.Auth.Refresh(ctx, s.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s.RefreshToken, rotated.RefreshToken)
	_, err = e.Auth.Refresh(ctx, s.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh, "refresh tokens are single use")

	require.NoError(t, e.Auth.Logout(ctx, rotated.RefreshToken))
	_, err = e.Auth.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestPrivateRoomJoinFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, bob := e.user(t, "owner"), e.user(t, "bob")
	room := e.room(t, owner, "Secret Club", models.RoomPrivate)

	u, err := e.Users.Get(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRoomOwner, u.Role)

	_, err = e.Rooms.Posts(ctx, bob, room.ID, models.PostQuery{Limit: 10})
	assert.ErrorIs(t, err, ErrRoomPrivate)

	state, err := e.Rooms.Join(ctx, bob, room.ID, "let me in")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRequested, state)
	_, err = e.Rooms.Join(ctx, bob, room.ID, "")
	assert.ErrorIs(t, err, models.ErrJoinRequestPending)

	noti := e.unread(t, owner.ID)
	require.Len(t, noti, 1)
	assert.Equal(t, models.NotiJoinRequest, noti[0].Type)

	_, err = e.Rooms.JoinRequests(ctx, bob.ID, room.ID)
	assert.ErrorIs(t, err, models.ErrNotRoomAdmin)
	reqs, err := e.Rooms.JoinRequests(ctx, owner.ID, room.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "bob", reqs[0].User.Username)
	assert.Equal(t, "let me in", reqs[0].Message)

	require.NoError(t, e.Rooms.HandleRequest(ctx, owner.ID, room.ID, bob.ID, true))
	v, err := e.Rooms.Get(ctx, bob, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipMember, v.Membership)
	assert.Empty(t, v.JoinRequests)

	u, err = e.Users.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRoomMember, u.Role)
	assert.Contains(t, u.Rooms, room.ID)
	assert.Equal(t, models.NotiJoinApproved, e.unread(t, bob.ID)[0].Type)

	require.NoError(t, e.Rooms.Leave(ctx, bob.ID, room.ID))
	u, err = e.Users.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotContains(t, u.Rooms, room.ID)
	assert.Equal(t, models.RoleRoomMember, u.Role, "roles never drop on leave")
}

func TestHiddenRoomIsNotFoundForOutsiders(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, bob := e.user(t, "owner"), e.user(t, "bob")
	hidden := false
	v, err := e.Rooms.Create(ctx, owner.ID, RoomInput{Name: "Hidden", RoomType: models.RoomPrivate, IsVisible: &hidden}, nil)
	require.NoError(t, err)

	_, err = e.Rooms.Get(ctx, bob, v.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = e.Rooms.Join(ctx, bob, v.ID, "")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = e.Rooms.Get(ctx, owner, v.ID)
	assert.NoError(t, err)

	_, err = e.Rooms.Create(ctx, bob.ID, RoomInput{Name: "hidden"}, nil)
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestPostCountersFollowActivity(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, bob := e.user(t, "owner"), e.user(t, "bob")
	room := e.room(t, owner, "Gophers", models.RoomPublic)

	_, err := e.Posts.Create(ctx, bob, PostInput{RoomID: &room.ID, Type: models.PostText, Content: "hi"}, nil)
	assert.ErrorIs(t, err, ErrNotRoomMember)

	state, err := e.Rooms.Join(ctx, bob, room.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipMember, state)

	post, err := e.Posts.Create(ctx, bob, PostInput{RoomID: &room.ID, Type: models.PostText, Content: "learning #Go and #fiber"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ScopeRoom, post.Scope)
	assert.ElementsMatch(t, []string{"go", "fiber"}, post.Hashtags)
	assert.EqualValues(t, 1, e.reload(t, room.ID).PostsCount)

	like, err := e.Posts.Like(ctx, owner.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, like.Liked)
	_, err = e.Comments.Create(ctx, owner, post.ID, "nice")
	require.NoError(t, err)

	r := e.reload(t, room.ID)
	assert.EqualValues(t, 1, r.TotalLikes)
	assert.EqualValues(t, 1, r.TotalComments)
	assert.Equal(t, models.NotiNewComment, e.unread(t, bob.ID)[0].Type)

	pinned, err := e.Rooms.TogglePin(ctx, owner.ID, room.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, pinned)
	feed, err := e.Rooms.Posts(ctx, owner, room.ID, models.PostQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, feed.Pinned, 1)

	require.NoError(t, e.Posts.Delete(ctx, owner, post.ID))
	r = e.reload(t, room.ID)
	assert.Zero(t, r.PostsCount)
	assert.Zero(t, r.TotalLikes)
	assert.Zero(t, r.TotalComments)
	assert.Empty(t, r.PinnedPosts)

	_, err = e.Posts.Get(ctx, owner, post.ID)
	assert.ErrorIs(t, err, models.ErrPostNotFound)
}

func TestVoteRequiresMembership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, bob := e.user(t, "owner"), e.user(t, "bob")
	room := e.room(t, owner, "Voting", models.RoomPublic)
	post, err := e.Posts.Create(ctx, owner, PostInput{RoomID: &room.ID, Type: models.PostText, Content: "vote me"}, nil)
	require.NoError(t, err)

	_, err = e.Posts.Vote(ctx, bob.ID, post.ID, models.VoteUp)
	assert.ErrorIs(t, err, ErrNotRoomMember)

	_, err = e.Rooms.Join(ctx, bob, room.ID, "")
	require.NoError(t, err)
	res, err := e.Posts.Vote(ctx, bob.ID, post.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, models.VoteUp, res.Vote)
	assert.EqualValues(t, 1, res.Score)

	res, err = e.Posts.Vote(ctx, bob.ID, post.ID, models.VoteDown)
	require.NoError(t, err)
	assert.EqualValues(t, -1, res.Score)
	res, err = e.Posts.Vote(ctx, bob.ID, post.ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, models.VoteNone, res.Vote)
	assert.Zero(t, res.Score)
}

func TestQuestionAnswerAccept(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	asker, a1, a2 := e.user(t, "asker"), e.user(t, "first"), e.user(t, "second")

	q, err := e.Posts.Create(ctx, asker, PostInput{
		Type: models.PostQuestion, Question: &QuestionInput{Title: "How do channels work?", Tags: []string{"Go"}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ScopeGlobal, q.Scope)

	first, err := e.Posts.Answer(ctx, a1, q.ID, "use make(chan T)", nil)
	require.NoError(t, err)
	second, err := e.Posts.Answer(ctx, a2, q.ID, "read the tour", nil)
	require.NoError(t, err)
	assert.Equal(t, models.NotiAnswerPosted, e.unread(t, asker.ID)[0].Type)

	_, err = e.Posts.Accept(ctx, a1.ID, q.ID, first.ID)
	assert.ErrorIs(t, err, models.ErrNotQuestionAuthor)

	got, err := e.Posts.Accept(ctx, asker.ID, q.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAccepted)
	_, err = e.Posts.Accept(ctx, asker.ID, q.ID, second.ID)
	require.NoError(t, err)

	prev, err := e.posts.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, prev.IsAccepted)

	answers, err := e.Posts.Answers(ctx, asker, q.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, answers.Items, 2)
	assert.Equal(t, second.ID, answers.Items[0].ID, "accepted answer leads")

	feed, err := e.Posts.Feed(ctx, asker.ID, FeedQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, feed.Items, 1, "answers stay out of the feed")

	require.NoError(t, e.Posts.Delete(ctx, a2, second.ID))
	question, err := e.posts.FindByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Nil(t, question.QuestionDetails.AcceptedAnswerID)

	err = e.Posts.Unaccept(ctx, asker.ID, q.ID)
	assert.ErrorIs(t, err, models.ErrNoAcceptedAnswer)
}

func TestPollAndViews(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author, bob := e.user(t, "author"), e.user(t, "bob")

	_, err := e.Posts.Create(ctx, author, PostInput{Type: models.PostPoll, PollOptions: []string{"only one"}}, nil)
	assert.Error(t, err)

	poll, err := e.Posts.Create(ctx, author, PostInput{Type: models.PostPoll, Content: "tabs?", PollOptions: []string{"tabs", "spaces"}}, nil)
	require.NoError(t, err)
	p, err := e.Posts.PollVote(ctx, bob.ID, poll.ID, 1)
	require.NoError(t, err)
	assert.Len(t, p.PollOptions[1].Votes, 1)
	_, err = e.Posts.PollVote(ctx, bob.ID, poll.ID, 7)
	assert.ErrorIs(t, err, models.ErrPollOption)

	for i := 0; i < 2; i++ {
		_, err = e.Posts.Get(ctx, bob, poll.ID)
		require.NoError(t, err)
	}
	v, err := e.Posts.Get(ctx, author, poll.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.ViewCount, "repeat views inside the window count once")

	viewers, err := e.Posts.Viewers(ctx, author, poll.ID)
	require.NoError(t, err)
	require.Len(t, viewers, 1)
	assert.Equal(t, bob.ID, viewers[0].User.ID)
	_, err = e.Posts.Viewers(ctx, bob, poll.ID)
	assert.ErrorIs(t, err, ErrNotAuthor)
}

func TestMediaPostsNeedFiles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.user(t, "snap")

	_, err := e.Posts.Create(ctx, u, PostInput{Type: models.PostImage}, nil)
	assert.Error(t, err)

	img := Upload{Name: "cat.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
	p, err := e.Posts.Create(ctx, u, PostInput{Type: models.PostImage, Scope: models.ScopePersonal}, []Upload{img})
	require.NoError(t, err)
	require.Len(t, p.Media, 1)
	assert.Equal(t, "image", p.Media[0].Type)
	assert.True(t, strings.HasPrefix(p.Media[0].URL, "/files/"+u.ID.Hex()+"/"))
}

func TestCommentPermissionsAndMasking(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	author, bob, carol := e.user(t, "author"), e.user(t, "bob"), e.user(t, "carol")
	post, err := e.Posts.Create(ctx, author, PostInput{Type: models.PostText, Content: "hello"}, nil)
	require.NoError(t, err)

	c, err := e.Comments.Create(ctx, bob, post.ID, "what the fuck")
	require.NoError(t, err)
	assert.NotContains(t, c.Text, "fuck")

	_, err = e.Comments.Update(ctx, carol.ID, c.ID, "edited")
	assert.ErrorIs(t, err, ErrNotAuthor)
	assert.ErrorIs(t, e.Comments.Delete(ctx, carol, c.ID), ErrNotAuthor)

	like, err := e.Comments.Like(ctx, carol.ID, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, like.LikesCount)

	require.NoError(t, e.Comments.Delete(ctx, author, c.ID), "post authors may moderate")
	p, err := e.posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, p.CommentsCount)

	list, err := e.Comments.List(ctx, bob, post.ID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestFollowAndRoles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ann, bob := e.user(t, "ann"), e.user(t, "bob")

	assert.ErrorIs(t, e.Users.Follow(ctx, ann.ID, ann.ID), ErrFollowSelf)
	require.NoError(t, e.Users.Follow(ctx, ann.ID, bob.ID))
	require.NoError(t, e.Users.Follow(ctx, ann.ID, bob.ID))

	followers, err := e.Users.Followers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "ann", followers[0].Username)
	assert.Len(t, e.unread(t, bob.ID), 1)

	require.NoError(t, e.Users.Unfollow(ctx, ann.ID, bob.ID))
	following, err := e.Users.Following(ctx, ann.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	_, err = e.Users.SetRole(ctx, ann, bob.ID, models.RoleAdmin)
	assert.Error(t, err)

	ann.Role = models.RoleAdmin
	updated, err := e.Users.SetRole(ctx, ann, bob.ID, models.RoleRoomOwner)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRoomOwner, updated.Role)
	_, err = e.Users.SetRole(ctx, ann, ann.ID, models.RoleGeneral)
	assert.ErrorIs(t, err, ErrOwnRole)
}

func TestNotificationsMarkRead(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ann, bob, carol := e.user(t, "ann"), e.user(t, "bob"), e.user(t, "carol")
	require.NoError(t, e.Users.Follow(ctx, bob.ID, ann.ID))
	require.NoError(t, e.Users.Follow(ctx, carol.ID, ann.ID))

	list, err := e.Notifications.List(ctx, ann.ID, false, nil, 10)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.EqualValues(t, 2, list.Unread)

	require.NoError(t, e.Notifications.MarkRead(ctx, ann.ID, list.Items[0].ID))
	assert.ErrorIs(t, e.Notifications.MarkRead(ctx, bob.ID, list.Items[1].ID), ErrNotificationNotFound)

	n, err := e.Notifications.MarkAllRead(ctx, ann.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Empty(t, e.unread(t, ann.ID))
}

func storedFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			out = append(out, path)
		}
		return err
	})
	require.NoError(t, err)
	return out
}

func TestRoomCoverOnlyKeptForSuccessfulWrites(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner, mallory := e.user(t, "owner"), e.user(t, "mallory")
	room := e.room(t, owner, "Gophers", models.RoomPublic)
	cover := func() *Upload {
		return &Upload{Name: "cover.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
	}

	name := "Taken over"
	_, err := e.Rooms.Update(ctx, mallory, room.ID, RoomPatch{Name: &name}, cover())
	assert.ErrorIs(t, err, models.ErrNotRoomAdmin)
	assert.Empty(t, storedFiles(t, e.files.Root), "rejected update must not leave a cover behind")
	assert.Equal(t, "Gophers", e.reload(t, room.ID).Name)

	_, err = e.Rooms.Create(ctx, mallory.ID, RoomInput{Name: "gophers", RoomType: models.RoomPublic}, cover())
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.Empty(t, storedFiles(t, e.files.Root), "failed create must not leave a cover behind")

	v, err := e.Rooms.Update(ctx, owner, room.ID, RoomPatch{}, cover())
	require.NoError(t, err)
	assert.NotEmpty(t, v.CoverImage)
	assert.Len(t, storedFiles(t, e.files.Root), 1)
}
