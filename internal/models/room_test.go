package models

import (
	"testing"
	"time"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func disjoint(t *testing.T, r *Room) {
	t.Helper()
	for _, a := range r.Admins {
		assert.NotContains(t, r.Members, a, "admin %s also listed as member", a.Hex())
	}
	for _, j := range r.JoinRequests {
		assert.False(t, r.HasMember(j.UserID), "pending request for existing member %s", j.UserID.Hex())
	}
}

func TestNewRoomCreatorIsAdmin(t *testing.T) {
	creator := bson.NewObjectID()
	r := NewRoom(creator, "  Go Gophers ", "all things go", []string{"#Go", "go", " backend "}, RoomPublic, t0)

	assert.Equal(t, "Go Gophers", r.Name)
	assert.Equal(t, "go gophers", r.NameKey)
	assert.Equal(t, []string{"go", "backend"}, r.Tags)
	assert.Equal(t, []bson.ObjectID{creator}, r.Admins)
	assert.Equal(t, MembershipAdmin, r.MembershipOf(creator))
	assert.EqualValues(t, 1, r.MemberCount)
	require.NoError(t, r.Validate())
}

func TestJoinPublicAndPrivate(t *testing.T) {
	creator, u := bson.NewObjectID(), bson.NewObjectID()

	pub := NewRoom(creator, "pub", "", nil, RoomPublic, t0)
	state, err := pub.Join(u, "", t0)
	require.NoError(t, err)
	assert.Equal(t, MembershipMember, state)
	_, err = pub.Join(u, "", t0)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	priv := NewRoom(creator, "priv", "", nil, RoomPrivate, t0)
	state, err = priv.Join(u, " let me in ", t0)
	require.NoError(t, err)
	assert.Equal(t, MembershipRequested, state)
	require.Len(t, priv.JoinRequests, 1)
	assert.Equal(t, "let me in", priv.JoinRequests[0].Message)

	_, err = priv.Join(u, "", t0)
	assert.ErrorIs(t, err, ErrJoinRequestPending)

	_, err = priv.Join(creator, "", t0)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestHandleJoinRequest(t *testing.T) {
	creator, u, v, outsider := bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "priv", "", nil, RoomPrivate, t0)
	_, _ = r.Join(u, "", t0)
	_, _ = r.Join(v, "", t0)

	assert.ErrorIs(t, r.HandleJoinRequest(outsider, u, true), ErrNotRoomAdmin)
	require.NoError(t, r.HandleJoinRequest(creator, u, true))
	require.NoError(t, r.HandleJoinRequest(creator, v, false))
	assert.ErrorIs(t, r.HandleJoinRequest(creator, v, true), ErrJoinRequestNotFound)

	assert.Equal(t, MembershipMember, r.MembershipOf(u))
	assert.Equal(t, MembershipNone, r.MembershipOf(v))
	assert.Empty(t, r.JoinRequests)
	disjoint(t, r)
}

func TestCancelJoinRequest(t *testing.T) {
	creator, u := bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "priv", "", nil, RoomPrivate, t0)
	assert.ErrorIs(t, r.CancelJoinRequest(u), ErrJoinRequestNotFound)
	_, _ = r.Join(u, "", t0)
	require.NoError(t, r.CancelJoinRequest(u))
	assert.Equal(t, MembershipNone, r.MembershipOf(u))
}

func TestAddMemberClearsPendingRequest(t *testing.T) {
	creator, u := bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "priv", "", nil, RoomPrivate, t0)
	_, _ = r.Join(u, "", t0)
	require.NoError(t, r.AddMember(creator, u))
	assert.Empty(t, r.JoinRequests)
	assert.ErrorIs(t, r.AddMember(creator, u), ErrAlreadyMember)
	disjoint(t, r)
}

func TestPromoteDemote(t *testing.T) {
	creator, a, m := bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "room", "", nil, RoomPublic, t0)
	_, _ = r.Join(a, "", t0)
	_, _ = r.Join(m, "", t0)

	require.NoError(t, r.Promote(creator, a))
	assert.Equal(t, MembershipAdmin, r.MembershipOf(a))
	disjoint(t, r)

	// only the creator demotes
	assert.ErrorIs(t, r.Demote(a, creator), ErrNotRoomCreator)
	assert.ErrorIs(t, r.Demote(creator, creator), ErrCreatorImmutable)
	assert.ErrorIs(t, r.Demote(creator, m), ErrNotAdmin)
	assert.ErrorIs(t, r.Promote(m, m), ErrNotRoomAdmin)

	require.NoError(t, r.Demote(creator, a))
	assert.Equal(t, MembershipMember, r.MembershipOf(a))
	disjoint(t, r)
}

func TestCreatorCannotLeaveOrBeRemoved(t *testing.T) {
	creator, a := bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "room", "", nil, RoomPublic, t0)
	_, _ = r.Join(a, "", t0)
	require.NoError(t, r.Promote(creator, a))

	assert.ErrorIs(t, r.Leave(creator), ErrCreatorImmutable)
	assert.ErrorIs(t, r.RemoveUser(a, creator), ErrCreatorImmutable)
	assert.True(t, r.IsAdmin(creator))
}

func TestRemoveUser(t *testing.T) {
	creator, a1, a2, m := bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "room", "", nil, RoomPublic, t0)
	for _, u := range []bson.ObjectID{a1, a2, m} {
		_, err := r.Join(u, "", t0)
		require.NoError(t, err)
	}
	require.NoError(t, r.Promote(creator, a1))
	require.NoError(t, r.Promote(creator, a2))

	// admins remove members, but removing an admin needs the creator
	require.NoError(t, r.RemoveUser(a1, m))
	assert.ErrorIs(t, r.RemoveUser(a1, a2), ErrNotRoomCreator)
	require.NoError(t, r.RemoveUser(creator, a2))
	assert.ErrorIs(t, r.RemoveUser(creator, m), ErrNotMember)

	assert.Equal(t, MembershipNone, r.MembershipOf(m))
	assert.Equal(t, MembershipNone, r.MembershipOf(a2))
	r.BeforeSave(t0)
	assert.EqualValues(t, 2, r.MemberCount)
}

func TestLeave(t *testing.T) {
	creator, u := bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "room", "", nil, RoomPublic, t0)
	assert.ErrorIs(t, r.Leave(u), ErrNotMember)
	_, _ = r.Join(u, "", t0)
	require.NoError(t, r.Leave(u))
	assert.False(t, r.HasMember(u))
}

func roomPost(roomID bson.ObjectID) *Post {
	id := roomID
	return &Post{ID: bson.NewObjectID(), RoomID: &id, Scope: ScopeRoom, Type: PostText, Content: "x"}
}

func TestTogglePinLimit(t *testing.T) {
	creator, member := bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "room", "", nil, RoomPublic, t0)
	_, _ = r.Join(member, "", t0)

	posts := make([]*Post, 0, MaxPinnedPosts+1)
	for i := 0; i <= MaxPinnedPosts; i++ {
		posts = append(posts, roomPost(r.ID))
	}

	_, err := r.TogglePin(member, posts[0])
	assert.ErrorIs(t, err, ErrNotRoomAdmin)

	for _, p := range posts[:MaxPinnedPosts] {
		pinned, err := r.TogglePin(creator, p)
		require.NoError(t, err)
		assert.True(t, pinned)
	}
	_, err = r.TogglePin(creator, posts[MaxPinnedPosts])
	assert.ErrorIs(t, err, ErrPinLimit)
	assert.Len(t, r.PinnedPosts, MaxPinnedPosts)

	pinned, err := r.TogglePin(creator, posts[0])
	require.NoError(t, err)
	assert.False(t, pinned)
	assert.Len(t, r.PinnedPosts, MaxPinnedPosts-1)
}

func TestTogglePinRejectsForeignAndDeletedPosts(t *testing.T) {
	creator := bson.NewObjectID()
	r := NewRoom(creator, "room", "", nil, RoomPublic, t0)

	foreign := roomPost(bson.NewObjectID())
	_, err := r.TogglePin(creator, foreign)
	assert.ErrorIs(t, err, ErrPostNotInRoom)

	personal := &Post{ID: bson.NewObjectID(), Scope: ScopePersonal}
	_, err = r.TogglePin(creator, personal)
	assert.ErrorIs(t, err, ErrPostNotInRoom)

	deleted := roomPost(r.ID)
	deleted.SoftDelete(t0)
	_, err = r.TogglePin(creator, deleted)
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Empty(t, r.PinnedPosts)
}

func TestSetTypeApprovesPending(t *testing.T) {
	creator, u, v := bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "priv", "", nil, RoomPrivate, t0)
	_, _ = r.Join(u, "", t0)
	_, _ = r.Join(v, "", t0)

	approved := r.SetType(RoomPublic)
	assert.ElementsMatch(t, []bson.ObjectID{u, v}, approved)
	assert.Empty(t, r.JoinRequests)
	assert.True(t, r.IsMember(u))
	assert.True(t, r.IsMember(v))
	assert.Nil(t, r.SetType(RoomPrivate))
}

func TestBeforeSaveRecomputes(t *testing.T) {
	creator, u := bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "room", "", nil, RoomPublic, t0)
	r.Members = []bson.ObjectID{u, u, creator}
	r.Admins = nil
	r.AdjustCounters(3, 10, 2)
	r.AdjustCounters(0, -20, 0)

	r.BeforeSave(t0.Add(time.Hour))
	assert.Equal(t, []bson.ObjectID{creator}, r.Admins)
	assert.Equal(t, []bson.ObjectID{u}, r.Members)
	assert.EqualValues(t, 2, r.MemberCount)
	assert.EqualValues(t, 0, r.TotalLikes)
	assert.Equal(t, float64(3*2+0+2*3), r.EngagementScore)
	assert.Equal(t, t0.Add(time.Hour), r.UpdatedAt)
}

func TestRoomValidate(t *testing.T) {
	r := NewRoom(bson.NewObjectID(), " ", "", nil, RoomPublic, t0)
	err := r.Validate()
	de, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", de.Code)

	r.Name = "ok"
	r.RoomType = "secret"
	assert.Error(t, r.Validate())
}

func TestCanView(t *testing.T) {
	creator, u := bson.NewObjectID(), bson.NewObjectID()
	r := NewRoom(creator, "priv", "", nil, RoomPrivate, t0)
	assert.False(t, r.CanView(u))
	assert.True(t, r.CanView(creator))
	r.SetType(RoomPublic)
	assert.True(t, r.CanView(u))
	r.IsVisible = false
	assert.False(t, r.CanView(u))
	r.SoftDelete(t0)
	assert.False(t, r.CanView(creator))
}
