package models

import (
	"slices"
	"strings"
	"time"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type RoomType string

const (
	RoomPublic  RoomType = "public"
	RoomPrivate RoomType = "private"
)

func (t RoomType) Valid() bool { return t == RoomPublic || t == RoomPrivate }

// Membership is the relation of one user to one room.
type Membership string

const (
	MembershipNone      Membership = "none"
	MembershipRequested Membership = "requested"
	MembershipMember    Membership = "member"
	MembershipAdmin     Membership = "admin"
)

const (
	MaxPinnedPosts     = 5
	MaxRoomNameLength  = 100
	MaxRoomDescription = 2000
	MaxRoomTags        = 10
)

var (
	ErrAlreadyMember       = apperr.Conflict("ALREADY_MEMBER", "user is already a member of this room")
	ErrJoinRequestPending  = apperr.Conflict("JOIN_REQUEST_PENDING", "a join request is already pending")
	ErrJoinRequestNotFound = apperr.NotFound("JOIN_REQUEST_NOT_FOUND", "no pending join request for this user")
	ErrNotRoomAdmin        = apperr.Forbidden("NOT_ROOM_ADMIN", "only room admins can do this")
	ErrNotRoomCreator      = apperr.Forbidden("NOT_ROOM_CREATOR", "only the room creator can do this")
	ErrCreatorImmutable    = apperr.Forbidden("CREATOR_IMMUTABLE", "the room creator cannot leave, be removed or be demoted")
	ErrNotMember           = apperr.BadRequest("NOT_MEMBER", "user is not a member of this room")
	ErrNotAdmin            = apperr.BadRequest("NOT_ADMIN", "user is not an admin of this room")
	ErrPinLimit            = apperr.Unprocessable("PIN_LIMIT", "a room can pin at most 5 posts")
	ErrPostNotInRoom       = apperr.BadRequest("POST_NOT_IN_ROOM", "post does not belong to this room")
	ErrRoomDeleted         = apperr.NotFound("ROOM_NOT_FOUND", "room not found")
)

type JoinRequest struct {
	UserID      bson.ObjectID `bson:"user_id" json:"userId"`
	Message     string        `bson:"message,omitempty" json:"message,omitempty"`
	RequestedAt time.Time     `bson:"requested_at" json:"requestedAt"`
}

type Room struct {
	ID              bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string          `bson:"name" json:"name"`
	NameKey         string          `bson:"name_key" json:"-"`
	Description     string          `bson:"description" json:"description"`
	Tags            []string        `bson:"tags" json:"tags"`
	CoverImage      string          `bson:"cover_image,omitempty" json:"coverImage,omitempty"`
	RoomType        RoomType        `bson:"room_type" json:"roomType"`
	IsVisible       bool            `bson:"is_visible" json:"isVisible"`
	CreatedBy       bson.ObjectID   `bson:"created_by" json:"createdBy"`
	Admins          []bson.ObjectID `bson:"admins" json:"admins"`
	Members         []bson.ObjectID `bson:"members" json:"members"`
	JoinRequests    []JoinRequest   `bson:"join_requests" json:"joinRequests,omitempty"`
	PinnedPosts     []bson.ObjectID `bson:"pinned_posts" json:"pinnedPosts"`
	PostsCount      int64           `bson:"posts_count" json:"postsCount"`
	TotalLikes      int64           `bson:"total_likes" json:"totalLikes"`
	TotalComments   int64           `bson:"total_comments" json:"totalComments"`
	MemberCount     int64           `bson:"member_count" json:"memberCount"`
	EngagementScore float64         `bson:"engagement_score" json:"engagementScore"`
	IsDeleted       bool            `bson:"is_deleted" json:"isDeleted"`
	DeletedAt       *time.Time      `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
	CreatedAt       time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updatedAt"`
	Version         int64           `bson:"version" json:"version"`
}

// NewRoom builds a room whose creator is its first admin.
func NewRoom(creator bson.ObjectID, name, description string, tags []string, t RoomType, now time.Time) *Room {
	r := &Room{
		ID:           bson.NewObjectID(),
		Name:         strings.TrimSpace(name),
		Description:  strings.TrimSpace(description),
		Tags:         NormalizeTags(tags),
		RoomType:     t,
		IsVisible:    true,
		CreatedBy:    creator,
		Admins:       []bson.ObjectID{creator},
		Members:      []bson.ObjectID{},
		JoinRequests: []JoinRequest{},
		PinnedPosts:  []bson.ObjectID{},
		CreatedAt:    now,
	}
	r.BeforeSave(now)
	return r
}

// RoomNameKey is the case-insensitive uniqueness key for room names.
func RoomNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTags lower-cases, trims and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (r *Room) IsAdmin(uid bson.ObjectID) bool  { return slices.Contains(r.Admins, uid) }
func (r *Room) IsMember(uid bson.ObjectID) bool { return slices.Contains(r.Members, uid) }
func (r *Room) IsCreator(uid bson.ObjectID) bool {
	return !uid.IsZero() && r.CreatedBy == uid
}

// HasMember reports membership in either role.
func (r *Room) HasMember(uid bson.ObjectID) bool { return r.IsAdmin(uid) || r.IsMember(uid) }

func (r *Room) pendingIndex(uid bson.ObjectID) int {
	return slices.IndexFunc(r.JoinRequests, func(j JoinRequest) bool { return j.UserID == uid })
}

func (r *Room) MembershipOf(uid bson.ObjectID) Membership {
	switch {
	case r.IsAdmin(uid):
		return MembershipAdmin
	case r.IsMember(uid):
		return MembershipMember
	case r.pendingIndex(uid) >= 0:
		return MembershipRequested
	}
	return MembershipNone
}

// CanView reports whether uid may read the room and its posts.
// Public visible rooms are open to everyone; everything else needs membership.
func (r *Room) CanView(uid bson.ObjectID) bool {
	if r.IsDeleted {
		return false
	}
	if r.RoomType == RoomPublic && r.IsVisible {
		return true
	}
	return r.HasMember(uid)
}

// Join moves a non-member into the room (public) or into the request queue (private).
func (r *Room) Join(uid bson.ObjectID, message string, now time.Time) (Membership, error) {
	switch r.MembershipOf(uid) {
	case MembershipAdmin, MembershipMember:
		return "", ErrAlreadyMember
	case MembershipRequested:
		return "", ErrJoinRequestPending
	}
	if r.RoomType == RoomPublic {
		r.Members = append(r.Members, uid)
		return MembershipMember, nil
	}
	r.JoinRequests = append(r.JoinRequests, JoinRequest{
		UserID:      uid,
		Message:     strings.TrimSpace(message),
		RequestedAt: now,
	})
	return MembershipRequested, nil
}

func (r *Room) CancelJoinRequest(uid bson.ObjectID) error {
	i := r.pendingIndex(uid)
	if i < 0 {
		return ErrJoinRequestNotFound
	}
	r.JoinRequests = slices.Delete(r.JoinRequests, i, i+1)
	return nil
}

// HandleJoinRequest approves or rejects the pending request of uid.
func (r *Room) HandleJoinRequest(actor, uid bson.ObjectID, approve bool) error {
	if !r.IsAdmin(actor) {
		return ErrNotRoomAdmin
	}
	i := r.pendingIndex(uid)
	if i < 0 {
		return ErrJoinRequestNotFound
	}
	r.JoinRequests = slices.Delete(r.JoinRequests, i, i+1)
	if approve {
		r.Members = append(r.Members, uid)
	}
	return nil
}

// AddMember lets an admin pull a user straight into the room, clearing any pending request.
func (r *Room) AddMember(actor, uid bson.ObjectID) error {
	if !r.IsAdmin(actor) {
		return ErrNotRoomAdmin
	}
	if r.HasMember(uid) {
		return ErrAlreadyMember
	}
	if i := r.pendingIndex(uid); i >= 0 {
		r.JoinRequests = slices.Delete(r.JoinRequests, i, i+1)
	}
	r.Members = append(r.Members, uid)
	return nil
}

func (r *Room) Promote(actor, uid bson.ObjectID) error {
	if !r.IsAdmin(actor) {
		return ErrNotRoomAdmin
	}
	if r.IsAdmin(uid) {
		return apperr.Conflict("ALREADY_ADMIN", "user is already an admin of this room")
	}
	if !r.IsMember(uid) {
		return ErrNotMember
	}
	r.Members = removeID(r.Members, uid)
	r.Admins = append(r.Admins, uid)
	return nil
}

// Demote is reserved to the creator, who can never be demoted.
func (r *Room) Demote(actor, uid bson.ObjectID) error {
	if !r.IsCreator(actor) {
		return ErrNotRoomCreator
	}
	if r.IsCreator(uid) {
		return ErrCreatorImmutable
	}
	if !r.IsAdmin(uid) {
		return ErrNotAdmin
	}
	r.Admins = removeID(r.Admins, uid)
	r.Members = append(r.Members, uid)
	return nil
}

func (r *Room) Leave(uid bson.ObjectID) error {
	if r.IsCreator(uid) {
		return ErrCreatorImmutable
	}
	if !r.HasMember(uid) {
		return ErrNotMember
	}
	r.Admins = removeID(r.Admins, uid)
	r.Members = removeID(r.Members, uid)
	return nil
}

// RemoveUser kicks uid out. Admins may remove members; removing another admin needs the creator.
func (r *Room) RemoveUser(actor, uid bson.ObjectID) error {
	if !r.IsAdmin(actor) {
		return ErrNotRoomAdmin
	}
	if r.IsCreator(uid) {
		return ErrCreatorImmutable
	}
	switch {
	case r.IsAdmin(uid):
		if !r.IsCreator(actor) {
			return ErrNotRoomCreator
		}
		r.Admins = removeID(r.Admins, uid)
	case r.IsMember(uid):
		r.Members = removeID(r.Members, uid)
	default:
		return ErrNotMember
	}
	return nil
}

func (r *Room) IsPinned(postID bson.ObjectID) bool { return slices.Contains(r.PinnedPosts, postID) }

// TogglePin pins or unpins post and reports the resulting state.
func (r *Room) TogglePin(actor bson.ObjectID, post *Post) (bool, error) {
	if !r.IsAdmin(actor) {
		return false, ErrNotRoomAdmin
	}
	if post == nil || post.RoomID == nil || *post.RoomID != r.ID {
		return false, ErrPostNotInRoom
	}
	if r.IsPinned(post.ID) {
		r.PinnedPosts = removeID(r.PinnedPosts, post.ID)
		return false, nil
	}
	if post.IsDeleted {
		return false, ErrPostNotFound
	}
	if len(r.PinnedPosts) >= MaxPinnedPosts {
		return false, ErrPinLimit
	}
	r.PinnedPosts = append(r.PinnedPosts, post.ID)
	return true, nil
}

// UnpinPost drops postID from the pinned list and reports whether it was pinned.
func (r *Room) UnpinPost(postID bson.ObjectID) bool {
	if !r.IsPinned(postID) {
		return false
	}
	r.PinnedPosts = removeID(r.PinnedPosts, postID)
	return true
}

// SetType switches the room type. Opening a private room approves every pending request;
// the approved user ids are returned.
func (r *Room) SetType(t RoomType) []bson.ObjectID {
	if r.RoomType == RoomPrivate && t == RoomPublic && len(r.JoinRequests) > 0 {
		approved := make([]bson.ObjectID, 0, len(r.JoinRequests))
		for _, j := range r.JoinRequests {
			r.Members = append(r.Members, j.UserID)
			approved = append(approved, j.UserID)
		}
		r.JoinRequests = []JoinRequest{}
		r.RoomType = t
		return approved
	}
	r.RoomType = t
	return nil
}

// AdjustCounters applies post-side deltas and clamps each counter at zero.
func (r *Room) AdjustCounters(posts, likes, comments int64) {
	r.PostsCount = max(0, r.PostsCount+posts)
	r.TotalLikes = max(0, r.TotalLikes+likes)
	r.TotalComments = max(0, r.TotalComments+comments)
}

func (r *Room) SoftDelete(now time.Time) {
	r.IsDeleted = true
	r.DeletedAt = &now
}

func (r *Room) Validate() error {
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		return apperr.BadRequest("VALIDATION_ERROR", "room name is required")
	case len([]rune(name)) > MaxRoomNameLength:
		return apperr.BadRequest("VALIDATION_ERROR", "room name is too long")
	case len([]rune(r.Description)) > MaxRoomDescription:
		return apperr.BadRequest("VALIDATION_ERROR", "room description is too long")
	case len(r.Tags) > MaxRoomTags:
		return apperr.BadRequest("VALIDATION_ERROR", "a room can have at most 10 tags")
	case !r.RoomType.Valid():
		return apperr.BadRequest("VALIDATION_ERROR", "roomType must be public or private")
	case len(r.PinnedPosts) > MaxPinnedPosts:
		return ErrPinLimit
	}
	return nil
}

// BeforeSave restores the set invariants and recomputes the derived fields.
func (r *Room) BeforeSave(now time.Time) {
	r.Name = strings.TrimSpace(r.Name)
	r.NameKey = RoomNameKey(r.Name)
	if !r.CreatedBy.IsZero() && !r.IsAdmin(r.CreatedBy) {
		r.Admins = append(r.Admins, r.CreatedBy)
	}
	r.Admins = uniqueIDs(r.Admins)
	r.Members = slices.DeleteFunc(uniqueIDs(r.Members), r.IsAdmin)
	r.JoinRequests = slices.DeleteFunc(r.JoinRequests, func(j JoinRequest) bool { return r.HasMember(j.UserID) })
	r.PinnedPosts = uniqueIDs(r.PinnedPosts)
	r.MemberCount = int64(len(r.Admins) + len(r.Members))
	r.EngagementScore = float64(r.PostsCount*2 + r.TotalLikes + r.TotalComments*3)
	r.UpdatedAt = now
}

func uniqueIDs(ids []bson.ObjectID) []bson.ObjectID {
	out := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
