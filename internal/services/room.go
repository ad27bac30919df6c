package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
	"github.com/muthuabi/coros-vite-sub000/internal/storage"
)

type RoomService struct {
	rooms   RoomStore
	users   UserStore
	posts   PostStore
	files   FileStore
	index   Indexer
	noti    *Notifier
	members *membership
	log     logger.Logger
	now     func() time.Time
}

type RoomInput struct {
	Name        string
	Description string
	Tags        []string
	RoomType    models.RoomType
	IsVisible   *bool
}

// RoomPatch holds the editable room fields; nil means unchanged.
type RoomPatch struct {
	Name        *string
	Description *string
	Tags        *[]string
	RoomType    *models.RoomType
	IsVisible   *bool
}

// RoomView is a room as seen by one viewer.
type RoomView struct {
	models.Room
	Membership models.Membership `json:"membership"`
}

type RoomStats struct {
	MemberCount     int64   `json:"memberCount"`
	AdminCount      int     `json:"adminCount"`
	PostsCount      int64   `json:"postsCount"`
	TotalLikes      int64   `json:"totalLikes"`
	TotalComments   int64   `json:"totalComments"`
	EngagementScore float64 `json:"engagementScore"`
	PendingRequests int     `json:"pendingRequests"`
	PinnedPosts     int     `json:"pinnedPosts"`
}

type RoomMembers struct {
	Admins  []models.UserSummary `json:"admins"`
	Members []models.UserSummary `json:"members"`
}

type JoinRequestView struct {
	User        models.UserSummary `json:"user"`
	Message     string             `json:"message,omitempty"`
	RequestedAt time.Time          `json:"requestedAt"`
}

type RoomPosts struct {
	Pinned []models.Post `json:"pinned"`
	Page[models.Post]
}

// redactRoom hides the join queue from everyone but room admins.
func redactRoom(r models.Room, viewer bson.ObjectID) models.Room {
	if !r.IsAdmin(viewer) {
		r.JoinRequests = nil
	}
	return r
}

func view(r *models.Room, viewer bson.ObjectID) *RoomView {
	return &RoomView{Room: redactRoom(*r, viewer), Membership: r.MembershipOf(viewer)}
}

// mutate runs one retried load-mutate-save cycle on a live room.
func (s *RoomService) mutate(ctx context.Context, id bson.ObjectID, fn func(r *models.Room) error) (*models.Room, error) {
	var out *models.Room
	err := withRetry(func() error {
		r, err := loadRoom(ctx, s.rooms, id)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		r.BeforeSave(s.now())
		if err := r.Validate(); err != nil {
			return err
		}
		if err := s.rooms.Update(ctx, r); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrNameTaken
			}
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// saveCover stores an optional cover image and returns its storage key and public URL.
func (s *RoomService) saveCover(ctx context.Context, uid, roomID bson.ObjectID, cover *Upload) (string, string, error) {
	if cover == nil {
		return "", "", nil
	}
	if !strings.HasPrefix(cover.ContentType, "image/") {
		return "", "", apperr.BadRequest("VALIDATION_ERROR", "cover image must be an image")
	}
	key := storage.Key(uid, roomID, cover.Name)
	url, err := s.files.Save(ctx, key, cover.Body, cover.Size, cover.ContentType)
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

// dropCover removes a cover saved for a write that did not go through.
func (s *RoomService) dropCover(ctx context.Context, roomID bson.ObjectID, key string) {
	if key == "" {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.log.Warn("rooms: drop cover", "room", roomID.Hex(), "key", key, "err", err)
	}
}

// Create makes uid the creator and first admin of a new room.
func (s *RoomService) Create(ctx context.Context, uid bson.ObjectID, in RoomInput, cover *Upload) (*RoomView, error) {
	if in.RoomType == "" {
		in.RoomType = models.RoomPublic
	}
	r := models.NewRoom(uid, in.Name, in.Description, in.Tags, in.RoomType, s.now())
	if in.IsVisible != nil {
		r.IsVisible = *in.IsVisible
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	key, url, err := s.saveCover(ctx, uid, r.ID, cover)
	if err != nil {
		return nil, err
	}
	r.CoverImage = url
	if err := s.rooms.Create(ctx, r); err != nil {
		s.dropCover(ctx, r.ID, key)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	s.members.joined(ctx, uid, r.ID, models.RoleRoomOwner)
	s.index.IndexRoom(r)
	return view(r, uid), nil
}

func (s *RoomService) List(ctx context.Context, viewer bson.ObjectID, q models.RoomQuery) (Page[models.Room], error) {
	q.IncludeHidden = false
	items, next, err := s.rooms.List(ctx, q)
	if err != nil {
		return Page[models.Room]{}, err
	}
	for i := range items {
		items[i] = redactRoom(items[i], viewer)
	}
	return newPage(items, next), nil
}

func (s *RoomService) Trending(ctx context.Context, viewer bson.ObjectID, limit int) ([]models.Room, error) {
	items, err := s.rooms.Trending(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = redactRoom(items[i], viewer)
	}
	return items, nil
}

// visible loads a room the viewer may at least see the card of: listed rooms for everyone,
// hidden rooms for members and site admins.
func (s *RoomService) visible(ctx context.Context, viewer *models.User, id bson.ObjectID) (*models.Room, error) {
	r, err := loadRoom(ctx, s.rooms, id)
	if err != nil {
		return nil, err
	}
	if !r.IsVisible && !r.HasMember(viewerID(viewer)) && !viewer.IsSiteAdmin() {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (s *RoomService) Get(ctx context.Context, viewer *models.User, id bson.ObjectID) (*RoomView, error) {
	r, err := s.visible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return view(r, viewerID(viewer)), nil
}

// Update edits the room. Opening a private room approves everyone waiting.
func (s *RoomService) Update(ctx context.Context, actor *models.User, id bson.ObjectID, in RoomPatch, cover *Upload) (*RoomView, error) {
	current, err := loadRoom(ctx, s.rooms, id)
	if err != nil {
		return nil, err
	}
	if !current.IsAdmin(actor.ID) && !actor.IsSiteAdmin() {
		return nil, models.ErrNotRoomAdmin
	}
	key, url, err := s.saveCover(ctx, actor.ID, id, cover)
	if err != nil {
		return nil, err
	}
	var approved []bson.ObjectID
	r, err := s.mutate(ctx, id, func(r *models.Room) error {
		if !r.IsAdmin(actor.ID) && !actor.IsSiteAdmin() {
			return models.ErrNotRoomAdmin
		}
		if in.Name != nil {
			r.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			r.Description = strings.TrimSpace(*in.Description)
		}
		if in.Tags != nil {
			r.Tags = models.NormalizeTags(*in.Tags)
		}
		if in.IsVisible != nil {
			r.IsVisible = *in.IsVisible
		}
		approved = nil
		if in.RoomType != nil {
			if !in.RoomType.Valid() {
				return apperr.BadRequest("VALIDATION_ERROR", "roomType must be public or private")
			}
			approved = r.SetType(*in.RoomType)
		}
		if url != "" {
			r.CoverImage = url
		}
		return nil
	})
	if err != nil {
		s.dropCover(ctx, id, key)
		return nil, err
	}
	for _, uid := range approved {
		s.members.joined(ctx, uid, r.ID, models.RoleRoomMember)
	}
	s.noti.NotifyMany(ctx, approved, models.NotiJoinApproved, models.Ref{Entity: "room", ID: r.ID}, models.NotiParams{RoomName: r.Name})
	s.index.IndexRoom(r)
	return view(r, actor.ID), nil
}

// Delete soft-deletes the room. Only the creator or a site admin may do it.
func (s *RoomService) Delete(ctx context.Context, actor *models.User, id bson.ObjectID) error {
	r, err := s.mutate(ctx, id, func(r *models.Room) error {
		if !r.IsCreator(actor.ID) && !actor.IsSiteAdmin() {
			return models.ErrNotRoomCreator
		}
		r.SoftDelete(s.now())
		return nil
	})
	if err != nil {
		return err
	}
	s.index.IndexRoom(r)
	return nil
}

func (s *RoomService) Stats(ctx context.Context, viewer *models.User, id bson.ObjectID) (*RoomStats, error) {
	r, err := s.visible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	st := &RoomStats{
		MemberCount:     r.MemberCount,
		AdminCount:      len(r.Admins),
		PostsCount:      r.PostsCount,
		TotalLikes:      r.TotalLikes,
		TotalComments:   r.TotalComments,
		EngagementScore: r.EngagementScore,
		PinnedPosts:     len(r.PinnedPosts),
	}
	if r.IsAdmin(viewerID(viewer)) {
		st.PendingRequests = len(r.JoinRequests)
	}
	return st, nil
}

// Join adds uid to a public room or queues a request for a private one.
func (s *RoomService) Join(ctx context.Context, actor *models.User, id bson.ObjectID, message string) (models.Membership, error) {
	var state models.Membership
	r, err := s.mutate(ctx, id, func(r *models.Room) error {
		if !r.IsVisible && r.RoomType == models.RoomPrivate {
			return ErrRoomNotFound
		}
		st, err := r.Join(actor.ID, message, s.now())
		state = st
		return err
	})
	if err != nil {
		return "", err
	}
	ref := models.Ref{Entity: "room", ID: r.ID}
	switch state {
	case models.MembershipMember:
		s.members.joined(ctx, actor.ID, r.ID, models.RoleRoomMember)
		s.index.IndexRoom(r)
	case models.MembershipRequested:
		s.noti.NotifyMany(ctx, r.Admins, models.NotiJoinRequest, ref,
			models.NotiParams{RoomName: r.Name, ActorName: displayName(actor)})
	}
	return state, nil
}

func (s *RoomService) CancelJoin(ctx context.Context, uid, id bson.ObjectID) error {
	_, err := s.mutate(ctx, id, func(r *models.Room) error { return r.CancelJoinRequest(uid) })
	return err
}

func (s *RoomService) Leave(ctx context.Context, uid, id bson.ObjectID) error {
	_, err := s.mutate(ctx, id, func(r *models.Room) error { return r.Leave(uid) })
	if err != nil {
		return err
	}
	s.members.left(ctx, uid, id)
	return nil
}

func (s *RoomService) Members(ctx context.Context, viewer *models.User, id bson.ObjectID) (*RoomMembers, error) {
	r, err := s.visible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !r.CanView(viewerID(viewer)) && !viewer.IsSiteAdmin() {
		return nil, ErrRoomPrivate
	}
	admins, err := summaries(ctx, s.users, r.Admins)
	if err != nil {
		return nil, err
	}
	members, err := summaries(ctx, s.users, r.Members)
	if err != nil {
		return nil, err
	}
	return &RoomMembers{Admins: admins, Members: members}, nil
}

// AddMember lets a room admin add an existing user directly.
func (s *RoomService) AddMember(ctx context.Context, actor, id, uid bson.ObjectID) error {
	if _, err := loadUser(ctx, s.users, uid); err != nil {
		return err
	}
	r, err := s.mutate(ctx, id, func(r *models.Room) error { return r.AddMember(actor, uid) })
	if err != nil {
		return err
	}
	s.members.joined(ctx, uid, r.ID, models.RoleRoomMember)
	s.noti.NotifyOne(ctx, uid, models.NotiJoinApproved, models.Ref{Entity: "room", ID: r.ID}, models.NotiParams{RoomName: r.Name})
	return nil
}

func (s *RoomService) RemoveMember(ctx context.Context, actor, id, uid bson.ObjectID) error {
	_, err := s.mutate(ctx, id, func(r *models.Room) error { return r.RemoveUser(actor, uid) })
	if err != nil {
		return err
	}
	s.members.left(ctx, uid, id)
	return nil
}

// JoinRequests lists the pending queue, oldest first. Room admins only.
func (s *RoomService) JoinRequests(ctx context.Context, actor, id bson.ObjectID) ([]JoinRequestView, error) {
	r, err := loadRoom(ctx, s.rooms, id)
	if err != nil {
		return nil, err
	}
	if !r.IsAdmin(actor) {
		return nil, models.ErrNotRoomAdmin
	}
	ids := make([]bson.ObjectID, 0, len(r.JoinRequests))
	for _, j := range r.JoinRequests {
		ids = append(ids, j.UserID)
	}
	users, err := summaries(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[bson.ObjectID]models.UserSummary, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]JoinRequestView, 0, len(r.JoinRequests))
	for _, j := range r.JoinRequests {
		u, ok := byID[j.UserID]
		if !ok {
			u = models.UserSummary{ID: j.UserID}
		}
		out = append(out, JoinRequestView{User: u, Message: j.Message, RequestedAt: j.RequestedAt})
	}
	return out, nil
}

func (s *RoomService) HandleRequest(ctx context.Context, actor, id, uid bson.ObjectID, approve bool) error {
	r, err := s.mutate(ctx, id, func(r *models.Room) error { return r.HandleJoinRequest(actor, uid, approve) })
	if err != nil {
		return err
	}
	ref := models.Ref{Entity: "room", ID: r.ID}
	if approve {
		s.members.joined(ctx, uid, r.ID, models.RoleRoomMember)
		s.noti.NotifyOne(ctx, uid, models.NotiJoinApproved, ref, models.NotiParams{RoomName: r.Name})
		return nil
	}
	s.noti.NotifyOne(ctx, uid, models.NotiJoinRejected, ref, models.NotiParams{RoomName: r.Name})
	return nil
}

func (s *RoomService) Promote(ctx context.Context, actor, id, uid bson.ObjectID) error {
	r, err := s.mutate(ctx, id, func(r *models.Room) error { return r.Promote(actor, uid) })
	if err != nil {
		return err
	}
	s.noti.NotifyOne(ctx, uid, models.NotiAdminPromoted, models.Ref{Entity: "room", ID: r.ID}, models.NotiParams{RoomName: r.Name})
	return nil
}

func (s *RoomService) Demote(ctx context.Context, actor, id, uid bson.ObjectID) error {
	_, err := s.mutate(ctx, id, func(r *models.Room) error { return r.Demote(actor, uid) })
	return err
}

// TogglePin pins or unpins a post of the room and reports the new state.
func (s *RoomService) TogglePin(ctx context.Context, actor, id, postID bson.ObjectID) (bool, error) {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return false, mapNotFound(err, models.ErrPostNotFound)
	}
	var pinned bool
	_, err = s.mutate(ctx, id, func(r *models.Room) error {
		var err error
		pinned, err = r.TogglePin(actor, p)
		return err
	})
	return pinned, err
}

// Posts lists the room feed. The first page also carries the pinned posts.
func (s *RoomService) Posts(ctx context.Context, viewer *models.User, id bson.ObjectID, q models.PostQuery) (*RoomPosts, error) {
	r, err := s.visible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !r.CanView(viewerID(viewer)) && !viewer.IsSiteAdmin() {
		return nil, ErrRoomPrivate
	}
	q.RoomID = &r.ID
	q.TopLevel = true
	q.IncludeDeleted = false
	items, next, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := &RoomPosts{Pinned: []models.Post{}, Page: newPage(items, next)}
	if q.After == nil && len(r.PinnedPosts) > 0 {
		pinned, err := s.posts.FindMany(ctx, r.PinnedPosts)
		if err != nil {
			return nil, err
		}
		byID := make(map[bson.ObjectID]models.Post, len(pinned))
		for _, p := range pinned {
			byID[p.ID] = p
		}
		for _, pid := range r.PinnedPosts {
			if p, ok := byID[pid]; ok && !p.IsDeleted {
				out.Pinned = append(out.Pinned, p)
			}
		}
	}
	return out, nil
}

func viewerID(u *models.User) bson.ObjectID {
	if u == nil {
		return bson.NilObjectID
	}
	return u.ID
}
