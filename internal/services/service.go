package services

import (
	"time"

	"github.com/muthuabi/coros-vite-sub000/internal/auth"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
)

type Deps struct {
	Users         UserStore
	Rooms         RoomStore
	Posts         PostStore
	Comments      CommentStore
	Notifications NotificationStore
	Sessions      SessionStore
	Files         FileStore
	Index         Indexer
	Issuer        *auth.Issuer
	RefreshTTL    time.Duration
	Log           logger.Logger
}

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Rooms         *RoomService
	Posts         *PostService
	Comments      *CommentService
	Notifications *NotificationService
}

func New(d Deps) *Services {
	if d.Log == nil {
		d.Log = logger.Nop{}
	}
	if d.Index == nil {
		d.Index = nopIndexer{}
	}
	noti := &Notifier{Store: d.Notifications, Log: d.Log}
	now := func() time.Time { return time.Now().UTC() }
	members := &membership{users: d.Users, log: d.Log}

	return &Services{
		Auth: &AuthService{
			users: d.Users, sessions: d.Sessions, issuer: d.Issuer, refreshTTL: d.RefreshTTL, now: now,
		},
		Users: &UserService{
			users: d.Users, rooms: d.Rooms, posts: d.Posts, files: d.Files, noti: noti, now: now,
		},
		Rooms: &RoomService{
			rooms: d.Rooms, users: d.Users, posts: d.Posts, files: d.Files, index: d.Index,
			noti: noti, members: members, log: d.Log, now: now,
		},
		Posts: &PostService{
			posts: d.Posts, rooms: d.Rooms, users: d.Users, comments: d.Comments, files: d.Files,
			index: d.Index, noti: noti, log: d.Log, now: now,
		},
		Comments: &CommentService{
			comments: d.Comments, posts: d.Posts, rooms: d.Rooms, users: d.Users, noti: noti, log: d.Log, now: now,
		},
		Notifications: &NotificationService{Store: d.Notifications},
	}
}
