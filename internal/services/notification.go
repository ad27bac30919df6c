package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	m "github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

var ErrNotificationNotFound = apperr.NotFound("NOTIFICATION_NOT_FOUND", "notification not found")

func BuildTitleBody(t m.NotiType, p m.NotiParams) (title, body string, err error) {
	switch t {
	case m.NotiJoinRequest:
		if p.RoomName == "" || p.ActorName == "" {
			return "", "", errors.New("missing RoomName/ActorName")
		}
		return "New join request",
			fmt.Sprintf("%s asked to join %s.", p.ActorName, p.RoomName), nil

	case m.NotiJoinApproved:
		if p.RoomName == "" {
			return "", "", errors.New("missing RoomName")
		}
		return "Join request approved",
			fmt.Sprintf("You are now a member of %s.", p.RoomName), nil

	case m.NotiJoinRejected:
		if p.RoomName == "" {
			return "", "", errors.New("missing RoomName")
		}
		return "Join request declined",
			fmt.Sprintf("Your request to join %s was declined.", p.RoomName), nil

	case m.NotiAdminPromoted:
		if p.RoomName == "" {
			return "", "", errors.New("missing RoomName")
		}
		return "You are now an admin",
			fmt.Sprintf("You were promoted to admin of %s.", p.RoomName), nil

	case m.NotiAnswerPosted:
		if p.PostTitle == "" || p.ActorName == "" {
			return "", "", errors.New("missing PostTitle/ActorName")
		}
		return "Your question has a new answer",
			fmt.Sprintf("%s answered \"%s\".", p.ActorName, p.PostTitle), nil

	case m.NotiAnswerAccepted:
		if p.PostTitle == "" {
			return "", "", errors.New("missing PostTitle")
		}
		return "Your answer was accepted",
			fmt.Sprintf("Your answer to \"%s\" was accepted.", p.PostTitle), nil

	case m.NotiNewFollower:
		if p.ActorName == "" {
			return "", "", errors.New("missing ActorName")
		}
		return "New follower",
			fmt.Sprintf("%s started following you.", p.ActorName), nil

	case m.NotiNewComment:
		if p.ActorName == "" {
			return "", "", errors.New("missing ActorName")
		}
		return "New comment",
			fmt.Sprintf("%s commented on your post.", p.ActorName), nil
	}
	return "", "", fmt.Errorf("unknown noti type: %s", t)
}

// Notifier writes notifications without ever failing the caller: errors are logged.
type Notifier struct {
	Store NotificationStore
	Log   logger.Logger
}

func (n *Notifier) NotifyOne(ctx context.Context, userID bson.ObjectID, typ m.NotiType, ref m.Ref, p m.NotiParams) {
	n.NotifyMany(ctx, []bson.ObjectID{userID}, typ, ref, p)
}

// NotifyMany fans one notification out to several users in a single bulk write.
func (n *Notifier) NotifyMany(ctx context.Context, userIDs []bson.ObjectID, typ m.NotiType, ref m.Ref, p m.NotiParams) {
	if n == nil || n.Store == nil || len(userIDs) == 0 {
		return
	}
	title, body, err := BuildTitleBody(typ, p)
	if err != nil {
		n.Log.Warn("notify: build", "type", typ, "err", err)
		return
	}
	now := time.Now().UTC()
	items := make([]m.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		items = append(items, m.Notification{
			UserID:    uid,
			Type:      typ,
			Title:     title,
			Body:      body,
			Ref:       ref,
			CreatedAt: now,
		})
	}
	if err := n.Store.InsertMany(ctx, items); err != nil {
		n.Log.Error("notify: insert", "type", typ, "err", err)
	}
}

// except drops the actor from a recipient list.
func except(ids []bson.ObjectID, actor bson.ObjectID) []bson.ObjectID {
	out := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id != actor {
			out = append(out, id)
		}
	}
	return out
}

type NotificationService struct {
	Store NotificationStore
}

// NotificationList is a page plus the unread badge count.
type NotificationList struct {
	Page[m.Notification]
	Unread int64 `json:"unread"`
}

func (s *NotificationService) List(ctx context.Context, uid bson.ObjectID, unreadOnly bool, after *m.After, limit int) (*NotificationList, error) {
	items, next, err := s.Store.List(ctx, uid, unreadOnly, after, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.Store.CountUnread(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &NotificationList{Page: newPage(items, next), Unread: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, uid, id bson.ObjectID) error {
	err := s.Store.MarkRead(ctx, uid, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, uid bson.ObjectID) (int64, error) {
	return s.Store.MarkAllRead(ctx, uid)
}
