package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/utils"
)

type CommentService struct {
	comments CommentStore
	posts    PostStore
	rooms    RoomStore
	users    UserStore
	noti     *Notifier
	log      logger.Logger
	now      func() time.Time
}

// CommentView is a comment with profanity masked and the viewer's like state.
type CommentView struct {
	models.Comment
	Liked bool `json:"liked"`
}

func commentView(c models.Comment, viewer bson.ObjectID) CommentView {
	c.Text = utils.MaskProfanity(c.Text)
	liked := false
	for _, id := range c.Likes {
		if id == viewer {
			liked = true
			break
		}
	}
	return CommentView{Comment: c, Liked: liked}
}

func checkText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.BadRequest("VALIDATION_ERROR", "text is required")
	}
	if len([]rune(text)) > models.MaxCommentLength {
		return "", apperr.BadRequest("VALIDATION_ERROR", "comment is too long")
	}
	return text, nil
}

func loadComment(ctx context.Context, comments CommentStore, id bson.ObjectID) (*models.Comment, error) {
	c, err := comments.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, models.ErrCommentNotFound)
	}
	if c.IsDeleted {
		return nil, models.ErrCommentNotFound
	}
	return c, nil
}

// post loads the live post a comment hangs off plus its room, if any.
func (s *CommentService) post(ctx context.Context, id bson.ObjectID) (*models.Post, *models.Room, error) {
	p, err := loadPost(ctx, s.posts, id)
	if err != nil {
		return nil, nil, err
	}
	if p.RoomID == nil {
		return p, nil, nil
	}
	r, err := loadRoom(ctx, s.rooms, *p.RoomID)
	if err != nil {
		return nil, nil, err
	}
	return p, r, nil
}

func (s *CommentService) List(ctx context.Context, viewer *models.User, postID bson.ObjectID, after *models.After, limit int) (Page[CommentView], error) {
	_, room, err := s.post(ctx, postID)
	if err != nil {
		return Page[CommentView]{}, err
	}
	uid := viewerID(viewer)
	if room != nil && !room.CanView(uid) && !viewer.IsSiteAdmin() {
		return Page[CommentView]{}, ErrRoomPrivate
	}
	items, next, err := s.comments.ListByPost(ctx, postID, after, limit)
	if err != nil {
		return Page[CommentView]{}, err
	}
	out := make([]CommentView, 0, len(items))
	for _, c := range items {
		out = append(out, commentView(c, uid))
	}
	return newPage(out, next), nil
}

// Create adds a comment. Room posts only take comments from room members.
func (s *CommentService) Create(ctx context.Context, author *models.User, postID bson.ObjectID, text string) (*CommentView, error) {
	text, err := checkText(text)
	if err != nil {
		return nil, err
	}
	p, room, err := s.post(ctx, postID)
	if err != nil {
		return nil, err
	}
	if room != nil && !room.HasMember(author.ID) {
		return nil, ErrNotRoomMember
	}
	now := s.now()
	c := &models.Comment{
		ID:         bson.NewObjectID(),
		PostID:     p.ID,
		RoomID:     p.RoomID,
		AuthorID:   author.ID,
		AuthorName: displayName(author),
		Text:       text,
		Likes:      []bson.ObjectID{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := s.posts.AdjustComments(ctx, p.ID, 1); err != nil {
		s.log.Error("comments: adjust post counter", "post", p.ID.Hex(), "err", err)
	}
	if p.RoomID != nil {
		if err := s.rooms.AdjustCounters(ctx, *p.RoomID, 0, 0, 1); err != nil {
			s.log.Error("comments: adjust room counters", "room", p.RoomID.Hex(), "err", err)
		}
	}
	if p.AuthorID != author.ID {
		s.noti.NotifyOne(ctx, p.AuthorID, models.NotiNewComment, models.Ref{Entity: "post", ID: p.ID},
			models.NotiParams{ActorName: displayName(author)})
	}
	v := commentView(*c, author.ID)
	return &v, nil
}

// mutate runs one retried load-mutate-save cycle on a live comment.
func (s *CommentService) mutate(ctx context.Context, id bson.ObjectID, fn func(c *models.Comment) error) (*models.Comment, error) {
	var out *models.Comment
	err := withRetry(func() error {
		c, err := loadComment(ctx, s.comments, id)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		if err := s.comments.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *CommentService) Update(ctx context.Context, actor, id bson.ObjectID, text string) (*CommentView, error) {
	text, err := checkText(text)
	if err != nil {
		return nil, err
	}
	c, err := s.mutate(ctx, id, func(c *models.Comment) error {
		if c.AuthorID != actor {
			return ErrNotAuthor
		}
		c.Text = text
		c.IsEdited = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	v := commentView(*c, actor)
	return &v, nil
}

func (s *CommentService) canDelete(ctx context.Context, actor *models.User, c *models.Comment) bool {
	if c.AuthorID == actor.ID || actor.IsSiteAdmin() {
		return true
	}
	if p, err := s.posts.FindByID(ctx, c.PostID); err == nil && p.AuthorID == actor.ID {
		return true
	}
	if c.RoomID != nil {
		if r, err := s.rooms.FindByID(ctx, *c.RoomID); err == nil && r.IsAdmin(actor.ID) {
			return true
		}
	}
	return false
}

// Delete soft-deletes a comment. Allowed for its author, the post author, an admin of the
// post's room and site admins.
func (s *CommentService) Delete(ctx context.Context, actor *models.User, id bson.ObjectID) error {
	c, err := s.mutate(ctx, id, func(c *models.Comment) error {
		if !s.canDelete(ctx, actor, c) {
			return ErrNotAuthor
		}
		c.IsDeleted = true
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.posts.AdjustComments(ctx, c.PostID, -1); err != nil {
		s.log.Error("comments: adjust post counter", "post", c.PostID.Hex(), "err", err)
	}
	if c.RoomID != nil {
		if err := s.rooms.AdjustCounters(ctx, *c.RoomID, 0, 0, -1); err != nil {
			s.log.Error("comments: adjust room counters", "room", c.RoomID.Hex(), "err", err)
		}
	}
	return nil
}

func (s *CommentService) Like(ctx context.Context, uid, id bson.ObjectID) (*LikeResult, error) {
	var liked bool
	c, err := s.mutate(ctx, id, func(c *models.Comment) error {
		if c.RoomID != nil {
			r, err := loadRoom(ctx, s.rooms, *c.RoomID)
			if err != nil {
				return err
			}
			if !r.HasMember(uid) {
				return ErrNotRoomMember
			}
		}
		liked = c.ToggleLike(uid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, LikesCount: c.LikesCount}, nil
}
