package models

import (
	"slices"
	"time"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const MaxCommentLength = 2000

var ErrCommentNotFound = apperr.NotFound("COMMENT_NOT_FOUND", "comment not found")

type Comment struct {
	ID         bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	PostID     bson.ObjectID   `bson:"post_id" json:"postId"`
	RoomID     *bson.ObjectID  `bson:"room_id,omitempty" json:"roomId,omitempty"`
	AuthorID   bson.ObjectID   `bson:"author_id" json:"authorId"`
	AuthorName string          `bson:"author_name" json:"authorName"`
	Text       string          `bson:"text" json:"text"`
	Likes      []bson.ObjectID `bson:"likes" json:"likes"`
	LikesCount int64           `bson:"likes_count" json:"likesCount"`
	IsEdited   bool            `bson:"is_edited" json:"isEdited"`
	IsDeleted  bool            `bson:"is_deleted" json:"isDeleted"`
	CreatedAt  time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `bson:"updated_at" json:"updatedAt"`
	Version    int64           `bson:"version" json:"-"`
}

func (c *Comment) ToggleLike(uid bson.ObjectID) bool {
	liked := !slices.Contains(c.Likes, uid)
	if liked {
		c.Likes = append(c.Likes, uid)
	} else {
		c.Likes = removeID(c.Likes, uid)
	}
	c.LikesCount = int64(len(c.Likes))
	return liked
}
