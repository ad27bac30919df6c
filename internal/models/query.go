package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// After marks the last item of the previous page in (created_at, _id) descending order.
type After struct {
	CreatedAt time.Time
	ID        bson.ObjectID
}

type PostQuery struct {
	RoomID           *bson.ObjectID
	AuthorID         *bson.ObjectID
	ParentQuestionID *bson.ObjectID
	TopLevel         bool // excludes answers
	Scopes           []PostScope
	Type             PostType
	Hashtag          string
	IncludeDeleted   bool
	After            *After
	Limit            int
}

type RoomQuery struct {
	Search        string
	Tag           string
	RoomType      RoomType
	MemberID      *bson.ObjectID
	IncludeHidden bool
	After         *After
	Limit         int
}

type UserQuery struct {
	After *After
	Limit int
}

type HashtagCount struct {
	Tag   string `bson:"_id" json:"tag"`
	Count int64  `bson:"count" json:"count"`
}
