package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type NotiType string

const (
	NotiJoinRequest    NotiType = "JOIN_REQUEST"
	NotiJoinApproved   NotiType = "JOIN_APPROVED"
	NotiJoinRejected   NotiType = "JOIN_REJECTED"
	NotiAdminPromoted  NotiType = "ADMIN_PROMOTED"
	NotiAnswerPosted   NotiType = "ANSWER_POSTED"
	NotiAnswerAccepted NotiType = "ANSWER_ACCEPTED"
	NotiNewFollower    NotiType = "NEW_FOLLOWER"
	NotiNewComment     NotiType = "NEW_COMMENT"
)

type Ref struct {
	Entity string        `bson:"entity" json:"entity"` // "room" | "post" | "user"
	ID     bson.ObjectID `bson:"id" json:"id"`
}

type Notification struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    bson.ObjectID `bson:"user_id" json:"userId"`
	Type      NotiType      `bson:"type" json:"type"`
	Title     string        `bson:"title" json:"title"`
	Body      string        `bson:"body" json:"body"`
	Ref       Ref           `bson:"ref" json:"ref"`
	Read      bool          `bson:"read" json:"read"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}

// NotiParams feeds the title/body templates.
type NotiParams struct {
	RoomName  string
	ActorName string
	PostTitle string
}
