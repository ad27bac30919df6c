package dto

import (
	"time"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

type QuestionDetailsReq struct {
	Title string   `json:"title" form:"title" validate:"max=300"`
	Body  string   `json:"body" form:"body" validate:"max=10000"`
	Tags  []string `json:"tags" form:"tags" validate:"max=10,dive,max=30"`
}

// CreatePostReq arrives as JSON or multipart form-data. For forms the question fields use
// dotted names (questionDetails.title) and files come under "media".
type CreatePostReq struct {
	Scope           string              `json:"scope" form:"scope" validate:"omitempty,oneof=room personal global"`
	RoomID          string              `json:"roomId" form:"roomId" validate:"omitempty,objectid"`
	Type            string              `json:"type" form:"type" validate:"required,oneof=text image video file poll question"`
	Content         string              `json:"content" form:"content" validate:"max=10000"`
	QuestionDetails *QuestionDetailsReq `json:"questionDetails" form:"-"`
	PollOptions     []string            `json:"pollOptions" form:"pollOptions" validate:"max=10,dive,max=200"`
	PollMultiple    bool                `json:"pollMultiple" form:"pollMultiple"`
	PollEndsAt      *time.Time          `json:"pollEndsAt" form:"-"`
}

type UpdatePostReq struct {
	Content         *string             `json:"content" validate:"omitempty,max=10000"`
	QuestionDetails *QuestionDetailsReq `json:"questionDetails"`
	PollEndsAt      *time.Time          `json:"pollEndsAt"`
}

type VoteReq struct {
	Vote string `json:"vote" validate:"required,oneof=up down none"`
}

type PollVoteReq struct {
	Option *int `json:"option" validate:"required,min=0"`
}

type AnswerReq struct {
	Content string `json:"content" form:"content" validate:"notblank,max=10000"`
}

type CommentReq struct {
	Text string `json:"text" validate:"notblank,max=2000"`
}

type TrendingTagsResp struct {
	Days  int                   `json:"days"`
	Items []models.HashtagCount `json:"items"`
}
