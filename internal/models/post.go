package models

import (
	"slices"
	"strings"
	"time"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type PostScope string

const (
	ScopeRoom     PostScope = "room"
	ScopePersonal PostScope = "personal"
	ScopeGlobal   PostScope = "global"
)

func (s PostScope) Valid() bool {
	return s == ScopeRoom || s == ScopePersonal || s == ScopeGlobal
}

type PostType string

const (
	PostText     PostType = "text"
	PostImage    PostType = "image"
	PostVideo    PostType = "video"
	PostFile     PostType = "file"
	PostPoll     PostType = "poll"
	PostQuestion PostType = "question"
	PostAnswer   PostType = "answer"
)

func (t PostType) Valid() bool {
	switch t {
	case PostText, PostImage, PostVideo, PostFile, PostPoll, PostQuestion, PostAnswer:
		return true
	}
	return false
}

// HasMedia reports whether the type carries uploaded files.
func (t PostType) HasMedia() bool { return t == PostImage || t == PostVideo || t == PostFile }

type VoteDir string

const (
	VoteUp   VoteDir = "up"
	VoteDown VoteDir = "down"
	VoteNone VoteDir = "none"
)

func (v VoteDir) Valid() bool { return v == VoteUp || v == VoteDown || v == VoteNone }

const (
	ViewWindow        = 30 * time.Minute
	MaxViewHistory    = 1000
	MaxContentLength  = 10000
	MinPollOptions    = 2
	MaxPollOptions    = 10
	AcceptedBonus     = 15
	MaxMediaPerPost   = 10
	MaxQuestionTitle  = 300
	MaxHashtagsInPost = 30
)

var (
	ErrPostNotFound      = apperr.NotFound("POST_NOT_FOUND", "post not found")
	ErrNotQuestion       = apperr.BadRequest("NOT_A_QUESTION", "post is not a question")
	ErrNotAnswerOf       = apperr.BadRequest("NOT_AN_ANSWER", "post is not an answer to this question")
	ErrNotQuestionAuthor = apperr.Forbidden("NOT_QUESTION_AUTHOR", "only the question author can accept answers")
	ErrNoAcceptedAnswer  = apperr.BadRequest("NO_ACCEPTED_ANSWER", "question has no accepted answer")
	ErrNotPoll           = apperr.BadRequest("NOT_A_POLL", "post is not a poll")
	ErrPollClosed        = apperr.BadRequest("POLL_CLOSED", "poll is closed")
	ErrPollOption        = apperr.BadRequest("INVALID_POLL_OPTION", "poll option does not exist")
)

type Media struct {
	URL  string `bson:"url" json:"url"`
	Key  string `bson:"key" json:"key"`
	Type string `bson:"type" json:"type"`
	Name string `bson:"name" json:"name"`
	Size int64  `bson:"size" json:"size"`
}

type Votes struct {
	Upvotes   []bson.ObjectID `bson:"upvotes" json:"upvotes"`
	Downvotes []bson.ObjectID `bson:"downvotes" json:"downvotes"`
	Score     int64           `bson:"score" json:"score"`
}

type QuestionDetails struct {
	Title            string         `bson:"title" json:"title"`
	Body             string         `bson:"body,omitempty" json:"body,omitempty"`
	Tags             []string       `bson:"tags" json:"tags"`
	AcceptedAnswerID *bson.ObjectID `bson:"accepted_answer_id,omitempty" json:"acceptedAnswerId,omitempty"`
}

type PollOption struct {
	Text  string          `bson:"text" json:"text"`
	Votes []bson.ObjectID `bson:"votes" json:"votes"`
}

type View struct {
	UserID   bson.ObjectID `bson:"user_id" json:"userId"`
	ViewedAt time.Time     `bson:"viewed_at" json:"viewedAt"`
}

type Post struct {
	ID               bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	AuthorID         bson.ObjectID    `bson:"author_id" json:"authorId"`
	AuthorName       string           `bson:"author_name" json:"authorName"`
	RoomID           *bson.ObjectID   `bson:"room_id,omitempty" json:"roomId,omitempty"`
	Scope            PostScope        `bson:"scope" json:"scope"`
	Type             PostType         `bson:"type" json:"type"`
	Content          string           `bson:"content" json:"content"`
	Media            []Media          `bson:"media" json:"media"`
	Hashtags         []string         `bson:"hashtags" json:"hashtags"`
	Votes            Votes            `bson:"votes" json:"votes"`
	Likes            []bson.ObjectID  `bson:"likes" json:"likes"`
	LikesCount       int64            `bson:"likes_count" json:"likesCount"`
	CommentsCount    int64            `bson:"comments_count" json:"commentsCount"`
	QuestionDetails  *QuestionDetails `bson:"question_details,omitempty" json:"questionDetails,omitempty"`
	ParentQuestionID *bson.ObjectID   `bson:"parent_question_id,omitempty" json:"parentQuestionId,omitempty"`
	IsAccepted       bool             `bson:"is_accepted" json:"isAccepted"`
	PollOptions      []PollOption     `bson:"poll_options,omitempty" json:"pollOptions,omitempty"`
	PollMultiple     bool             `bson:"poll_multiple" json:"pollMultiple"`
	PollEndsAt       *time.Time       `bson:"poll_ends_at,omitempty" json:"pollEndsAt,omitempty"`
	Views            []View           `bson:"views" json:"-"`
	ViewCount        int64            `bson:"view_count" json:"viewCount"`
	EngagementScore  float64          `bson:"engagement_score" json:"engagementScore"`
	IsEdited         bool             `bson:"is_edited" json:"isEdited"`
	IsDeleted        bool             `bson:"is_deleted" json:"isDeleted"`
	DeletedAt        *time.Time       `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
	CreatedAt        time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time        `bson:"updated_at" json:"updatedAt"`
	Version          int64            `bson:"version" json:"version"`
}

// InRoom reports whether the post is scoped to roomID.
func (p *Post) InRoom(roomID bson.ObjectID) bool {
	return p.RoomID != nil && *p.RoomID == roomID
}

func (p *Post) UserVote(uid bson.ObjectID) VoteDir {
	switch {
	case slices.Contains(p.Votes.Upvotes, uid):
		return VoteUp
	case slices.Contains(p.Votes.Downvotes, uid):
		return VoteDown
	}
	return VoteNone
}

// Vote clears any previous vote by uid and records dir. Submitting the vote the user
// already holds withdraws it. The resulting vote is returned.
func (p *Post) Vote(uid bson.ObjectID, dir VoteDir) VoteDir {
	prev := p.UserVote(uid)
	p.Votes.Upvotes = removeID(p.Votes.Upvotes, uid)
	p.Votes.Downvotes = removeID(p.Votes.Downvotes, uid)
	if dir == prev {
		dir = VoteNone
	}
	switch dir {
	case VoteUp:
		p.Votes.Upvotes = append(p.Votes.Upvotes, uid)
	case VoteDown:
		p.Votes.Downvotes = append(p.Votes.Downvotes, uid)
	}
	p.Votes.Score = int64(len(p.Votes.Upvotes) - len(p.Votes.Downvotes))
	return dir
}

func (p *Post) HasLiked(uid bson.ObjectID) bool { return slices.Contains(p.Likes, uid) }

// ToggleLike flips the like of uid and returns the new state.
func (p *Post) ToggleLike(uid bson.ObjectID) bool {
	if p.HasLiked(uid) {
		p.Likes = removeID(p.Likes, uid)
		p.LikesCount = int64(len(p.Likes))
		return false
	}
	p.Likes = append(p.Likes, uid)
	p.LikesCount = int64(len(p.Likes))
	return true
}

func (p *Post) PollClosed(now time.Time) bool {
	return p.PollEndsAt != nil && !now.Before(*p.PollEndsAt)
}

// VotePoll records uid's choice on option idx. Single-choice polls move the vote and
// withdraw it when the same option is chosen again; multi-choice polls toggle per option.
func (p *Post) VotePoll(uid bson.ObjectID, idx int, now time.Time) error {
	if p.Type != PostPoll {
		return ErrNotPoll
	}
	if p.PollClosed(now) {
		return ErrPollClosed
	}
	if idx < 0 || idx >= len(p.PollOptions) {
		return ErrPollOption
	}
	opt := &p.PollOptions[idx]
	had := slices.Contains(opt.Votes, uid)
	if !p.PollMultiple {
		for i := range p.PollOptions {
			p.PollOptions[i].Votes = removeID(p.PollOptions[i].Votes, uid)
		}
	} else {
		opt.Votes = removeID(opt.Votes, uid)
	}
	if !had {
		opt.Votes = append(opt.Votes, uid)
	}
	return nil
}

// RecordView appends a view unless uid already viewed within ViewWindow.
func (p *Post) RecordView(uid bson.ObjectID, now time.Time) bool {
	for i := len(p.Views) - 1; i >= 0; i-- {
		v := p.Views[i]
		if v.UserID == uid && now.Sub(v.ViewedAt) < ViewWindow {
			return false
		}
	}
	p.Views = append(p.Views, View{UserID: uid, ViewedAt: now})
	if n := len(p.Views); n > MaxViewHistory {
		p.Views = slices.Clone(p.Views[n-MaxViewHistory:])
	}
	p.ViewCount++
	return true
}

// AcceptAnswer marks answer as the accepted answer of question p. It returns the id of the
// answer that lost its accepted flag, if any, so the caller can persist that change too.
// Accepting the already accepted answer is a no-op.
func (p *Post) AcceptAnswer(actor bson.ObjectID, answer *Post) (*bson.ObjectID, bool, error) {
	if p.Type != PostQuestion || p.QuestionDetails == nil {
		return nil, false, ErrNotQuestion
	}
	if p.AuthorID != actor {
		return nil, false, ErrNotQuestionAuthor
	}
	if answer == nil || answer.IsDeleted || answer.Type != PostAnswer ||
		answer.ParentQuestionID == nil || *answer.ParentQuestionID != p.ID {
		return nil, false, ErrNotAnswerOf
	}
	prev := p.QuestionDetails.AcceptedAnswerID
	if prev != nil && *prev == answer.ID {
		answer.IsAccepted = true
		return nil, false, nil
	}
	id := answer.ID
	p.QuestionDetails.AcceptedAnswerID = &id
	answer.IsAccepted = true
	return prev, true, nil
}

// UnacceptAnswer clears the accepted answer and returns its id.
func (p *Post) UnacceptAnswer(actor bson.ObjectID) (bson.ObjectID, error) {
	if p.Type != PostQuestion || p.QuestionDetails == nil {
		return bson.NilObjectID, ErrNotQuestion
	}
	if p.AuthorID != actor {
		return bson.NilObjectID, ErrNotQuestionAuthor
	}
	if p.QuestionDetails.AcceptedAnswerID == nil {
		return bson.NilObjectID, ErrNoAcceptedAnswer
	}
	id := *p.QuestionDetails.AcceptedAnswerID
	p.QuestionDetails.AcceptedAnswerID = nil
	return id, nil
}

func (p *Post) SoftDelete(now time.Time) {
	p.IsDeleted = true
	p.DeletedAt = &now
}

func validation(msg string) error { return apperr.BadRequest("VALIDATION_ERROR", msg) }

// Validate checks the per-type and per-scope content rules.
func (p *Post) Validate() error {
	if !p.Type.Valid() {
		return validation("unknown post type")
	}
	if !p.Scope.Valid() {
		return validation("scope must be room, personal or global")
	}
	if p.Scope == ScopeRoom && (p.RoomID == nil || p.RoomID.IsZero()) {
		return validation("roomId is required for room posts")
	}
	if p.Scope != ScopeRoom && p.RoomID != nil {
		return validation("roomId is only allowed on room posts")
	}
	if len([]rune(p.Content)) > MaxContentLength {
		return validation("content is too long")
	}
	if len(p.Media) > MaxMediaPerPost {
		return validation("too many attachments")
	}
	content := strings.TrimSpace(p.Content)
	switch p.Type {
	case PostText:
		if content == "" {
			return validation("content is required for text posts")
		}
	case PostImage, PostVideo, PostFile:
		if len(p.Media) == 0 {
			return validation("at least one file is required for " + string(p.Type) + " posts")
		}
	case PostPoll:
		if len(p.PollOptions) < MinPollOptions || len(p.PollOptions) > MaxPollOptions {
			return validation("polls need between 2 and 10 options")
		}
		for _, o := range p.PollOptions {
			if strings.TrimSpace(o.Text) == "" {
				return validation("poll options cannot be empty")
			}
		}
	case PostQuestion:
		if p.QuestionDetails == nil || strings.TrimSpace(p.QuestionDetails.Title) == "" {
			return validation("questionDetails.title is required for questions")
		}
		if len([]rune(p.QuestionDetails.Title)) > MaxQuestionTitle {
			return validation("question title is too long")
		}
	case PostAnswer:
		if p.ParentQuestionID == nil || p.ParentQuestionID.IsZero() {
			return validation("parentQuestionId is required for answers")
		}
		if content == "" {
			return validation("content is required for answers")
		}
	}
	return nil
}

// BeforeSave recomputes the derived tallies and the engagement score.
func (p *Post) BeforeSave(now time.Time) {
	p.Votes.Upvotes = uniqueIDs(p.Votes.Upvotes)
	p.Votes.Downvotes = slices.DeleteFunc(uniqueIDs(p.Votes.Downvotes), func(id bson.ObjectID) bool {
		return slices.Contains(p.Votes.Upvotes, id)
	})
	p.Votes.Score = int64(len(p.Votes.Upvotes) - len(p.Votes.Downvotes))
	p.Likes = uniqueIDs(p.Likes)
	p.LikesCount = int64(len(p.Likes))
	if p.Media == nil {
		p.Media = []Media{}
	}
	if p.Hashtags == nil {
		p.Hashtags = []string{}
	}
	if p.Views == nil {
		p.Views = []View{}
	}
	if p.ViewCount < int64(len(p.Views)) {
		p.ViewCount = int64(len(p.Views))
	}
	score := float64(p.Votes.Score*2+p.LikesCount+p.CommentsCount*3) + float64(p.ViewCount)*0.1
	if p.Type == PostAnswer && p.IsAccepted {
		score += AcceptedBonus
	}
	p.EngagementScore = score
	p.UpdatedAt = now
}
