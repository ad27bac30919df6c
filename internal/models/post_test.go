package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestVoteToggleByResubmit(t *testing.T) {
	p := &Post{ID: bson.NewObjectID(), Type: PostText}
	a, b := bson.NewObjectID(), bson.NewObjectID()

	tests := []struct {
		name  string
		user  bson.ObjectID
		dir   VoteDir
		want  VoteDir
		score int64
	}{
		{"a up", a, VoteUp, VoteUp, 1},
		{"b down", b, VoteDown, VoteDown, 0},
		{"a switches down", a, VoteDown, VoteDown, -2},
		{"a resubmits down", a, VoteDown, VoteNone, -1},
		{"b clears", b, VoteNone, VoteNone, 0},
		{"b up", b, VoteUp, VoteUp, 1},
	}
	for _, tc := range tests {
		got := p.Vote(tc.user, tc.dir)
		assert.Equal(t, tc.want, got, tc.name)
		assert.Equal(t, tc.score, p.Votes.Score, tc.name)
		assert.Equal(t, int64(len(p.Votes.Upvotes)-len(p.Votes.Downvotes)), p.Votes.Score, tc.name)
	}
	assert.Equal(t, VoteUp, p.UserVote(b))
	assert.Equal(t, VoteNone, p.UserVote(a))
}

func TestBeforeSaveKeepsScoreConsistent(t *testing.T) {
	u := bson.NewObjectID()
	p := &Post{
		Type:  PostText,
		Votes: Votes{Upvotes: []bson.ObjectID{u, u}, Downvotes: []bson.ObjectID{u}, Score: 42},
	}
	p.BeforeSave(t0)
	assert.Equal(t, []bson.ObjectID{u}, p.Votes.Upvotes)
	assert.Empty(t, p.Votes.Downvotes)
	assert.EqualValues(t, 1, p.Votes.Score)
}

func TestEngagementScore(t *testing.T) {
	u := bson.NewObjectID()
	p := &Post{Type: PostAnswer, CommentsCount: 2, ViewCount: 10, IsAccepted: true}
	p.Vote(u, VoteUp)
	p.ToggleLike(u)
	p.BeforeSave(t0)
	// 1*2 + 1 + 2*3 + 10*0.1 + 15
	assert.InDelta(t, 25.0, p.EngagementScore, 1e-9)

	p.IsAccepted = false
	p.BeforeSave(t0)
	assert.InDelta(t, 10.0, p.EngagementScore, 1e-9)
}

func TestToggleLike(t *testing.T) {
	p := &Post{}
	u := bson.NewObjectID()
	assert.True(t, p.ToggleLike(u))
	assert.EqualValues(t, 1, p.LikesCount)
	assert.False(t, p.ToggleLike(u))
	assert.EqualValues(t, 0, p.LikesCount)
}

func TestRecordViewWindowAndCap(t *testing.T) {
	p := &Post{}
	u := bson.NewObjectID()

	assert.True(t, p.RecordView(u, t0))
	assert.False(t, p.RecordView(u, t0.Add(29*time.Minute)))
	assert.True(t, p.RecordView(u, t0.Add(30*time.Minute)))
	assert.EqualValues(t, 2, p.ViewCount)

	for i := 0; i < MaxViewHistory+5; i++ {
		p.RecordView(bson.NewObjectID(), t0.Add(time.Hour))
	}
	assert.Len(t, p.Views, MaxViewHistory)
	assert.EqualValues(t, MaxViewHistory+7, p.ViewCount)
	assert.NotEqual(t, u, p.Views[0].UserID)
}

func TestVotePoll(t *testing.T) {
	u := bson.NewObjectID()
	end := t0.Add(time.Hour)
	single := &Post{Type: PostPoll, PollEndsAt: &end, PollOptions: []PollOption{{Text: "a"}, {Text: "b"}}}

	require.NoError(t, single.VotePoll(u, 0, t0))
	require.NoError(t, single.VotePoll(u, 1, t0))
	assert.Empty(t, single.PollOptions[0].Votes)
	assert.Equal(t, []bson.ObjectID{u}, single.PollOptions[1].Votes)

	// same option again withdraws
	require.NoError(t, single.VotePoll(u, 1, t0))
	assert.Empty(t, single.PollOptions[1].Votes)

	assert.ErrorIs(t, single.VotePoll(u, 2, t0), ErrPollOption)
	assert.ErrorIs(t, single.VotePoll(u, 0, end), ErrPollClosed)

	multi := &Post{Type: PostPoll, PollMultiple: true, PollOptions: []PollOption{{Text: "a"}, {Text: "b"}}}
	require.NoError(t, multi.VotePoll(u, 0, t0))
	require.NoError(t, multi.VotePoll(u, 1, t0))
	assert.Len(t, multi.PollOptions[0].Votes, 1)
	assert.Len(t, multi.PollOptions[1].Votes, 1)
	require.NoError(t, multi.VotePoll(u, 0, t0))
	assert.Empty(t, multi.PollOptions[0].Votes)

	text := &Post{Type: PostText}
	assert.ErrorIs(t, text.VotePoll(u, 0, t0), ErrNotPoll)
}

func question(author bson.ObjectID) *Post {
	return &Post{ID: bson.NewObjectID(), AuthorID: author, Type: PostQuestion, QuestionDetails: &QuestionDetails{Title: "why?"}}
}

func answerTo(q *Post) *Post {
	id := q.ID
	return &Post{ID: bson.NewObjectID(), AuthorID: bson.NewObjectID(), Type: PostAnswer, ParentQuestionID: &id, Content: "because"}
}

func TestAcceptAnswerSwitchesAccepted(t *testing.T) {
	author := bson.NewObjectID()
	q := question(author)
	a, b := answerTo(q), answerTo(q)

	_, _, err := q.AcceptAnswer(bson.NewObjectID(), a)
	assert.ErrorIs(t, err, ErrNotQuestionAuthor)

	prev, changed, err := q.AcceptAnswer(author, a)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, prev)
	assert.True(t, a.IsAccepted)

	prev, changed, err = q.AcceptAnswer(author, a)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, prev)

	prev, changed, err = q.AcceptAnswer(author, b)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, prev)
	assert.Equal(t, a.ID, *prev)
	assert.Equal(t, b.ID, *q.QuestionDetails.AcceptedAnswerID)

	other := answerTo(question(author))
	_, _, err = q.AcceptAnswer(author, other)
	assert.ErrorIs(t, err, ErrNotAnswerOf)
}

func TestUnacceptAnswer(t *testing.T) {
	author := bson.NewObjectID()
	q := question(author)
	a := answerTo(q)

	_, err := q.UnacceptAnswer(author)
	assert.ErrorIs(t, err, ErrNoAcceptedAnswer)

	_, _, err = q.AcceptAnswer(author, a)
	require.NoError(t, err)
	id, err := q.UnacceptAnswer(author)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)
	assert.Nil(t, q.QuestionDetails.AcceptedAnswerID)

	text := &Post{Type: PostText, AuthorID: author}
	_, err = text.UnacceptAnswer(author)
	assert.ErrorIs(t, err, ErrNotQuestion)
}

func TestPostValidate(t *testing.T) {
	room := bson.NewObjectID()
	parent := bson.NewObjectID()
	tests := []struct {
		name string
		post Post
		ok   bool
	}{
		{"text ok", Post{Type: PostText, Scope: ScopeGlobal, Content: "hi"}, true},
		{"text empty", Post{Type: PostText, Scope: ScopeGlobal, Content: "  "}, false},
		{"room scope needs room", Post{Type: PostText, Scope: ScopeRoom, Content: "hi"}, false},
		{"personal with room", Post{Type: PostText, Scope: ScopePersonal, RoomID: &room, Content: "hi"}, false},
		{"room ok", Post{Type: PostText, Scope: ScopeRoom, RoomID: &room, Content: "hi"}, true},
		{"image without media", Post{Type: PostImage, Scope: ScopeGlobal}, false},
		{"image ok", Post{Type: PostImage, Scope: ScopeGlobal, Media: []Media{{URL: "/files/a.png"}}}, true},
		{"poll one option", Post{Type: PostPoll, Scope: ScopeGlobal, PollOptions: []PollOption{{Text: "a"}}}, false},
		{"poll blank option", Post{Type: PostPoll, Scope: ScopeGlobal, PollOptions: []PollOption{{Text: "a"}, {Text: " "}}}, false},
		{"poll ok", Post{Type: PostPoll, Scope: ScopeGlobal, PollOptions: []PollOption{{Text: "a"}, {Text: "b"}}}, true},
		{"question no title", Post{Type: PostQuestion, Scope: ScopeGlobal, QuestionDetails: &QuestionDetails{}}, false},
		{"question ok", Post{Type: PostQuestion, Scope: ScopeGlobal, QuestionDetails: &QuestionDetails{Title: "t"}}, true},
		{"answer no parent", Post{Type: PostAnswer, Scope: ScopeGlobal, Content: "a"}, false},
		{"answer ok", Post{Type: PostAnswer, Scope: ScopeGlobal, Content: "a", ParentQuestionID: &parent}, true},
		{"bad type", Post{Type: "story", Scope: ScopeGlobal, Content: "a"}, false},
		{"bad scope", Post{Type: PostText, Scope: "friends", Content: "a"}, false},
	}
	for _, tc := range tests {
		err := tc.post.Validate()
		if tc.ok {
			assert.NoError(t, err, tc.name)
		} else {
			assert.Error(t, err, tc.name)
		}
	}
}
