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
	"github.com/muthuabi/coros-vite-sub000/internal/storage"
	"github.com/muthuabi/coros-vite-sub000/internal/utils"
)

type PostService struct {
	posts    PostStore
	rooms    RoomStore
	users    UserStore
	comments CommentStore
	files    FileStore
	index    Indexer
	noti     *Notifier
	log      logger.Logger
	now      func() time.Time
}

type QuestionInput struct {
	Title string
	Body  string
	Tags  []string
}

type PostInput struct {
	Scope        models.PostScope
	RoomID       *bson.ObjectID
	Type         models.PostType
	Content      string
	Question     *QuestionInput
	PollOptions  []string
	PollMultiple bool
	PollEndsAt   *time.Time
}

// PostPatch holds the editable post fields; nil means unchanged.
type PostPatch struct {
	Content    *string
	Question   *QuestionInput
	PollEndsAt *time.Time
}

// PostView is a post plus the viewer's own interaction state.
type PostView struct {
	models.Post
	MyVote  models.VoteDir `json:"myVote"`
	Liked   bool           `json:"liked"`
	Pinned  bool           `json:"pinned"`
	CanEdit bool           `json:"canEdit"`
}

type VoteResult struct {
	Vote      models.VoteDir `json:"vote"`
	Score     int64          `json:"score"`
	Upvotes   int            `json:"upvotes"`
	Downvotes int            `json:"downvotes"`
}

type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

type ViewerEntry struct {
	User     models.UserSummary `json:"user"`
	ViewedAt time.Time          `json:"viewedAt"`
}

// FeedQuery filters the global/personal feed.
type FeedQuery struct {
	Scope    models.PostScope
	Type     models.PostType
	Hashtag  string
	AuthorID *bson.ObjectID
	After    *models.After
	Limit    int
}

func postView(p *models.Post, viewer bson.ObjectID, room *models.Room) *PostView {
	v := &PostView{Post: *p, MyVote: p.UserVote(viewer), Liked: p.HasLiked(viewer), CanEdit: p.AuthorID == viewer}
	if room != nil {
		v.Pinned = room.IsPinned(p.ID)
	}
	return v
}

// filterReadable drops deleted posts and posts in rooms the viewer cannot read.
func filterReadable(ctx context.Context, rooms RoomStore, viewer bson.ObjectID, posts []models.Post) ([]models.Post, error) {
	var ids []bson.ObjectID
	for _, p := range posts {
		if p.RoomID != nil {
			ids = append(ids, *p.RoomID)
		}
	}
	readable := map[bson.ObjectID]bool{}
	if len(ids) > 0 {
		found, err := rooms.FindMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range found {
			readable[found[i].ID] = found[i].CanView(viewer)
		}
	}
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.IsDeleted || (p.RoomID != nil && !readable[*p.RoomID]) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// readable loads a live post and, for room posts, its room, checking that viewer may read it.
func (s *PostService) readable(ctx context.Context, viewer *models.User, id bson.ObjectID) (*models.Post, *models.Room, error) {
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
	if !r.CanView(viewerID(viewer)) && !viewer.IsSiteAdmin() {
		return nil, nil, ErrRoomPrivate
	}
	return p, r, nil
}

// interactable is readable plus room membership for room posts.
func (s *PostService) interactable(ctx context.Context, uid bson.ObjectID, id bson.ObjectID) (*models.Post, *models.Room, error) {
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
	if !r.HasMember(uid) {
		return nil, nil, ErrNotRoomMember
	}
	return p, r, nil
}

// mutate runs one retried load-mutate-save cycle on a live post.
func (s *PostService) mutate(ctx context.Context, id bson.ObjectID, fn func(p *models.Post) error) (*models.Post, error) {
	var out *models.Post
	err := withRetry(func() error {
		p, err := loadPost(ctx, s.posts, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		p.BeforeSave(s.now())
		if err := s.posts.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *PostService) adjustRoom(ctx context.Context, roomID *bson.ObjectID, posts, likes, comments int64) {
	if roomID == nil {
		return
	}
	if err := s.rooms.AdjustCounters(ctx, *roomID, posts, likes, comments); err != nil {
		s.log.Error("posts: adjust room counters", "room", roomID.Hex(), "err", err)
	}
}

func (s *PostService) upload(ctx context.Context, uid, postID bson.ObjectID, files []Upload) ([]models.Media, error) {
	if len(files) > models.MaxMediaPerPost {
		return nil, apperr.BadRequest("VALIDATION_ERROR", "too many attachments")
	}
	media := make([]models.Media, 0, len(files))
	for _, f := range files {
		key := storage.Key(uid, postID, f.Name)
		url, err := s.files.Save(ctx, key, f.Body, f.Size, f.ContentType)
		if err != nil {
			for _, m := range media {
				_ = s.files.Delete(ctx, m.Key)
			}
			return nil, err
		}
		media = append(media, models.Media{URL: url, Key: key, Type: storage.MediaType(f.ContentType), Name: f.Name, Size: f.Size})
	}
	return media, nil
}

func hashtagsOf(p *models.Post) []string {
	text := p.Content
	if p.QuestionDetails != nil {
		text += " " + p.QuestionDetails.Title + " " + p.QuestionDetails.Body
	}
	return utils.ExtractHashtags(text, models.MaxHashtagsInPost)
}

// Create publishes a new top-level post. Answers go through Answer.
func (s *PostService) Create(ctx context.Context, author *models.User, in PostInput, files []Upload) (*PostView, error) {
	if in.Type == models.PostAnswer {
		return nil, apperr.BadRequest("VALIDATION_ERROR", "answers are posted on the question")
	}
	if in.Scope == "" {
		in.Scope = models.ScopeGlobal
		if in.RoomID != nil {
			in.Scope = models.ScopeRoom
		}
	}
	var room *models.Room
	if in.Scope == models.ScopeRoom && in.RoomID != nil {
		r, err := loadRoom(ctx, s.rooms, *in.RoomID)
		if err != nil {
			return nil, err
		}
		if !r.HasMember(author.ID) {
			return nil, ErrNotRoomMember
		}
		room = r
	}

	now := s.now()
	p := &models.Post{
		ID:           bson.NewObjectID(),
		AuthorID:     author.ID,
		AuthorName:   displayName(author),
		RoomID:       in.RoomID,
		Scope:        in.Scope,
		Type:         in.Type,
		Content:      strings.TrimSpace(in.Content),
		Likes:        []bson.ObjectID{},
		PollMultiple: in.PollMultiple,
		PollEndsAt:   in.PollEndsAt,
		CreatedAt:    now,
	}
	p.Votes.Upvotes, p.Votes.Downvotes = []bson.ObjectID{}, []bson.ObjectID{}
	if in.Type == models.PostQuestion && in.Question != nil {
		p.QuestionDetails = &models.QuestionDetails{
			Title: strings.TrimSpace(in.Question.Title),
			Body:  strings.TrimSpace(in.Question.Body),
			Tags:  models.NormalizeTags(in.Question.Tags),
		}
	}
	if in.Type == models.PostPoll {
		for _, o := range in.PollOptions {
			p.PollOptions = append(p.PollOptions, models.PollOption{Text: strings.TrimSpace(o), Votes: []bson.ObjectID{}})
		}
	}
	// placeholders until the uploads succeed
	p.Media = make([]models.Media, len(files))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	media, err := s.upload(ctx, author.ID, p.ID, files)
	if err != nil {
		return nil, err
	}
	p.Media = media
	p.Hashtags = hashtagsOf(p)
	p.BeforeSave(now)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, err
	}
	s.adjustRoom(ctx, p.RoomID, 1, 0, 0)
	s.index.IndexPost(p)
	return postView(p, author.ID, room), nil
}

// Feed lists global and personal top-level posts, newest first.
func (s *PostService) Feed(ctx context.Context, viewer bson.ObjectID, q FeedQuery) (Page[models.Post], error) {
	scopes := []models.PostScope{models.ScopeGlobal, models.ScopePersonal}
	if q.Scope != "" {
		if q.Scope == models.ScopeRoom || !q.Scope.Valid() {
			return Page[models.Post]{}, apperr.BadRequest("VALIDATION_ERROR", "scope must be global or personal; use the room feed for room posts")
		}
		scopes = []models.PostScope{q.Scope}
	}
	items, next, err := s.posts.List(ctx, models.PostQuery{
		AuthorID: q.AuthorID,
		Scopes:   scopes,
		Type:     q.Type,
		Hashtag:  q.Hashtag,
		TopLevel: true,
		After:    q.After,
		Limit:    q.Limit,
	})
	if err != nil {
		return Page[models.Post]{}, err
	}
	return newPage(items, next), nil
}

// Get returns the post and records a view for signed-in viewers.
func (s *PostService) Get(ctx context.Context, viewer *models.User, id bson.ObjectID) (*PostView, error) {
	p, room, err := s.readable(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	uid := viewerID(viewer)
	if !uid.IsZero() && uid != p.AuthorID {
		recorded, err := s.mutate(ctx, id, func(p *models.Post) error {
			if !p.RecordView(uid, s.now()) {
				return errSkip
			}
			return nil
		})
		switch {
		case err == nil:
			p = recorded
		case !errors.Is(err, errSkip):
			s.log.Warn("posts: record view", "post", id.Hex(), "err", err)
		}
	}
	v := postView(p, uid, room)
	v.CanEdit = v.CanEdit || viewer.IsSiteAdmin()
	return v, nil
}

var errSkip = errors.New("nothing to save")

func (s *PostService) Update(ctx context.Context, actor bson.ObjectID, id bson.ObjectID, in PostPatch) (*models.Post, error) {
	p, err := s.mutate(ctx, id, func(p *models.Post) error {
		if p.AuthorID != actor {
			return ErrNotAuthor
		}
		if in.Content != nil {
			p.Content = strings.TrimSpace(*in.Content)
		}
		if in.Question != nil {
			if p.Type != models.PostQuestion || p.QuestionDetails == nil {
				return models.ErrNotQuestion
			}
			if t := strings.TrimSpace(in.Question.Title); t != "" {
				p.QuestionDetails.Title = t
			}
			p.QuestionDetails.Body = strings.TrimSpace(in.Question.Body)
			if in.Question.Tags != nil {
				p.QuestionDetails.Tags = models.NormalizeTags(in.Question.Tags)
			}
		}
		if in.PollEndsAt != nil {
			if p.Type != models.PostPoll {
				return models.ErrNotPoll
			}
			p.PollEndsAt = in.PollEndsAt
		}
		p.Hashtags = hashtagsOf(p)
		p.IsEdited = true
		return p.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.index.IndexPost(p)
	return p, nil
}

// Delete soft-deletes a post. The author, a room admin of its room or a site admin may do it.
// Room counters drop by the post's own counts and the post is unpinned.
func (s *PostService) Delete(ctx context.Context, actor *models.User, id bson.ObjectID) error {
	var room *models.Room
	p, err := loadPost(ctx, s.posts, id)
	if err != nil {
		return err
	}
	if p.RoomID != nil {
		if r, err := s.rooms.FindByID(ctx, *p.RoomID); err == nil {
			room = r
		}
	}
	allowed := p.AuthorID == actor.ID || actor.IsSiteAdmin() || (room != nil && room.IsAdmin(actor.ID))
	if !allowed {
		return ErrNotAuthor
	}

	p, err = s.mutate(ctx, id, func(p *models.Post) error {
		p.SoftDelete(s.now())
		return nil
	})
	if err != nil {
		return err
	}
	s.adjustRoom(ctx, p.RoomID, -1, -p.LikesCount, -p.CommentsCount)
	if room != nil && room.IsPinned(p.ID) {
		err := withRetry(func() error {
			r, err := s.rooms.FindByID(ctx, room.ID)
			if err != nil {
				return err
			}
			if !r.UnpinPost(p.ID) {
				return nil
			}
			r.BeforeSave(s.now())
			return s.rooms.Update(ctx, r)
		})
		if err != nil {
			s.log.Error("posts: unpin deleted post", "post", p.ID.Hex(), "err", err)
		}
	}
	if err := s.comments.SoftDeleteByPost(ctx, p.ID); err != nil {
		s.log.Error("posts: delete comments", "post", p.ID.Hex(), "err", err)
	}
	if p.Type == models.PostAnswer && p.IsAccepted && p.ParentQuestionID != nil {
		_, err := s.mutate(ctx, *p.ParentQuestionID, func(q *models.Post) error {
			if q.QuestionDetails == nil || q.QuestionDetails.AcceptedAnswerID == nil || *q.QuestionDetails.AcceptedAnswerID != p.ID {
				return errSkip
			}
			q.QuestionDetails.AcceptedAnswerID = nil
			return nil
		})
		if err != nil && !errors.Is(err, errSkip) && !errors.Is(err, models.ErrPostNotFound) {
			s.log.Error("posts: clear accepted answer", "post", p.ID.Hex(), "err", err)
		}
	}
	s.index.IndexPost(p)
	return nil
}

func (s *PostService) Vote(ctx context.Context, uid, id bson.ObjectID, dir models.VoteDir) (*VoteResult, error) {
	if !dir.Valid() {
		return nil, apperr.BadRequest("VALIDATION_ERROR", "vote must be up, down or none")
	}
	if _, _, err := s.interactable(ctx, uid, id); err != nil {
		return nil, err
	}
	var got models.VoteDir
	p, err := s.mutate(ctx, id, func(p *models.Post) error {
		got = p.Vote(uid, dir)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &VoteResult{Vote: got, Score: p.Votes.Score, Upvotes: len(p.Votes.Upvotes), Downvotes: len(p.Votes.Downvotes)}, nil
}

func (s *PostService) Like(ctx context.Context, uid, id bson.ObjectID) (*LikeResult, error) {
	if _, _, err := s.interactable(ctx, uid, id); err != nil {
		return nil, err
	}
	var liked bool
	p, err := s.mutate(ctx, id, func(p *models.Post) error {
		liked = p.ToggleLike(uid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	delta := int64(-1)
	if liked {
		delta = 1
	}
	s.adjustRoom(ctx, p.RoomID, 0, delta, 0)
	return &LikeResult{Liked: liked, LikesCount: p.LikesCount}, nil
}

func (s *PostService) PollVote(ctx context.Context, uid, id bson.ObjectID, option int) (*models.Post, error) {
	if _, _, err := s.interactable(ctx, uid, id); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(p *models.Post) error { return p.VotePoll(uid, option, s.now()) })
}

func (s *PostService) question(ctx context.Context, viewer *models.User, qid bson.ObjectID) (*models.Post, *models.Room, error) {
	q, room, err := s.readable(ctx, viewer, qid)
	if err != nil {
		return nil, nil, err
	}
	if q.Type != models.PostQuestion || q.QuestionDetails == nil {
		return nil, nil, models.ErrNotQuestion
	}
	return q, room, nil
}

// Answers lists the answers of a question; the accepted one leads the first page.
func (s *PostService) Answers(ctx context.Context, viewer *models.User, qid bson.ObjectID, after *models.After, limit int) (Page[models.Post], error) {
	q, _, err := s.question(ctx, viewer, qid)
	if err != nil {
		return Page[models.Post]{}, err
	}
	items, next, err := s.posts.List(ctx, models.PostQuery{ParentQuestionID: &q.ID, After: after, Limit: limit})
	if err != nil {
		return Page[models.Post]{}, err
	}
	if after == nil {
		for i := range items {
			if items[i].IsAccepted && i > 0 {
				accepted := items[i]
				copy(items[1:i+1], items[:i])
				items[0] = accepted
				break
			}
		}
	}
	return newPage(items, next), nil
}

// Answer posts an answer under a question, inheriting its scope and room.
func (s *PostService) Answer(ctx context.Context, author *models.User, qid bson.ObjectID, content string, files []Upload) (*models.Post, error) {
	q, room, err := s.question(ctx, author, qid)
	if err != nil {
		return nil, err
	}
	if room != nil && !room.HasMember(author.ID) {
		return nil, ErrNotRoomMember
	}
	now := s.now()
	a := &models.Post{
		ID:               bson.NewObjectID(),
		AuthorID:         author.ID,
		AuthorName:       displayName(author),
		RoomID:           q.RoomID,
		Scope:            q.Scope,
		Type:             models.PostAnswer,
		Content:          strings.TrimSpace(content),
		ParentQuestionID: &q.ID,
		CreatedAt:        now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	media, err := s.upload(ctx, author.ID, a.ID, files)
	if err != nil {
		return nil, err
	}
	a.Media = media
	a.Hashtags = hashtagsOf(a)
	a.BeforeSave(now)
	if err := s.posts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.adjustRoom(ctx, a.RoomID, 1, 0, 0)
	s.index.IndexPost(a)
	if q.AuthorID != author.ID {
		s.noti.NotifyOne(ctx, q.AuthorID, models.NotiAnswerPosted, models.Ref{Entity: "post", ID: q.ID},
			models.NotiParams{PostTitle: q.QuestionDetails.Title, ActorName: displayName(author)})
	}
	return a, nil
}

func (s *PostService) setAccepted(ctx context.Context, id bson.ObjectID, accepted bool) error {
	_, err := s.mutate(ctx, id, func(p *models.Post) error {
		if p.IsAccepted == accepted {
			return errSkip
		}
		p.IsAccepted = accepted
		return nil
	})
	if errors.Is(err, errSkip) {
		return nil
	}
	return err
}

// Accept marks answer aid as the accepted answer of question qid. The previously accepted
// answer, if any, loses its flag. Accepting the current answer again changes nothing.
func (s *PostService) Accept(ctx context.Context, actor, qid, aid bson.ObjectID) (*models.Post, error) {
	var prev *bson.ObjectID
	var changed bool
	var title string
	_, err := s.mutate(ctx, qid, func(q *models.Post) error {
		a, err := loadPost(ctx, s.posts, aid)
		if err != nil {
			return err
		}
		prev, changed, err = q.AcceptAnswer(actor, a)
		if err != nil {
			return err
		}
		if !changed {
			return errSkip
		}
		title = q.QuestionDetails.Title
		return nil
	})
	if err != nil && !errors.Is(err, errSkip) {
		return nil, err
	}
	if err := s.setAccepted(ctx, aid, true); err != nil {
		return nil, err
	}
	if prev != nil {
		if err := s.setAccepted(ctx, *prev, false); err != nil && !errors.Is(err, models.ErrPostNotFound) {
			s.log.Error("posts: unaccept previous answer", "post", prev.Hex(), "err", err)
		}
	}
	a, err := loadPost(ctx, s.posts, aid)
	if err != nil {
		return nil, err
	}
	if changed && a.AuthorID != actor {
		s.noti.NotifyOne(ctx, a.AuthorID, models.NotiAnswerAccepted, models.Ref{Entity: "post", ID: qid},
			models.NotiParams{PostTitle: title})
	}
	return a, nil
}

// Unaccept clears the accepted answer of question qid.
func (s *PostService) Unaccept(ctx context.Context, actor, qid bson.ObjectID) error {
	var cleared bson.ObjectID
	_, err := s.mutate(ctx, qid, func(q *models.Post) error {
		id, err := q.UnacceptAnswer(actor)
		cleared = id
		return err
	})
	if err != nil {
		return err
	}
	if err := s.setAccepted(ctx, cleared, false); err != nil && !errors.Is(err, models.ErrPostNotFound) {
		return err
	}
	return nil
}

// Viewers lists who viewed the post, latest view per user, newest first. Author or site admin only.
func (s *PostService) Viewers(ctx context.Context, actor *models.User, id bson.ObjectID) ([]ViewerEntry, error) {
	p, err := loadPost(ctx, s.posts, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actor.ID && !actor.IsSiteAdmin() {
		return nil, ErrNotAuthor
	}
	latest := map[bson.ObjectID]time.Time{}
	var order []bson.ObjectID
	for i := len(p.Views) - 1; i >= 0; i-- {
		v := p.Views[i]
		if _, seen := latest[v.UserID]; !seen {
			latest[v.UserID] = v.ViewedAt
			order = append(order, v.UserID)
		}
	}
	users, err := summaries(ctx, s.users, order)
	if err != nil {
		return nil, err
	}
	out := make([]ViewerEntry, 0, len(users))
	for _, u := range users {
		out = append(out, ViewerEntry{User: u, ViewedAt: latest[u.ID]})
	}
	return out, nil
}

// TrendingTags counts hashtags of live posts over the last days.
func (s *PostService) TrendingTags(ctx context.Context, days, limit int) ([]models.HashtagCount, error) {
	since := s.now().AddDate(0, 0, -days)
	return s.posts.TrendingHashtags(ctx, since, limit)
}
