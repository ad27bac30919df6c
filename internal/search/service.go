package search

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

const (
	SourceMeili = "meilisearch"
	SourceStore = "mongo"
)

type RoomStore interface {
	FindMany(ctx context.Context, ids []bson.ObjectID) ([]models.Room, error)
	Search(ctx context.Context, q string, limit int) ([]models.Room, error)
	List(ctx context.Context, q models.RoomQuery) ([]models.Room, string, error)
}

type PostStore interface {
	FindMany(ctx context.Context, ids []bson.ObjectID) ([]models.Post, error)
	Search(ctx context.Context, q string, limit int) ([]models.Post, error)
	List(ctx context.Context, q models.PostQuery) ([]models.Post, string, error)
}

type UserStore interface {
	Search(ctx context.Context, q string, limit int) ([]models.User, error)
}

// Service tries the full-text backend first and falls back to the document store.
type Service struct {
	backend Backend
	rooms   RoomStore
	posts   PostStore
	users   UserStore
	log     logger.Logger
	pending sync.WaitGroup
}

// NewService creates a search service. backend may be nil when no search engine is configured.
func NewService(backend Backend, rooms RoomStore, posts PostStore, users UserStore, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop{}
	}
	return &Service{backend: backend, rooms: rooms, posts: posts, users: users, log: log}
}

func (s *Service) engine() bool {
	return s.backend != nil && s.backend.Healthy()
}

// Search runs q against the requested kind (all kinds when empty) and drops whatever the
// viewer is not allowed to see.
func (s *Service) Search(ctx context.Context, viewer bson.ObjectID, q string, kind Kind, limit int) (*Response, error) {
	if q == "" {
		return nil, apperr.BadRequest("VALIDATION_ERROR", "q is required")
	}
	resp := &Response{Query: q, Source: SourceStore, Rooms: []models.Room{}, Posts: []models.Post{}, Users: []models.UserSummary{}}

	if kind == "" || kind == KindRoom {
		rooms, src, err := s.searchRooms(ctx, q, limit)
		if err != nil {
			return nil, err
		}
		resp.Source = src
		for i := range rooms {
			if r := &rooms[i]; !r.IsDeleted && (r.IsVisible || r.HasMember(viewer)) {
				resp.Rooms = append(resp.Rooms, *r)
			}
		}
	}

	if kind == "" || kind == KindPost {
		posts, src, err := s.searchPosts(ctx, q, limit)
		if err != nil {
			return nil, err
		}
		resp.Source = src
		visible, err := s.visiblePosts(ctx, viewer, posts)
		if err != nil {
			return nil, err
		}
		resp.Posts = visible
	}

	if kind == "" || kind == KindUser {
		users, err := s.users.Search(ctx, q, limit)
		if err != nil {
			return nil, err
		}
		for i := range users {
			resp.Users = append(resp.Users, users[i].Summary())
		}
	}
	return resp, nil
}

func (s *Service) idsFromEngine(kind Kind, q string, limit int) ([]bson.ObjectID, bool) {
	if !s.engine() {
		return nil, false
	}
	raw, err := s.backend.SearchIDs(kind, q, limit)
	if err != nil {
		s.log.Warn("search: engine failed, falling back to store", "kind", kind, "err", err)
		return nil, false
	}
	ids := make([]bson.ObjectID, 0, len(raw))
	for _, h := range raw {
		if id, err := bson.ObjectIDFromHex(h); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, true
}

func (s *Service) searchRooms(ctx context.Context, q string, limit int) ([]models.Room, string, error) {
	if ids, ok := s.idsFromEngine(KindRoom, q, limit); ok {
		rooms, err := s.rooms.FindMany(ctx, ids)
		if err != nil {
			return nil, "", err
		}
		return inOrder(ids, rooms, func(r models.Room) bson.ObjectID { return r.ID }), SourceMeili, nil
	}
	rooms, err := s.rooms.Search(ctx, q, limit)
	return rooms, SourceStore, err
}

func (s *Service) searchPosts(ctx context.Context, q string, limit int) ([]models.Post, string, error) {
	if ids, ok := s.idsFromEngine(KindPost, q, limit); ok {
		posts, err := s.posts.FindMany(ctx, ids)
		if err != nil {
			return nil, "", err
		}
		return inOrder(ids, posts, func(p models.Post) bson.ObjectID { return p.ID }), SourceMeili, nil
	}
	posts, err := s.posts.Search(ctx, q, limit)
	return posts, SourceStore, err
}

// visiblePosts keeps live posts that are either outside rooms or inside rooms the viewer can read.
func (s *Service) visiblePosts(ctx context.Context, viewer bson.ObjectID, posts []models.Post) ([]models.Post, error) {
	var roomIDs []bson.ObjectID
	for _, p := range posts {
		if p.RoomID != nil {
			roomIDs = append(roomIDs, *p.RoomID)
		}
	}
	readable := map[bson.ObjectID]bool{}
	if len(roomIDs) > 0 {
		rooms, err := s.rooms.FindMany(ctx, roomIDs)
		if err != nil {
			return nil, err
		}
		for i := range rooms {
			readable[rooms[i].ID] = rooms[i].CanView(viewer)
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

// inOrder re-sorts store results into the relevance order of ids.
func inOrder[T any](ids []bson.ObjectID, items []T, key func(T) bson.ObjectID) []T {
	byID := make(map[bson.ObjectID]T, len(items))
	for _, it := range items {
		byID[key(it)] = it
	}
	out := make([]T, 0, len(items))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

func (s *Service) async(what string, id bson.ObjectID, fn func() error) {
	if !s.engine() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := fn(); err != nil {
			s.log.Warn("search: "+what+" failed", "id", id.Hex(), "err", err)
		}
	}()
}

// IndexRoom pushes the room to the index, or removes it once deleted (fire-and-forget).
func (s *Service) IndexRoom(r *models.Room) {
	if r == nil {
		return
	}
	if r.IsDeleted {
		s.DeleteRoom(r.ID)
		return
	}
	rec := RoomToRecord(r)
	s.async("index room", r.ID, func() error { return s.backend.IndexRooms([]RoomRecord{rec}) })
}

// IndexPost pushes the post to the index, or removes it once deleted (fire-and-forget).
func (s *Service) IndexPost(p *models.Post) {
	if p == nil {
		return
	}
	if p.IsDeleted {
		s.DeletePost(p.ID)
		return
	}
	rec := PostToRecord(p)
	s.async("index post", p.ID, func() error { return s.backend.IndexPosts([]PostRecord{rec}) })
}

func (s *Service) DeleteRoom(id bson.ObjectID) {
	s.async("delete room", id, func() error { return s.backend.DeleteRoom(id.Hex()) })
}

func (s *Service) DeletePost(id bson.ObjectID) {
	s.async("delete post", id, func() error { return s.backend.DeletePost(id.Hex()) })
}

// Wait blocks until in-flight index writes finish.
func (s *Service) Wait() {
	s.pending.Wait()
}

const reindexPage = 200

// Reindex pages through every live room and post and pushes them to the engine.
func (s *Service) Reindex(ctx context.Context) error {
	if !s.engine() {
		return nil
	}
	var after *models.After
	for {
		rooms, _, err := s.rooms.List(ctx, models.RoomQuery{IncludeHidden: true, After: after, Limit: reindexPage})
		if err != nil {
			return err
		}
		recs := make([]RoomRecord, 0, len(rooms))
		for i := range rooms {
			recs = append(recs, RoomToRecord(&rooms[i]))
		}
		if err := s.backend.IndexRooms(recs); err != nil {
			return err
		}
		if len(rooms) < reindexPage {
			break
		}
		last := rooms[len(rooms)-1]
		after = &models.After{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	after = nil
	for {
		posts, _, err := s.posts.List(ctx, models.PostQuery{After: after, Limit: reindexPage})
		if err != nil {
			return err
		}
		recs := make([]PostRecord, 0, len(posts))
		for i := range posts {
			recs = append(recs, PostToRecord(&posts[i]))
		}
		if err := s.backend.IndexPosts(recs); err != nil {
			return err
		}
		if len(posts) < reindexPage {
			break
		}
		last := posts[len(posts)-1]
		after = &models.After{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	s.log.Info("search: reindex complete")
	return nil
}
