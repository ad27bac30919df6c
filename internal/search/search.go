package search

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

type Kind string

const (
	KindRoom Kind = "room"
	KindPost Kind = "post"
	KindUser Kind = "user"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRoom, KindPost, KindUser:
		return k, true
	case "":
		return "", true
	}
	return "", false
}

// RoomRecord is what gets indexed for a room.
type RoomRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	RoomType    string   `json:"roomType"`
	IsVisible   bool     `json:"isVisible"`
}

// PostRecord is what gets indexed for a post.
type PostRecord struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Title    string   `json:"title"`
	Hashtags []string `json:"hashtags"`
	Type     string   `json:"type"`
	Scope    string   `json:"scope"`
	RoomID   string   `json:"roomId,omitempty"`
}

func RoomToRecord(r *models.Room) RoomRecord {
	return RoomRecord{
		ID:          r.ID.Hex(),
		Name:        r.Name,
		Description: r.Description,
		Tags:        r.Tags,
		RoomType:    string(r.RoomType),
		IsVisible:   r.IsVisible,
	}
}

func PostToRecord(p *models.Post) PostRecord {
	rec := PostRecord{
		ID:       p.ID.Hex(),
		Content:  p.Content,
		Hashtags: p.Hashtags,
		Type:     string(p.Type),
		Scope:    string(p.Scope),
	}
	if p.QuestionDetails != nil {
		rec.Title = p.QuestionDetails.Title
	}
	if p.RoomID != nil {
		rec.RoomID = p.RoomID.Hex()
	}
	return rec
}

// ErrUnavailable is reported while the engine fails its health check.
var ErrUnavailable = errors.New("search engine unavailable")

// Backend is a full-text engine returning matching ids in relevance order.
type Backend interface {
	Healthy() bool
	SearchIDs(kind Kind, q string, limit int) ([]string, error)
	IndexRooms(rooms []RoomRecord) error
	IndexPosts(posts []PostRecord) error
	DeleteRoom(id string) error
	DeletePost(id string) error
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Query  string               `json:"query"`
	Source string               `json:"source"`
	Rooms  []models.Room        `json:"rooms"`
	Posts  []models.Post        `json:"posts"`
	Users  []models.UserSummary `json:"users"`
}
