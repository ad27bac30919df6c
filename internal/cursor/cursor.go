package cursor

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var ErrInvalidCursor = apperr.BadRequest("INVALID_CURSOR", "invalid cursor")

// Cursor (createdAt + _id)
type Cursor struct {
	CreatedAt int64  `json:"createdAt"`
	ID        string `json:"id"`
}

func EncodeCursor(t time.Time, id bson.ObjectID) string {
	b, _ := json.Marshal(Cursor{
		CreatedAt: t.UnixMilli(),
		ID:        id.Hex(),
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor returns nil for an empty string so callers can pass query params through.
func DecodeCursor(s string) (*models.After, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var p Cursor
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrInvalidCursor
	}

	oid, err := bson.ObjectIDFromHex(p.ID)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &models.After{CreatedAt: time.UnixMilli(p.CreatedAt).UTC(), ID: oid}, nil
}

// Next builds the cursor for the page that follows items, or "" when there is none.
// items must hold one element more than limit when another page exists.
func Next[T any](items []T, limit int, key func(T) (time.Time, bson.ObjectID)) ([]T, string) {
	if limit <= 0 || len(items) <= limit {
		return items, ""
	}
	items = items[:limit]
	t, id := key(items[len(items)-1])
	return items, EncodeCursor(t, id)
}
