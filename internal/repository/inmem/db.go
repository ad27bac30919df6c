// Package inmem keeps every collection in process memory. It backs DATA_STORE=memory and
// the service and HTTP tests, and honours the same contracts as the Mongo repositories:
// sentinel errors, version-checked updates and newest-first keyset pagination.
package inmem

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/cursor"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

type table[T any] struct {
	mutex sync.RWMutex
	rows  map[bson.ObjectID]*T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: map[bson.ObjectID]*T{}}
}

// DB groups the tables so repositories built from the same DB see each other's writes.
type DB struct {
	users         *table[models.User]
	rooms         *table[models.Room]
	posts         *table[models.Post]
	comments      *table[models.Comment]
	notifications *table[models.Notification]
	refresh       *refreshTable
}

func NewDB() *DB {
	return &DB{
		users:         newTable[models.User](),
		rooms:         newTable[models.Room](),
		posts:         newTable[models.Post](),
		comments:      newTable[models.Comment](),
		notifications: newTable[models.Notification](),
		refresh:       &refreshTable{rows: map[string]refreshRow{}},
	}
}

// clone deep-copies through BSON so callers never alias stored slices, and so stored
// times get the millisecond precision MongoDB would give them.
func clone[T any](v *T) *T {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func values[T any](t *table[T], keep func(*T) bool) []T {
	out := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			out = append(out, *clone(row))
		}
	}
	return out
}

func newer(at time.Time, id bson.ObjectID, than time.Time, thanID bson.ObjectID) bool {
	if !at.Equal(than) {
		return at.After(than)
	}
	return bytes.Compare(id[:], thanID[:]) > 0
}

// page sorts newest first, applies the keyset position and cuts limit+1 rows.
func page[T any](items []T, key func(T) (time.Time, bson.ObjectID), after *models.After, limit int) ([]T, string) {
	sort.Slice(items, func(i, j int) bool {
		ti, ii := key(items[i])
		tj, ij := key(items[j])
		return newer(ti, ii, tj, ij)
	})
	if after != nil {
		start := len(items)
		for i, it := range items {
			t, id := key(it)
			if newer(after.CreatedAt, after.ID, t, id) {
				start = i
				break
			}
		}
		items = items[start:]
	}
	if limit > 0 && len(items) > limit+1 {
		items = items[:limit+1]
	}
	return cursor.Next(items, limit, key)
}

func findMany[T any](t *table[T], ids []bson.ObjectID) []T {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if row, ok := t.rows[id]; ok {
			out = append(out, *clone(row))
		}
	}
	return out
}
