package cursor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestEncodeDecode(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	id := bson.NewObjectID()

	after, err := DecodeCursor(EncodeCursor(ts, id))
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.True(t, ts.Equal(after.CreatedAt))
	assert.Equal(t, id, after.ID)
}

func TestDecodeEmptyAndGarbage(t *testing.T) {
	after, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, after)

	for _, s := range []string{"%%%", "bm90LWpzb24", "eyJjcmVhdGVkQXQiOjEsImlkIjoieiJ9"} {
		_, err := DecodeCursor(s)
		assert.ErrorIs(t, err, ErrInvalidCursor, s)
	}
}

type item struct {
	at time.Time
	id bson.ObjectID
}

func TestNext(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	items := []item{{now, bson.NewObjectID()}, {now.Add(-time.Second), bson.NewObjectID()}, {now.Add(-2 * time.Second), bson.NewObjectID()}}
	key := func(i item) (time.Time, bson.ObjectID) { return i.at, i.id }

	page, next := Next(items, 2, key)
	assert.Len(t, page, 2)
	require.NotEmpty(t, next)
	after, err := DecodeCursor(next)
	require.NoError(t, err)
	assert.Equal(t, items[1].id, after.ID)

	page, next = Next(items, 3, key)
	assert.Len(t, page, 3)
	assert.Empty(t, next)
}
