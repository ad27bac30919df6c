package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestKey(t *testing.T) {
	u, e := bson.NewObjectID(), bson.NewObjectID()
	k := Key(u, e, "Holiday.JPG")
	assert.True(t, strings.HasPrefix(k, "files/"+u.Hex()+"/"+e.Hex()+"/"), k)
	assert.True(t, strings.HasSuffix(k, ".jpg"), k)
	assert.NotEqual(t, k, Key(u, e, "Holiday.JPG"))

	assert.False(t, strings.Contains(Key(u, e, "weird.a b"), " "))
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "image", MediaType("image/png"))
	assert.Equal(t, "video", MediaType("video/mp4"))
	assert.Equal(t, "file", MediaType("application/pdf"))
}

func TestLocalSaveAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()

	key := Key(bson.NewObjectID(), bson.NewObjectID(), "notes.txt")
	url, err := store.Save(ctx, key, strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/"+key, url)

	onDisk := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(key, "files/")))
	raw, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "files/../../etc/passwd", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}
