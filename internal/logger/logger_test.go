package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

func TestStdLoggerWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(log.New(&buf, "", 0))

	l.Error("comments: adjust post counter", "post", "abc", "err", errors.New("mongo: no reachable servers"))

	out := strings.TrimSuffix(buf.String(), "\n")
	require.NotContains(t, out, "\n")
	assert.Equal(t, `[ERROR] comments: adjust post counter post=abc err="mongo: no reachable servers"`, out)
}

func TestStdLoggerOddArgs(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(log.New(&buf, "", 0))

	l.Warn("lonely", "kind", "room", 42)

	assert.Equal(t, "[WARN] lonely kind=room !BADKEY=42\n", buf.String())
}

func TestRollbarReportFromPairs(t *testing.T) {
	cause := errors.New("boom")
	usr := &models.User{ID: bson.NewObjectID(), Username: "ann", Email: "ann@example.com"}

	rep := newReport("rooms: save", []any{"room", "r1", "user", usr, "err", cause, "attempt", 2})

	assert.Equal(t, cause, rep.err)
	assert.Same(t, usr, rep.user)
	assert.Equal(t, map[string]interface{}{"room": "r1", "attempt": 2, "message": "rooms: save"}, rep.extras)

	args := rep.args()
	require.Len(t, args, 3)
	assert.Equal(t, "rooms: save", args[0])
	assert.Equal(t, cause, args[1])
	assert.IsType(t, map[string]interface{}{}, args[2])
}

func TestRollbarReportWithoutError(t *testing.T) {
	rep := newReport("search: reindex complete", nil)

	assert.Nil(t, rep.err)
	assert.Empty(t, rep.extras)
	assert.Equal(t, []any{"search: reindex complete"}, rep.args())
}

func TestRollbarReportKeepsSecondErrorAsText(t *testing.T) {
	rep := newReport("posts: cleanup", []any{"err", errors.New("first"), "cleanup", errors.New("second")})

	assert.EqualError(t, rep.err, "first")
	assert.Equal(t, "second", rep.extras["cleanup"])
}
