package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocumentListsEveryArea(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	ops := 0
	for _, methods := range doc.Paths {
		ops += len(methods)
	}
	assert.Equal(t, 62, ops)

	for path, method := range map[string]string{
		"/healthz":                      "get",
		"/api/auth/register":            "post",
		"/api/rooms/{id}":               "put",
		"/api/rooms/{id}/pins/{postId}": "post",
		"/api/posts/{id}/vote":          "post",
		"/api/posts/{id}/comments":      "get",
		"/api/comments/{id}/like":       "post",
		"/api/notifications/read-all":   "patch",
		"/api/search":                   "get",
	} {
		assert.Contains(t, doc.Paths[path], method, path)
	}
}
