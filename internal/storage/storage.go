// Package storage saves uploaded media on local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// FileStore persists uploads and returns the public URL of the stored object.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Key builds files/<userId>/<entityId>/<uuid><ext>. The extension is taken from the
// client filename, lower-cased.
func Key(userID, entityID bson.ObjectID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join("files", userID.Hex(), entityID.Hex(), uuid.NewString()+ext)
}

// MediaType maps a MIME type onto the media kind stored on posts.
func MediaType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	}
	return "file"
}
