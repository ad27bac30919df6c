package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Local writes under Root and serves the files from the /files static route.
type Local struct {
	Root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create files dir")
	}
	return &Local{Root: root}, nil
}

// path strips the leading "files/" segment of key: Root is already the files dir.
func (l *Local) path(key string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(key, "files/"))
	full := filepath.Join(l.Root, rel)
	if !strings.HasPrefix(full, filepath.Clean(l.Root)+string(os.PathSeparator)) {
		return "", errors.Errorf("storage: key %q escapes root", key)
	}
	return full, nil
}

func (l *Local) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	full, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Wrap(err, "storage: mkdir")
	}
	f, err := os.Create(full)
	if err != nil {
		return "", errors.Wrap(err, "storage: create")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", errors.Wrap(err, "storage: write")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "storage: close")
	}
	return "/" + key, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	full, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "storage: delete")
	}
	return nil
}
