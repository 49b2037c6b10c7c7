package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnsupportedMedia is returned for uploads that are not images.
var ErrUnsupportedMedia = errors.New("only image uploads are supported")

// MediaStore keeps uploaded blobs and returns an opaque reference that
// clients place in a message's mediaUrl.
type MediaStore interface {
	Save(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// LocalMediaStore writes blobs into a directory served under URLPrefix.
type LocalMediaStore struct {
	Dir       string
	URLPrefix string
	now       func() time.Time
}

// NewLocalMediaStore creates dir if needed.
func NewLocalMediaStore(dir, urlPrefix string) (*LocalMediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalMediaStore{Dir: dir, URLPrefix: urlPrefix, now: time.Now}, nil
}

// Save stores body as "<unixMillis>-<uuid><ext>" and returns its URL.
func (m *LocalMediaStore) Save(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedMedia
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s%s", m.now().UnixMilli(), uuid.New().String(), mediaExt(filename, contentType))
	f, err := os.OpenFile(filepath.Join(m.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close media file: %w", err)
	}
	return path.Join(m.URLPrefix, name), nil
}

// mediaExt keeps the client's extension when it is a plain one, otherwise
// derives it from the content type.
func mediaExt(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && len(ext) <= 6 && !strings.ContainsAny(ext, `/\ `) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
