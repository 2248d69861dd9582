package fs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/newsgrab"
)

// Ensure ImageStore implements newsgrab.ImageStore at compile time.
var _ newsgrab.ImageStore = (*ImageStore)(nil)

// ImageStore keeps uploaded images in a directory served at baseURL.
type ImageStore struct {
	dir     string
	baseURL string
}

// NewImageStore creates an ImageStore writing to dir. Returned URLs are
// baseURL joined with the stored file name.
func NewImageStore(dir, baseURL string) *ImageStore {
	return &ImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// UploadImage writes data under filename and returns its URL. When a
// different image already uses the name, the content hash is prefixed.
// Identical uploads return the existing URL.
func (s *ImageStore) UploadImage(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return "", newsgrab.Errorf(newsgrab.EINVALID, "invalid image filename %q", filename)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "creating %s: %v", s.dir, err)
	}

	path := filepath.Join(s.dir, name)
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(existing, data):
		return s.url(name), nil
	case err == nil:
		name = fmt.Sprintf("%08x-%s", uint32(xxhash.Sum64(data)>>32), name)
		path = filepath.Join(s.dir, name)
	case !os.IsNotExist(err):
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "reading %s: %v", path, err)
	}

	if err := writeAtomic(path, data); err != nil {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "writing %s: %v", path, err)
	}
	return s.url(name), nil
}

func (s *ImageStore) url(name string) string {
	return s.baseURL + "/" + name
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
