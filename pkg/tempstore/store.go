// Package tempstore holds client uploads for the lifetime of one request.
package tempstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mudler/xlog"
)

// ErrReleased is returned when an upload is read after it has been released.
var ErrReleased = errors.New("tempstore: upload already released")

// Upload is an uploaded audio sample resident on the transient medium.
type Upload struct {
	Path        string
	Filename    string
	Size        int64
	ContentType string

	mu       sync.Mutex
	released bool
}

// Store is the storage contract the orchestrator depends on.
type Store interface {
	Read(u *Upload) ([]byte, error)
	// Release removes the upload from the medium. Only the first call for a
	// given upload touches storage; later calls are no-ops returning nil.
	Release(u *Upload) error
}

// FileStore keeps uploads as files under a single directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("tempstore: creating %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// Save copies r into a uniquely named file. The original filename is kept as
// metadata only and never used to build the path.
func (s *FileStore) Save(filename, contentType string, r io.Reader) (*Upload, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	dst := filepath.Join(s.dir, uuid.New().String()+ext)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(dst); rerr != nil && !os.IsNotExist(rerr) {
			xlog.Warn("failed to remove partial upload", "path", dst, "error", rerr)
		}
		return nil, err
	}

	xlog.Debug("upload stored", "path", dst, "filename", filename, "bytes", n)
	return &Upload{Path: dst, Filename: filename, Size: n, ContentType: contentType}, nil
}

func (s *FileStore) Read(u *Upload) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.released {
		return nil, ErrReleased
	}
	return os.ReadFile(u.Path)
}

func (s *FileStore) Release(u *Upload) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.released {
		return nil
	}
	u.released = true
	if err := os.Remove(u.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ Store = (*FileStore)(nil)
