package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
)

// ErrNotExist is returned by Storage.Open when no object has the given name.
var ErrNotExist = errors.New("image does not exist")

// storedName matches the names generated by Validator.
var storedName = regexp.MustCompile(`^[0-9a-f]{32}\.[a-z0-9]{1,8}$`)

// IsStoredName reports whether name could have been produced by Validator.
func IsStoredName(name string) bool {
	return storedName.MatchString(name)
}

// Storage persists uploaded images by name.
type Storage interface {
	// Save writes r under name. When r fails the partially written object
	// is removed and the reader's error returned.
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
}

// LocalStorage keeps images in a directory on disk.
type LocalStorage struct {
	Dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload directory")
	}
	return &LocalStorage{Dir: dir}, nil
}

func (s *LocalStorage) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", errors.Errorf("invalid image name %q", name)
	}
	return filepath.Join(s.Dir, name), nil
}

func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrap(err, "creating image file")
	}

	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(p)
		return err
	}
	return nil
}

func (s *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, ErrNotExist
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, errors.Wrap(err, "opening image file")
	}
	return f, nil
}

func (s *LocalStorage) Remove(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing image file")
	}
	return nil
}
