package file

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store is a lakekit.Store over a local directory.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory, creating it if
// needed.
func NewStore(root string) (*Store, error) {
	err := os.MkdirAll(root, 0755)
	if err != nil {
		return nil, errors.Wrapf(err, "creating store root %s", root)
	}
	return &Store{root: root}, nil
}

// Put moves the local file into place under the store root. Rename is tried
// first; when the temp file lives on a different filesystem the file is
// copied instead.
func (s *Store) Put(localPath, key string) error {
	dest := filepath.Join(s.root, filepath.FromSlash(key))
	err := os.MkdirAll(filepath.Dir(dest), 0755)
	if err != nil {
		return errors.Wrapf(err, "creating directory for %s", key)
	}
	err = os.Rename(localPath, dest)
	if err == nil {
		return nil
	}
	in, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", localPath)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dest)
	}
	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return errors.Wrapf(err, "copying to %s", dest)
	}
	err = out.Close()
	if err != nil {
		return errors.Wrapf(err, "closing %s", dest)
	}
	return errors.Wrap(os.Remove(localPath), "removing source file")
}

// RemoveAll deletes everything under the given prefix.
func (s *Store) RemoveAll(prefix string) error {
	target := filepath.Join(s.root, filepath.FromSlash(prefix))
	return errors.Wrapf(os.RemoveAll(target), "removing %s", prefix)
}

// List returns the keys (slash-separated, relative to the store root) of
// every file under the given prefix.
func (s *Store) List(prefix string) ([]string, error) {
	var keys []string
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking store")
	}
	return keys, nil
}
