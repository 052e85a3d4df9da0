package patch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

const patchSuffix = ".patch.json"

// Store keeps the patches of one transaction, one NNNN.patch.json file per
// step index.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at the transaction directory dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes p atomically and returns the file it was written to.
func (s *Store) Save(p *Patch) (string, error) {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return "", errors.Wrap(errors.ErrCodeDirectoryFailed, fmt.Sprintf("create %s", s.dir), err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileMarshal, fmt.Sprintf("encode patch for step %d", p.Index), err)
	}

	path := s.path(p.Index)
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the patch recorded for step index.
func (s *Store) Load(index int) (*Patch, error) {
	return s.read(s.path(index))
}

// List returns every patch of the transaction in step order. A patch that
// cannot be decoded fails the whole listing.
func (s *Store) List() ([]*Patch, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*"+patchSuffix))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("list patches in %s", s.dir), err)
	}

	patches := make([]*Patch, 0, len(files))
	for _, file := range files {
		p, err := s.read(file)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	sort.SliceStable(patches, func(i, j int) bool { return patches[i].Index < patches[j].Index })
	return patches, nil
}

// Remove deletes the patch recorded for step index. A missing patch is not
// an error.
func (s *Store) Remove(index int) error {
	path := s.path(index)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFileRemoveFailed, fmt.Sprintf("remove %s", path), err)
	}
	return nil
}

func (s *Store) read(path string) (*Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError(path)
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read %s", path), err)
	}

	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.NewFileUnmarshalError(path, "JSON", err)
	}
	return &p, nil
}

func (s *Store) path(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%04d%s", index, patchSuffix))
}
