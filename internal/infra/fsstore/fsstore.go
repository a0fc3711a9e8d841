// Package fsstore keeps store documents as one JSON file per resource.
package fsstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/docstore"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

const docExt = ".json"

// Storage maps groups to directories and documents to <name>.json files.
type Storage struct {
	root string
}

var _ docstore.Storage = (*Storage)(nil)

func NewStorage(root string) (*Storage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, domain.BadRequest("filesystem store needs a root path")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, domain.Wrap(domain.ErrInternal, err, "create store root %s", root)
	}
	return &Storage{root: root}, nil
}

func (s *Storage) Root() string { return s.root }

func (s *Storage) dir(group []string) string {
	return filepath.Join(append([]string{s.root}, group...)...)
}

func (s *Storage) file(path []string) string {
	dir, name := path[:len(path)-1], path[len(path)-1]
	return filepath.Join(s.dir(dir), name+docExt)
}

func (s *Storage) Read(_ context.Context, path ...string) ([]byte, error) {
	data, err := os.ReadFile(s.file(path))
	if err != nil {
		return nil, mapErr(err, path)
	}
	return data, nil
}

// Write replaces the whole file through a rename so readers never see a
// partial document.
func (s *Storage) Write(_ context.Context, data []byte, path ...string) error {
	target := s.file(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return domain.Wrap(domain.ErrInternal, err, "create %s", filepath.Dir(target))
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(data)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return domain.Wrap(domain.ErrInternal, err, "write %s", target)
	}
	if _, err := tmp.Write(pretty.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return domain.Wrap(domain.ErrInternal, err, "write %s", target)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return domain.Wrap(domain.ErrInternal, err, "write %s", target)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return domain.Wrap(domain.ErrInternal, err, "write %s", target)
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, path ...string) error {
	if err := os.Remove(s.file(path)); err != nil {
		return mapErr(err, path)
	}
	return nil
}

func (s *Storage) List(_ context.Context, group ...string) ([]string, error) {
	entries, err := s.readDir(group)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, docExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, docExt))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Storage) ListGroups(_ context.Context, group ...string) ([]string, error) {
	entries, err := s.readDir(group)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Storage) readDir(group []string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(s.dir(group))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, err, "list %s", s.dir(group))
	}
	return entries, nil
}

func (s *Storage) EnsureGroup(_ context.Context, group ...string) error {
	if err := os.MkdirAll(s.dir(group), 0o755); err != nil {
		return domain.Wrap(domain.ErrInternal, err, "create %s", s.dir(group))
	}
	return nil
}

func (s *Storage) GroupExists(_ context.Context, group ...string) (bool, error) {
	info, err := os.Stat(s.dir(group))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, domain.Wrap(domain.ErrInternal, err, "stat %s", s.dir(group))
	}
	return info.IsDir(), nil
}

func (s *Storage) DeleteGroup(_ context.Context, group ...string) error {
	dir := s.dir(group)
	if _, err := os.Stat(dir); err != nil {
		return mapErr(err, group)
	}
	if err := os.RemoveAll(dir); err != nil {
		return domain.Wrap(domain.ErrInternal, err, "remove %s", dir)
	}
	return nil
}

func mapErr(err error, path []string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NotFound("%s not found", strings.Join(path, "/"))
	}
	return domain.Wrap(domain.ErrInternal, err, "access %s", strings.Join(path, "/"))
}

// New opens the fs:// backend rooted at uri's path.
func New(uri store.URI) (*docstore.Backend, error) {
	storage, err := NewStorage(uri.Path)
	if err != nil {
		return nil, err
	}
	return docstore.New(uri, storage), nil
}
