// Package memstore keeps store documents in process memory.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/docstore"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

type node struct {
	groups map[string]*node
	docs   map[string][]byte
}

func newNode() *node {
	return &node{groups: make(map[string]*node), docs: make(map[string][]byte)}
}

func (n *node) clone() *node {
	out := newNode()
	for name, child := range n.groups {
		out.groups[name] = child.clone()
	}
	for name, data := range n.docs {
		out.docs[name] = append([]byte(nil), data...)
	}
	return out
}

// Storage is a docstore.Storage over nested maps.
type Storage struct {
	mu   sync.RWMutex
	root *node
}

var _ docstore.Storage = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{root: newNode()}
}

// Clone returns an independent copy of the current contents.
func (s *Storage) Clone() *Storage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Storage{root: s.root.clone()}
}

func (s *Storage) find(group []string) *node {
	n := s.root
	for _, name := range group {
		child, ok := n.groups[name]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

func (s *Storage) Read(_ context.Context, path ...string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dir, name := split(path)
	n := s.find(dir)
	if n == nil {
		return nil, notFound(path)
	}
	data, ok := n.docs[name]
	if !ok {
		return nil, notFound(path)
	}
	return append([]byte(nil), data...), nil
}

func (s *Storage) Write(_ context.Context, data []byte, path ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, name := split(path)
	n := s.ensure(dir)
	n.docs[name] = append([]byte(nil), data...)
	return nil
}

func (s *Storage) Delete(_ context.Context, path ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, name := split(path)
	n := s.find(dir)
	if n == nil {
		return notFound(path)
	}
	if _, ok := n.docs[name]; !ok {
		return notFound(path)
	}
	delete(n.docs, name)
	return nil
}

func (s *Storage) List(_ context.Context, group ...string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.find(group)
	if n == nil {
		return []string{}, nil
	}
	return sortedKeys(n.docs), nil
}

func (s *Storage) ListGroups(_ context.Context, group ...string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.find(group)
	if n == nil {
		return []string{}, nil
	}
	return sortedKeys(n.groups), nil
}

func (s *Storage) EnsureGroup(_ context.Context, group ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(group)
	return nil
}

func (s *Storage) GroupExists(_ context.Context, group ...string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(group) != nil, nil
}

func (s *Storage) DeleteGroup(_ context.Context, group ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(group) == 0 {
		s.root = newNode()
		return nil
	}
	parent := s.find(group[:len(group)-1])
	name := group[len(group)-1]
	if parent == nil {
		return notFound(group)
	}
	if _, ok := parent.groups[name]; !ok {
		return notFound(group)
	}
	delete(parent.groups, name)
	return nil
}

func (s *Storage) ensure(group []string) *node {
	n := s.root
	for _, name := range group {
		child, ok := n.groups[name]
		if !ok {
			child = newNode()
			n.groups[name] = child
		}
		n = child
	}
	return n
}

func split(path []string) ([]string, string) {
	if len(path) == 0 {
		return nil, ""
	}
	return path[:len(path)-1], path[len(path)-1]
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func notFound(path []string) error {
	return domain.NotFound("%s not found", strings.Join(path, "/"))
}

// Backend is the memory:// store backend.
type Backend struct {
	*docstore.Backend
	storage *Storage
}

// New returns a backend for uri over fresh storage.
func New(uri store.URI) *Backend {
	return NewWithStorage(uri, NewStorage())
}

func NewWithStorage(uri store.URI, storage *Storage) *Backend {
	return &Backend{Backend: docstore.New(uri, storage), storage: storage}
}

// Clone copies the backend's contents into a new backend.
func (b *Backend) Clone() *Backend {
	return NewWithStorage(b.URI(), b.storage.Clone())
}
