// Package memory keeps archived documents and case records in process
// memory, for development runs and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ObjectStore implements crawler.ObjectStore in memory and returns
// memory:// URLs.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	uploads int
	deletes int
}

// Object is one stored object.
type Object struct {
	ContentType string
	Data        []byte
}

// NewObjectStore creates an empty ObjectStore.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string]Object)}
}

// Exists reports whether name has been uploaded.
func (s *ObjectStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[name]
	return ok, nil
}

// Delete removes name. Deleting a missing object is not an error.
func (s *ObjectStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	s.deletes++
	return nil
}

// Upload copies r into the store under name.
func (s *ObjectStore) Upload(_ context.Context, name string, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read data from reader: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = Object{ContentType: contentType, Data: data}
	s.uploads++
	return "memory://" + name, nil
}

// Get returns a stored object.
func (s *ObjectStore) Get(name string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[name]
	return obj, ok
}

// Names returns the stored object names in sorted order.
func (s *ObjectStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Counts returns how many uploads and deletes were performed.
func (s *ObjectStore) Counts() (uploads, deletes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploads, s.deletes
}
