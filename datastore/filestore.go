/*
DESCRIPTION
  File-backed implementation of the Store interface, for standalone
  operation and testing.

AUTHORS
  Rodrigo Gan <rodrigo@neutro.app>

LICENSE
  Copyright (C) 2025-2026 the Neutro Impacto Verde project.

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  It is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package datastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"sync"
)

// FileStore implements Store using plain files. Each entity is
// stored in its own file under <dir>/<id>/<kind>/, serialized by the
// entity's Encode method. A single mutex serializes all mutations,
// which makes Update transactional within the process. FileStore
// queries cannot filter on entity fields; callers retrieve all
// entities of a kind and filter the results themselves.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// newFileStore returns a new FileStore rooted at url (defaulting to
// "store"), namespaced by id.
func newFileStore(ctx context.Context, id, url string) (*FileStore, error) {
	if id == "" {
		return nil, ErrInvalidStoreID
	}
	if url == "" {
		url = "store"
	}
	dir := filepath.Join(url, id)
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// IDKey returns an ID key given a kind and an int64 ID.
func (s *FileStore) IDKey(kind string, id int64) *Key {
	return &Key{Kind: kind, ID: id}
}

// NameKey returns a name key given a kind and a (string) name.
func (s *FileStore) NameKey(kind, name string) *Key {
	return &Key{Kind: kind, Name: name}
}

// IncompleteKey is unimplemented for FileStore; callers must supply
// complete keys.
func (s *FileStore) IncompleteKey(kind string) *Key {
	return &Key{Kind: kind}
}

// NewQuery returns a new FileQuery. Filters and ordering are not
// supported and are silently ignored, consistent with filtering
// being applied by the caller.
func (s *FileStore) NewQuery(kind string, keysOnly bool, keyParts ...string) Query {
	return &FileQuery{kind: kind, keysOnly: keysOnly}
}

// filename returns the file path for the given key.
func (s *FileStore) filename(key *Key) string {
	name := key.Name
	if name == "" {
		name = strconv.FormatInt(key.ID, 10)
	}
	return filepath.Join(s.dir, key.Kind, name)
}

func (s *FileStore) Get(ctx context.Context, key *Key, dst Entity) error {
	if cache := dst.GetCache(); cache != nil {
		err := cache.Get(key, dst)
		if err == nil {
			return nil
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key, dst)
}

// get reads an entity without locking. Callers must hold mu.
func (s *FileStore) get(key *Key, dst Entity) error {
	b, err := os.ReadFile(s.filename(key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoSuchEntity
	}
	if err != nil {
		return err
	}
	return dst.Decode(b)
}

// GetAll retrieves all entities of the query's kind, appending them
// to dst, which must be a pointer to a slice of the corresponding
// entity type. Results are ordered by file name for determinism.
// When the query is keys only, dst may be nil and only keys are
// returned.
func (s *FileStore) GetAll(ctx context.Context, query Query, dst interface{}) ([]*Key, error) {
	q, ok := query.(*FileQuery)
	if !ok {
		return nil, errors.New("expected *FileQuery type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(filepath.Join(s.dir, q.kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	var keys []*Key
	var dv reflect.Value
	if !q.keysOnly {
		pv := reflect.ValueOf(dst)
		if pv.Kind() != reflect.Ptr || pv.Elem().Kind() != reflect.Slice {
			return nil, errors.New("expected pointer to a slice")
		}
		dv = pv.Elem()
	}

	for _, f := range files {
		key := s.keyFromName(q.kind, f.Name())
		keys = append(keys, key)
		if q.keysOnly {
			continue
		}
		e, err := NewEntity(q.kind)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(filepath.Join(s.dir, q.kind, f.Name()))
		if err != nil {
			return nil, err
		}
		err = e.Decode(b)
		if err != nil {
			return nil, err
		}
		dv.Set(reflect.Append(dv, reflect.ValueOf(e).Elem()))
	}
	return keys, nil
}

// keyFromName reconstructs a key from a file name. Names that parse
// as integers are taken to be ID keys.
func (s *FileStore) keyFromName(kind, name string) *Key {
	id, err := strconv.ParseInt(name, 10, 64)
	if err == nil {
		return &Key{Kind: kind, ID: id}
	}
	return &Key{Kind: kind, Name: name}
}

func (s *FileStore) Create(ctx context.Context, key *Key, src Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(s.filename(key))
	if err == nil {
		return ErrEntityExists
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return s.put(key, src)
}

func (s *FileStore) Put(ctx context.Context, key *Key, src Entity) (*Key, error) {
	s.mu.Lock()
	err := s.put(key, src)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if cache := src.GetCache(); cache != nil {
		cache.Set(key, src)
	}
	return key, nil
}

// put writes an entity without locking. Callers must hold mu.
func (s *FileStore) put(key *Key, src Entity) error {
	err := os.MkdirAll(filepath.Join(s.dir, key.Kind), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filename(key), src.Encode(), 0666)
}

// PutMulti is the batch version of Put. Unlike CloudStore, writes
// are applied one at a time and a failure part way leaves earlier
// writes in place.
func (s *FileStore) PutMulti(ctx context.Context, keys []*Key, src []Entity) error {
	if len(keys) != len(src) {
		return errors.New("keys and src length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, key := range keys {
		err := s.put(key, src[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// Update atomically applies fn to the entity stored under key. The
// store mutex is held across the read, mutation and write.
func (s *FileStore) Update(ctx context.Context, key *Key, fn func(Entity), dst Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.get(key, dst)
	if err != nil {
		return err
	}
	fn(dst)
	return s.put(key, dst)
}

func (s *FileStore) DeleteMulti(ctx context.Context, keys []*Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		err := os.Remove(s.filename(key))
		if errors.Is(err, os.ErrNotExist) {
			return ErrNoSuchEntity
		}
		if err != nil {
			return err
		}
		if cache := GetCache(key.Kind); cache != nil {
			cache.Delete(key)
		}
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key *Key) error {
	return s.DeleteMulti(ctx, []*Key{key})
}

// FileQuery implements Query for FileStore. Only the kind and keys
// only properties are significant.
type FileQuery struct {
	kind     string
	keysOnly bool
}

// Filter is a no-op for FileStore queries.
func (q *FileQuery) Filter(filterStr string, value interface{}) error {
	return nil
}

// Order is a no-op for FileStore queries; GetAll orders by file name.
func (q *FileQuery) Order(fieldName string) {
}

// Limit is a no-op for FileStore queries.
func (q *FileQuery) Limit(limit int) {
}
