/*
DESCRIPTION
  Datastore interfaces, errors and store construction.

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

// Package datastore abstracts the persistence collaborator used by
// the collection scheduling engine. Two implementations are
// provided: CloudStore, which is backed by the Google Cloud
// Datastore, and FileStore, which is backed by plain files and
// intended for standalone operation and testing.
package datastore

import (
	"context"
	"errors"
	"sync"

	"cloud.google.com/go/datastore"
)

// Store-related errors.
var (
	ErrNoSuchEntity     = errors.New("no such entity")
	ErrEntityExists     = errors.New("entity exists")
	ErrConflict         = errors.New("version conflict")
	ErrWrongType        = errors.New("wrong entity type")
	ErrDecoding         = errors.New("decoding error")
	ErrUnimplemented    = errors.New("unimplemented feature")
	ErrInvalidStoreKind = errors.New("invalid store kind")
	ErrInvalidStoreID   = errors.New("invalid store ID")
)

// Key is an alias for the Google Cloud Datastore key type, which is
// also used by FileStore.
type Key = datastore.Key

// Entity defines the common interface for entities persisted by a
// Store. Encode and Decode serialize entities for FileStore
// persistence.
type Entity interface {
	Encode() []byte              // Encode an entity into bytes.
	Decode([]byte) error         // Decode an entity from bytes.
	Copy(Entity) (Entity, error) // Copy an entity to dst, or return a copy of the entity when dst is nil.
	GetCache() Cache             // Returns the entity cache, or nil for uncached entities.
}

// Query defines the interface for constructing datastore queries.
type Query interface {
	// Filter filters the query with the given filter string and value.
	Filter(filterStr string, value interface{}) error

	// Order orders the query results by the given field name.
	Order(fieldName string)

	// Limit limits the number of results returned.
	Limit(limit int)
}

// Store defines the interface for our datastore abstraction.
type Store interface {
	IDKey(kind string, id int64) *Key
	NameKey(kind, name string) *Key
	IncompleteKey(kind string) *Key
	NewQuery(kind string, keysOnly bool, keyParts ...string) Query
	Get(ctx context.Context, key *Key, dst Entity) error
	GetAll(ctx context.Context, query Query, dst interface{}) ([]*Key, error)
	Create(ctx context.Context, key *Key, src Entity) error
	Put(ctx context.Context, key *Key, src Entity) (*Key, error)
	PutMulti(ctx context.Context, keys []*Key, src []Entity) error
	Update(ctx context.Context, key *Key, fn func(Entity), dst Entity) error
	Delete(ctx context.Context, key *Key) error
	DeleteMulti(ctx context.Context, keys []*Key) error
}

// NewStore returns a new Store. The kind is either "cloud" for a
// CloudStore or "file" for a FileStore. The id is the project ID for
// cloud stores or a namespace directory for file stores. The url is
// used to locate credentials for cloud stores, or the root directory
// for file stores (defaulting to "store").
func NewStore(ctx context.Context, kind, id, url string) (Store, error) {
	switch kind {
	case "cloud":
		return newCloudStore(ctx, id, url)
	case "file":
		return newFileStore(ctx, id, url)
	default:
		return nil, ErrInvalidStoreKind
	}
}

// Entity registration, which maps entity type names to their factory
// functions and permits stores to instantiate entities by name.
var (
	entitiesMutex sync.RWMutex
	entities      = map[string]func() Entity{}
)

// RegisterEntity registers a new kind of entity and its factory
// function. Registration cannot be undone.
func RegisterEntity(kind string, factory func() Entity) {
	entitiesMutex.Lock()
	entities[kind] = factory
	entitiesMutex.Unlock()
}

// NewEntity instantiates a new entity of the given kind, or returns
// ErrUnimplemented for unregistered kinds.
func NewEntity(kind string) (Entity, error) {
	entitiesMutex.RLock()
	factory := entities[kind]
	entitiesMutex.RUnlock()
	if factory == nil {
		return nil, ErrUnimplemented
	}
	return factory(), nil
}

// GetCache returns the cache for the given kind of entity, or nil
// for unregistered or uncached kinds.
func GetCache(kind string) Cache {
	e, err := NewEntity(kind)
	if err != nil {
		return nil
	}
	return e.GetCache()
}
