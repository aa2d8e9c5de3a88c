/*
DESCRIPTION
  AuditEntry type and functions. Audit entries record who triggered
  a dispatch or workflow action and when; they are a best-effort
  side channel and never gate the action they describe.

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

package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/neutroapp/coleta/datastore"
)

// typeAuditEntry is the name of the datastore audit entry type.
const typeAuditEntry = "AuditEntry"

// AuditEntry describes a triggering workflow action: who performed
// it, what it was, and when.
type AuditEntry struct {
	ID             string    // Entry ID (UUID).
	ActorID        int64     // Account that performed the action.
	Action         string    // Action name, e.g. "dispatch".
	NeighborhoodID int64     // Neighborhood concerned, if any.
	SeriesID       string    // Series concerned, if any.
	Note           string    `datastore:",noindex"` // Free-form description.
	Created        time.Time // Time the entry was written.
}

// Encode serializes an AuditEntry into JSON.
func (a *AuditEntry) Encode() []byte {
	bytes, _ := json.Marshal(a)
	return bytes
}

// Decode deserializes an AuditEntry from JSON.
func (a *AuditEntry) Decode(b []byte) error {
	return json.Unmarshal(b, a)
}

// Copy copies an audit entry to dst, or returns a copy of the entry when dst is nil.
func (a *AuditEntry) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var a2 *AuditEntry
	if dst == nil {
		a2 = new(AuditEntry)
	} else {
		var ok bool
		a2, ok = dst.(*AuditEntry)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*a2 = *a
	return a2, nil
}

// GetCache returns nil, indicating no caching.
func (a *AuditEntry) GetCache() datastore.Cache {
	return nil
}

// PutAuditEntry puts the passed entry into the datastore. The
// Created field is filled with the current time, and a unique ID is
// generated to fill the ID field.
func PutAuditEntry(ctx context.Context, store datastore.Store, a *AuditEntry) error {
	a.Created = time.Now()
	a.ID = uuid.New().String()
	key := store.NameKey(typeAuditEntry, a.ID)
	_, err := store.Put(ctx, key, a)
	return err
}

// GetAuditEntriesByNeighborhood returns all audit entries for a
// given neighborhood.
func GetAuditEntriesByNeighborhood(ctx context.Context, store datastore.Store, neighborhoodID int64) ([]AuditEntry, error) {
	// FileStore queries must be handled specially.
	_, filestore := store.(*datastore.FileStore)
	if filestore {
		q := store.NewQuery(typeAuditEntry, false)
		var all []AuditEntry
		_, err := store.GetAll(ctx, q, &all)
		if err != nil {
			return nil, err
		}
		var entries []AuditEntry
		for _, a := range all {
			if a.NeighborhoodID == neighborhoodID {
				entries = append(entries, a)
			}
		}
		return entries, nil
	}

	q := store.NewQuery(typeAuditEntry, false)
	q.Filter("NeighborhoodID =", neighborhoodID)
	var entries []AuditEntry
	_, err := store.GetAll(ctx, q, &entries)
	return entries, err
}

// DeleteAuditEntry deletes an audit entry with the given ID.
func DeleteAuditEntry(ctx context.Context, store datastore.Store, id string) error {
	key := store.NameKey(typeAuditEntry, id)
	return store.DeleteMulti(ctx, []*datastore.Key{key})
}
