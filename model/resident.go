/*
DESCRIPTION
  Resident type and functions.

AUTHORS
  Rodrigo Gan <rodrigo@neutro.app>

LICENSE
  Copyright (C) 2024-2026 the Neutro Impacto Verde project.

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

	"github.com/neutroapp/coleta/datastore"
)

// typeResident is the name of the datastore resident type.
const typeResident = "Resident"

// Resident represents a resident registered to a neighborhood.
// Residents are the audience of neighborhood notifications.
type Resident struct {
	ID             int64     // Resident account ID.
	Name           string    // Display name.
	NeighborhoodID int64     // Neighborhood the resident belongs to.
	Region         string    // Region of the neighborhood.
	Created        time.Time // Time the resident registered.
}

// Encode serializes a Resident into JSON.
func (r *Resident) Encode() []byte {
	bytes, _ := json.Marshal(r)
	return bytes
}

// Decode deserializes a Resident from JSON.
func (r *Resident) Decode(b []byte) error {
	return json.Unmarshal(b, r)
}

// Copy copies a resident to dst, or returns a copy of the resident when dst is nil.
func (r *Resident) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var r2 *Resident
	if dst == nil {
		r2 = new(Resident)
	} else {
		var ok bool
		r2, ok = dst.(*Resident)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*r2 = *r
	return r2, nil
}

// GetCache returns nil, indicating no caching.
func (r *Resident) GetCache() datastore.Cache {
	return nil
}

// PutResident creates or updates a resident.
func PutResident(ctx context.Context, store datastore.Store, r *Resident) error {
	key := store.IDKey(typeResident, r.ID)
	_, err := store.Put(ctx, key, r)
	return err
}

// GetResident returns a resident by its ID.
func GetResident(ctx context.Context, store datastore.Store, id int64) (*Resident, error) {
	key := store.IDKey(typeResident, id)
	var r Resident
	err := store.Get(ctx, key, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetResidentsByNeighborhood returns all residents registered to the
// given neighborhood.
func GetResidentsByNeighborhood(ctx context.Context, store datastore.Store, neighborhoodID int64) ([]Resident, error) {
	// FileStore queries must be handled specially.
	_, filestore := store.(*datastore.FileStore)
	if filestore {
		return getResidentsByNeighborhoodFromFileStore(ctx, store, neighborhoodID)
	}

	q := store.NewQuery(typeResident, false)
	q.Filter("NeighborhoodID =", neighborhoodID)
	var residents []Resident
	_, err := store.GetAll(ctx, q, &residents)
	return residents, err
}

// getResidentsByNeighborhoodFromFileStore retrieves residents from a
// FileStore by retrieving all residents and filtering the results.
func getResidentsByNeighborhoodFromFileStore(ctx context.Context, store datastore.Store, neighborhoodID int64) ([]Resident, error) {
	q := store.NewQuery(typeResident, false)
	var all []Resident
	_, err := store.GetAll(ctx, q, &all)
	if err != nil {
		return nil, err
	}
	var residents []Resident
	for _, r := range all {
		if r.NeighborhoodID == neighborhoodID {
			residents = append(residents, r)
		}
	}
	return residents, nil
}

// DeleteResident deletes a resident.
func DeleteResident(ctx context.Context, store datastore.Store, id int64) error {
	key := store.IDKey(typeResident, id)
	return store.DeleteMulti(ctx, []*datastore.Key{key})
}
