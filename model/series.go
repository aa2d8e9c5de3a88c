/*
DESCRIPTION
  Series type and functions. A series is a standing pickup
  arrangement, either one-off (simple) or recurring on a cadence.

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

// typeSeries is the name of the datastore series type.
const typeSeries = "Series"

// SeriesKind discriminates one-off series from recurring ones.
type SeriesKind string

// Series kinds.
const (
	KindSimple    SeriesKind = "simple"
	KindRecurring SeriesKind = "recurring"
)

// SeriesStatus represents the lifecycle state of a series.
type SeriesStatus string

// Series statuses. A series is pending until a collector accepts it,
// active while occurrences remain live, and ended once its last live
// occurrence resolves without regeneration.
const (
	SeriesPending SeriesStatus = "pending"
	SeriesActive  SeriesStatus = "active"
	SeriesEnded   SeriesStatus = "ended"
)

// Series represents a standing pickup arrangement. Its occurrences
// are held separately in an OccurrenceSet keyed by the series ID.
type Series struct {
	ID             string       // Series ID (UUID).
	RequesterID    int64        // Resident who requested the series.
	CollectorID    int64        // Assigned collector, or 0 until assigned.
	NeighborhoodID int64        // Neighborhood of the pickup address.
	Kind           SeriesKind   // Simple or recurring.
	Frequency      Frequency    // Cadence; recurring series only.
	Weekdays       []Weekday    // Weekday pattern; recurring series only.
	Period         Period       // Period of the day for pickups.
	Materials      []string     // Material template for occurrences.
	Region         string       // Region of the pickup address.
	Status         SeriesStatus // Lifecycle state.
	Created        time.Time    // Time the series was requested.
}

// Encode serializes a Series into JSON.
func (s *Series) Encode() []byte {
	bytes, _ := json.Marshal(s)
	return bytes
}

// Decode deserializes a Series from JSON.
func (s *Series) Decode(b []byte) error {
	return json.Unmarshal(b, s)
}

// Copy copies a series to dst, or returns a copy of the series when dst is nil.
func (s *Series) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var s2 *Series
	if dst == nil {
		s2 = new(Series)
	} else {
		var ok bool
		s2, ok = dst.(*Series)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*s2 = *s
	return s2, nil
}

// GetCache returns nil, indicating no caching. Series are mutated by
// concurrent workflow actions and must always be read from the store.
func (s *Series) GetCache() datastore.Cache {
	return nil
}

// PutSeries creates or updates a series.
func PutSeries(ctx context.Context, store datastore.Store, s *Series) error {
	key := store.NameKey(typeSeries, s.ID)
	_, err := store.Put(ctx, key, s)
	return err
}

// CreateSeries creates a series, or returns an error if a series
// with the given ID exists.
func CreateSeries(ctx context.Context, store datastore.Store, s *Series) error {
	key := store.NameKey(typeSeries, s.ID)
	return store.Create(ctx, key, s)
}

// GetSeries returns a series by its ID.
func GetSeries(ctx context.Context, store datastore.Store, id string) (*Series, error) {
	key := store.NameKey(typeSeries, id)
	var s Series
	err := store.Get(ctx, key, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSeriesByStatus returns all series in the given lifecycle state.
func GetSeriesByStatus(ctx context.Context, store datastore.Store, status SeriesStatus) ([]Series, error) {
	// FileStore queries must be handled specially.
	_, filestore := store.(*datastore.FileStore)
	if filestore {
		return getSeriesByStatusFromFileStore(ctx, store, status)
	}

	q := store.NewQuery(typeSeries, false)
	q.Filter("Status =", string(status))
	var series []Series
	_, err := store.GetAll(ctx, q, &series)
	return series, err
}

// getSeriesByStatusFromFileStore retrieves series from a FileStore
// by retrieving all series and filtering the results.
func getSeriesByStatusFromFileStore(ctx context.Context, store datastore.Store, status SeriesStatus) ([]Series, error) {
	q := store.NewQuery(typeSeries, false)
	var all []Series
	_, err := store.GetAll(ctx, q, &all)
	if err != nil {
		return nil, err
	}
	var series []Series
	for _, s := range all {
		if s.Status == status {
			series = append(series, s)
		}
	}
	return series, nil
}

// DeleteSeries deletes a series. The series' occurrence set, if any,
// is deleted with it.
func DeleteSeries(ctx context.Context, store datastore.Store, id string) error {
	err := store.DeleteMulti(ctx, []*datastore.Key{store.NameKey(typeSeries, id)})
	if err != nil {
		return err
	}
	err = store.DeleteMulti(ctx, []*datastore.Key{store.NameKey(typeOccurrenceSet, id)})
	if err == datastore.ErrNoSuchEntity {
		return nil
	}
	return err
}
