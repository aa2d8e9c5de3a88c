/*
DESCRIPTION
  Occurrence and OccurrenceSet types and functions. An occurrence is
  one concrete dated instance of a series. The occurrences of a
  series are persisted together as one OccurrenceSet entity guarded
  by a version token, which gives series mutations optimistic
  concurrency semantics.

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

// typeOccurrenceSet is the name of the datastore occurrence set type.
const typeOccurrenceSet = "OccurrenceSet"

// OccurrenceStatus represents the lifecycle state of an occurrence.
// Scheduled is the only live state; collected and cancelled are
// terminal.
type OccurrenceStatus string

// Occurrence statuses.
const (
	OccurrenceScheduled OccurrenceStatus = "scheduled"
	OccurrenceCollected OccurrenceStatus = "collected"
	OccurrenceCancelled OccurrenceStatus = "cancelled"
)

// Canceller attributes a cancellation for audit purposes.
type Canceller string

// Canceller values.
const (
	CancelledByRequester Canceller = "requester"
	CancelledByCollector Canceller = "collector"
)

// Occurrence represents one dated instance of a series. Materials,
// photos and observations are populated only when the occurrence is
// collected; the cancellation reason only when it is cancelled.
type Occurrence struct {
	ID                 string           // Occurrence ID (UUID).
	SeriesID           string           // Owning series.
	Date               time.Time        // Scheduled date.
	Period             Period           // Period of the day.
	Status             OccurrenceStatus // Lifecycle state.
	Materials          []string         // Materials collected.
	Photos             []string         // Photo references.
	Observations       string           `datastore:",noindex"` // Free-form notes.
	CancellationReason string           // Reason, when cancelled.
	CancelledBy        Canceller        // Attribution, when cancelled.
	Resolved           time.Time        // Time the occurrence left the scheduled state.
}

// Scheduled returns true if the occurrence is still live.
func (o *Occurrence) Scheduled() bool {
	return o.Status == OccurrenceScheduled
}

// OccurrenceSet holds all occurrences of one series together with
// the version token used for optimistic concurrency. The set is
// always read and written whole; see ReadOccurrences and
// WriteOccurrences.
type OccurrenceSet struct {
	SeriesID    string       // Owning series.
	Version     int64        // Incremented on every accepted write.
	Occurrences []Occurrence `datastore:",noindex"` // All occurrences of the series.
}

// Encode serializes an OccurrenceSet into JSON.
func (s *OccurrenceSet) Encode() []byte {
	bytes, _ := json.Marshal(s)
	return bytes
}

// Decode deserializes an OccurrenceSet from JSON.
func (s *OccurrenceSet) Decode(b []byte) error {
	return json.Unmarshal(b, s)
}

// Copy copies an occurrence set to dst, or returns a copy of the
// occurrence set when dst is nil.
func (s *OccurrenceSet) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var s2 *OccurrenceSet
	if dst == nil {
		s2 = new(OccurrenceSet)
	} else {
		var ok bool
		s2, ok = dst.(*OccurrenceSet)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*s2 = *s
	s2.Occurrences = append([]Occurrence(nil), s.Occurrences...)
	return s2, nil
}

// GetCache returns nil, indicating no caching. Occurrence sets are
// the subject of optimistic concurrency and must always be read
// from the store.
func (s *OccurrenceSet) GetCache() datastore.Cache {
	return nil
}

// CreateOccurrences creates the occurrence set for a series with the
// given initial occurrences at version 1, or returns an error if the
// series already has one.
func CreateOccurrences(ctx context.Context, store datastore.Store, seriesID string, occurrences []Occurrence) error {
	key := store.NameKey(typeOccurrenceSet, seriesID)
	set := OccurrenceSet{
		SeriesID:    seriesID,
		Version:     1,
		Occurrences: occurrences,
	}
	return store.Create(ctx, key, &set)
}

// ReadOccurrences returns all occurrences of the given series along
// with the version token to present to WriteOccurrences.
func ReadOccurrences(ctx context.Context, store datastore.Store, seriesID string) ([]Occurrence, int64, error) {
	key := store.NameKey(typeOccurrenceSet, seriesID)
	var set OccurrenceSet
	err := store.Get(ctx, key, &set)
	if err != nil {
		return nil, 0, err
	}
	return set.Occurrences, set.Version, nil
}

// WriteOccurrences replaces the occurrence list of the given series.
// The write is accepted only if the set's version still equals
// version, i.e. the list has not changed since it was read;
// otherwise datastore.ErrConflict is returned and nothing is
// mutated. The caller must then re-read, recompute and retry; partial
// merges are never attempted. On success the version is incremented.
func WriteOccurrences(ctx context.Context, store datastore.Store, seriesID string, occurrences []Occurrence, version int64) error {
	key := store.NameKey(typeOccurrenceSet, seriesID)
	conflict := false
	var set OccurrenceSet
	err := store.Update(ctx, key, func(e datastore.Entity) {
		s, ok := e.(*OccurrenceSet)
		if !ok {
			return
		}
		conflict = s.Version != version
		if conflict {
			return
		}
		s.Occurrences = occurrences
		s.Version++
	}, &set)
	if err != nil {
		return err
	}
	if conflict {
		return datastore.ErrConflict
	}
	return nil
}
