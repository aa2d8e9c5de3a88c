/*
DESCRIPTION
  Tests of collection engine entities against a file store.

AUTHORS
  Rodrigo Gan <rodrigo@neutro.app>

LICENSE
  Copyright (C) 2024-2026 the Neutro Impacto Verde project.

  This file is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  This is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY
  or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public
  License for more details.

  You should have received a copy of the GNU General Public License in
  gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neutroapp/coleta/datastore"
)

func init() {
	RegisterEntities()
}

// newTestStore returns a file store rooted in a fresh temporary
// directory.
func newTestStore(t *testing.T) datastore.Store {
	t.Helper()
	store, err := datastore.NewStore(context.Background(), "file", "coleta", t.TempDir())
	require.NoError(t, err, "could not create file store")
	return store
}

func TestCollectorRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	c := Collector{
		ID:                42,
		Name:              "Carlos",
		RegionsServed:     []string{"zona-sul"},
		MaterialsAccepted: []string{"papel", "vidro"},
		PeriodsAvailable:  []Period{Morning},
		DaysAvailable:     []Weekday{Monday, Friday},
		Created:           time.Unix(0, 0).UTC(),
	}
	err := PutCollector(ctx, store, &c)
	require.NoError(t, err, "PutCollector failed")

	got, err := GetCollector(ctx, store, 42)
	require.NoError(t, err, "GetCollector failed")
	assert.Equal(t, &c, got)

	_, err = GetCollector(ctx, store, 43)
	assert.True(t, errors.Is(err, datastore.ErrNoSuchEntity), "GetCollector of missing collector returned %v", err)

	err = DeleteCollector(ctx, store, 42)
	assert.NoError(t, err, "DeleteCollector failed")
}

// Collectors are cached, so a copy must not share its slices with
// the source; a caller mutating a returned snapshot must never
// corrupt the cached one.
func TestCollectorCopyIsolation(t *testing.T) {
	c := Collector{
		ID:                42,
		Name:              "Carlos",
		RegionsServed:     []string{"zona-sul"},
		MaterialsAccepted: []string{"papel", "vidro"},
		PeriodsAvailable:  []Period{Morning},
		DaysAvailable:     []Weekday{Monday, Friday},
	}

	e, err := c.Copy(nil)
	require.NoError(t, err, "Copy failed")
	c2 := e.(*Collector)
	require.Equal(t, &c, c2)

	c2.RegionsServed[0] = "zona-norte"
	c2.MaterialsAccepted[0] = "metal"
	c2.PeriodsAvailable[0] = Evening
	c2.DaysAvailable[0] = Sunday

	assert.Equal(t, "zona-sul", c.RegionsServed[0])
	assert.Equal(t, "papel", c.MaterialsAccepted[0])
	assert.Equal(t, Morning, c.PeriodsAvailable[0])
	assert.Equal(t, Monday, c.DaysAvailable[0])
}

func TestGetCollectorsByRegion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	collectors := []Collector{
		{ID: 1, Name: "Carlos", RegionsServed: []string{"zona-sul", "centro"}},
		{ID: 2, Name: "Maria", RegionsServed: []string{"zona-norte"}},
		{ID: 3, Name: "Pedro", RegionsServed: []string{"zona-sul"}},
	}
	for i := range collectors {
		err := PutCollector(ctx, store, &collectors[i])
		require.NoError(t, err, "PutCollector failed")
	}

	got, err := GetCollectorsByRegion(ctx, store, "zona-sul")
	require.NoError(t, err, "GetCollectorsByRegion failed")
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	got, err = GetCollectorsByRegion(ctx, store, "zona-oeste")
	require.NoError(t, err, "GetCollectorsByRegion failed")
	assert.Empty(t, got)
}

func TestResidentsByNeighborhood(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i, nid := range []int64{7, 7, 8} {
		r := Resident{ID: int64(i + 1), Name: "Resident", NeighborhoodID: nid, Region: "zona-sul"}
		err := PutResident(ctx, store, &r)
		require.NoError(t, err, "PutResident failed")
	}

	got, err := GetResidentsByNeighborhood(ctx, store, 7)
	require.NoError(t, err, "GetResidentsByNeighborhood failed")
	assert.Len(t, got, 2)
}

func TestSeriesLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	s := Series{
		ID:             "ser-1",
		RequesterID:    10,
		NeighborhoodID: 7,
		Kind:           KindRecurring,
		Frequency:      Weekly,
		Weekdays:       []Weekday{Wednesday},
		Period:         Morning,
		Materials:      []string{"papel"},
		Region:         "zona-sul",
		Status:         SeriesPending,
	}
	err := CreateSeries(ctx, store, &s)
	require.NoError(t, err, "CreateSeries failed")

	err = CreateSeries(ctx, store, &s)
	assert.True(t, errors.Is(err, datastore.ErrEntityExists), "duplicate CreateSeries returned %v", err)

	got, err := GetSeries(ctx, store, "ser-1")
	require.NoError(t, err, "GetSeries failed")
	assert.Equal(t, &s, got)

	pending, err := GetSeriesByStatus(ctx, store, SeriesPending)
	require.NoError(t, err, "GetSeriesByStatus failed")
	assert.Len(t, pending, 1)

	s.Status = SeriesActive
	err = PutSeries(ctx, store, &s)
	require.NoError(t, err, "PutSeries failed")

	pending, err = GetSeriesByStatus(ctx, store, SeriesPending)
	require.NoError(t, err, "GetSeriesByStatus failed")
	assert.Empty(t, pending)

	err = DeleteSeries(ctx, store, "ser-1")
	require.NoError(t, err, "DeleteSeries failed")
	_, err = GetSeries(ctx, store, "ser-1")
	assert.True(t, errors.Is(err, datastore.ErrNoSuchEntity), "GetSeries after delete returned %v", err)
}

func TestOccurrenceVersioning(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := Occurrence{ID: "occ-1", SeriesID: "ser-1", Date: date(2024, 5, 1), Period: Morning, Status: OccurrenceScheduled}
	err := CreateOccurrences(ctx, store, "ser-1", []Occurrence{first})
	require.NoError(t, err, "CreateOccurrences failed")

	occs, version, err := ReadOccurrences(ctx, store, "ser-1")
	require.NoError(t, err, "ReadOccurrences failed")
	require.Len(t, occs, 1)
	assert.Equal(t, int64(1), version)

	// A write presenting the current version is accepted and bumps it.
	occs[0].Status = OccurrenceCancelled
	err = WriteOccurrences(ctx, store, "ser-1", occs, version)
	require.NoError(t, err, "WriteOccurrences failed")

	occs2, version2, err := ReadOccurrences(ctx, store, "ser-1")
	require.NoError(t, err, "ReadOccurrences failed")
	assert.Equal(t, int64(2), version2)
	assert.Equal(t, OccurrenceCancelled, occs2[0].Status)

	// A write presenting the stale version is rejected whole.
	occs[0].Status = OccurrenceCollected
	err = WriteOccurrences(ctx, store, "ser-1", occs, version)
	assert.True(t, errors.Is(err, datastore.ErrConflict), "stale WriteOccurrences returned %v", err)

	occs3, version3, err := ReadOccurrences(ctx, store, "ser-1")
	require.NoError(t, err, "ReadOccurrences failed")
	assert.Equal(t, version2, version3, "rejected write mutated the version")
	assert.Equal(t, OccurrenceCancelled, occs3[0].Status, "rejected write mutated the list")
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	day := date(2024, 5, 6)
	cohort := Cohort(7, day, Morning, 42)
	assert.Equal(t, "7.2024-05-06.morning.42", cohort)

	batch := []NeighborhoodNotification{
		{ID: "n-1", NeighborhoodID: 7, CollectorID: 42, RecipientID: 1, Date: day, Period: Morning, Cohort: cohort},
		{ID: "n-2", NeighborhoodID: 7, CollectorID: 42, RecipientID: 2, Date: day, Period: Morning, Cohort: cohort},
	}
	err := PutNotifications(ctx, store, batch)
	require.NoError(t, err, "PutNotifications failed")

	got, err := GetNotificationsByCohort(ctx, store, cohort)
	require.NoError(t, err, "GetNotificationsByCohort failed")
	assert.Len(t, got, 2)

	got, err = GetNotificationsByRecipient(ctx, store, 2)
	require.NoError(t, err, "GetNotificationsByRecipient failed")
	require.Len(t, got, 1)
	assert.False(t, got[0].Read)

	err = MarkNotificationRead(ctx, store, "n-2")
	require.NoError(t, err, "MarkNotificationRead failed")
	n, err := GetNotification(ctx, store, "n-2")
	require.NoError(t, err, "GetNotification failed")
	assert.True(t, n.Read)
}

func TestAuditEntries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	e := AuditEntry{ActorID: 42, Action: "dispatch", NeighborhoodID: 7, Note: "2 notified"}
	err := PutAuditEntry(ctx, store, &e)
	require.NoError(t, err, "PutAuditEntry failed")
	assert.NotEmpty(t, e.ID, "PutAuditEntry did not assign an ID")
	assert.False(t, e.Created.IsZero(), "PutAuditEntry did not stamp Created")

	got, err := GetAuditEntriesByNeighborhood(ctx, store, 7)
	require.NoError(t, err, "GetAuditEntriesByNeighborhood failed")
	assert.Len(t, got, 1)
}

func TestVariable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := PutVariable(ctx, store, "coletacron", "lastRun", "2024-05-06")
	require.NoError(t, err, "PutVariable failed")

	v, err := GetVariable(ctx, store, "coletacron", "lastRun")
	require.NoError(t, err, "GetVariable failed")
	assert.Equal(t, "2024-05-06", v.Value)

	err = DeleteVariable(ctx, store, "coletacron", "lastRun")
	require.NoError(t, err, "DeleteVariable failed")
	_, err = GetVariable(ctx, store, "coletacron", "lastRun")
	assert.True(t, errors.Is(err, datastore.ErrNoSuchEntity), "GetVariable after delete returned %v", err)
}
