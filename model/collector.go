/*
DESCRIPTION
  Collector type and functions.

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

// typeCollector is the name of the datastore collector type.
const typeCollector = "Collector"

// Collector represents a collector's service attributes: the regions
// it serves, the materials it accepts and the periods and weekdays
// it is available. Collectors are read as immutable snapshots by the
// matching engine; profile updates arrive through the directory, not
// through this package's callers.
type Collector struct {
	ID                int64     // Collector account ID.
	Name              string    // Display name.
	RegionsServed     []string  // Regions the collector services.
	MaterialsAccepted []string  // Material IDs the collector accepts.
	PeriodsAvailable  []Period  // Periods of the day the collector works.
	DaysAvailable     []Weekday // Weekdays the collector works.
	Created           time.Time // Time the collector registered.
}

// Encode serializes a Collector into JSON.
func (c *Collector) Encode() []byte {
	bytes, _ := json.Marshal(c)
	return bytes
}

// Decode deserializes a Collector from JSON.
func (c *Collector) Decode(b []byte) error {
	return json.Unmarshal(b, c)
}

// Copy copies a collector to dst, or returns a copy of the collector when dst is nil.
func (c *Collector) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var c2 *Collector
	if dst == nil {
		c2 = new(Collector)
	} else {
		var ok bool
		c2, ok = dst.(*Collector)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*c2 = *c
	c2.RegionsServed = append([]string(nil), c.RegionsServed...)
	c2.MaterialsAccepted = append([]string(nil), c.MaterialsAccepted...)
	c2.PeriodsAvailable = append([]Period(nil), c.PeriodsAvailable...)
	c2.DaysAvailable = append([]Weekday(nil), c.DaysAvailable...)
	return c2, nil
}

var collectorCache datastore.Cache = datastore.NewEntityCache()

// GetCache returns the collector cache.
func (c *Collector) GetCache() datastore.Cache {
	return collectorCache
}

// ServesRegion returns true if the collector services the given region.
func (c *Collector) ServesRegion(region string) bool {
	for _, r := range c.RegionsServed {
		if r == region {
			return true
		}
	}
	return false
}

// Accepts returns true if the collector accepts every one of the
// given materials. An empty material set is accepted by any
// collector.
func (c *Collector) Accepts(materials []string) bool {
	for _, m := range materials {
		found := false
		for _, a := range c.MaterialsAccepted {
			if a == m {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AvailableIn returns true if the collector works during the given period.
func (c *Collector) AvailableIn(period Period) bool {
	for _, p := range c.PeriodsAvailable {
		if p == period {
			return true
		}
	}
	return false
}

// AvailableOn returns true if the collector works on the given weekday.
func (c *Collector) AvailableOn(day Weekday) bool {
	for _, d := range c.DaysAvailable {
		if d == day {
			return true
		}
	}
	return false
}

// PutCollector creates or updates a collector.
func PutCollector(ctx context.Context, store datastore.Store, c *Collector) error {
	key := store.IDKey(typeCollector, c.ID)
	_, err := store.Put(ctx, key, c)
	return err
}

// GetCollector returns a collector by its ID.
func GetCollector(ctx context.Context, store datastore.Store, id int64) (*Collector, error) {
	key := store.IDKey(typeCollector, id)
	var c Collector
	err := store.Get(ctx, key, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAllCollectors returns all collectors.
func GetAllCollectors(ctx context.Context, store datastore.Store) ([]Collector, error) {
	q := store.NewQuery(typeCollector, false)
	var collectors []Collector
	_, err := store.GetAll(ctx, q, &collectors)
	return collectors, err
}

// GetCollectorsByRegion returns all collectors servicing the given
// region.
func GetCollectorsByRegion(ctx context.Context, store datastore.Store, region string) ([]Collector, error) {
	// FileStore queries must be handled specially.
	_, filestore := store.(*datastore.FileStore)
	if filestore {
		return getCollectorsByRegionFromFileStore(ctx, store, region)
	}

	q := store.NewQuery(typeCollector, false)
	q.Filter("RegionsServed =", region)
	var collectors []Collector
	_, err := store.GetAll(ctx, q, &collectors)
	return collectors, err
}

// getCollectorsByRegionFromFileStore retrieves collectors from a
// FileStore. Since FileStore does not index collectors by region,
// this requires retrieving all of the collectors then filtering out
// the ones that don't match.
func getCollectorsByRegionFromFileStore(ctx context.Context, store datastore.Store, region string) ([]Collector, error) {
	q := store.NewQuery(typeCollector, false)
	var all []Collector
	_, err := store.GetAll(ctx, q, &all)
	if err != nil {
		return nil, err
	}
	var collectors []Collector
	for _, c := range all {
		if c.ServesRegion(region) {
			collectors = append(collectors, c)
		}
	}
	return collectors, nil
}

// DeleteCollector deletes a collector.
func DeleteCollector(ctx context.Context, store datastore.Store, id int64) error {
	key := store.IDKey(typeCollector, id)
	return store.DeleteMulti(ctx, []*datastore.Key{key})
}
