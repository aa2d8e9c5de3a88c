/*
DESCRIPTION
  NeighborhoodNotification type and functions.

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
	"fmt"
	"time"

	"github.com/neutroapp/coleta/datastore"
)

// typeNotification is the name of the datastore notification type.
const typeNotification = "NeighborhoodNotification"

// NeighborhoodNotification represents one resident's copy of a
// fanned-out announcement that a collector will service their
// neighborhood. All copies produced by one dispatch share the same
// cohort key and creation time.
type NeighborhoodNotification struct {
	ID             string    // Notification ID (UUID).
	NeighborhoodID int64     // Neighborhood being serviced.
	CollectorID    int64     // Collector committing to the service.
	RecipientID    int64     // Resident receiving this copy.
	Date           time.Time // Date of the service.
	Period         Period    // Period of the day of the service.
	Message        string    `datastore:",noindex"` // Templated message text.
	Cohort         string    // Dedup key shared by the whole batch.
	Read           bool      // True once the resident has seen it.
	Created        time.Time // Time the batch was dispatched.
}

// Cohort returns the key identifying one dispatch cohort. Retried
// dispatches of the same (neighborhood, date, period, collector)
// produce the same cohort key, which is what callers deduplicate on.
func Cohort(neighborhoodID int64, date time.Time, period Period, collectorID int64) string {
	return fmt.Sprintf("%d.%s.%s.%d", neighborhoodID, date.Format("2006-01-02"), period, collectorID)
}

// Encode serializes a NeighborhoodNotification into JSON.
func (n *NeighborhoodNotification) Encode() []byte {
	bytes, _ := json.Marshal(n)
	return bytes
}

// Decode deserializes a NeighborhoodNotification from JSON.
func (n *NeighborhoodNotification) Decode(b []byte) error {
	return json.Unmarshal(b, n)
}

// Copy copies a notification to dst, or returns a copy of the
// notification when dst is nil.
func (n *NeighborhoodNotification) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var n2 *NeighborhoodNotification
	if dst == nil {
		n2 = new(NeighborhoodNotification)
	} else {
		var ok bool
		n2, ok = dst.(*NeighborhoodNotification)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*n2 = *n
	return n2, nil
}

// GetCache returns nil, indicating no caching.
func (n *NeighborhoodNotification) GetCache() datastore.Cache {
	return nil
}

// PutNotification creates or updates a notification.
func PutNotification(ctx context.Context, store datastore.Store, n *NeighborhoodNotification) error {
	key := store.NameKey(typeNotification, n.ID)
	_, err := store.Put(ctx, key, n)
	return err
}

// PutNotifications writes a batch of notifications in one store
// call. The error reports the batch as a whole.
func PutNotifications(ctx context.Context, store datastore.Store, batch []NeighborhoodNotification) error {
	keys := make([]*datastore.Key, len(batch))
	src := make([]datastore.Entity, len(batch))
	for i := range batch {
		keys[i] = store.NameKey(typeNotification, batch[i].ID)
		src[i] = &batch[i]
	}
	return store.PutMulti(ctx, keys, src)
}

// GetNotification returns a notification by its ID.
func GetNotification(ctx context.Context, store datastore.Store, id string) (*NeighborhoodNotification, error) {
	key := store.NameKey(typeNotification, id)
	var n NeighborhoodNotification
	err := store.Get(ctx, key, &n)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNotificationsByCohort returns all notifications created for the
// given dispatch cohort. Callers use this to deduplicate retried
// dispatches.
func GetNotificationsByCohort(ctx context.Context, store datastore.Store, cohort string) ([]NeighborhoodNotification, error) {
	// FileStore queries must be handled specially.
	_, filestore := store.(*datastore.FileStore)
	if filestore {
		return getNotificationsFromFileStore(ctx, store, func(n *NeighborhoodNotification) bool {
			return n.Cohort == cohort
		})
	}

	q := store.NewQuery(typeNotification, false)
	q.Filter("Cohort =", cohort)
	var notifications []NeighborhoodNotification
	_, err := store.GetAll(ctx, q, &notifications)
	return notifications, err
}

// GetNotificationsByRecipient returns all notifications addressed to
// the given resident.
func GetNotificationsByRecipient(ctx context.Context, store datastore.Store, recipientID int64) ([]NeighborhoodNotification, error) {
	// FileStore queries must be handled specially.
	_, filestore := store.(*datastore.FileStore)
	if filestore {
		return getNotificationsFromFileStore(ctx, store, func(n *NeighborhoodNotification) bool {
			return n.RecipientID == recipientID
		})
	}

	q := store.NewQuery(typeNotification, false)
	q.Filter("RecipientID =", recipientID)
	var notifications []NeighborhoodNotification
	_, err := store.GetAll(ctx, q, &notifications)
	return notifications, err
}

// getNotificationsFromFileStore retrieves notifications from a
// FileStore by retrieving all notifications and filtering the
// results with keep.
func getNotificationsFromFileStore(ctx context.Context, store datastore.Store, keep func(*NeighborhoodNotification) bool) ([]NeighborhoodNotification, error) {
	q := store.NewQuery(typeNotification, false)
	var all []NeighborhoodNotification
	_, err := store.GetAll(ctx, q, &all)
	if err != nil {
		return nil, err
	}
	var notifications []NeighborhoodNotification
	for _, n := range all {
		if keep(&n) {
			notifications = append(notifications, n)
		}
	}
	return notifications, nil
}

// MarkNotificationRead marks a notification as read.
func MarkNotificationRead(ctx context.Context, store datastore.Store, id string) error {
	key := store.NameKey(typeNotification, id)
	var n NeighborhoodNotification
	return store.Update(ctx, key, func(e datastore.Entity) {
		n, ok := e.(*NeighborhoodNotification)
		if ok {
			n.Read = true
		}
	}, &n)
}
