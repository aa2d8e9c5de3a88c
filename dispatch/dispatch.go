/*
DESCRIPTION
  Neighborhood notification dispatcher: fans out one notification
  per resident of a neighborhood when a collector commits to
  servicing it.

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

// Package dispatch implements the neighborhood notification
// dispatcher. A dispatch resolves the audience of a neighborhood,
// writes one notification record per resident in chunked batches,
// and records an audit entry as a best-effort side channel.
//
// Dispatch is at-least-once: a retry after a partial failure may
// duplicate notifications. All records of one dispatch share a
// cohort key (see model.Cohort), which is what callers deduplicate
// on when they retry.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/neutroapp/coleta/datastore"
	"github.com/neutroapp/coleta/model"
)

// Dispatch defaults.
const (
	defaultChunkSize   = 500
	defaultParallelism = 4
)

// UpstreamError reports a failure talking to the store part way
// through a dispatch. Confirmed counts the notifications from chunks
// that were confirmed written, so the caller can decide whether to
// retry the remainder.
type UpstreamError struct {
	Op        string // Operation that failed.
	Confirmed int    // Notifications confirmed written.
	Err       error  // Underlying store error.
}

// Error returns an error string for errors of type UpstreamError.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v (%d notifications confirmed)", e.Op, e.Err, e.Confirmed)
}

// Unwrap returns the underlying store error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Dispatcher fans out neighborhood notifications.
type Dispatcher struct {
	store       datastore.Store
	chunkSize   int
	parallelism int
	now         func() time.Time
}

// Option is a functional option supplied to NewDispatcher.
type Option func(*Dispatcher)

// WithChunkSize sets the number of notifications written per store
// call.
func WithChunkSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithParallelism bounds the number of chunks in flight at once.
func WithParallelism(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.parallelism = n
		}
	}
}

// WithClock overrides the dispatcher's clock, for testing.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher returns a new Dispatcher writing to the given store.
func NewDispatcher(store datastore.Store, options ...Option) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		chunkSize:   defaultChunkSize,
		parallelism: defaultParallelism,
		now:         time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Dispatch notifies every resident of the given neighborhood that
// the given collector will service it on the given date and period,
// and returns the number of notifications created.
//
// Zero residents is a valid outcome: the count is zero and the error
// nil. Chunks are written concurrently with bounded parallelism;
// cancelling ctx stops further chunks from being issued but does not
// roll back chunks already committed. A mid-batch failure, or a
// cancellation that left part of the batch unwritten, is reported as
// an UpstreamError carrying the confirmed count.
//
// The audit entry describing the dispatch is best effort: a failure
// to write it is logged and swallowed, never failing the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, collectorID, neighborhoodID int64, date time.Time, period model.Period) (int, error) {
	collector, err := model.GetCollector(ctx, d.store, collectorID)
	if err != nil {
		return 0, fmt.Errorf("could not get collector %d: %w", collectorID, err)
	}

	residents, err := model.GetResidentsByNeighborhood(ctx, d.store, neighborhoodID)
	if err != nil {
		return 0, &UpstreamError{Op: "dispatch: read residents", Err: err}
	}

	cohort := model.Cohort(neighborhoodID, date, period, collectorID)
	if len(residents) == 0 {
		d.audit(ctx, collectorID, neighborhoodID, cohort, 0)
		return 0, nil
	}

	created := d.now()
	msg := fmt.Sprintf("%s will be collecting in your neighborhood on %s in the %s.",
		collector.Name, date.Format("2006-01-02"), period)

	batch := make([]model.NeighborhoodNotification, len(residents))
	for i, r := range residents {
		batch[i] = model.NeighborhoodNotification{
			ID:             uuid.New().String(),
			NeighborhoodID: neighborhoodID,
			CollectorID:    collectorID,
			RecipientID:    r.ID,
			Date:           date,
			Period:         period,
			Message:        msg,
			Cohort:         cohort,
			Created:        created,
		}
	}

	var confirmed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism)
	for start := 0; start < len(batch); start += d.chunkSize {
		// Stop issuing chunks once cancelled or a chunk has failed.
		if gctx.Err() != nil {
			break
		}
		end := start + d.chunkSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]
		g.Go(func() error {
			err := model.PutNotifications(gctx, d.store, chunk)
			if err != nil {
				return err
			}
			confirmed.Add(int64(len(chunk)))
			return nil
		})
	}
	err = g.Wait()
	sent := int(confirmed.Load())
	if err == nil && sent < len(batch) {
		// Cancellation stopped chunks from being issued; not a success.
		err = ctx.Err()
	}
	d.audit(ctx, collectorID, neighborhoodID, cohort, sent)
	if err != nil {
		return sent, &UpstreamError{Op: "dispatch: write notifications", Confirmed: sent, Err: err}
	}

	return sent, nil
}

// audit records the triggering action as a best-effort side channel:
// a failure to write the entry is logged and swallowed, never failing
// the dispatch it describes. Every dispatch leaves an entry, whether
// it wrote all, some or none of its notifications, so the write is
// detached from the dispatch's cancellation.
func (d *Dispatcher) audit(ctx context.Context, collectorID, neighborhoodID int64, cohort string, sent int) {
	entry := model.AuditEntry{
		ActorID:        collectorID,
		Action:         "dispatch",
		NeighborhoodID: neighborhoodID,
		Note:           fmt.Sprintf("sent %d notifications for cohort %s", sent, cohort),
	}
	err := model.PutAuditEntry(context.WithoutCancel(ctx), d.store, &entry)
	if err != nil {
		log.Printf("could not write audit entry for cohort %s: %v", cohort, err)
	}
}
