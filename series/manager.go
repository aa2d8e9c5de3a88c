/*
DESCRIPTION
  Series manager: owns the occurrence state machine, including
  next-occurrence regeneration on cancellation and the acceptance
  flow that triggers neighborhood notification dispatch.

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

// Package series manages the lifecycle of pickup series and their
// occurrences.
//
// Each occurrence moves through a small state machine: scheduled is
// the only live state, and registering a collection or cancelling
// moves it to the terminal collected or cancelled state. Cancelling
// the next occurrence of a recurring series regenerates a
// replacement one interval later, so a recurring series always has
// exactly one scheduled occurrence pending.
//
// Occurrence mutations are guarded by optimistic concurrency: the
// occurrence list is read with a version token and written back only
// if the token is unchanged. On a ConflictError the caller retries
// the whole operation from the read.
package series

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neutroapp/coleta/datastore"
	"github.com/neutroapp/coleta/dispatch"
	"github.com/neutroapp/coleta/matching"
	"github.com/neutroapp/coleta/model"
)

// Manager manages series and occurrence state. The dispatcher is
// optional; without one, acceptances skip notification dispatch.
type Manager struct {
	store      datastore.Store
	dispatcher *dispatch.Dispatcher
	now        func() time.Time
}

// NewManager returns a new Manager reading and writing series state
// through store and fanning out acceptance notifications through
// dispatcher, which may be nil.
func NewManager(store datastore.Store, dispatcher *dispatch.Dispatcher) *Manager {
	return &Manager{store: store, dispatcher: dispatcher, now: time.Now}
}

// CreateRequest describes a new series to create.
type CreateRequest struct {
	RequesterID    int64
	NeighborhoodID int64
	Region         string
	Kind           model.SeriesKind
	Frequency      model.Frequency // Recurring series only.
	Weekdays       []model.Weekday // Recurring series only; derived from FirstDate when empty.
	Period         model.Period
	Materials      []string
	FirstDate      time.Time
}

// Create creates a series in the pending state together with its
// initial occurrence set holding a single scheduled occurrence.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*model.Series, error) {
	const op = "create series"

	if req.Kind != model.KindSimple && req.Kind != model.KindRecurring {
		return nil, &ValidationError{op, fmt.Sprintf("unknown series kind %q", req.Kind)}
	}
	if !req.Period.Valid() {
		return nil, &ValidationError{op, fmt.Sprintf("invalid period %q", req.Period)}
	}
	if req.FirstDate.IsZero() {
		return nil, &ValidationError{op, "first date required"}
	}
	if req.Kind == model.KindRecurring && !req.Frequency.Valid() {
		return nil, &ValidationError{op, fmt.Sprintf("invalid frequency %q for recurring series", req.Frequency)}
	}
	if req.Kind == model.KindSimple && req.Frequency != "" {
		return nil, &ValidationError{op, "frequency is only valid for recurring series"}
	}
	for _, d := range req.Weekdays {
		if !d.Valid() {
			return nil, &ValidationError{op, fmt.Sprintf("invalid weekday %d", d)}
		}
	}

	weekdays := req.Weekdays
	if req.Kind == model.KindRecurring && len(weekdays) == 0 {
		weekdays = []model.Weekday{model.WeekdayOf(req.FirstDate)}
	}

	s := &model.Series{
		ID:             uuid.New().String(),
		RequesterID:    req.RequesterID,
		NeighborhoodID: req.NeighborhoodID,
		Kind:           req.Kind,
		Frequency:      req.Frequency,
		Weekdays:       weekdays,
		Period:         req.Period,
		Materials:      req.Materials,
		Region:         req.Region,
		Status:         model.SeriesPending,
		Created:        m.now(),
	}
	err := model.CreateSeries(ctx, m.store, s)
	if err != nil {
		return nil, &UpstreamError{op, err}
	}

	occ := model.Occurrence{
		ID:       uuid.New().String(),
		SeriesID: s.ID,
		Date:     req.FirstDate,
		Period:   req.Period,
		Status:   model.OccurrenceScheduled,
	}
	err = model.CreateOccurrences(ctx, m.store, s.ID, []model.Occurrence{occ})
	if err != nil {
		return nil, &UpstreamError{op, err}
	}
	return s, nil
}

// RegisterCollection records a completed pickup: the occurrence must
// be scheduled, and transitions to collected with the given payload
// and a resolution timestamp. A simple series ends once its single
// occurrence resolves. No replacement occurrence is generated;
// regeneration happens only on cancellation.
func (m *Manager) RegisterCollection(ctx context.Context, seriesID, occurrenceID string, materials, photos []string, observations string) error {
	const op = "register collection"

	s, occs, version, err := m.load(ctx, op, seriesID)
	if err != nil {
		return err
	}

	i := findOccurrence(occs, occurrenceID)
	if i < 0 {
		return &NotFoundError{Op: op, What: "occurrence " + occurrenceID}
	}
	if occs[i].Status != model.OccurrenceScheduled {
		return &ValidationError{op, fmt.Sprintf("occurrence %s is %s, not scheduled", occurrenceID, occs[i].Status)}
	}

	occs[i].Status = model.OccurrenceCollected
	occs[i].Materials = materials
	occs[i].Photos = photos
	occs[i].Observations = observations
	occs[i].Resolved = m.now()

	err = m.write(ctx, op, seriesID, occs, version)
	if err != nil {
		return err
	}
	return m.endIfSimple(ctx, op, s)
}

// CancelSimple cancels the single occurrence of a simple series and
// ends the series. The occurrence must be scheduled.
func (m *Manager) CancelSimple(ctx context.Context, seriesID, reason, note string) error {
	const op = "cancel collection"

	s, occs, version, err := m.load(ctx, op, seriesID)
	if err != nil {
		return err
	}
	if s.Kind != model.KindSimple {
		return &ValidationError{op, fmt.Sprintf("series %s is %s, not simple", seriesID, s.Kind)}
	}
	if reason == "" {
		return &ValidationError{op, "cancellation reason required"}
	}

	i := -1
	for j := range occs {
		if occs[j].Scheduled() {
			i = j
			break
		}
	}
	if i < 0 {
		return &ValidationError{op, fmt.Sprintf("series %s has no scheduled occurrence", seriesID)}
	}

	cancel(&occs[i], reason, note, model.CancelledByRequester, m.now())

	err = m.write(ctx, op, seriesID, occs, version)
	if err != nil {
		return err
	}

	s.Status = model.SeriesEnded
	err = model.PutSeries(ctx, m.store, s)
	if err != nil {
		return &UpstreamError{op, err}
	}
	return nil
}

// CancelNextOccurrence cancels the nearest future scheduled
// occurrence of a recurring series and appends a replacement one
// interval later, keeping exactly one scheduled occurrence pending.
//
// The candidate is the scheduled occurrence with the minimum date on
// or after today. If there is none, a NotFoundError is returned and
// nothing is mutated. The full occurrence list is persisted as one
// write guarded by the version token read at the start; a
// ConflictError means the caller must retry the whole operation.
func (m *Manager) CancelNextOccurrence(ctx context.Context, seriesID, reason, note string) error {
	const op = "cancel next occurrence"

	s, occs, version, err := m.load(ctx, op, seriesID)
	if err != nil {
		return err
	}
	if s.Kind != model.KindRecurring {
		return &ValidationError{op, fmt.Sprintf("series %s is %s, not recurring", seriesID, s.Kind)}
	}
	if reason == "" {
		return &ValidationError{op, "cancellation reason required"}
	}

	today := dateOnly(m.now())
	i := -1
	for j := range occs {
		if !occs[j].Scheduled() || occs[j].Date.Before(today) {
			continue
		}
		if i < 0 || occs[j].Date.Before(occs[i].Date) {
			i = j
		}
	}
	if i < 0 {
		return &NotFoundError{Op: op, What: "scheduled occurrence for series " + seriesID}
	}

	next, err := model.NextDate(s.Frequency, occs[i].Date)
	if err != nil {
		return &ValidationError{op, err.Error()}
	}

	cancel(&occs[i], reason, note, model.CancelledByRequester, m.now())
	occs = append(occs, model.Occurrence{
		ID:       uuid.New().String(),
		SeriesID: seriesID,
		Date:     next,
		Period:   occs[i].Period,
		Status:   model.OccurrenceScheduled,
	})

	return m.write(ctx, op, seriesID, occs, version)
}

// AcceptCollection commits a collector to a pending series: the
// series must be in the pending state, the collector must be
// eligible for the series' demand, and on success the series becomes
// active with the collector assigned. Acceptance then triggers
// notification dispatch to the series' neighborhood as a dependent
// step; a dispatch failure is reported as a PartialFailureError and
// never rolls back the acceptance. The count of notifications sent
// is returned.
func (m *Manager) AcceptCollection(ctx context.Context, seriesID string, collectorID int64, observations string) (int, error) {
	const op = "accept collection"

	s, occs, version, err := m.load(ctx, op, seriesID)
	if err != nil {
		return 0, err
	}
	if s.Status != model.SeriesPending {
		return 0, &ValidationError{op, fmt.Sprintf("series %s is %s, not pending", seriesID, s.Status)}
	}

	collector, err := model.GetCollector(ctx, m.store, collectorID)
	if err == datastore.ErrNoSuchEntity {
		return 0, &NotFoundError{Op: op, What: fmt.Sprintf("collector %d", collectorID), Err: err}
	}
	if err != nil {
		return 0, &UpstreamError{op, err}
	}
	demand := matching.Demand{Region: s.Region, Materials: s.Materials, Period: s.Period}
	if !matching.Eligible(collector, demand) {
		return 0, &ValidationError{op, fmt.Sprintf("collector %d is not eligible for series %s", collectorID, seriesID)}
	}

	i := -1
	for j := range occs {
		if occs[j].Scheduled() && (i < 0 || occs[j].Date.Before(occs[i].Date)) {
			i = j
		}
	}
	if i < 0 {
		return 0, &ValidationError{op, fmt.Sprintf("series %s has no scheduled occurrence", seriesID)}
	}

	if observations != "" {
		occs[i].Observations = observations
		err = m.write(ctx, op, seriesID, occs, version)
		if err != nil {
			return 0, err
		}
	}

	s.CollectorID = collectorID
	s.Status = model.SeriesActive
	err = model.PutSeries(ctx, m.store, s)
	if err != nil {
		return 0, &UpstreamError{op, err}
	}

	if m.dispatcher == nil {
		return 0, nil
	}
	sent, err := m.dispatcher.Dispatch(ctx, collectorID, s.NeighborhoodID, occs[i].Date, s.Period)
	if err != nil {
		return sent, &PartialFailureError{Op: op, Sent: sent, Err: err}
	}
	return sent, nil
}

// RejectCollection is a terminal cancellation attributed to the
// collector, distinct from requester-initiated cancellation for
// audit purposes. No replacement occurrence is generated. Rejecting
// a simple series, or a series still pending acceptance, ends it.
func (m *Manager) RejectCollection(ctx context.Context, seriesID, occurrenceID, reason string) error {
	const op = "reject collection"

	s, occs, version, err := m.load(ctx, op, seriesID)
	if err != nil {
		return err
	}
	if reason == "" {
		return &ValidationError{op, "rejection reason required"}
	}

	i := findOccurrence(occs, occurrenceID)
	if i < 0 {
		return &NotFoundError{Op: op, What: "occurrence " + occurrenceID}
	}
	if occs[i].Status != model.OccurrenceScheduled {
		return &ValidationError{op, fmt.Sprintf("occurrence %s is %s, not scheduled", occurrenceID, occs[i].Status)}
	}

	cancel(&occs[i], reason, "", model.CancelledByCollector, m.now())

	err = m.write(ctx, op, seriesID, occs, version)
	if err != nil {
		return err
	}

	if s.Kind == model.KindSimple || s.Status == model.SeriesPending {
		s.Status = model.SeriesEnded
		err = model.PutSeries(ctx, m.store, s)
		if err != nil {
			return &UpstreamError{op, err}
		}
	}
	return nil
}

// EditOccurrence updates the date, period or observations of a
// scheduled occurrence. Zero-valued fields are left unchanged.
func (m *Manager) EditOccurrence(ctx context.Context, seriesID, occurrenceID string, date time.Time, period model.Period, observations string) error {
	const op = "edit occurrence"

	_, occs, version, err := m.load(ctx, op, seriesID)
	if err != nil {
		return err
	}

	i := findOccurrence(occs, occurrenceID)
	if i < 0 {
		return &NotFoundError{Op: op, What: "occurrence " + occurrenceID}
	}
	if occs[i].Status != model.OccurrenceScheduled {
		return &ValidationError{op, fmt.Sprintf("occurrence %s is %s, not scheduled", occurrenceID, occs[i].Status)}
	}
	if period != "" && !period.Valid() {
		return &ValidationError{op, fmt.Sprintf("invalid period %q", period)}
	}

	if !date.IsZero() {
		occs[i].Date = date
	}
	if period != "" {
		occs[i].Period = period
	}
	if observations != "" {
		occs[i].Observations = observations
	}

	return m.write(ctx, op, seriesID, occs, version)
}

// load reads a series and its occurrence list with the version token
// for the subsequent guarded write.
func (m *Manager) load(ctx context.Context, op, seriesID string) (*model.Series, []model.Occurrence, int64, error) {
	s, err := model.GetSeries(ctx, m.store, seriesID)
	if err == datastore.ErrNoSuchEntity {
		return nil, nil, 0, &NotFoundError{Op: op, What: "series " + seriesID, Err: err}
	}
	if err != nil {
		return nil, nil, 0, &UpstreamError{op, err}
	}
	occs, version, err := model.ReadOccurrences(ctx, m.store, seriesID)
	if err == datastore.ErrNoSuchEntity {
		return nil, nil, 0, &NotFoundError{Op: op, What: "occurrences for series " + seriesID, Err: err}
	}
	if err != nil {
		return nil, nil, 0, &UpstreamError{op, err}
	}
	return s, occs, version, nil
}

// write persists the full occurrence list under the version guard,
// translating a version mismatch into a ConflictError.
func (m *Manager) write(ctx context.Context, op, seriesID string, occs []model.Occurrence, version int64) error {
	err := model.WriteOccurrences(ctx, m.store, seriesID, occs, version)
	if err == datastore.ErrConflict {
		return &ConflictError{Op: op, SeriesID: seriesID}
	}
	if err != nil {
		return &UpstreamError{op, err}
	}
	return nil
}

// endIfSimple marks a simple series ended once its occurrence has
// resolved.
func (m *Manager) endIfSimple(ctx context.Context, op string, s *model.Series) error {
	if s.Kind != model.KindSimple {
		return nil
	}
	s.Status = model.SeriesEnded
	err := model.PutSeries(ctx, m.store, s)
	if err != nil {
		return &UpstreamError{op, err}
	}
	return nil
}

// cancel moves an occurrence to the cancelled state with the given
// attribution.
func cancel(o *model.Occurrence, reason, note string, by model.Canceller, at time.Time) {
	o.Status = model.OccurrenceCancelled
	o.CancellationReason = reason
	if note != "" {
		o.Observations = note
	}
	o.CancelledBy = by
	o.Resolved = at
}

// findOccurrence returns the index of the occurrence with the given
// ID, or -1.
func findOccurrence(occs []model.Occurrence, id string) int {
	for i := range occs {
		if occs[i].ID == id {
			return i
		}
	}
	return -1
}

// dateOnly truncates a time to midnight in its location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
