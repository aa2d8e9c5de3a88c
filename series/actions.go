/*
DESCRIPTION
  Tagged action variants for workflow operations on a series.

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

package series

import (
	"context"
	"fmt"
	"time"

	"github.com/neutroapp/coleta/model"
)

// Action is the sealed interface implemented by workflow action
// variants. Each variant carries the narrow payload of one action
// kind, replacing loosely shaped dynamic payloads with statically
// checked ones.
type Action interface {
	action()
}

// RegisterAction records a completed pickup.
type RegisterAction struct {
	SeriesID     string
	OccurrenceID string
	Materials    []string
	Photos       []string
	Observations string
}

// EditAction updates a scheduled occurrence.
type EditAction struct {
	SeriesID     string
	OccurrenceID string
	Date         time.Time
	Period       model.Period
	Observations string
}

// CancelAction cancels a pickup: the single occurrence of a simple
// series, or the next occurrence of a recurring one.
type CancelAction struct {
	SeriesID string
	Reason   string
	Note     string
}

// AcceptAction commits a collector to a pending series.
type AcceptAction struct {
	SeriesID     string
	CollectorID  int64
	Observations string
}

// RejectAction is a collector-attributed terminal cancellation.
type RejectAction struct {
	SeriesID     string
	OccurrenceID string
	Reason       string
}

func (RegisterAction) action() {}
func (EditAction) action()     {}
func (CancelAction) action()   {}
func (AcceptAction) action()   {}
func (RejectAction) action()   {}

// Apply dispatches an action variant to the corresponding manager
// operation and returns the count of notifications sent, which is
// zero for everything but acceptance. A CancelAction is routed by
// series kind: simple series take the simple cancellation, recurring
// series the next-occurrence cancellation with regeneration.
func (m *Manager) Apply(ctx context.Context, action Action) (int, error) {
	switch a := action.(type) {
	case RegisterAction:
		return 0, m.RegisterCollection(ctx, a.SeriesID, a.OccurrenceID, a.Materials, a.Photos, a.Observations)
	case EditAction:
		return 0, m.EditOccurrence(ctx, a.SeriesID, a.OccurrenceID, a.Date, a.Period, a.Observations)
	case CancelAction:
		s, _, _, err := m.load(ctx, "cancel", a.SeriesID)
		if err != nil {
			return 0, err
		}
		if s.Kind == model.KindSimple {
			return 0, m.CancelSimple(ctx, a.SeriesID, a.Reason, a.Note)
		}
		return 0, m.CancelNextOccurrence(ctx, a.SeriesID, a.Reason, a.Note)
	case AcceptAction:
		return m.AcceptCollection(ctx, a.SeriesID, a.CollectorID, a.Observations)
	case RejectAction:
		return 0, m.RejectCollection(ctx, a.SeriesID, a.OccurrenceID, a.Reason)
	default:
		return 0, &ValidationError{"apply action", fmt.Sprintf("unknown action type %T", action)}
	}
}
