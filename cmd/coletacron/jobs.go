/*
LICENSE
  Copyright (C) 2025-2026 the Neutro Impacto Verde project.

  This file is part of Coleta Cron. Coleta Cron is free software: you
  can redistribute it and/or modify it under the terms of the GNU
  General Public License as published by the Free Software
  Foundation, either version 3 of the License, or (at your option)
  any later version.

  Coleta Cron is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  along with Coleta Cron in gpl.txt.  If not, see
  <http://www.gnu.org/licenses/>.
*/

package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/neutroapp/coleta/model"
	"github.com/neutroapp/coleta/notify"
)

// jobFuncs maps action names used in the job configuration to
// functions. Each function receives the job's data string.
var jobFuncs = map[string]func(string) error{
	"remind": remindUpcoming,
	"report": reportStale,
}

// remindUpcoming re-announces every scheduled occurrence of every
// active series falling a number of days from now, one day by
// default. Dispatch failures are reported to ops and do not stop the
// scan; the job reports the first failure after visiting every
// series.
func remindUpcoming(data string) error {
	lead := 1
	if data != "" {
		i, err := strconv.Atoi(data)
		if err != nil {
			return fmt.Errorf("invalid remind lead %q: %w", data, err)
		}
		lead = i
	}

	ctx := context.Background()
	target := dateOnly(time.Now().AddDate(0, 0, lead))

	active, err := model.GetSeriesByStatus(ctx, settingsStore, model.SeriesActive)
	if err != nil {
		return fmt.Errorf("could not get active series: %w", err)
	}

	var sent int
	var firstErr error
	for i := range active {
		s := &active[i]
		occs, _, err := model.ReadOccurrences(ctx, settingsStore, s.ID)
		if err != nil {
			logAndNotify(ctx, notify.Dispatch, "remind: could not read occurrences for series %s: %v", s.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, o := range occs {
			if o.Status != model.OccurrenceScheduled || !dateOnly(o.Date).Equal(target) {
				continue
			}
			n, err := dispatcher.Dispatch(ctx, s.CollectorID, s.NeighborhoodID, o.Date, o.Period)
			sent += n
			if err != nil {
				logAndNotify(ctx, notify.Dispatch, "remind: dispatch failed for series %s: %v", s.ID, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	log.Printf("remind: sent %d reminders for %s", sent, target.Format("2006-01-02"))
	return firstErr
}

// reportStale emails ops a summary of pending series older than a
// number of days, three by default. These are requests no collector
// has picked up.
func reportStale(data string) error {
	maxAge := 3
	if data != "" {
		i, err := strconv.Atoi(data)
		if err != nil {
			return fmt.Errorf("invalid report age %q: %w", data, err)
		}
		maxAge = i
	}

	ctx := context.Background()
	cutoff := time.Now().AddDate(0, 0, -maxAge)

	pending, err := model.GetSeriesByStatus(ctx, settingsStore, model.SeriesPending)
	if err != nil {
		return fmt.Errorf("could not get pending series: %w", err)
	}

	var stale int
	for i := range pending {
		if pending[i].Created.Before(cutoff) {
			stale++
		}
	}
	if stale == 0 {
		return nil
	}

	msg := fmt.Sprintf("%d series pending for more than %d days without a collector", stale, maxAge)
	log.Print("report: " + msg)
	return notifier.Send(ctx, projectID, notify.Health, msg)
}

// logAndNotify logs a formatted message and sends it to ops,
// throttled by the notifier's time store.
func logAndNotify(ctx context.Context, kind notify.Kind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	err := notifier.Send(ctx, projectID, kind, msg)
	if err != nil {
		log.Printf("could not notify ops: %v", err)
	}
}

// dateOnly strips the time of day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
