/*
DESCRIPTION
  Matching engine: computes the collectors eligible for a demand
  descriptor.

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

// Package matching computes which collectors are eligible to service
// a pickup demand. Match is a pure function over an immutable
// directory snapshot: it holds no state, performs no I/O, and is
// safe for unlimited concurrent invocation.
package matching

import (
	"time"

	"github.com/neutroapp/coleta/model"
)

// Demand describes what a requester is asking for. Materials may be
// empty, meaning any material; the zero Period and zero Date denote
// unset constraints. Demands are transient and never persisted.
type Demand struct {
	Region    string       // Region of the pickup address.
	Materials []string     // Materials to collect; empty means any.
	Period    model.Period // Desired period of the day, if any.
	Date      time.Time    // Desired calendar date, if any.
}

// Match returns the collectors from directory that are eligible for
// demand. A collector is eligible iff it serves the demand's region,
// accepts every demanded material, and is available in the demanded
// period and on the weekday of the demanded date, where set.
//
// Match is always computed from the full directory and the complete
// constraint set, never by narrowing a previously filtered result,
// so the outcome is the intersection of all active constraints
// regardless of the order they were added. An empty result is a
// valid outcome, not an error.
func Match(directory []model.Collector, demand Demand) []model.Collector {
	matched := []model.Collector{}
	for _, c := range directory {
		if Eligible(&c, demand) {
			matched = append(matched, c)
		}
	}
	return matched
}

// Eligible reports whether a single collector satisfies every
// constraint of the demand.
func Eligible(c *model.Collector, demand Demand) bool {
	if !c.ServesRegion(demand.Region) {
		return false
	}
	if !c.Accepts(demand.Materials) {
		return false
	}
	if demand.Period != "" && !c.AvailableIn(demand.Period) {
		return false
	}
	if !demand.Date.IsZero() && !c.AvailableOn(model.WeekdayOf(demand.Date)) {
		return false
	}
	return true
}
