/*
DESCRIPTION
  Calendar types shared by collectors, series and occurrences:
  weekdays, periods of the day, and recurrence frequencies.

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
	"errors"
	"time"
)

// Weekday represents an ISO 8601 weekday number, Monday = 1 through
// Sunday = 7. Weekdays are always derived from dates numerically and
// never from locale-formatted day names, so availability checks
// cannot be skewed by display conventions.
type Weekday int

// Weekday values.
const (
	Monday Weekday = 1 + iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeekdayOf returns the ISO weekday of the given date.
func WeekdayOf(t time.Time) Weekday {
	d := int(t.Weekday())
	if d == 0 {
		d = 7
	}
	return Weekday(d)
}

// Valid returns true for weekdays in the range Monday..Sunday.
func (d Weekday) Valid() bool {
	return Monday <= d && d <= Sunday
}

// String returns a fixed three-letter English abbreviation, Mon..Sun.
func (d Weekday) String() string {
	if !d.Valid() {
		return "???"
	}
	return weekdayNames[d-1]
}

// Period represents a period of the day during which a collection
// takes place.
type Period string

// Period values.
const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
)

// Valid returns true for recognized periods. The empty period is not
// valid; it denotes an unset constraint.
func (p Period) Valid() bool {
	switch p {
	case Morning, Afternoon, Evening:
		return true
	}
	return false
}

// Frequency represents the cadence of a recurring series.
type Frequency string

// Frequency values.
const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

// Valid returns true for recognized frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

// ErrInvalidFrequency is returned by NextDate for unknown frequencies.
var ErrInvalidFrequency = errors.New("invalid frequency")

// NextDate returns the date of the occurrence that follows one
// scheduled on the given date: 7 days later for weekly series, 14
// for biweekly, and one calendar month for monthly. Monthly
// intervals clamp to the last valid day of the target month when the
// source day of month does not exist there, e.g. Jan 31 plus one
// month is the last day of February, never the start of March.
func NextDate(f Frequency, date time.Time) (time.Time, error) {
	switch f {
	case Weekly:
		return date.AddDate(0, 0, 7), nil
	case Biweekly:
		return date.AddDate(0, 0, 14), nil
	case Monthly:
		y, m, d := date.Date()
		last := daysIn(y, m+1)
		if d > last {
			d = last
		}
		return time.Date(y, m+1, d, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location()), nil
	}
	return time.Time{}, ErrInvalidFrequency
}

// daysIn returns the number of days in the given month. The month
// may lie outside January..December; time.Date normalizes it.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
