/*
DESCRIPTION
  Datastore entity registrations.

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

// Package model defines the datastore entities of the collection
// scheduling engine and their access helpers.
package model

import (
	"github.com/neutroapp/coleta/datastore"
)

// RegisterEntities is a convenience function that registers all of
// the datastore entities in one go.
func RegisterEntities() {
	datastore.RegisterEntity(typeCollector, func() datastore.Entity { return new(Collector) })
	datastore.RegisterEntity(typeResident, func() datastore.Entity { return new(Resident) })
	datastore.RegisterEntity(typeSeries, func() datastore.Entity { return new(Series) })
	datastore.RegisterEntity(typeOccurrenceSet, func() datastore.Entity { return new(OccurrenceSet) })
	datastore.RegisterEntity(typeNotification, func() datastore.Entity { return new(NeighborhoodNotification) })
	datastore.RegisterEntity(typeAuditEntry, func() datastore.Entity { return new(AuditEntry) })
	datastore.RegisterEntity(typeVariable, func() datastore.Entity { return new(Variable) })
}
