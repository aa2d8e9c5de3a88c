/*
DESCRIPTION
  Variable type and functions. Variables store arbitrary string
  state keyed by scope and name, such as the send-throttling
  timestamps used by the ops notifier.

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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/neutroapp/coleta/datastore"
)

// typeVariable is the name of the datastore variable type.
const typeVariable = "Variable"

// Variable represents a scoped string variable. Variables whose
// names start with an underscore are system variables, hidden from
// users.
type Variable struct {
	Scope   string    // Namespace, e.g. a service name.
	Name    string    // Variable name.
	Value   string    `datastore:",noindex"` // Variable value.
	Updated time.Time // Date/time last updated.
}

// Encode serializes a Variable into tab-separated values.
func (v *Variable) Encode() []byte {
	return []byte(fmt.Sprintf("%s\t%s\t%s\t%d", v.Scope, v.Name, v.Value, v.Updated.Unix()))
}

// Decode deserializes a Variable from tab-separated values.
func (v *Variable) Decode(b []byte) error {
	p := strings.Split(string(b), "\t")
	if len(p) != 4 {
		return datastore.ErrDecoding
	}
	v.Scope = p[0]
	v.Name = p[1]
	v.Value = p[2]
	ts, err := strconv.ParseInt(p[3], 10, 64)
	if err != nil {
		return datastore.ErrDecoding
	}
	v.Updated = time.Unix(ts, 0)
	return nil
}

// Copy copies a variable to dst, or returns a copy of the variable when dst is nil.
func (v *Variable) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var v2 *Variable
	if dst == nil {
		v2 = new(Variable)
	} else {
		var ok bool
		v2, ok = dst.(*Variable)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*v2 = *v
	return v2, nil
}

// GetCache returns nil, indicating no caching.
func (v *Variable) GetCache() datastore.Cache {
	return nil
}

// IsSystemVariable returns true if the variable is a system
// variable, false otherwise.
func (v *Variable) IsSystemVariable() bool {
	return strings.HasPrefix(v.Name, "_")
}

// PutVariable creates or updates a variable, automatically stamping
// the update time.
func PutVariable(ctx context.Context, store datastore.Store, scope, name, value string) error {
	v := Variable{Scope: scope, Name: name, Value: value, Updated: time.Now()}
	key := store.NameKey(typeVariable, scope+"."+name)
	_, err := store.Put(ctx, key, &v)
	return err
}

// GetVariable returns a variable by scope and name.
func GetVariable(ctx context.Context, store datastore.Store, scope, name string) (*Variable, error) {
	key := store.NameKey(typeVariable, scope+"."+name)
	var v Variable
	err := store.Get(ctx, key, &v)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVariable deletes a variable.
func DeleteVariable(ctx context.Context, store datastore.Store, scope, name string) error {
	key := store.NameKey(typeVariable, scope+"."+name)
	return store.DeleteMulti(ctx, []*datastore.Key{key})
}
