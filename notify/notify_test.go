/*
DESCRIPTION
  notify tests.

AUTHORS
  Rodrigo Gan <rodrigo@neutro.app>

LICENSE
  Copyright (C) 2025-2026 the Neutro Impacto Verde project.

  This file is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  This is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY
  or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public
  License for more details.

  You should have received a copy of the GNU General Public License in
  gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/neutroapp/coleta/datastore"
	"github.com/neutroapp/coleta/model"
)

const (
	testScope  = "coletacron"
	testPeriod = 100 * time.Millisecond
)

// testStore implements TimeStore in memory, recording sent times per
// scope and key.
type testStore struct {
	sent map[string]time.Time
}

func newTestStore() *testStore {
	return &testStore{sent: make(map[string]time.Time)}
}

func (ts *testStore) Sendable(ctx context.Context, scope string, period time.Duration, key string) (bool, error) {
	at, ok := ts.sent[scope+"."+key]
	if !ok {
		return true, nil
	}
	return time.Since(at) >= period, nil
}

func (ts *testStore) Sent(ctx context.Context, scope, key string) error {
	ts.sent[scope+"."+key] = time.Now()
	return nil
}

// TestSend exercises sending with filtering and throttling. Without
// mailjet keys no actual email results, which is the point.
func TestSend(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	var n Notifier
	err := n.Init(WithRecipient("ops@neutro.app"), WithStore(store), WithPeriod(testPeriod))
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	err = n.Send(ctx, testScope, Health, "service degraded")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	first, ok := store.sent[testScope+".health.ops@neutro.app"]
	if !ok {
		t.Fatalf("Send did not record the message")
	}

	// A second send within the period is suppressed.
	err = n.Send(ctx, testScope, Health, "service degraded")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !store.sent[testScope+".health.ops@neutro.app"].Equal(first) {
		t.Errorf("throttled send was recorded")
	}

	// A different kind is throttled independently.
	err = n.Send(ctx, testScope, Dispatch, "fan-out failed")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, ok := store.sent[testScope+".dispatch.ops@neutro.app"]; !ok {
		t.Errorf("send of a different kind was suppressed")
	}

	// After the period elapses the message is sendable again.
	time.Sleep(testPeriod)
	err = n.Send(ctx, testScope, Health, "service degraded")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if store.sent[testScope+".health.ops@neutro.app"].Equal(first) {
		t.Errorf("send after period was suppressed")
	}
}

func TestSendFiltered(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	var n Notifier
	err := n.Init(WithRecipient("ops@neutro.app"), WithStore(store), WithFilter("dispatch"))
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	err = n.Send(ctx, testScope, Health, "unrelated message")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(store.sent) != 0 {
		t.Errorf("filtered message was sent")
	}

	err = n.Send(ctx, testScope, Dispatch, "dispatch fan-out failed")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(store.sent) != 1 {
		t.Errorf("matching message was not sent")
	}
}

// TestTimeStore exercises the datastore-backed TimeStore against a
// file store.
func TestTimeStore(t *testing.T) {
	ctx := context.Background()
	model.RegisterEntities()

	store, err := datastore.NewStore(ctx, "file", "coleta", t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	ts := NewStore(store)

	sendable, err := ts.Sendable(ctx, testScope, testPeriod, "health.ops")
	if err != nil {
		t.Fatalf("Sendable failed: %v", err)
	}
	if !sendable {
		t.Errorf("first message reported unsendable")
	}

	err = ts.Sent(ctx, testScope, "health.ops")
	if err != nil {
		t.Fatalf("Sent failed: %v", err)
	}

	sendable, err = ts.Sendable(ctx, testScope, time.Hour, "health.ops")
	if err != nil {
		t.Fatalf("Sendable failed: %v", err)
	}
	if sendable {
		t.Errorf("message within period reported sendable")
	}

	// The sent time is kept in a private variable.
	v, err := model.GetVariable(ctx, store, testScope, "_health.ops")
	if err != nil {
		t.Fatalf("GetVariable failed: %v", err)
	}
	if v.Updated.IsZero() {
		t.Errorf("sent time not recorded")
	}
}
