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
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "coletacron.yaml")
	err := os.WriteFile(file, []byte(`
jobs:
  - id: remind
    schedule: "0 18 * * *"
    action: remind
    data: "1"
    enabled: true
  - id: report
    schedule: "0 8 * * 1"
    action: report
    enabled: false
`), 0666)
	if err != nil {
		t.Fatalf("could not write config: %v", err)
	}

	cfg, err := loadConfig(file)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Timezone != defaultTimezone {
		t.Errorf("Timezone = %q; want default %q", cfg.Timezone, defaultTimezone)
	}
	if len(cfg.Jobs) != 2 {
		t.Fatalf("loadConfig returned %d jobs; want 2", len(cfg.Jobs))
	}
	if cfg.Jobs[0].ID != "remind" || !cfg.Jobs[0].Enabled {
		t.Errorf("unexpected first job: %+v", cfg.Jobs[0])
	}
	if cfg.Jobs[1].Enabled {
		t.Errorf("disabled job reported enabled")
	}

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Errorf("loadConfig of missing file did not return an error")
	}
}

func TestScheduler(t *testing.T) {
	s, err := newScheduler("UTC")
	if err != nil {
		t.Fatalf("newScheduler failed: %v", err)
	}

	ran := 0
	jobFuncs["test"] = func(data string) error {
		ran++
		return nil
	}
	defer delete(jobFuncs, "test")

	err = s.Set(Job{ID: "t", Schedule: "0 0 1 1 *", Action: "test", Enabled: true})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	err = s.Run("t")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if ran != 1 {
		t.Errorf("job ran %d times; want 1", ran)
	}

	// Disabling removes the schedule but keeps the job runnable.
	err = s.Set(Job{ID: "t", Schedule: "0 0 1 1 *", Action: "test", Enabled: false})
	if err != nil {
		t.Fatalf("Set of disabled job failed: %v", err)
	}
	err = s.Run("t")
	if err != nil {
		t.Fatalf("Run of disabled job failed: %v", err)
	}
	if ran != 2 {
		t.Errorf("job ran %d times; want 2", ran)
	}

	err = s.Set(Job{ID: "bad", Schedule: "0 0 1 1 *", Action: "nonesuch", Enabled: true})
	if err == nil {
		t.Errorf("Set with unknown action did not return an error")
	}
	err = s.Run("nonesuch")
	if err == nil {
		t.Errorf("Run of unknown job did not return an error")
	}

	_, err = newScheduler("No/SuchZone")
	if err == nil {
		t.Errorf("newScheduler with bogus timezone did not return an error")
	}
}
