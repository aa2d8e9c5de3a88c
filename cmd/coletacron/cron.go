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
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	cron "github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// defaultTimezone is the IANA Time Zone database location used when
// the configuration does not name one.
const defaultTimezone = "America/Sao_Paulo"

// Job describes one scheduled job. Disabled jobs are removed from the
// scheduler but keep their configuration so they can still be run
// manually via /cron/.
type Job struct {
	ID       string `yaml:"id"`
	Schedule string `yaml:"schedule"`
	Action   string `yaml:"action"`
	Data     string `yaml:"data"`
	Enabled  bool   `yaml:"enabled"`
}

// Config is the top-level job configuration.
type Config struct {
	Timezone string `yaml:"timezone"`
	Jobs     []Job  `yaml:"jobs"`
}

// loadConfig reads the YAML job configuration from file.
func loadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}
	return &cfg, nil
}

// scheduler implements a job scheduler based on robfig/cron.
type scheduler struct {
	cron *cron.Cron

	mu sync.Mutex
	// ids is a mapping from job ID to cron entry ID.
	ids map[string]cron.EntryID
	// jobs is a mapping from job ID to job state.
	jobs map[string]Job
}

// newScheduler returns a new scheduler running in the given timezone.
func newScheduler(timezone string) (*scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	c := cron.New(cron.WithLocation(loc))
	c.Start() // We will not stop the cron.
	return &scheduler{
		cron: c,
		ids:  make(map[string]cron.EntryID),
		jobs: make(map[string]Job),
	}, nil
}

// Set installs, updates or removes a job from the scheduler based on
// the state of job. Disabled jobs are removed from schedule but
// remain known for manual runs.
func (s *scheduler) Set(job Job) error {
	log.Printf("setting job: %s", job.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.ids[job.ID]
	if ok {
		s.cron.Remove(id)
		delete(s.ids, job.ID)
	}
	s.jobs[job.ID] = job

	if !job.Enabled {
		log.Printf("job %s disabled", job.ID)
		return nil
	}

	action, err := s.action(job)
	if err != nil {
		return err
	}
	id, err = s.cron.AddFunc(job.Schedule, action)
	if err != nil {
		return fmt.Errorf("could not schedule job %s: %w", job.ID, err)
	}
	s.ids[job.ID] = id
	return nil
}

// Run runs a job immediately, regardless of whether it is enabled.
func (s *scheduler) Run(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no job %q", name)
	}
	action, err := s.action(job)
	if err != nil {
		return err
	}
	action()
	return nil
}

// action builds the runnable for a job from its action name.
func (s *scheduler) action(job Job) (func(), error) {
	fn, ok := jobFuncs[job.Action]
	if !ok {
		return nil, fmt.Errorf("no action %q for job %s", job.Action, job.ID)
	}
	return func() {
		log.Printf("job run: %s (%s)", job.ID, job.Action)
		err := fn(job.Data)
		if err != nil {
			log.Printf("job %s: %v", job.ID, err)
		}
	}, nil
}
