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

// Coleta Cron is a cloud service running scheduled jobs for the
// collection engine, notably day-before pickup reminders.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/neutroapp/coleta/datastore"
	"github.com/neutroapp/coleta/dispatch"
	"github.com/neutroapp/coleta/model"
	"github.com/neutroapp/coleta/notify"
)

const (
	projectID = "coletacron"
	version   = "v0.2.0"
)

var (
	setupMutex    sync.Mutex
	settingsStore datastore.Store
	dispatcher    *dispatch.Dispatcher
	jobScheduler  *scheduler
	notifier      notify.Notifier
	debug         bool
	standalone    bool
	configFile    string
	storePath     string
)

func main() {
	defaultPort := 8081
	v := os.Getenv("PORT")
	if v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			defaultPort = i
		}
	}

	var host string
	var port int
	flag.BoolVar(&debug, "debug", false, "Run in debug mode.")
	flag.BoolVar(&standalone, "standalone", false, "Run in standalone mode.")
	flag.StringVar(&host, "host", "localhost", "Host we run on in standalone mode")
	flag.IntVar(&port, "port", defaultPort, "Port we listen on in standalone mode")
	flag.StringVar(&configFile, "config", "coletacron.yaml", "Job configuration file")
	flag.StringVar(&storePath, "filestore", "store", "File store path")
	flag.Parse()

	// Perform one-time setup or bail.
	ctx := context.Background()
	setup(ctx)

	http.HandleFunc("/_ah/warmup", warmupHandler)
	http.HandleFunc("/cron/", cronHandler)
	http.HandleFunc("/", indexHandler)

	log.Printf("Listening on %s:%d", host, port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf("%s:%d", host, port), nil))
}

// warmupHandler handles App Engine warmup requests. It simply ensures
// that the instance is loaded.
func warmupHandler(w http.ResponseWriter, r *http.Request) {
	indexHandler(w, r)
}

// indexHandler handles requests for the home page and is here just to
// test that the service is running.
func indexHandler(w http.ResponseWriter, r *http.Request) {
	logRequest(r)
	w.Write([]byte(projectID + " " + version))
}

// cronHandler runs a configured job immediately, bypassing its
// schedule. The job name is the final path component, e.g.
// /cron/remind.
func cronHandler(w http.ResponseWriter, r *http.Request) {
	logRequest(r)
	name := strings.TrimPrefix(r.URL.Path, "/cron/")
	err := jobScheduler.Run(name)
	if err != nil {
		log.Printf("could not run job %s: %v", name, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fmt.Fprint(w, "OK")
}

// setup executes per-instance one-time initialization of the
// datastore, the dispatcher, the ops notifier, and the job
// scheduler. Any errors are considered fatal.
func setup(ctx context.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	if settingsStore != nil {
		return
	}

	model.RegisterEntities()

	var err error
	if standalone {
		log.Printf("Running in standalone mode")
		settingsStore, err = datastore.NewStore(ctx, "file", projectID, storePath)
	} else {
		log.Printf("Running in cloud mode")
		settingsStore, err = datastore.NewStore(ctx, "cloud", projectID, "")
	}
	if err != nil {
		log.Fatalf("could not set up datastore: %v", err)
	}

	dispatcher = dispatch.NewDispatcher(settingsStore)

	secrets := map[string]string{
		"mailjetPublicKey":  os.Getenv("MAILJET_PUBLIC_KEY"),
		"mailjetPrivateKey": os.Getenv("MAILJET_PRIVATE_KEY"),
	}
	recipient, period := notify.GetOpsEnvVars()
	err = notifier.Init(
		notify.WithSecrets(secrets),
		notify.WithRecipient(recipient),
		notify.WithPeriod(period),
		notify.WithStore(notify.NewStore(settingsStore)),
	)
	if err != nil {
		log.Fatalf("could not set up notifier: %v", err)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("could not load config %s: %v", configFile, err)
	}

	jobScheduler, err = newScheduler(cfg.Timezone)
	if err != nil {
		log.Fatalf("could not create job scheduler: %v", err)
	}
	for _, job := range cfg.Jobs {
		err = jobScheduler.Set(job)
		if err != nil {
			log.Fatalf("could not set job %s: %v", job.ID, err)
		}
	}
}

// logRequest logs a request if in debug mode.
func logRequest(r *http.Request) {
	if !debug {
		return
	}
	log.Printf("%s %s", r.Method, r.URL.Path)
}
