/*
LICENSE
  Copyright (C) 2025-2026 the Neutro Impacto Verde project.

  This file is part of Coleta. Coleta is free software: you can
  redistribute it and/or modify it under the terms of the GNU
  General Public License as published by the Free Software
  Foundation, either version 3 of the License, or (at your option)
  any later version.

  Coleta is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  along with Coleta in gpl.txt.  If not, see
  <http://www.gnu.org/licenses/>.
*/

// Coleta is the web service exposing the recurring collection
// scheduling and dispatch engine: collector matching, series and
// occurrence lifecycle operations, and neighborhood notification
// dispatch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/neutroapp/coleta/datastore"
	"github.com/neutroapp/coleta/dispatch"
	"github.com/neutroapp/coleta/model"
	"github.com/neutroapp/coleta/series"
)

// Project constants.
const (
	projectID = "coleta"
	version   = "v0.2.0"
)

// service defines the properties of our web service.
type service struct {
	setupMutex sync.Mutex
	store      datastore.Store
	manager    *series.Manager
	dispatcher *dispatch.Dispatcher
	debug      bool
	standalone bool
	storePath  string
}

// svc is an instance of our service.
var svc *service = &service{}

func main() {
	defaultPort := 8080
	v := os.Getenv("PORT")
	if v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			defaultPort = i
		}
	}

	var host string
	var port int
	flag.BoolVar(&svc.debug, "debug", false, "Run in debug mode.")
	flag.BoolVar(&svc.standalone, "standalone", false, "Run in standalone mode.")
	flag.StringVar(&host, "host", "localhost", "Host we run on in standalone mode")
	flag.IntVar(&port, "port", defaultPort, "Port we listen on in standalone mode")
	flag.StringVar(&svc.storePath, "filestore", "store", "File store path")
	flag.Parse()

	// Perform one-time setup or bail.
	ctx := context.Background()
	svc.setup(ctx)

	// Create app.
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})

	// Recover from panics.
	app.Use(recover.New())

	// CORS policy. The engine fronts a mobile app and a web client.
	app.Use(cors.New(cors.Config{AllowOrigins: "*"}))

	// Log requests in debug mode.
	if svc.debug {
		app.Use(func(c *fiber.Ctx) error {
			log.Printf("%s %s", c.Method(), c.Path())
			return c.Next()
		})
	}

	registerAPIRoutes(app)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(projectID + " " + version)
	})

	listenOn := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Listening on %s", listenOn)
	log.Fatal(app.Listen(listenOn))
}

// setup executes per-instance one-time initialization of the
// datastore, series manager and dispatcher. Any errors are
// considered fatal.
func (s *service) setup(ctx context.Context) {
	s.setupMutex.Lock()
	defer s.setupMutex.Unlock()

	if s.store != nil {
		return
	}

	model.RegisterEntities()

	var err error
	if s.standalone {
		log.Printf("Running in standalone mode")
		s.store, err = datastore.NewStore(ctx, "file", projectID, s.storePath)
	} else {
		log.Printf("Running in cloud mode")
		s.store, err = datastore.NewStore(ctx, "cloud", projectID, "")
	}
	if err != nil {
		log.Fatalf("could not set up datastore: %v", err)
	}

	s.dispatcher = dispatch.NewDispatcher(s.store)
	s.manager = series.NewManager(s.store, s.dispatcher)
}
