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

package main

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	pkgerrors "github.com/pkg/errors"

	"github.com/neutroapp/coleta/datastore"
	"github.com/neutroapp/coleta/dispatch"
	"github.com/neutroapp/coleta/matching"
	"github.com/neutroapp/coleta/model"
	"github.com/neutroapp/coleta/series"
)

// dateFormat is the wire format for dates. Dates carry no time of
// day; the period field carries the within-day slot.
const dateFormat = "2006-01-02"

// registerAPIRoutes registers handlers for the /api routes.
func registerAPIRoutes(app *fiber.App) {
	v1 := app.Group("/api/v1")

	v1.Get("/collectors/match", matchHandler)

	v1.Post("/series", createSeriesHandler)
	v1.Get("/series/:id", getSeriesHandler)
	v1.Get("/series/:id/occurrences", getOccurrencesHandler)
	v1.Post("/series/:id/accept", acceptHandler)
	v1.Post("/series/:id/reject", rejectHandler)
	v1.Post("/series/:id/cancel", cancelHandler)
	v1.Post("/series/:id/occurrences/:oid/register", registerHandler)
	v1.Post("/series/:id/occurrences/:oid", editOccurrenceHandler)

	v1.Post("/dispatch", dispatchHandler)
	v1.Get("/notifications", notificationsHandler)
	v1.Post("/notifications/:id/read", markReadHandler)
}

// errorHandler maps service errors onto HTTP statuses. Validation
// failures are client errors, missing entities are 404s, optimistic
// concurrency conflicts are 409s, and datastore failures during
// fan-out are upstream errors.
func errorHandler(c *fiber.Ctx, err error) error {
	var ve *series.ValidationError
	var nfe *series.NotFoundError
	var ce *series.ConflictError
	var sue *series.UpstreamError
	var due *dispatch.UpstreamError
	var fe *fiber.Error

	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &ve):
		status = fiber.StatusBadRequest
	case errors.As(err, &nfe), errors.Is(err, datastore.ErrNoSuchEntity):
		status = fiber.StatusNotFound
	case errors.As(err, &ce), errors.Is(err, datastore.ErrConflict):
		status = fiber.StatusConflict
	case errors.As(err, &sue), errors.As(err, &due):
		status = fiber.StatusBadGateway
	case errors.As(err, &fe):
		status = fe.Code
	}

	if status == fiber.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// matchHandler returns the collectors eligible for a demand. The
// result is recomputed from the collector directory on every call and
// never persisted.
func matchHandler(c *fiber.Ctx) error {
	region := c.Query("region")
	if region == "" {
		return fiber.NewError(fiber.StatusBadRequest, "region required")
	}

	demand := matching.Demand{Region: region, Period: model.Period(c.Query("period"))}
	if m := c.Query("materials"); m != "" {
		demand.Materials = strings.Split(m, ",")
	}
	if d := c.Query("date"); d != "" {
		date, err := time.Parse(dateFormat, d)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date: "+d)
		}
		demand.Date = date
	}

	directory, err := model.GetCollectorsByRegion(c.Context(), svc.store, region)
	if err != nil {
		return &series.UpstreamError{Op: "match collectors", Err: pkgerrors.Wrap(err, "could not read collector directory")}
	}
	return c.JSON(matching.Match(directory, demand))
}

// createSeriesRequest is the body of POST /api/v1/series.
type createSeriesRequest struct {
	RequesterID    int64            `json:"requesterId"`
	NeighborhoodID int64            `json:"neighborhoodId"`
	Region         string           `json:"region"`
	Kind           model.SeriesKind `json:"kind"`
	Frequency      model.Frequency  `json:"frequency,omitempty"`
	Weekdays       []model.Weekday  `json:"weekdays,omitempty"`
	Period         model.Period     `json:"period"`
	Materials      []string         `json:"materials"`
	FirstDate      string           `json:"firstDate"`
}

func createSeriesHandler(c *fiber.Ctx) error {
	var req createSeriesRequest
	err := c.BodyParser(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	first, err := time.Parse(dateFormat, req.FirstDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid first date: "+req.FirstDate)
	}

	s, err := svc.manager.Create(c.Context(), series.CreateRequest{
		RequesterID:    req.RequesterID,
		NeighborhoodID: req.NeighborhoodID,
		Region:         req.Region,
		Kind:           req.Kind,
		Frequency:      req.Frequency,
		Weekdays:       req.Weekdays,
		Period:         req.Period,
		Materials:      req.Materials,
		FirstDate:      first,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

func getSeriesHandler(c *fiber.Ctx) error {
	s, err := model.GetSeries(c.Context(), svc.store, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func getOccurrencesHandler(c *fiber.Ctx) error {
	occs, version, err := model.ReadOccurrences(c.Context(), svc.store, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"version": version, "occurrences": occs})
}

// acceptHandler activates a pending series on behalf of a collector
// and fans notifications out to the neighborhood. Acceptance that
// succeeds but fails partway through fan-out is reported as 202 with
// the confirmed count, since the series is already active.
func acceptHandler(c *fiber.Ctx) error {
	var req struct {
		CollectorID  int64  `json:"collectorId"`
		Observations string `json:"observations,omitempty"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sent, err := svc.manager.AcceptCollection(c.Context(), c.Params("id"), req.CollectorID, req.Observations)
	var pfe *series.PartialFailureError
	if errors.As(err, &pfe) {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"notified": pfe.Sent, "warning": pfe.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notified": sent})
}

func rejectHandler(c *fiber.Ctx) error {
	var req struct {
		OccurrenceID string `json:"occurrenceId"`
		Reason       string `json:"reason"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	err = svc.manager.RejectCollection(c.Context(), c.Params("id"), req.OccurrenceID, req.Reason)
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// cancelHandler cancels the series' next scheduled occurrence, or the
// whole series when it is simple. Routing on kind happens in the
// manager.
func cancelHandler(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason"`
		Note   string `json:"note,omitempty"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	_, err = svc.manager.Apply(c.Context(), series.CancelAction{
		SeriesID: c.Params("id"),
		Reason:   req.Reason,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func registerHandler(c *fiber.Ctx) error {
	var req struct {
		Materials    []string `json:"materials"`
		Photos       []string `json:"photos,omitempty"`
		Observations string   `json:"observations,omitempty"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	err = svc.manager.RegisterCollection(c.Context(), c.Params("id"), c.Params("oid"), req.Materials, req.Photos, req.Observations)
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func editOccurrenceHandler(c *fiber.Ctx) error {
	var req struct {
		Date         string       `json:"date,omitempty"`
		Period       model.Period `json:"period,omitempty"`
		Observations string       `json:"observations,omitempty"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var date time.Time
	if req.Date != "" {
		date, err = time.Parse(dateFormat, req.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date: "+req.Date)
		}
	}
	err = svc.manager.EditOccurrence(c.Context(), c.Params("id"), c.Params("oid"), date, req.Period, req.Observations)
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// dispatchHandler notifies a neighborhood of an upcoming collection
// directly, without going through series acceptance. Used for manual
// re-announcements.
func dispatchHandler(c *fiber.Ctx) error {
	var req struct {
		CollectorID    int64        `json:"collectorId"`
		NeighborhoodID int64        `json:"neighborhoodId"`
		Date           string       `json:"date"`
		Period         model.Period `json:"period"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	date, err := time.Parse(dateFormat, req.Date)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid date: "+req.Date)
	}

	sent, err := svc.dispatcher.Dispatch(c.Context(), req.CollectorID, req.NeighborhoodID, date, req.Period)
	var ue *dispatch.UpstreamError
	if errors.As(err, &ue) && ue.Confirmed > 0 {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"notified": ue.Confirmed, "warning": ue.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notified": sent})
}

func notificationsHandler(c *fiber.Ctx) error {
	recipient := c.QueryInt("recipient")
	if recipient == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "recipient required")
	}
	batch, err := model.GetNotificationsByRecipient(c.Context(), svc.store, int64(recipient))
	if err != nil {
		return err
	}
	return c.JSON(batch)
}

func markReadHandler(c *fiber.Ctx) error {
	err := model.MarkNotificationRead(c.Context(), svc.store, c.Params("id"))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
