// Package handler contains the chi HTTP handlers that translate SOAP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/evalverde/event-reservation-service/internal/model"
	"github.com/evalverde/event-reservation-service/internal/repository"
	"github.com/evalverde/event-reservation-service/internal/service"
	"github.com/evalverde/event-reservation-service/internal/soap"
)

// Messages carried in the success field of failure outcomes.
const (
	msgNotFound          = "not found"
	msgInsufficientSeats = "insufficient seats"
	msgContention        = "contention"
	msgError             = "error"
)

// EventService is the service surface the handler dispatches to.
type EventService interface {
	CreateEvent(ctx context.Context, p service.CreateEventParams) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id int64, p service.UpdateEventParams) error
	DeleteEvent(ctx context.Context, id int64) error
	Reserve(ctx context.Context, p service.ReserveParams) (*model.Reservation, error)
	ListRegistrations(ctx context.Context, eventID int64) ([]model.Reservation, error)
}

// EventHandler serves the SOAP endpoint and the WSDL contract.
type EventHandler struct {
	svc EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// SOAP handles POST /wsdl: it decodes the envelope, dispatches on the body
// element, and writes the matching response envelope. Application failures
// are structured outcomes in the response body, never SOAP faults; faults
// are reserved for transport-level problems such as malformed XML.
func (h *EventHandler) SOAP(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	op, payload, err := soap.DecodeRequest(body)
	if err != nil {
		writeFault(w, http.StatusBadRequest, "Client", "malformed SOAP envelope")
		return
	}

	ctx := r.Context()
	switch op {
	case "createEventRequest":
		h.createEvent(ctx, w, payload)
	case "makeReservationRequest":
		h.makeReservation(ctx, w, payload)
	case "getEventsRequest":
		h.getEvents(ctx, w)
	case "getRegistrationsRequest":
		h.getRegistrations(ctx, w, payload)
	case "updateEventRequest":
		h.updateEvent(ctx, w, payload)
	case "deleteEventRequest":
		h.deleteEvent(ctx, w, payload)
	default:
		writeFault(w, http.StatusBadRequest, "Client", fmt.Sprintf("unknown operation %q", op))
	}
}

// WSDL handles GET /wsdl.
func (h *EventHandler) WSDL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write(soap.WSDL())
}

func (h *EventHandler) createEvent(ctx context.Context, w http.ResponseWriter, payload []byte) {
	var req soap.CreateEventRequest
	if err := xml.Unmarshal(payload, &req); err != nil {
		writeFault(w, http.StatusBadRequest, "Client", "malformed createEvent request")
		return
	}

	event, err := h.svc.CreateEvent(ctx, service.CreateEventParams{
		Title:    req.Title,
		Date:     req.Date,
		Location: req.Location,
		Seats:    req.AvailableSeats,
	})
	if err != nil {
		writeResponse(w, soap.CreateEventResponse{Success: failureMessage(err)})
		return
	}
	writeResponse(w, soap.CreateEventResponse{
		Success: fmt.Sprintf("Event '%s' created successfully.", event.Title),
	})
}

func (h *EventHandler) makeReservation(ctx context.Context, w http.ResponseWriter, payload []byte) {
	var req soap.MakeReservationRequest
	if err := xml.Unmarshal(payload, &req); err != nil {
		writeFault(w, http.StatusBadRequest, "Client", "malformed makeReservation request")
		return
	}

	res, err := h.svc.Reserve(ctx, service.ReserveParams{
		EventID: req.EventID,
		Name:    req.Name,
		Email:   req.Email,
		Seats:   req.Seats,
	})
	if err != nil {
		writeResponse(w, soap.MakeReservationResponse{Success: failureMessage(err)})
		return
	}
	writeResponse(w, soap.MakeReservationResponse{
		Success: fmt.Sprintf("Reservation confirmed: %d seat(s), confirmation code %s.", res.Seats, res.ConfirmationCode),
	})
}

func (h *EventHandler) getEvents(ctx context.Context, w http.ResponseWriter) {
	events, err := h.svc.ListEvents(ctx)
	if err != nil {
		log.Printf("getEvents failed: %v", err)
		// The listing response has no failure slot; degrade to an empty list.
		writeResponse(w, soap.GetEventsResponse{Events: []soap.EventPayload{}})
		return
	}

	payload := make([]soap.EventPayload, 0, len(events))
	for _, e := range events {
		payload = append(payload, soap.EventPayload{
			ID:             e.ID,
			Title:          e.Title,
			AvailableSeats: e.AvailableSeats,
			Date:           e.Date.Format("2006-01-02"),
			Location:       e.Location,
		})
	}
	writeResponse(w, soap.GetEventsResponse{Events: payload})
}

func (h *EventHandler) getRegistrations(ctx context.Context, w http.ResponseWriter, payload []byte) {
	var req soap.GetRegistrationsRequest
	if err := xml.Unmarshal(payload, &req); err != nil {
		writeFault(w, http.StatusBadRequest, "Client", "malformed getRegistrations request")
		return
	}

	registrations, err := h.svc.ListRegistrations(ctx, req.EventID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, service.ErrInvalidInput) {
			log.Printf("getRegistrations failed: %v", err)
		}
		writeResponse(w, soap.GetRegistrationsResponse{Registrations: []soap.RegistrationPayload{}})
		return
	}

	out := make([]soap.RegistrationPayload, 0, len(registrations))
	for _, res := range registrations {
		out = append(out, soap.RegistrationPayload{
			ID:    res.ID,
			Name:  res.Name,
			Email: res.Email,
			Seats: res.Seats,
		})
	}
	writeResponse(w, soap.GetRegistrationsResponse{Registrations: out})
}

func (h *EventHandler) updateEvent(ctx context.Context, w http.ResponseWriter, payload []byte) {
	var req soap.UpdateEventRequest
	if err := xml.Unmarshal(payload, &req); err != nil {
		writeFault(w, http.StatusBadRequest, "Client", "malformed updateEvent request")
		return
	}

	err := h.svc.UpdateEvent(ctx, req.EventID, service.UpdateEventParams{
		Title:          req.Title,
		Date:           req.Date,
		Location:       req.Location,
		AvailableSeats: req.AvailableSeats,
	})
	if err != nil {
		writeResponse(w, soap.UpdateEventResponse{Success: failureMessage(err)})
		return
	}
	writeResponse(w, soap.UpdateEventResponse{Success: "Event updated successfully."})
}

func (h *EventHandler) deleteEvent(ctx context.Context, w http.ResponseWriter, payload []byte) {
	var req soap.DeleteEventRequest
	if err := xml.Unmarshal(payload, &req); err != nil {
		writeFault(w, http.StatusBadRequest, "Client", "malformed deleteEvent request")
		return
	}

	if err := h.svc.DeleteEvent(ctx, req.EventID); err != nil {
		writeResponse(w, soap.DeleteEventResponse{Success: failureMessage(err)})
		return
	}
	writeResponse(w, soap.DeleteEventResponse{Success: "Event deleted successfully."})
}

// failureMessage maps service errors to the messages carried in the success
// field. Validation problems keep their text; everything unexpected is
// collapsed to a generic message so store internals never leak to callers.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return msgNotFound
	case errors.Is(err, repository.ErrInsufficientSeats):
		return msgInsufficientSeats
	case errors.Is(err, service.ErrContention):
		return msgContention
	case errors.Is(err, service.ErrInvalidInput):
		return err.Error()
	default:
		log.Printf("operation failed: %v", err)
		return msgError
	}
}

func writeResponse(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := soap.EncodeResponse(w, payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeFault(w http.ResponseWriter, status int, code, reason string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	if err := soap.EncodeFault(w, code, reason); err != nil {
		log.Printf("encode fault: %v", err)
	}
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
