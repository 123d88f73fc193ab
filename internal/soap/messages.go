package soap

import "encoding/xml"

// Request messages. Field tags match on local element name, so namespaced
// and plain payloads both decode.

type CreateEventRequest struct {
	XMLName        xml.Name `xml:"createEventRequest"`
	Title          string   `xml:"title"`
	Date           string   `xml:"date"`
	Location       string   `xml:"location"`
	AvailableSeats int      `xml:"availableSeats"`
}

type MakeReservationRequest struct {
	XMLName xml.Name `xml:"makeReservationRequest"`
	Name    string   `xml:"name"`
	Email   string   `xml:"email"`
	Seats   int      `xml:"seats"`
	EventID int64    `xml:"eventId"`
}

type GetEventsRequest struct {
	XMLName xml.Name `xml:"getEventsRequest"`
}

type GetRegistrationsRequest struct {
	XMLName xml.Name `xml:"getRegistrationsRequest"`
	EventID int64    `xml:"eventId"`
}

// UpdateEventRequest uses pointer fields so an omitted element is
// distinguishable from an explicit zero or empty value.
type UpdateEventRequest struct {
	XMLName        xml.Name `xml:"updateEventRequest"`
	EventID        int64    `xml:"eventId"`
	Title          *string  `xml:"title"`
	Date           *string  `xml:"date"`
	Location       *string  `xml:"location"`
	AvailableSeats *int     `xml:"availableSeats"`
}

type DeleteEventRequest struct {
	XMLName xml.Name `xml:"deleteEventRequest"`
	EventID int64    `xml:"eventId"`
}

// Response messages.

type CreateEventResponse struct {
	XMLName xml.Name `xml:"http://eventservice.example.com/wsdl createEventResponse"`
	Success string   `xml:"success"`
}

type MakeReservationResponse struct {
	XMLName xml.Name `xml:"http://eventservice.example.com/wsdl makeReservationResponse"`
	Success string   `xml:"success"`
}

type GetEventsResponse struct {
	XMLName xml.Name       `xml:"http://eventservice.example.com/wsdl getEventsResponse"`
	Events  []EventPayload `xml:"events"`
}

type EventPayload struct {
	ID             int64  `xml:"id"`
	Title          string `xml:"title"`
	AvailableSeats int    `xml:"availableSeats"`
	Date           string `xml:"date"`
	Location       string `xml:"location"`
}

type GetRegistrationsResponse struct {
	XMLName       xml.Name              `xml:"http://eventservice.example.com/wsdl getRegistrationsResponse"`
	Registrations []RegistrationPayload `xml:"registrations"`
}

type RegistrationPayload struct {
	ID    int64  `xml:"id"`
	Name  string `xml:"name"`
	Email string `xml:"email"`
	Seats int    `xml:"seats"`
}

type UpdateEventResponse struct {
	XMLName xml.Name `xml:"http://eventservice.example.com/wsdl updateEventResponse"`
	Success string   `xml:"success"`
}

type DeleteEventResponse struct {
	XMLName xml.Name `xml:"http://eventservice.example.com/wsdl deleteEventResponse"`
	Success string   `xml:"success"`
}
