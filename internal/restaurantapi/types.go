package restaurantapi

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/wolfman30/tablebook/internal/reservation"
)

// ID accepts both numeric and string identifiers from the API.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Restaurant is the profile returned by GET /api/restaurant/.
type Restaurant struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Description  string `json:"description"`
	OpeningHours string `json:"opening_hours"`
	ClosingHours string `json:"closing_hours"`
}

// TimeSlot is one defined seating time from GET /api/timeslots/.
type TimeSlot struct {
	ID              int    `json:"id"`
	Time            string `json:"time"`
	Type            string `json:"type"`
	IsActive        bool   `json:"is_active"`
	MaxReservations int    `json:"max_reservations"`
}

func (t *TimeSlot) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID              int    `json:"id"`
		Time            string `json:"time"`
		Type            string `json:"type"`
		SlotType        string `json:"slot_type"`
		IsActive        *bool  `json:"is_active"`
		MaxReservations int    `json:"max_reservations"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = TimeSlot{ID: raw.ID, Time: raw.Time, Type: raw.Type, IsActive: true, MaxReservations: raw.MaxReservations}
	if t.Type == "" {
		t.Type = raw.SlotType
	}
	if raw.IsActive != nil {
		t.IsActive = *raw.IsActive
	}
	return nil
}

// SlotAvailability is one entry of the availability response.
type SlotAvailability struct {
	TimeID               int    `json:"time_id"`
	Time                 string `json:"time"`
	IsAvailable          bool   `json:"is_available"`
	AvailableSpots       int    `json:"available_spots"`
	MaxReservations      int    `json:"max_reservations,omitempty"`
	ExistingReservations int    `json:"existing_reservations,omitempty"`
}

// Availability is the response of GET /api/availability/?date=.
type Availability struct {
	Date          string             `json:"date"`
	Slots         []SlotAvailability `json:"availability"`
	IsSpecialDate bool               `json:"is_special_date"`
	IsClosed      bool               `json:"is_closed"`
	Reason        string             `json:"reason"`
	Message       string             `json:"message"`
	TotalSlots    int                `json:"total_slots"`
}

// Closed reports whether the server flagged the date as a closed special date.
func (a *Availability) Closed() bool {
	return a.IsClosed || (a.IsSpecialDate && len(a.Slots) == 0)
}

// ClosedReason is the server-supplied explanation for a closed date.
func (a *Availability) ClosedReason() string {
	if a.Reason != "" {
		return a.Reason
	}
	return a.Message
}

type specialDateWire struct {
	Date   string `json:"date"`
	IsOpen bool   `json:"is_open"`
	Reason string `json:"reason"`
}

// Reservation is the created record echoed by the API. Every field may be absent.
type Reservation struct {
	ID              ID     `json:"id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	NumberOfGuests  int    `json:"number_of_guests"`
	SpecialRequests string `json:"special_requests"`
	Status          string `json:"status"`
}

// CreateResult is the success response of POST /api/reservations/create/.
type CreateResult struct {
	ID          ID
	Message     string
	Reservation Reservation
}

// decodeCreateResult accepts both {id, message, reservation:{...}} and a flat record.
func decodeCreateResult(body []byte) (*CreateResult, error) {
	var envelope struct {
		ID          ID              `json:"id"`
		Message     string          `json:"message"`
		Reservation json.RawMessage `json:"reservation"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	res := &CreateResult{ID: envelope.ID, Message: envelope.Message}
	record := []byte(envelope.Reservation)
	if len(record) == 0 || bytes.Equal(record, []byte("null")) {
		record = body
	}
	if err := json.Unmarshal(record, &res.Reservation); err != nil {
		return nil, err
	}
	if res.ID == "" {
		res.ID = res.Reservation.ID
	}
	return res, nil
}

// decodeAPIError builds an APIError from a non-2xx body. It understands
// {error|message|detail, field_errors} and bare {field: [msgs]} validation maps.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Message = truncate(string(body), 300)
		return apiErr
	}
	for _, key := range []string{"error", "message", "detail"} {
		if msg := firstMessage(raw[key]); msg != "" {
			apiErr.Message = msg
			break
		}
	}
	fieldErrs := map[string]json.RawMessage{}
	if fe, ok := raw["field_errors"]; ok {
		_ = json.Unmarshal(fe, &fieldErrs)
	} else {
		for key, value := range raw {
			if _, known := reservation.FieldForServerKey(key); known {
				fieldErrs[key] = value
			}
		}
	}
	for key, value := range fieldErrs {
		if msg := firstMessage(value); msg != "" {
			if apiErr.FieldErrors == nil {
				apiErr.FieldErrors = map[string]string{}
			}
			apiErr.FieldErrors[key] = msg
		}
	}
	if general := firstMessage(raw["non_field_errors"]); general != "" && apiErr.Message == "" {
		apiErr.Message = general
	}
	return apiErr
}

// firstMessage reads a string or the first element of a string list.
func firstMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func statusLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
