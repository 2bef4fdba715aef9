package restaurantapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, time.Second, logging.Default(), opts...)
}

type recordingObserver struct {
	endpoints []string
	statuses  []string
}

func (r *recordingObserver) ObserveUpstream(endpoint, status string, _ float64) {
	r.endpoints = append(r.endpoints, endpoint)
	r.statuses = append(r.statuses, status)
}

func TestClient_GetAvailability_Success(t *testing.T) {
	obs := &recordingObserver{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/availability/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2026-05-02" {
			t.Errorf("date = %s, want 2026-05-02", got)
		}
		_, _ = w.Write([]byte(`{"date":"2026-05-02","availability":[
			{"time_id":1,"time":"12:00:00","is_available":true,"available_spots":4,"max_reservations":10,"existing_reservations":6},
			{"time_id":2,"time":"13:00:00","is_available":false,"available_spots":0}
		],"total_slots":2}`))
	}, WithObserver(obs))

	got, err := client.GetAvailability(context.Background(), reservation.Date{Year: 2026, Month: 5, Day: 2})
	if err != nil {
		t.Fatalf("GetAvailability() error = %v", err)
	}
	if len(got.Slots) != 2 || got.Slots[0].AvailableSpots != 4 || got.Slots[1].IsAvailable {
		t.Fatalf("unexpected slots: %+v", got.Slots)
	}
	if got.Closed() {
		t.Fatalf("date should not be closed")
	}
	if len(obs.endpoints) != 1 || obs.endpoints[0] != "availability" || obs.statuses[0] != "200" {
		t.Fatalf("unexpected observations: %v %v", obs.endpoints, obs.statuses)
	}
}

func TestClient_GetAvailability_SpecialClosed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"availability":[],"is_special_date":true,"reason":"Fermeture annuelle"}`))
	})
	got, err := client.GetAvailability(context.Background(), reservation.Date{Year: 2026, Month: 8, Day: 1})
	if err != nil {
		t.Fatalf("GetAvailability() error = %v", err)
	}
	if !got.Closed() || got.ClosedReason() != "Fermeture annuelle" {
		t.Fatalf("expected closed with reason, got %+v", got)
	}
}

func TestClient_GetSpecialDates_SkipsInvalid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"special_dates":[{"date":"2026-05-01","is_open":false},{"date":"bad","is_open":false},{"date":"2026-05-03","is_open":true}]}`))
	})
	got, err := client.GetSpecialDates(context.Background())
	if err != nil {
		t.Fatalf("GetSpecialDates() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Date.String() != "2026-05-01" || got[0].IsOpen {
		t.Fatalf("unexpected first row %+v", got[0])
	}
}

func TestClient_GetTimeSlots_ListAndWrapped(t *testing.T) {
	for name, body := range map[string]string{
		"list":    `[{"id":1,"time":"12:00:00","slot_type":"lunch","is_active":true}]`,
		"wrapped": `{"timeslots":[{"id":1,"time":"12:00:00","type":"lunch"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			slots, err := client.GetTimeSlots(context.Background())
			if err != nil {
				t.Fatalf("GetTimeSlots() error = %v", err)
			}
			if len(slots) != 1 || slots[0].Type != "lunch" || !slots[0].IsActive {
				t.Fatalf("unexpected slots %+v", slots)
			}
		})
	}
}

func TestClient_CreateReservation_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/reservations/create/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(IdempotencyHeader) != "key-1" {
			t.Errorf("missing idempotency key")
		}
		var p reservation.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode: %v", err)
		}
		if p.CustomerPhone != "+212612345678" {
			t.Errorf("phone = %s", p.CustomerPhone)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"message":"Réservation créée","reservation":{"id":42,"customer_name":"Jean Dupont","status":"pending"}}`))
	})

	res, err := client.CreateReservation(context.Background(), reservation.Payload{CustomerPhone: "+212612345678"}, "key-1")
	if err != nil {
		t.Fatalf("CreateReservation() error = %v", err)
	}
	if res.ID != "42" || res.Reservation.Status != "pending" || res.Message == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClient_CreateReservation_FlatRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"abc","customer_name":"Jean","time":"19:00:00"}`))
	})
	res, err := client.CreateReservation(context.Background(), reservation.Payload{}, "")
	if err != nil {
		t.Fatalf("CreateReservation() error = %v", err)
	}
	if res.ID != "abc" || res.Reservation.Time != "19:00:00" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClient_CreateReservation_FieldErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Données invalides","field_errors":{"customer_phone":["Numéro invalide"],"date":"Complet"}}`))
	})
	_, err := client.CreateReservation(context.Background(), reservation.Payload{}, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Données invalides" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if apiErr.FieldErrors["customer_phone"] != "Numéro invalide" || apiErr.FieldErrors["date"] != "Complet" {
		t.Fatalf("unexpected field errors %v", apiErr.FieldErrors)
	}
}

func TestClient_CreateReservation_BareValidationMap(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"customer_email":["Enter a valid email address."],"non_field_errors":["Slot full"]}`))
	})
	_, err := client.CreateReservation(context.Background(), reservation.Payload{}, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.FieldErrors["customer_email"] == "" || apiErr.Message != "Slot full" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	obs := &recordingObserver{}
	client := NewClient(url, time.Second, logging.Default(), WithObserver(obs))
	_, err := client.GetSpecialDates(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if len(obs.statuses) != 1 || obs.statuses[0] != "error" {
		t.Fatalf("expected error observation, got %v", obs.statuses)
	}
}
