package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/tablebook/internal/availability"
	"github.com/wolfman30/tablebook/internal/booking"
	"github.com/wolfman30/tablebook/internal/menu"
	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
)

var testNow = time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)

type stubAPI struct {
	mu         sync.Mutex
	profile    *restaurantapi.Restaurant
	createErr  error
	payloads   []reservation.Payload
	special    []reservation.SpecialDate
	availError error
}

func (s *stubAPI) GetRestaurant(context.Context) (*restaurantapi.Restaurant, error) {
	if s.profile == nil {
		return nil, restaurantapi.ErrUnreachable
	}
	return s.profile, nil
}

func (s *stubAPI) GetAvailability(_ context.Context, d reservation.Date) (*restaurantapi.Availability, error) {
	if s.availError != nil {
		return nil, s.availError
	}
	return &restaurantapi.Availability{Slots: []restaurantapi.SlotAvailability{
		{TimeID: 4, Time: "19:00:00", IsAvailable: true, AvailableSpots: 6},
		{TimeID: 6, Time: "21:00:00", IsAvailable: false},
	}}, nil
}

func (s *stubAPI) GetSpecialDates(context.Context) ([]reservation.SpecialDate, error) {
	return s.special, nil
}

func (s *stubAPI) GetTimeSlots(context.Context) ([]restaurantapi.TimeSlot, error) {
	return nil, restaurantapi.ErrUnreachable
}

func (s *stubAPI) CreateReservation(_ context.Context, p reservation.Payload, _ string) (*restaurantapi.CreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &restaurantapi.CreateResult{ID: "77", Message: "Réservation créée avec succès"}, nil
}

func newTestServer(t *testing.T, api *stubAPI) http.Handler {
	t.Helper()
	return newTestServerWithConfig(t, api, booking.Config{DefaultCountry: "+212", WindowDays: 90})
}

func newTestServerWithConfig(t *testing.T, api *stubAPI, cfg booking.Config) http.Handler {
	t.Helper()
	m, err := menu.Load()
	require.NoError(t, err)
	slots := availability.NewReconciler(api, nil,
		availability.WithClock(func() time.Time { return testNow }),
		availability.WithLocation(time.UTC),
	)
	srv, err := NewServer(Dependencies{
		Profile: api,
		Slots:   slots,
		Menu:    m,
		NewController: func() *booking.Controller {
			return booking.NewController(cfg,
				booking.Dependencies{Sink: api, Slots: slots, Menu: m},
			)
		},
		Confirmations: NewConfirmationStore([]byte("0123456789abcdef0123456789abcdef"), []byte("0123456789abcdef")),
		WindowDays:    90,
	})
	require.NoError(t, err)
	return srv.Routes()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/reservation", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func validForm() url.Values {
	return url.Values{
		"name":       {"Jean Dupont"},
		"country":    {"+212"},
		"phone":      {"612345678"},
		"date":       {"2026-05-11"},
		"time":       {"19:00"},
		"party_size": {"2"},
	}
}

func TestHomeFallsBackToBuiltInProfile(t *testing.T) {
	h := newTestServer(t, &stubAPI{})
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Resto Pêcheur")
	assert.Contains(t, rec.Body.String(), "Tiznit")
}

func TestHomeUsesAPIProfile(t *testing.T) {
	h := newTestServer(t, &stubAPI{profile: &restaurantapi.Restaurant{Name: "Chez Brahim", Email: "contact@brahim.ma"}})
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Chez Brahim")
	assert.Contains(t, body, "contact@brahim.ma")
	assert.Contains(t, body, "Tiznit", "missing fields keep the built-in values")
}

func TestMenuPage(t *testing.T) {
	h := newTestServer(t, &stubAPI{})
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/menu", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Salade Mexicaine")
	assert.Contains(t, rec.Body.String(), "17 DH")
}

func TestReservationFormPreloadsSlots(t *testing.T) {
	h := newTestServer(t, &stubAPI{})
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/reservation?date=2026-05-11", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="19:00"`)
	assert.Contains(t, body, "Complet")
	assert.Contains(t, body, "lundi 11 mai 2026")
	assert.Contains(t, body, `min="2026-05-10"`)
}

func TestReservationSubmitRedirectsToConfirmation(t *testing.T) {
	api := &stubAPI{}
	h := newTestServer(t, api)

	rec := do(t, h, postForm(validForm()))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/reservation/confirmation", rec.Header().Get("Location"))
	require.Len(t, api.payloads, 1)
	assert.Equal(t, "+212612345678", api.payloads[0].CustomerPhone)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	req := httptest.NewRequest(http.MethodGet, "/reservation/confirmation", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	page := do(t, h, req)
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	assert.Contains(t, body, "En attente")
	assert.Contains(t, body, "Jean Dupont")
	assert.Contains(t, body, "#77")
	assert.Contains(t, body, "2 personnes")
}

func TestReservationSubmitDoesNotWaitForKeystrokeDelays(t *testing.T) {
	api := &stubAPI{}
	h := newTestServerWithConfig(t, api, booking.Config{
		DefaultCountry:  "+212",
		WindowDays:      90,
		ValidationDelay: 400 * time.Millisecond,
		EmailCheckDelay: 900 * time.Millisecond,
	})
	form := validForm()
	form.Set("email", "jean@example.com")

	start := time.Now()
	rec := do(t, h, postForm(form))
	elapsed := time.Since(start)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Less(t, elapsed, 300*time.Millisecond)
	require.Len(t, api.payloads, 1)
	assert.Equal(t, "jean@example.com", api.payloads[0].CustomerEmail)

	bad := validForm()
	bad.Set("name", "J")
	start = time.Now()
	rec = do(t, h, postForm(bad))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}

func TestReservationSubmitRerendersErrors(t *testing.T) {
	api := &stubAPI{}
	h := newTestServer(t, api)
	form := validForm()
	form.Set("name", "Jean123")
	form.Set("phone", "12")

	rec := do(t, h, postForm(form))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Format invalide pour Maroc")
	assert.Contains(t, body, `value="Jean"`, "digits are stripped from the re-rendered name")
	assert.Empty(t, api.payloads)
}

func TestReservationSubmitUnavailableSlot(t *testing.T) {
	h := newTestServer(t, &stubAPI{})
	form := validForm()
	form.Set("time", "21:00")

	rec := do(t, h, postForm(form))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "plus disponible")
}

func TestReservationSubmitConnectivityError(t *testing.T) {
	api := &stubAPI{createErr: restaurantapi.ErrUnreachable}
	h := newTestServer(t, api)

	rec := do(t, h, postForm(validForm()))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Erreur de connexion. Veuillez réessayer.")
	assert.Contains(t, rec.Body.String(), `value="Jean Dupont"`)
}

func TestReservationSubmitWithPreorder(t *testing.T) {
	api := &stubAPI{}
	h := newTestServer(t, api)
	form := validForm()
	form.Set("preorder", "on")
	form.Set("qty:desserts:Crème caramel", "2")
	form.Set("qty:desserts:Plat fantôme", "1")
	form.Set("special_request", "Anniversaire")

	rec := do(t, h, postForm(form))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, api.payloads, 1)
	assert.Equal(t, "Anniversaire\n\nPré-commande :\n- Crème caramel x2 (40 DH)\nTotal : 40 DH", api.payloads[0].SpecialRequests)
}

func TestConfirmationWithoutCookieRedirects(t *testing.T) {
	h := newTestServer(t, &stubAPI{})
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/reservation/confirmation", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/reservation", rec.Header().Get("Location"))
}

func TestSlotsJSON(t *testing.T) {
	h := newTestServer(t, &stubAPI{special: []reservation.SpecialDate{{Date: reservation.Date{Year: 2026, Month: 5, Day: 12}}}})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/reservation/slots?date=2026-05-11", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var res availability.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, availability.SourceLive, res.Source)
	require.Len(t, res.Slots, 2)
	assert.Equal(t, "19:00", res.Slots[0].Time)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/reservation/slots?date=2026-05-12", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Closed)
	assert.Equal(t, availability.SourceSpecialDate, res.Source)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/reservation/slots?date=demain", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckJSON(t *testing.T) {
	h := newTestServer(t, &stubAPI{})

	check := func(body string) (*httptest.ResponseRecorder, reservation.FieldCheck) {
		req := httptest.NewRequest(http.MethodPost, "/reservation/check", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := do(t, h, req)
		var out reservation.FieldCheck
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return rec, out
	}

	rec, out := check(`{"field":"email","value":"test@gmial.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Valid)
	require.NotNil(t, out.Advice)
	assert.Equal(t, "test@gmail.com", out.Advice.Suggestion)

	rec, out = check(`{"field":"phone","value":"0612345678","country":"+212"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reservation.CodeInvalidFormatForCountry, out.Code)

	rec, out = check(`{"field":"date","value":"2026-05-09"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reservation.CodeDateInPast, out.Code)

	rec, _ = check(`{"field":"nickname","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = check(`not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
