package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/tablebook/internal/availability"
	"github.com/wolfman30/tablebook/internal/menu"
	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
)

var (
	zone     = time.FixedZone("Africa/Casablanca", 3600)
	now      = time.Date(2026, 5, 10, 10, 0, 0, 0, zone)
	today    = reservation.Date{Year: 2026, Month: 5, Day: 10}
	tomorrow = reservation.Date{Year: 2026, Month: 5, Day: 11}
)

type fakeAPI struct {
	mu           sync.Mutex
	special      []reservation.SpecialDate
	availability map[reservation.Date]*restaurantapi.Availability
	availErr     error
	availCalls   []reservation.Date

	createResult *restaurantapi.CreateResult
	createErrs   []error
	payloads     []reservation.Payload
	keys         []string
	block        chan struct{}
	started      chan struct{}
}

func (f *fakeAPI) GetAvailability(_ context.Context, d reservation.Date) (*restaurantapi.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availCalls = append(f.availCalls, d)
	if f.availErr != nil {
		return nil, f.availErr
	}
	if a, ok := f.availability[d]; ok {
		return a, nil
	}
	return &restaurantapi.Availability{Slots: []restaurantapi.SlotAvailability{
		{TimeID: 1, Time: "12:00:00", IsAvailable: false},
		{TimeID: 4, Time: "19:00:00", IsAvailable: true, AvailableSpots: 5},
		{TimeID: 5, Time: "20:00:00", IsAvailable: true, AvailableSpots: 2},
	}}, nil
}

func (f *fakeAPI) GetSpecialDates(context.Context) ([]reservation.SpecialDate, error) {
	return f.special, nil
}

func (f *fakeAPI) GetTimeSlots(context.Context) ([]restaurantapi.TimeSlot, error) {
	return nil, restaurantapi.ErrUnreachable
}

func (f *fakeAPI) CreateReservation(ctx context.Context, p reservation.Payload, key string) (*restaurantapi.CreateResult, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.keys = append(f.keys, key)
	var err error
	if len(f.createErrs) > 0 {
		err, f.createErrs = f.createErrs[0], f.createErrs[1:]
	}
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if f.createResult != nil {
		return f.createResult, nil
	}
	return &restaurantapi.CreateResult{ID: "101"}, nil
}

func (f *fakeAPI) availabilityCalls() []reservation.Date {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reservation.Date(nil), f.availCalls...)
}

type recordingMetrics struct {
	mu          sync.Mutex
	outcomes    []string
	validations []string
}

func (m *recordingMetrics) ObserveSubmission(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) ObserveValidationError(field, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations = append(m.validations, field+":"+code)
}

func newTestController(t *testing.T, api *fakeAPI, cfg Config) (*Controller, *recordingMetrics) {
	t.Helper()
	m, err := menu.Load()
	require.NoError(t, err)
	rec := availability.NewReconciler(api, nil,
		availability.WithClock(func() time.Time { return now }),
		availability.WithLocation(zone),
	)
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = "+212"
	}
	if cfg.WindowDays == 0 {
		cfg.WindowDays = 90
	}
	metrics := &recordingMetrics{}
	keys := 0
	c := NewController(cfg, Dependencies{
		Sink:    api,
		Slots:   rec,
		Menu:    m,
		Metrics: metrics,
		NewKey: func() string {
			keys++
			return fmt.Sprintf("key-%d", keys)
		},
	})
	t.Cleanup(c.Close)
	return c, metrics
}

func fillValidForm(t *testing.T, c *Controller) {
	t.Helper()
	c.SetName("Jean Dupont")
	c.SetCountry("+212")
	c.SetPhone("612345678")
	c.SelectDate(context.Background(), tomorrow)
	c.Wait()
	require.NoError(t, c.SelectTime(firstAvailable(t, c)))
	c.SetPartySize(2)
}

func firstAvailable(t *testing.T, c *Controller) string {
	t.Helper()
	st := c.State()
	require.NotNil(t, st.Slots)
	for _, s := range st.Slots.Slots {
		if s.Available {
			return s.Time
		}
	}
	t.Fatalf("no available slot in %+v", st.Slots)
	return ""
}

func TestSubmitEchoesFieldsAndDiscardsDraft(t *testing.T) {
	api := &fakeAPI{}
	c, metrics := newTestController(t, api, Config{})
	c.Init(context.Background())
	fillValidForm(t, c)

	st := c.State()
	assert.True(t, st.CanSubmit)
	assert.Equal(t, "19:00", st.Draft.Time)

	conf, err := c.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, api.payloads, 1)
	p := api.payloads[0]
	assert.Equal(t, "+212612345678", p.CustomerPhone)
	assert.Equal(t, "2026-05-11", p.Date)
	assert.Equal(t, "19:00", p.Time)
	assert.Equal(t, 2, p.NumberOfGuests)
	assert.Empty(t, p.CustomerEmail)

	assert.Equal(t, "101", conf.ID)
	assert.Equal(t, "pending", conf.Status)
	assert.Equal(t, "Jean Dupont", conf.CustomerName)
	assert.Equal(t, "+212612345678", conf.CustomerPhone)
	assert.Equal(t, "2026-05-11", conf.Date)
	assert.Equal(t, "19:00", conf.Time)
	assert.Equal(t, 2, conf.NumberOfGuests)

	after := c.State()
	assert.Empty(t, after.Draft.Name, "draft is discarded after success")
	assert.Equal(t, conf, after.Confirmation)
	assert.Equal(t, []string{OutcomeSuccess}, metrics.outcomes)
}

func TestEmailTypoIsAdvisory(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(t, api, Config{ValidationDelay: 5 * time.Millisecond, EmailCheckDelay: 15 * time.Millisecond})
	fillValidForm(t, c)
	c.SetEmail("test@gmial.com")
	c.Wait()

	st := c.State()
	assert.Equal(t, reservation.AdviceTypo, st.EmailAdvice.Status)
	assert.Equal(t, "test@gmail.com", st.EmailAdvice.Suggestion)
	assert.False(t, st.HasError("email"))

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test@gmial.com", api.payloads[0].CustomerEmail)
}

func TestDigitsStrippedFromName(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{ValidationDelay: 5 * time.Millisecond})
	c.SetName("Jean123")
	c.Wait()

	st := c.State()
	assert.Equal(t, "Jean", st.Draft.Name)
	assert.Equal(t, string(reservation.CodeContainsDigit), st.ErrorCodes["name"])

	c.SetName("Jean ")
	c.Wait()
	assert.False(t, c.State().HasError("name"), "next edit clears the error")
}

func TestClosedSpecialDateBlocksSubmission(t *testing.T) {
	closed := reservation.Date{Year: 2026, Month: 5, Day: 12}
	api := &fakeAPI{special: []reservation.SpecialDate{{Date: closed, IsOpen: false}}}
	c, _ := newTestController(t, api, Config{})
	c.Init(context.Background())
	fillValidForm(t, c)

	c.SelectDate(context.Background(), closed)
	c.Wait()

	st := c.State()
	require.NotNil(t, st.Slots)
	assert.True(t, st.Slots.Closed)
	assert.Empty(t, st.Slots.Slots)
	assert.NotEmpty(t, st.Slots.Notice)
	assert.False(t, st.CanSubmit)
	assert.Equal(t, string(reservation.CodeRestaurantClosedOnDate), st.ErrorCodes["date"])
	assert.NotContains(t, api.availabilityCalls(), closed)

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Len(t, api.payloads, 0)
}

func TestClosedDateWithStaleTimeIsNotSubmittable(t *testing.T) {
	api := &fakeAPI{}
	c, metrics := newTestController(t, api, Config{})
	c.SetName("Jean Dupont")
	c.SetPhone("612345678")
	c.SetDate(tomorrow)
	require.NoError(t, c.SelectTime("20:00"))

	c.SetSpecialDates([]reservation.SpecialDate{{Date: tomorrow, IsOpen: false, Reason: "Privatisation"}})
	assert.False(t, c.State().CanSubmit)

	_, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidForm)
	st := c.State()
	assert.Equal(t, "20:00", st.Draft.Time, "stale time lingers but does not unblock")
	assert.Equal(t, string(reservation.CodeRestaurantClosedOnDate), st.ErrorCodes["date"])
	assert.Equal(t, reservation.FieldDate, st.FocusField)
	assert.Contains(t, metrics.validations, "date:restaurant_closed_on_date")
	assert.Empty(t, api.payloads)
}

func TestServerFlaggedClosedDateBlocksSubmission(t *testing.T) {
	api := &fakeAPI{availability: map[reservation.Date]*restaurantapi.Availability{
		tomorrow: {IsSpecialDate: true, Reason: "Inventaire"},
	}}
	c, _ := newTestController(t, api, Config{})
	c.SelectDate(context.Background(), tomorrow)
	c.Wait()

	st := c.State()
	require.NotNil(t, st.Slots)
	assert.True(t, st.Slots.Closed)
	assert.Contains(t, st.Errors["date"], "Inventaire")
	assert.ErrorIs(t, c.SelectTime("19:00"), ErrSlotUnavailable)
}

func TestDateChangeClearsTime(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{})
	require.ErrorIs(t, c.SelectTime("19:00"), reservation.ErrNoDate)

	c.SelectDate(context.Background(), tomorrow)
	c.Wait()
	require.NoError(t, c.SelectTime("19:00"))

	c.SelectDate(context.Background(), tomorrow.AddDays(1))
	assert.Empty(t, c.State().Draft.Time)
}

func TestSelectTimeRejectsUnavailableSlot(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{})
	c.SelectDate(context.Background(), tomorrow)
	c.Wait()
	assert.ErrorIs(t, c.SelectTime("12:00"), ErrSlotUnavailable)
	assert.ErrorIs(t, c.SelectTime("15:00"), ErrSlotUnavailable)
}

func TestSameDayLookAheadThroughController(t *testing.T) {
	api := &fakeAPI{availability: map[reservation.Date]*restaurantapi.Availability{
		today: {Slots: []restaurantapi.SlotAvailability{
			{TimeID: 1, Time: "10:20", IsAvailable: true, AvailableSpots: 4},
			{TimeID: 2, Time: "10:31", IsAvailable: true, AvailableSpots: 4},
		}},
	}}
	c, _ := newTestController(t, api, Config{})
	c.SelectDate(context.Background(), today)
	c.Wait()

	assert.ErrorIs(t, c.SelectTime("10:20"), ErrSlotUnavailable)
	assert.NoError(t, c.SelectTime("10:31"))
}

func TestCountryChangeRevalidatesPhone(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{})
	c.SetPhone("202 555 0123")
	assert.Equal(t, string(reservation.CodeInvalidFormatForCountry), c.State().ErrorCodes["phone"])

	c.SetCountry("+1")
	assert.False(t, c.State().HasError("phone"))

	c.SetCountry("")
	st := c.State()
	assert.Equal(t, string(reservation.CodeMissingCountry), st.ErrorCodes["country"])
}

func TestDebouncedValidationIsLastWriteWins(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{ValidationDelay: 20 * time.Millisecond})
	c.SetName("J")
	c.SetName("Jean")
	assert.False(t, c.State().HasError("name"), "errors clear immediately on edit")
	c.Wait()
	assert.False(t, c.State().HasError("name"), "stale validation of \"J\" must not land")

	c.SetName("J")
	c.Wait()
	assert.Equal(t, string(reservation.CodeTooShort), c.State().ErrorCodes["name"])
}

type gatedSlots struct {
	*availability.Reconciler
	mu    sync.Mutex
	gates map[reservation.Date]chan struct{}
}

func (g *gatedSlots) Reconcile(ctx context.Context, d reservation.Date, special []reservation.SpecialDate) (availability.Result, error) {
	g.mu.Lock()
	gate := g.gates[d]
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	res, err := g.Reconciler.Reconcile(context.Background(), d, special)
	res.Notice = d.String()
	return res, err
}

func TestSupersededAvailabilityIsIgnored(t *testing.T) {
	api := &fakeAPI{}
	first := tomorrow
	second := tomorrow.AddDays(1)
	gate := make(chan struct{})
	slots := &gatedSlots{
		Reconciler: availability.NewReconciler(api, nil, availability.WithClock(func() time.Time { return now }), availability.WithLocation(zone)),
		gates:      map[reservation.Date]chan struct{}{first: gate},
	}
	c := NewController(Config{DefaultCountry: "+212"}, Dependencies{Sink: api, Slots: slots})
	t.Cleanup(c.Close)

	c.SelectDate(context.Background(), first)
	c.SelectDate(context.Background(), second)
	require.Eventually(t, func() bool {
		st := c.State()
		return st.Slots != nil && st.Slots.Date == second
	}, time.Second, 5*time.Millisecond)

	close(gate)
	c.Wait()

	st := c.State()
	require.NotNil(t, st.Slots)
	assert.Equal(t, second, st.Slots.Date)
	assert.Equal(t, second.String(), st.Slots.Notice)
	assert.False(t, st.SlotsLoading)
}

func TestSubmitIsSingleFlight(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{}), started: make(chan struct{})}
	c, _ := newTestController(t, api, Config{})
	fillValidForm(t, c)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-api.started

	st := c.State()
	assert.True(t, st.Submitting)
	assert.False(t, st.CanSubmit)
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(api.block)
	require.NoError(t, <-done)
	assert.Len(t, api.payloads, 1)
}

func TestSubmitMergesServerFieldErrors(t *testing.T) {
	api := &fakeAPI{createErrs: []error{
		fmt.Errorf("restaurantapi: create reservation: %w", &restaurantapi.APIError{
			StatusCode:  400,
			FieldErrors: map[string]string{"customer_phone": "Numéro déjà utilisé", "unknown": "x"},
		}),
	}}
	c, metrics := newTestController(t, api, Config{})
	fillValidForm(t, c)

	_, err := c.Submit(context.Background())
	var apiErr *restaurantapi.APIError
	require.ErrorAs(t, err, &apiErr)

	st := c.State()
	assert.Equal(t, "Numéro déjà utilisé", st.Errors["phone"])
	assert.Equal(t, string(reservation.CodeServer), st.ErrorCodes["phone"])
	assert.Equal(t, reservation.FieldPhone, st.FocusField)
	assert.Empty(t, st.GeneralError)
	assert.Equal(t, []string{OutcomeRejected}, metrics.outcomes)

	c.SetPhone("612345679")
	assert.False(t, c.State().HasError("phone"), "editing the field clears the server error")
}

func TestSubmitGeneralMessages(t *testing.T) {
	api := &fakeAPI{createErrs: []error{
		&restaurantapi.APIError{StatusCode: 409, Message: "Créneau complet"},
		&restaurantapi.APIError{StatusCode: 500},
	}}
	c, _ := newTestController(t, api, Config{})
	fillValidForm(t, c)

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Créneau complet", c.State().GeneralError)

	_, err = c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, msgRejected, c.State().GeneralError)
	assert.NotEqual(t, api.keys[0], api.keys[1], "a server answer retires the idempotency key")
}

func TestSubmitConnectivityErrorKeepsIdempotencyKey(t *testing.T) {
	api := &fakeAPI{createErrs: []error{fmt.Errorf("wrapped: %w", restaurantapi.ErrUnreachable)}}
	c, metrics := newTestController(t, api, Config{})
	fillValidForm(t, c)

	_, err := c.Submit(context.Background())
	require.True(t, errors.Is(err, restaurantapi.ErrUnreachable))
	st := c.State()
	assert.Equal(t, msgConnectivity, st.GeneralError)
	assert.Equal(t, "Jean Dupont", st.Draft.Name, "form stays editable")

	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, api.keys, 2)
	assert.Equal(t, api.keys[0], api.keys[1])
	assert.Equal(t, []string{OutcomeUnreachable, OutcomeSuccess}, metrics.outcomes)
}

func TestEditAfterConnectivityErrorUsesNewKey(t *testing.T) {
	api := &fakeAPI{createErrs: []error{restaurantapi.ErrUnreachable}}
	c, _ := newTestController(t, api, Config{})
	fillValidForm(t, c)

	_, err := c.Submit(context.Background())
	require.ErrorIs(t, err, restaurantapi.ErrUnreachable)

	c.SetPartySize(4)
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, api.keys, 2)
	assert.NotEqual(t, api.keys[0], api.keys[1], "a changed reservation is a new request")
	assert.Equal(t, 4, api.payloads[1].NumberOfGuests)
}

func TestCountryCodeWithoutPlusIsNormalized(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(t, api, Config{DefaultCountry: "212"})
	assert.Equal(t, "+212", c.State().Draft.CountryCode)

	c.SetName("Jean Dupont")
	c.SetCountry("212")
	c.SetPhone("612345678")
	c.SelectDate(context.Background(), tomorrow)
	c.Wait()
	require.NoError(t, c.SelectTime(firstAvailable(t, c)))
	assert.Equal(t, "+212", c.State().Draft.CountryCode)

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "+212612345678", api.payloads[0].CustomerPhone)
}

func TestCancelledSlotLoadClearsLoading(t *testing.T) {
	api := &fakeAPI{availErr: errors.New("connection reset")}
	c, _ := newTestController(t, api, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.SelectDate(ctx, tomorrow)
	c.Wait()

	st := c.State()
	assert.False(t, st.SlotsLoading)
	assert.Nil(t, st.Slots)
}

func TestSettleSkipsKeystrokeDelays(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{ValidationDelay: time.Hour, EmailCheckDelay: time.Hour})
	c.SetName("J")
	c.SetEmail("test@gmial.com")
	c.SelectDate(context.Background(), tomorrow)

	done := make(chan struct{})
	go func() {
		c.Settle()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Settle waited for the debounce delay")
	}

	st := c.State()
	assert.Equal(t, string(reservation.CodeTooShort), st.ErrorCodes["name"])
	assert.Equal(t, reservation.AdviceTypo, st.EmailAdvice.Status)
	assert.NotNil(t, st.Slots)
}

func TestSubmitInvalidFocusesFirstField(t *testing.T) {
	c, metrics := newTestController(t, &fakeAPI{}, Config{})
	c.SetPartySize(0)
	c.SetEmail("bad")

	_, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidForm)
	st := c.State()
	assert.Equal(t, reservation.FieldName, st.FocusField)
	assert.Equal(t, msgInvalidForm, st.GeneralError)
	for _, f := range []string{"name", "phone", "email", "date", "time", "party_size"} {
		assert.True(t, st.HasError(f), "expected error on %s", f)
	}
	assert.Equal(t, []string{OutcomeInvalid}, metrics.outcomes)
}

func TestValidateIsIdempotent(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{})
	c.SetName("J")
	c.SetPhone("12")
	assert.Equal(t, c.Validate(), c.Validate())
}

func TestPreorderItemizationSubmitted(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(t, api, Config{})
	fillValidForm(t, c)
	c.SetSpecialRequest("Anniversaire")
	c.SetPreorder(true)

	_, err := c.ToggleDish("entrees-froides", "Plat inconnu")
	require.ErrorIs(t, err, ErrUnknownDish)

	selected, err := c.ToggleDish("entrees-froides", "Salade Mexicaine")
	require.NoError(t, err)
	assert.True(t, selected)
	require.NoError(t, c.SetDishQuantity("desserts", "Crème caramel", 2))
	assert.Equal(t, 17+40, c.State().DishTotal)

	require.NoError(t, c.SetDishQuantity("entrees-froides", "Salade Mexicaine", 0))
	assert.Equal(t, 40, c.State().DishTotal)

	conf, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Anniversaire\n\nPré-commande :\n- Crème caramel x2 (40 DH)\nTotal : 40 DH", api.payloads[0].SpecialRequests)
	assert.Equal(t, 40, conf.PreorderTotal)
}

func TestOnChangeReceivesAsyncUpdates(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{})
	var mu sync.Mutex
	var states []State
	c.OnChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	c.SelectDate(context.Background(), tomorrow)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(states), 2)
	assert.True(t, states[0].SlotsLoading)
	last := states[len(states)-1]
	require.NotNil(t, last.Slots)
	assert.Equal(t, availability.SourceLive, last.Slots.Source)
}

func TestFallbackSlotsAreTagged(t *testing.T) {
	api := &fakeAPI{availErr: restaurantapi.ErrUnreachable}
	c, _ := newTestController(t, api, Config{})
	c.SelectDate(context.Background(), tomorrow)
	c.Wait()

	st := c.State()
	require.NotNil(t, st.Slots)
	assert.Equal(t, availability.SourceFallback, st.Slots.Source)
	assert.NoError(t, c.SelectTime("19:00"), "placeholder slots keep the form usable")
}

func TestClosedControllerRejectsSubmit(t *testing.T) {
	c, _ := newTestController(t, &fakeAPI{}, Config{})
	c.Close()
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
