// Package booking implements the booking form controller: it owns one draft
// reservation, validates fields as they change, keeps the slot list in step with
// the selected date, and submits the normalized payload.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/tablebook/internal/availability"
	"github.com/wolfman30/tablebook/internal/debounce"
	"github.com/wolfman30/tablebook/internal/menu"
	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
	"github.com/wolfman30/tablebook/pkg/logging"
)

// Submission outcomes reported to Metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeRejected    = "rejected"
	OutcomeUnreachable = "unreachable"
)

const (
	keyName       = "name"
	keyPhone      = "phone"
	keyEmail      = "email"
	keyEmailCheck = "email_check"
)

// Sink accepts reservation submissions.
type Sink interface {
	CreateReservation(ctx context.Context, payload reservation.Payload, idempotencyKey string) (*restaurantapi.CreateResult, error)
}

// SlotSource reconciles a date into renderable slots.
type SlotSource interface {
	Reconcile(ctx context.Context, date reservation.Date, specialDates []reservation.SpecialDate) (availability.Result, error)
	SpecialDates(ctx context.Context) []reservation.SpecialDate
	Today() reservation.Date
}

// Catalog resolves pre-order dishes.
type Catalog interface {
	Lookup(category, name string) (menu.Dish, bool)
}

// Metrics records form outcomes. Implementations must be nil-safe.
type Metrics interface {
	ObserveSubmission(outcome string)
	ObserveValidationError(field, code string)
}

// Config holds the form behaviour knobs.
type Config struct {
	DefaultCountry string
	// ValidationDelay debounces name, phone and basic email checks. Zero validates inline.
	ValidationDelay time.Duration
	// EmailCheckDelay debounces the advisory email deep-check.
	EmailCheckDelay time.Duration
	WindowDays      int
}

// Dependencies are the collaborators of a Controller. Sink and Slots are required.
type Dependencies struct {
	Sink    Sink
	Slots   SlotSource
	Menu    Catalog
	Metrics Metrics
	Logger  *logging.Logger
	// NewKey generates idempotency keys; defaults to uuid.NewString.
	NewKey func() string
}

// Controller is the booking form state machine for one visitor. All methods are
// safe for concurrent use; asynchronous results (debounced validation, slot
// lists) are published through the OnChange callback.
type Controller struct {
	cfg  Config
	deps Dependencies

	mu           sync.Mutex
	draft        *reservation.Draft
	errs         reservation.ErrorMap
	advice       reservation.EmailAdvice
	general      string
	focus        reservation.Field
	specialDates []reservation.SpecialDate
	serverClosed map[reservation.Date]string
	slots        *availability.Result
	slotsLoading bool
	slotsGen     uint64
	cancelSlots  context.CancelFunc
	submitting   bool
	idemKey      string
	idemPayload  reservation.Payload
	confirmation *Confirmation
	closed       bool

	debounce *debounce.Group
	loads    sync.WaitGroup

	notifyMu sync.Mutex
	onChange func(State)
}

// NewController returns a controller holding an empty draft.
func NewController(cfg Config, deps Dependencies) *Controller {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.NewKey == nil {
		deps.NewKey = uuid.NewString
	}
	return &Controller{
		cfg:          cfg,
		deps:         deps,
		draft:        reservation.NewDraft(cfg.DefaultCountry),
		errs:         reservation.ErrorMap{},
		serverClosed: map[reservation.Date]string{},
		debounce:     debounce.NewGroup(),
	}
}

// OnChange registers fn to receive a fresh State after every change, including
// asynchronous ones. Calls are serialized.
func (c *Controller) OnChange(fn func(State)) {
	c.notifyMu.Lock()
	c.onChange = fn
	c.notifyMu.Unlock()
}

// Init loads the special dates used to flag closed days.
func (c *Controller) Init(ctx context.Context) {
	dates := c.deps.Slots.SpecialDates(ctx)
	c.mu.Lock()
	c.specialDates = dates
	c.mu.Unlock()
	c.notify()
}

// SetSpecialDates replaces the special dates without fetching them.
func (c *Controller) SetSpecialDates(dates []reservation.SpecialDate) {
	c.mu.Lock()
	c.specialDates = append([]reservation.SpecialDate(nil), dates...)
	c.mu.Unlock()
}

// SetName stores the name with digits stripped. Typed digits raise ContainsDigit
// at once; otherwise validation runs after the debounce delay.
func (c *Controller) SetName(raw string) {
	c.mu.Lock()
	stripped := reservation.StripDigits(raw)
	c.draft.Name = stripped
	c.clearLocked(reservation.FieldName)
	if stripped != raw {
		c.debounce.Cancel(keyName)
		c.errs.Set(reservation.FieldName, reservation.ValidateName(raw))
	} else {
		c.scheduleLocked(keyName, c.cfg.ValidationDelay, func() { c.validateNameLocked(stripped) })
	}
	c.mu.Unlock()
	c.notify()
}

// SetCountry changes the calling code and re-validates any phone already entered.
func (c *Controller) SetCountry(code string) {
	c.mu.Lock()
	c.draft.CountryCode = reservation.CanonicalCountryCode(code)
	c.errs.Set(reservation.FieldCountry, reservation.ValidateCountry(c.draft.CountryCode))
	if strings.TrimSpace(c.draft.Phone) != "" {
		c.debounce.Cancel(keyPhone)
		c.validatePhoneLocked(c.draft.Phone, c.draft.CountryCode)
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) SetPhone(phone string) {
	c.mu.Lock()
	c.draft.Phone = phone
	c.clearLocked(reservation.FieldPhone)
	country := c.draft.CountryCode
	c.scheduleLocked(keyPhone, c.cfg.ValidationDelay, func() { c.validatePhoneLocked(phone, country) })
	c.mu.Unlock()
	c.notify()
}

// SetEmail stores the email, then runs the blocking format check and, later, the
// advisory deep-check.
func (c *Controller) SetEmail(email string) {
	c.mu.Lock()
	c.draft.Email = email
	c.clearLocked(reservation.FieldEmail)
	c.advice = reservation.EmailAdvice{}
	c.scheduleLocked(keyEmail, c.cfg.ValidationDelay, func() { c.validateEmailLocked(email) })
	c.scheduleLocked(keyEmailCheck, c.cfg.EmailCheckDelay, func() { c.checkEmailLocked(email) })
	c.mu.Unlock()
	c.notify()
}

// SetDate changes the date without loading slots. A new date clears the time.
func (c *Controller) SetDate(d reservation.Date) {
	c.mu.Lock()
	c.setDateLocked(d)
	c.mu.Unlock()
	c.notify()
}

// SelectDate changes the date and loads its slots in the background. A later
// SelectDate cancels the pending load; a superseded result is never applied.
func (c *Controller) SelectDate(ctx context.Context, d reservation.Date) {
	c.mu.Lock()
	if c.closed || !c.setDateLocked(d) {
		c.mu.Unlock()
		return
	}
	if d.IsZero() {
		c.mu.Unlock()
		c.notify()
		return
	}
	gen := c.slotsGen
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelSlots = cancel
	c.slotsLoading = true
	specials := c.closedDatesLocked()
	c.loads.Add(1)
	c.mu.Unlock()
	c.notify()

	go func() {
		defer c.loads.Done()
		defer cancel()
		res, err := c.deps.Slots.Reconcile(loadCtx, d, specials)

		c.mu.Lock()
		if gen != c.slotsGen {
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.slotsLoading = false
			c.mu.Unlock()
			c.notify()
			return
		}
		c.slots = &res
		c.slotsLoading = false
		if res.Closed {
			c.serverClosed[d] = res.Reason
			c.errs.Set(reservation.FieldDate, reservation.ClosedDateError(res.Reason))
		}
		c.mu.Unlock()
		c.notify()
	}()
}

// setDateLocked applies a date change and reports whether the date changed.
func (c *Controller) setDateLocked(d reservation.Date) bool {
	if !c.draft.SetDate(d) {
		return false
	}
	c.slotsGen++
	if c.cancelSlots != nil {
		c.cancelSlots()
		c.cancelSlots = nil
	}
	c.slots = nil
	c.slotsLoading = false
	c.clearLocked(reservation.FieldDate)
	c.clearLocked(reservation.FieldTime)
	if !d.IsZero() {
		c.validateDateLocked()
	}
	return true
}

// SelectTime picks a slot. With a slot list loaded, only available slots are accepted.
func (c *Controller) SelectTime(slot string) error {
	c.mu.Lock()
	slot = strings.TrimSpace(slot)
	if slot != "" && c.slots != nil {
		normalized, err := reservation.NormalizeTime(slot)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		if s, ok := c.slots.Lookup(normalized); !ok || !s.Available {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrSlotUnavailable, normalized)
		}
	}
	if err := c.draft.SetTime(slot); err != nil {
		c.mu.Unlock()
		return err
	}
	c.clearLocked(reservation.FieldTime)
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) SetPartySize(n int) {
	c.mu.Lock()
	c.draft.PartySize = n
	c.clearLocked(reservation.FieldPartySize)
	c.errs.Set(reservation.FieldPartySize, reservation.ValidatePartySize(n))
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) SetSpecialRequest(s string) {
	c.mu.Lock()
	c.draft.SpecialRequest = s
	c.clearLocked(reservation.FieldSpecialRequest)
	c.errs.Set(reservation.FieldSpecialRequest, reservation.ValidateSpecialRequest(s))
	c.mu.Unlock()
	c.notify()
}

// SetPreorder turns the pre-order panel on or off. Selections are kept either way.
func (c *Controller) SetPreorder(on bool) {
	c.mu.Lock()
	c.draft.Preorder = on
	c.mu.Unlock()
	c.notify()
}

// ToggleDish adds or removes a menu dish and reports whether it is now selected.
func (c *Controller) ToggleDish(category, name string) (bool, error) {
	dish, err := c.lookupDish(category, name)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	selected := c.draft.ToggleDish(category, dish.Name, dish.Price)
	c.mu.Unlock()
	c.notify()
	return selected, nil
}

// SetDishQuantity sets a dish's quantity, selecting it first when needed.
// Quantity 0 removes the line.
func (c *Controller) SetDishQuantity(category, name string, qty int) error {
	dish, err := c.lookupDish(category, name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if !c.draft.SetDishQuantity(category, dish.Name, qty) && qty > 0 {
		c.draft.ToggleDish(category, dish.Name, dish.Price)
		c.draft.SetDishQuantity(category, dish.Name, qty)
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) lookupDish(category, name string) (menu.Dish, error) {
	if c.deps.Menu == nil {
		return menu.Dish{}, ErrUnknownDish
	}
	dish, ok := c.deps.Menu.Lookup(category, name)
	if !ok {
		return menu.Dish{}, fmt.Errorf("%w: %s/%s", ErrUnknownDish, category, name)
	}
	return dish, nil
}

// Validate runs the whole-form validator against the current draft without
// touching the error map.
func (c *Controller) Validate() reservation.ErrorMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return reservation.ValidateForm(c.draft, c.rulesLocked())
}

// Submit validates the whole form and sends it. Only one submission may be in
// flight. Local validation failures return ErrInvalidForm; server and network
// failures return the wrapped client error. The error map and general message
// are updated in every case.
func (c *Controller) Submit(ctx context.Context) (*Confirmation, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	for _, key := range []string{keyName, keyPhone, keyEmail} {
		c.debounce.Cancel(key)
	}
	errs := reservation.ValidateForm(c.draft, c.rulesLocked())
	c.errs = errs
	if !errs.Empty() {
		c.focus, _ = errs.FirstInvalid()
		c.general = msgInvalidForm
		for f, e := range errs {
			c.observeValidation(f, e)
		}
		c.mu.Unlock()
		c.observeSubmission(OutcomeInvalid)
		c.notify()
		return nil, ErrInvalidForm
	}

	c.submitting = true
	c.general = ""
	c.focus = ""
	draft := c.draft.Clone()
	payload := reservation.BuildPayload(draft)
	// A retry reuses the key only for an identical payload.
	if c.idemKey == "" || c.idemPayload != payload {
		c.idemKey = c.deps.NewKey()
		c.idemPayload = payload
	}
	key := c.idemKey
	c.mu.Unlock()
	c.notify()

	res, err := c.deps.Sink.CreateReservation(ctx, payload, key)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		outcome := c.applySubmitErrorLocked(err)
		c.mu.Unlock()
		c.deps.Logger.Warn("reservation submission failed", "outcome", outcome, "date", payload.Date, "error", err)
		c.observeSubmission(outcome)
		c.notify()
		return nil, err
	}

	conf := mergeConfirmation(draft, payload, res)
	c.confirmation = conf
	c.resetLocked()
	c.mu.Unlock()
	c.deps.Logger.Info("reservation submitted", "reservation_id", conf.ID, "date", conf.Date, "time", conf.Time)
	c.observeSubmission(OutcomeSuccess)
	c.notify()
	return conf, nil
}

// applySubmitErrorLocked merges a failed submission into the form state.
func (c *Controller) applySubmitErrorLocked(err error) string {
	var apiErr *restaurantapi.APIError
	if !errors.As(err, &apiErr) {
		// The request may have landed; keep the key so a resubmit is deduplicated.
		c.general = msgConnectivity
		return OutcomeUnreachable
	}
	c.idemKey = ""
	merged := false
	for key, msg := range apiErr.FieldErrors {
		f, ok := reservation.FieldForServerKey(key)
		if !ok {
			continue
		}
		c.errs.Set(f, reservation.FieldError{Code: reservation.CodeServer, Message: msg})
		merged = true
	}
	if merged {
		c.focus, _ = c.errs.FirstInvalid()
	}
	switch {
	case apiErr.Message != "":
		c.general = apiErr.Message
	case !merged:
		c.general = msgRejected
	}
	return OutcomeRejected
}

// resetLocked discards the draft after a successful submission.
func (c *Controller) resetLocked() {
	c.debounce.Stop()
	c.debounce = debounce.NewGroup()
	c.slotsGen++
	if c.cancelSlots != nil {
		c.cancelSlots()
		c.cancelSlots = nil
	}
	c.draft = reservation.NewDraft(c.cfg.DefaultCountry)
	c.errs = reservation.ErrorMap{}
	c.advice = reservation.EmailAdvice{}
	c.general = ""
	c.focus = ""
	c.slots = nil
	c.slotsLoading = false
	c.idemKey = ""
	c.idemPayload = reservation.Payload{}
}

// Wait blocks until pending debounced validations and slot loads have finished.
func (c *Controller) Wait() {
	c.mu.Lock()
	group := c.debounce
	c.mu.Unlock()
	group.Flush()
	c.loads.Wait()
}

// Settle runs pending debounced checks at once, then waits for slot loads.
// One-shot callers use it instead of Wait so they never sit out the keystroke delays.
func (c *Controller) Settle() {
	c.mu.Lock()
	group := c.debounce
	c.mu.Unlock()
	for _, key := range []string{keyName, keyPhone, keyEmail, keyEmailCheck} {
		group.Trigger(key)
	}
	c.loads.Wait()
}

// Close stops pending work. Later submissions return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.debounce.Stop()
	c.slotsGen++
	if c.cancelSlots != nil {
		c.cancelSlots()
		c.cancelSlots = nil
	}
	c.mu.Unlock()
}

// scheduleLocked runs fn with c.mu held, inline when delay is zero, otherwise
// after delay unless superseded. Each fn re-checks that the draft still holds
// the value it was scheduled for, so a stale result never lands.
func (c *Controller) scheduleLocked(key string, delay time.Duration, fn func()) {
	if delay <= 0 {
		c.debounce.Cancel(key)
		fn()
		return
	}
	c.debounce.Schedule(key, delay, func() {
		c.mu.Lock()
		fn()
		c.mu.Unlock()
		c.notify()
	})
}

func (c *Controller) validateNameLocked(value string) {
	if c.draft.Name != value {
		return
	}
	c.errs.Set(reservation.FieldName, reservation.ValidateName(value))
}

func (c *Controller) validatePhoneLocked(phone, country string) {
	if c.draft.Phone != phone || c.draft.CountryCode != country {
		return
	}
	if strings.TrimSpace(country) == "" {
		c.errs.Set(reservation.FieldPhone, reservation.FieldError{})
		return
	}
	c.errs.Set(reservation.FieldPhone, reservation.ValidatePhone(phone, country))
}

func (c *Controller) validateEmailLocked(email string) {
	if c.draft.Email != email {
		return
	}
	c.errs.Set(reservation.FieldEmail, reservation.ValidateEmail(email))
}

func (c *Controller) checkEmailLocked(email string) {
	if c.draft.Email != email {
		return
	}
	c.advice = reservation.CheckEmail(email)
}

func (c *Controller) validateDateLocked() {
	rules := c.rulesLocked()
	err := reservation.ValidateDate(c.draft.Date, rules.Today, rules.WindowDays)
	if err.OK() {
		if reason, closed := rules.ClosedOn(c.draft.Date); closed {
			err = reservation.ClosedDateError(reason)
		}
	}
	c.errs.Set(reservation.FieldDate, err)
}

// clearLocked drops the error for a field whose value just changed.
func (c *Controller) clearLocked(f reservation.Field) {
	delete(c.errs, f)
	if c.focus == f {
		c.focus = ""
	}
}

// closedDatesLocked merges loaded special dates with closures the API reported.
func (c *Controller) closedDatesLocked() []reservation.SpecialDate {
	out := append([]reservation.SpecialDate(nil), c.specialDates...)
	for d, notice := range c.serverClosed {
		out = append(out, reservation.SpecialDate{Date: d, IsOpen: false, Reason: notice})
	}
	return out
}

func (c *Controller) rulesLocked() reservation.Rules {
	rules := reservation.Rules{WindowDays: c.cfg.WindowDays, SpecialDates: c.closedDatesLocked()}
	if c.deps.Slots != nil {
		rules.Today = c.deps.Slots.Today()
	}
	return rules
}

func (c *Controller) observeSubmission(outcome string) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.ObserveSubmission(outcome)
	}
}

func (c *Controller) observeValidation(f reservation.Field, e reservation.FieldError) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.ObserveValidationError(string(f), string(e.Code))
	}
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if c.onChange == nil {
		return
	}
	c.onChange(c.State())
}
