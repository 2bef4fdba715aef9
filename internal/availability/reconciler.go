// Package availability turns a selected date into the slot list shown on the
// booking form: special-date closures first, then live availability with the
// same-day look-ahead, then placeholder slots when the API is unreachable.
package availability

import (
	"context"
	"sort"
	"time"

	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
	"github.com/wolfman30/tablebook/pkg/logging"
)

// DefaultLead is the same-day look-ahead window.
const DefaultLead = 30 * time.Minute

// Source says where a slot list came from.
type Source string

const (
	SourceLive        Source = "live"
	SourceFallback    Source = "fallback"
	SourceSpecialDate Source = "special_date"
)

// Slot is one renderable time of day.
type Slot struct {
	Time           string `json:"time"`
	TimeID         int    `json:"time_id"`
	Available      bool   `json:"available"`
	AvailableCount int    `json:"available_count"`
}

// Result is the reconciled slot list for one date.
type Result struct {
	Date   reservation.Date `json:"date"`
	Source Source           `json:"source"`
	Closed bool             `json:"closed"`
	Reason string           `json:"reason,omitempty"`
	Notice string           `json:"notice,omitempty"`
	Slots  []Slot           `json:"slots"`
}

// HasAvailable reports whether any slot can be booked.
func (r Result) HasAvailable() bool {
	for _, s := range r.Slots {
		if s.Available {
			return true
		}
	}
	return false
}

// Lookup finds a slot by its HH:MM time.
func (r Result) Lookup(t string) (Slot, bool) {
	for _, s := range r.Slots {
		if s.Time == t {
			return s, true
		}
	}
	return Slot{}, false
}

// API is the subset of the reservation API the reconciler reads.
type API interface {
	GetAvailability(ctx context.Context, date reservation.Date) (*restaurantapi.Availability, error)
	GetSpecialDates(ctx context.Context) ([]reservation.SpecialDate, error)
	GetTimeSlots(ctx context.Context) ([]restaurantapi.TimeSlot, error)
}

// Recorder counts reconciled results by source.
type Recorder interface {
	ObserveAvailability(source string)
}

// Reconciler produces slot lists. It holds no per-form state and is safe for concurrent use.
type Reconciler struct {
	api      API
	now      func() time.Time
	loc      *time.Location
	lead     time.Duration
	logger   *logging.Logger
	recorder Recorder
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithClock injects the current-time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithLocation sets the restaurant's zone, which defines "today".
func WithLocation(loc *time.Location) Option {
	return func(r *Reconciler) { r.loc = loc }
}

// WithLead overrides the same-day look-ahead window.
func WithLead(d time.Duration) Option {
	return func(r *Reconciler) { r.lead = d }
}

// WithRecorder reports each result's source.
func WithRecorder(rec Recorder) Option {
	return func(r *Reconciler) { r.recorder = rec }
}

// NewReconciler builds a Reconciler over api.
func NewReconciler(api API, logger *logging.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Reconciler{
		api:    api,
		now:    time.Now,
		loc:    time.Local,
		lead:   DefaultLead,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Today is the current calendar day in the restaurant's zone.
func (r *Reconciler) Today() reservation.Date {
	return reservation.DateOf(r.now().In(r.loc))
}

// SpecialDates loads the schedule overrides. Failures yield an empty list; the
// server still rejects closed dates authoritatively on submission.
func (r *Reconciler) SpecialDates(ctx context.Context) []reservation.SpecialDate {
	dates, err := r.api.GetSpecialDates(ctx)
	if err != nil {
		r.logger.Warn("special dates unavailable", "error", err)
		return nil
	}
	return dates
}

// Reconcile returns the slots for date. An unreachable or failing API yields
// placeholder slots tagged SourceFallback; the only error is ctx.Err() once the
// request was cancelled, so callers can drop superseded lookups.
func (r *Reconciler) Reconcile(ctx context.Context, date reservation.Date, specialDates []reservation.SpecialDate) (Result, error) {
	rules := reservation.Rules{SpecialDates: specialDates}
	if reason, closed := rules.ClosedOn(date); closed {
		r.observe(SourceSpecialDate)
		return Result{
			Date:   date,
			Source: SourceSpecialDate,
			Closed: true,
			Reason: reason,
			Notice: reservation.ClosedDateError(reason).Message,
			Slots:  []Slot{},
		}, nil
	}

	resp, err := r.api.GetAvailability(ctx, date)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		r.logger.Warn("availability unavailable, serving placeholder slots", "date", date.String(), "error", err)
		r.observe(SourceFallback)
		return Result{
			Date:   date,
			Source: SourceFallback,
			Notice: "Disponibilités indicatives : la vérification en direct est momentanément indisponible.",
			Slots:  r.applyLookAhead(date, r.fallbackSlots(ctx)),
		}, nil
	}

	if resp.Closed() {
		r.observe(SourceLive)
		return Result{
			Date:   date,
			Source: SourceLive,
			Closed: true,
			Reason: resp.ClosedReason(),
			Notice: reservation.ClosedDateError(resp.ClosedReason()).Message,
			Slots:  []Slot{},
		}, nil
	}

	slots := make([]Slot, 0, len(resp.Slots))
	for _, s := range resp.Slots {
		t, err := reservation.NormalizeTime(s.Time)
		if err != nil {
			r.logger.Warn("skipping slot with invalid time", "date", date.String(), "time", s.Time)
			continue
		}
		slot := Slot{Time: t, TimeID: s.TimeID, Available: s.IsAvailable}
		if slot.Available {
			slot.AvailableCount = s.AvailableSpots
		}
		slots = append(slots, slot)
	}
	r.observe(SourceLive)
	return Result{Date: date, Source: SourceLive, Slots: r.applyLookAhead(date, slots)}, nil
}

// applyLookAhead marks same-day slots starting less than lead from now unavailable.
func (r *Reconciler) applyLookAhead(date reservation.Date, slots []Slot) []Slot {
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })

	now := r.now().In(r.loc)
	if date != reservation.DateOf(now) {
		return slots
	}
	cutoff := now.Add(r.lead)
	for i := range slots {
		start, err := date.At(slots[i].Time, r.loc)
		if err != nil {
			continue
		}
		if start.Before(cutoff) {
			slots[i].Available = false
			slots[i].AvailableCount = 0
		}
	}
	return slots
}

// placeholderSlots mirrors the restaurant's default seating plan.
var placeholderSlots = []Slot{
	{Time: "12:00", TimeID: 1, Available: true, AvailableCount: 10},
	{Time: "13:00", TimeID: 2, Available: true, AvailableCount: 12},
	{Time: "14:00", TimeID: 3, Available: true, AvailableCount: 10},
	{Time: "19:00", TimeID: 4, Available: true, AvailableCount: 8},
	{Time: "20:00", TimeID: 5, Available: true, AvailableCount: 10},
	{Time: "21:00", TimeID: 6, Available: true, AvailableCount: 8},
}

// fallbackSlots prefers the defined time slots (often cached) over the fixed placeholder list.
func (r *Reconciler) fallbackSlots(ctx context.Context) []Slot {
	defined, err := r.api.GetTimeSlots(ctx)
	if err == nil {
		var slots []Slot
		for _, ts := range defined {
			if !ts.IsActive {
				continue
			}
			t, err := reservation.NormalizeTime(ts.Time)
			if err != nil {
				continue
			}
			slots = append(slots, Slot{Time: t, TimeID: ts.ID, Available: true, AvailableCount: ts.MaxReservations})
		}
		if len(slots) > 0 {
			return slots
		}
	}
	return append([]Slot(nil), placeholderSlots...)
}

func (r *Reconciler) observe(source Source) {
	if r.recorder != nil {
		r.recorder.ObserveAvailability(string(source))
	}
}
