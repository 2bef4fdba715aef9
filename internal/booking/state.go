package booking

import (
	"github.com/wolfman30/tablebook/internal/availability"
	"github.com/wolfman30/tablebook/internal/reservation"
)

// State is an immutable snapshot of the form, rendered by templates and pushed
// over the live session.
type State struct {
	Draft        *reservation.Draft      `json:"draft"`
	Errors       map[string]string       `json:"errors"`
	ErrorCodes   map[string]string       `json:"error_codes"`
	EmailAdvice  reservation.EmailAdvice `json:"email_advice"`
	GeneralError string                  `json:"general_error,omitempty"`
	FocusField   reservation.Field       `json:"focus_field,omitempty"`
	Slots        *availability.Result    `json:"slots,omitempty"`
	SlotsLoading bool                    `json:"slots_loading"`
	Submitting   bool                    `json:"submitting"`
	CanSubmit    bool                    `json:"can_submit"`
	DishTotal    int                     `json:"dish_total"`
	Confirmation *Confirmation           `json:"confirmation,omitempty"`
}

// HasError reports whether field f carries an error.
func (s State) HasError(f string) bool {
	_, ok := s.Errors[f]
	return ok
}

// State returns a snapshot of the current form.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Draft:        c.draft.Clone(),
		Errors:       c.errs.Messages(),
		ErrorCodes:   make(map[string]string, len(c.errs)),
		EmailAdvice:  c.advice,
		GeneralError: c.general,
		FocusField:   c.focus,
		SlotsLoading: c.slotsLoading,
		Submitting:   c.submitting,
		DishTotal:    c.draft.DishTotal(),
		Confirmation: c.confirmation,
	}
	for f, e := range c.errs {
		st.ErrorCodes[string(f)] = string(e.Code)
	}
	if c.slots != nil {
		res := *c.slots
		res.Slots = append([]availability.Slot(nil), c.slots.Slots...)
		st.Slots = &res
	}
	st.CanSubmit = c.canSubmitLocked()
	return st
}

// canSubmitLocked mirrors the submit button: disabled while submitting, without
// a date and time, or on a closed date. Slot loading does not disable it.
func (c *Controller) canSubmitLocked() bool {
	if c.submitting || c.draft.Date.IsZero() || c.draft.Time == "" {
		return false
	}
	if c.slots != nil && c.slots.Closed {
		return false
	}
	_, closed := c.rulesLocked().ClosedOn(c.draft.Date)
	return !closed
}
