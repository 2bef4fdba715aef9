package web

import (
	"errors"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/wolfman30/tablebook/internal/booking"
	"github.com/wolfman30/tablebook/internal/menu"
	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
)

const (
	dishFieldPrefix = "qty:"
	msgSlotGone     = "Ce créneau n'est plus disponible, veuillez en choisir un autre."
)

// formView is the reservation template's model.
type formView struct {
	booking.State
	Countries  []reservation.Country
	PartySizes []int
	MinDate    string
	MaxDate    string
	Menu       *menu.Menu
	Flash      string
}

func (f *formView) Err(field string) string {
	return f.Errors[field]
}

// Focus marks the first invalid field after a failed submission.
func (f *formView) Focus(field string) bool {
	return string(f.FocusField) == field
}

func (f *formView) DishQty(category, name string) int {
	id := reservation.DishID(category, name)
	for _, d := range f.Draft.Dishes {
		if d.ID == id {
			return d.Quantity
		}
	}
	return 0
}

func (s *Server) newFormView(st booking.State, flash string) *formView {
	sizes := make([]int, 0, reservation.MaxPartySize)
	for n := reservation.MinPartySize; n <= reservation.MaxPartySize; n++ {
		sizes = append(sizes, n)
	}
	view := &formView{
		State:      st,
		Countries:  reservation.Countries(),
		PartySizes: sizes,
		Menu:       s.deps.Menu,
		Flash:      flash,
	}
	if s.deps.Slots != nil {
		today := s.deps.Slots.Today()
		view.MinDate = today.String()
		if s.deps.WindowDays > 0 {
			view.MaxDate = today.AddDays(s.deps.WindowDays).String()
		}
	}
	return view
}

func (s *Server) handleReservationForm(w http.ResponseWriter, r *http.Request) {
	ctrl := s.deps.NewController()
	defer ctrl.Close()
	ctrl.Init(r.Context())

	q := r.URL.Query()
	flash := ""
	if d, err := reservation.ParseDate(q.Get("date")); err == nil && !d.IsZero() {
		ctrl.SelectDate(r.Context(), d)
		ctrl.Settle()
		if t := q.Get("time"); t != "" {
			if err := ctrl.SelectTime(t); errors.Is(err, booking.ErrSlotUnavailable) {
				flash = msgSlotGone
			}
		}
	}
	s.render(w, http.StatusOK, "reservation.html", page{
		Title: "Réservation",
		Form:  s.newFormView(ctrl.State(), flash),
	})
}

func (s *Server) handleReservationSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctrl := s.deps.NewController()
	defer ctrl.Close()
	ctrl.Init(r.Context())

	flash := s.applyForm(r, ctrl, r.PostForm)
	conf, err := ctrl.Submit(r.Context())
	if err == nil {
		if saveErr := s.deps.Confirmations.Save(w, r, conf); saveErr != nil {
			// Oversized or unencodable cookie; show the confirmation directly.
			s.logger.Warn("confirmation cookie not set", "reservation_id", conf.ID, "error", saveErr)
			s.render(w, http.StatusOK, "confirmation.html", page{Title: "Confirmation", Confirmation: conf})
			return
		}
		http.Redirect(w, r, "/reservation/confirmation", http.StatusSeeOther)
		return
	}

	status := http.StatusUnprocessableEntity
	if errors.Is(err, restaurantapi.ErrUnreachable) {
		status = http.StatusServiceUnavailable
	}
	s.render(w, status, "reservation.html", page{
		Title: "Réservation",
		Form:  s.newFormView(ctrl.State(), flash),
	})
}

// applyForm feeds the posted values through the controller's event methods, in
// form order. It returns a flash message when the posted slot is no longer offered.
func (s *Server) applyForm(r *http.Request, ctrl *booking.Controller, form url.Values) string {
	ctrl.SetName(form.Get("name"))
	if form.Has("country") {
		ctrl.SetCountry(form.Get("country"))
	}
	ctrl.SetPhone(form.Get("phone"))
	ctrl.SetEmail(form.Get("email"))

	flash := ""
	if d, err := reservation.ParseDate(form.Get("date")); err == nil && !d.IsZero() {
		ctrl.SelectDate(r.Context(), d)
		ctrl.Settle()
		if t := strings.TrimSpace(form.Get("time")); t != "" {
			if err := ctrl.SelectTime(t); err != nil {
				flash = msgSlotGone
			}
		}
	}

	size, err := strconv.Atoi(strings.TrimSpace(form.Get("party_size")))
	if err != nil {
		size = 0
	}
	ctrl.SetPartySize(size)
	ctrl.SetSpecialRequest(form.Get("special_request"))

	ctrl.SetPreorder(form.Get("preorder") == "on")
	for _, key := range slices.Sorted(maps.Keys(form)) {
		rest, ok := strings.CutPrefix(key, dishFieldPrefix)
		values := form[key]
		if !ok || len(values) == 0 {
			continue
		}
		category, name, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		qty, err := strconv.Atoi(strings.TrimSpace(values[0]))
		if err != nil || qty <= 0 {
			continue
		}
		if err := ctrl.SetDishQuantity(category, name, qty); err != nil {
			s.logger.Warn("ignoring unknown dish", "category", category, "dish", name)
		}
	}
	ctrl.Settle()
	return flash
}

func (s *Server) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	conf, err := s.deps.Confirmations.Load(r)
	if err != nil {
		http.Redirect(w, r, "/reservation", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "confirmation.html", page{
		Title:        "Confirmation",
		Confirmation: conf,
	})
}
