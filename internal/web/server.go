// Package web serves the server-rendered restaurant pages, the reservation form
// and its JSON helpers.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/tablebook/internal/booking"
	"github.com/wolfman30/tablebook/internal/menu"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
	"github.com/wolfman30/tablebook/pkg/logging"
)

//go:embed templates/*.html static/*
var assets embed.FS

var pages = []string{"home.html", "menu.html", "reservation.html", "confirmation.html"}

// ProfileSource supplies the restaurant profile shown on the home page.
type ProfileSource interface {
	GetRestaurant(ctx context.Context) (*restaurantapi.Restaurant, error)
}

// Dependencies wires a Server. NewController must return a fresh controller per call.
type Dependencies struct {
	Profile       ProfileSource
	Slots         booking.SlotSource
	Menu          *menu.Menu
	NewController func() *booking.Controller
	Confirmations *ConfirmationStore
	WindowDays    int
	Logger        *logging.Logger
}

// Server renders the public site.
type Server struct {
	deps      Dependencies
	logger    *logging.Logger
	templates map[string]*template.Template
}

// NewServer parses the embedded templates.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Menu == nil {
		m, err := menu.Load()
		if err != nil {
			return nil, err
		}
		deps.Menu = m
	}
	s := &Server{deps: deps, logger: deps.Logger, templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(assets, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		s.templates[name] = t
	}
	return s, nil
}

// Routes returns the public routes. The live session is mounted by the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	static, _ := fs.Sub(assets, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/", s.handleHome)
	r.Get("/menu", s.handleMenu)
	r.Route("/reservation", func(r chi.Router) {
		r.Get("/", s.handleReservationForm)
		r.Post("/", s.handleReservationSubmit)
		r.Get("/confirmation", s.handleConfirmation)
		r.Get("/slots", s.handleSlots)
		r.Post("/check", s.handleCheck)
	})
	return r
}

// page is the data every template receives.
type page struct {
	Title        string
	Restaurant   *restaurantapi.Restaurant
	Menu         *menu.Menu
	Form         *formView
	Confirmation *booking.Confirmation
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data page) {
	t, ok := s.templates[name]
	if !ok {
		http.Error(w, "template not found: "+name, http.StatusInternalServerError)
		return
	}
	if data.Restaurant == nil {
		data.Restaurant = DefaultRestaurant()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.logger.Error("render failed", "template", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var templateFuncs = template.FuncMap{
	"longDate": booking.FormatLongDate,
}
