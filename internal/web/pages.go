package web

import (
	"net/http"

	"github.com/wolfman30/tablebook/internal/restaurantapi"
)

// DefaultRestaurant is shown when the API cannot provide the profile.
func DefaultRestaurant() *restaurantapi.Restaurant {
	return &restaurantapi.Restaurant{
		Name:         "Resto Pêcheur",
		Address:      "M7RG+RJ3, Bd Mohamed Hafidi, Tiznit 85000",
		Phone:        "+212 661 46 05 93",
		Description:  "Découvrez notre restaurant familial situé au cœur de Tiznit. Nous vous proposons les meilleurs poissons et fruits de mer de la région, ainsi que des spécialités marocaines authentiques préparées avec des produits frais locaux.",
		OpeningHours: "12:00",
		ClosingHours: "23:00",
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home.html", page{
		Title:      "Accueil",
		Restaurant: s.restaurant(r),
	})
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "menu.html", page{
		Title:      "Menu",
		Restaurant: s.restaurant(r),
		Menu:       s.deps.Menu,
	})
}

// restaurant merges the API profile over the built-in one, field by field.
func (s *Server) restaurant(r *http.Request) *restaurantapi.Restaurant {
	out := DefaultRestaurant()
	if s.deps.Profile == nil {
		return out
	}
	p, err := s.deps.Profile.GetRestaurant(r.Context())
	if err != nil || p == nil {
		s.logger.Warn("restaurant profile unavailable, using built-in profile", "error", err)
		return out
	}
	out.ID = p.ID
	for dst, src := range map[*string]string{
		&out.Name:         p.Name,
		&out.Address:      p.Address,
		&out.Phone:        p.Phone,
		&out.Email:        p.Email,
		&out.Description:  p.Description,
		&out.OpeningHours: p.OpeningHours,
		&out.ClosingHours: p.ClosingHours,
	} {
		if src != "" {
			*dst = src
		}
	}
	return out
}
