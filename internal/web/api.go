package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/tablebook/internal/reservation"
)

type checkRequest struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Country string `json:"country"`
}

// handleSlots serves the reconciled slot list for ?date=YYYY-MM-DD.
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	d, err := reservation.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	res, err := s.deps.Slots.Reconcile(r.Context(), d, s.deps.Slots.SpecialDates(r.Context()))
	if err != nil {
		// Only a cancelled request gets here.
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCheck validates one field for inline feedback.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	field := reservation.Field(req.Field)
	rules := reservation.Rules{WindowDays: s.deps.WindowDays}
	if field == reservation.FieldDate && s.deps.Slots != nil {
		rules.Today = s.deps.Slots.Today()
		rules.SpecialDates = s.deps.Slots.SpecialDates(r.Context())
	}
	check, err := reservation.CheckField(field, req.Value, req.Country, rules)
	if errors.Is(err, reservation.ErrUnknownField) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !check.Valid {
		s.logger.Debug("field check failed", "field", req.Field, "code", check.Code)
	}
	writeJSON(w, http.StatusOK, check)
}
