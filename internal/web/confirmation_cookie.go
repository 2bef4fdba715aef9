package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/wolfman30/tablebook/internal/booking"
)

const (
	confirmationCookie = "tablebook_confirmation"
	confirmationMaxAge = 15 * time.Minute
)

// ErrNoConfirmation is returned when the visitor carries no valid confirmation cookie.
var ErrNoConfirmation = errors.New("web: no confirmation")

// ConfirmationStore hands a confirmation from the POST to the redirected GET in a
// signed, encrypted cookie.
type ConfirmationStore struct {
	sc *securecookie.SecureCookie
}

// NewConfirmationStore builds a store from securecookie keys. blockKey may be nil
// to sign without encrypting.
func NewConfirmationStore(hashKey, blockKey []byte) *ConfirmationStore {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(confirmationMaxAge.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &ConfirmationStore{sc: sc}
}

// Save writes c into the response cookie.
func (s *ConfirmationStore) Save(w http.ResponseWriter, r *http.Request, c *booking.Confirmation) error {
	encoded, err := s.sc.Encode(confirmationCookie, c)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     confirmationCookie,
		Value:    encoded,
		Path:     "/reservation",
		MaxAge:   int(confirmationMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Load decodes the confirmation cookie. Refreshing the page keeps showing it
// until the cookie expires.
func (s *ConfirmationStore) Load(r *http.Request) (*booking.Confirmation, error) {
	cookie, err := r.Cookie(confirmationCookie)
	if err != nil {
		return nil, ErrNoConfirmation
	}
	var c booking.Confirmation
	if err := s.sc.Decode(confirmationCookie, cookie.Value, &c); err != nil {
		return nil, errors.Join(ErrNoConfirmation, err)
	}
	return &c, nil
}
