package booking

import "errors"

var (
	// ErrSubmissionInFlight is returned when Submit is called while a submission is outstanding.
	ErrSubmissionInFlight = errors.New("booking: submission already in progress")
	// ErrInvalidForm is returned when local validation blocks submission.
	ErrInvalidForm = errors.New("booking: form has validation errors")
	// ErrSlotUnavailable is returned when selecting a time the current slot list marks unavailable.
	ErrSlotUnavailable = errors.New("booking: time slot unavailable")
	// ErrUnknownDish is returned when a pre-order references a dish missing from the menu.
	ErrUnknownDish = errors.New("booking: unknown dish")
	// ErrClosed is returned by event methods after Close.
	ErrClosed = errors.New("booking: controller closed")
)

const (
	msgConnectivity = "Erreur de connexion. Veuillez réessayer."
	msgRejected     = "Erreur lors de la réservation"
	msgInvalidForm  = "Veuillez corriger les erreurs du formulaire."
)
