package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
)

// Confirmation is what the confirmation view shows after a successful submission.
// Each field prefers the server's value and falls back to what the form sent.
type Confirmation struct {
	ID              string                     `json:"id"`
	Status          string                     `json:"status"`
	Message         string                     `json:"message,omitempty"`
	CustomerName    string                     `json:"customer_name"`
	CustomerEmail   string                     `json:"customer_email,omitempty"`
	CustomerPhone   string                     `json:"customer_phone"`
	Date            string                     `json:"date"`
	Time            string                     `json:"time"`
	NumberOfGuests  int                        `json:"number_of_guests"`
	SpecialRequests string                     `json:"special_requests,omitempty"`
	Dishes          []reservation.SelectedDish `json:"dishes,omitempty"`
	PreorderTotal   int                        `json:"preorder_total,omitempty"`
}

func mergeConfirmation(draft *reservation.Draft, sent reservation.Payload, res *restaurantapi.CreateResult) *Confirmation {
	server := restaurantapi.Reservation{}
	var id, message string
	if res != nil {
		server = res.Reservation
		id = res.ID.String()
		message = res.Message
	}
	c := &Confirmation{
		ID:              firstNonEmpty(id, server.ID.String()),
		Status:          firstNonEmpty(server.Status, "pending"),
		Message:         message,
		CustomerName:    firstNonEmpty(server.CustomerName, sent.CustomerName),
		CustomerEmail:   firstNonEmpty(server.CustomerEmail, sent.CustomerEmail),
		CustomerPhone:   firstNonEmpty(server.CustomerPhone, sent.CustomerPhone),
		Date:            firstNonEmpty(server.Date, sent.Date),
		Time:            firstNonEmpty(server.Time, sent.Time),
		NumberOfGuests:  sent.NumberOfGuests,
		SpecialRequests: firstNonEmpty(server.SpecialRequests, sent.SpecialRequests),
	}
	if server.NumberOfGuests > 0 {
		c.NumberOfGuests = server.NumberOfGuests
	}
	if t, err := reservation.NormalizeTime(c.Time); err == nil {
		c.Time = t
	}
	if draft.Preorder && len(draft.Dishes) > 0 {
		c.Dishes = append([]reservation.SelectedDish(nil), draft.Dishes...)
		c.PreorderTotal = draft.DishTotal()
	}
	return c
}

// StatusLabel is the French label for the reservation status.
func (c *Confirmation) StatusLabel() string {
	switch strings.ToLower(c.Status) {
	case "pending":
		return "En attente"
	case "confirmed":
		return "Confirmée"
	case "cancelled", "canceled":
		return "Annulée"
	default:
		return c.Status
	}
}

// GuestsLabel renders "1 personne" / "4 personnes".
func (c *Confirmation) GuestsLabel() string {
	n := c.NumberOfGuests
	if n < 1 {
		n = 1
	}
	if n > 1 {
		return fmt.Sprintf("%d personnes", n)
	}
	return "1 personne"
}

var (
	frenchWeekdays = [...]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}
	frenchMonths   = [...]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}
)

// LongDate renders the date as "samedi 2 mai 2026", or the raw value when unparseable.
func (c *Confirmation) LongDate() string {
	d, err := reservation.ParseDate(c.Date)
	if err != nil {
		return c.Date
	}
	return FormatLongDate(d)
}

// FormatLongDate renders a civil date in long French form.
func FormatLongDate(d reservation.Date) string {
	wd := d.In(time.UTC).Weekday()
	return fmt.Sprintf("%s %d %s %d", frenchWeekdays[wd], d.Day, frenchMonths[d.Month-1], d.Year)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
