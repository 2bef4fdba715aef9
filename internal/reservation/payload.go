package reservation

import "strings"

// Payload is the body of POST /api/reservations/create/.
type Payload struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	NumberOfGuests  int    `json:"number_of_guests"`
	SpecialRequests string `json:"special_requests"`
}

// BuildPayload normalizes a draft for submission. The date is written from the
// draft's calendar fields, so no zone conversion can move it to another day.
func BuildPayload(d *Draft) Payload {
	return Payload{
		CustomerName:    NormalizeName(d.Name),
		CustomerEmail:   strings.TrimSpace(d.Email),
		CustomerPhone:   d.InternationalPhone(),
		Date:            d.Date.String(),
		Time:            d.Time,
		NumberOfGuests:  d.PartySize,
		SpecialRequests: joinRequest(strings.TrimSpace(d.SpecialRequest), d.Itemization()),
	}
}

func joinRequest(request, itemization string) string {
	switch {
	case itemization == "":
		return request
	case request == "":
		return itemization
	default:
		return request + "\n\n" + itemization
	}
}

var serverFieldKeys = map[string]Field{
	"customer_name":    FieldName,
	"customer_phone":   FieldPhone,
	"customer_email":   FieldEmail,
	"date":             FieldDate,
	"time":             FieldTime,
	"number_of_guests": FieldPartySize,
	"special_requests": FieldSpecialRequest,
}

// FieldForServerKey maps a reservation API payload key to the form field it came from.
func FieldForServerKey(key string) (Field, bool) {
	f, ok := serverFieldKeys[key]
	return f, ok
}
