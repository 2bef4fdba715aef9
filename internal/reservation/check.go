package reservation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownField is returned by CheckField for a field it cannot check alone.
var ErrUnknownField = errors.New("reservation: unknown field")

// FieldCheck is the result of checking one field in isolation.
type FieldCheck struct {
	Field   Field        `json:"field"`
	Valid   bool         `json:"valid"`
	Code    ErrorCode    `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
	Advice  *EmailAdvice `json:"advice,omitempty"`
}

// CheckField validates a single raw value the way the form would. Email checks
// also carry the advisory deep-check result.
func CheckField(f Field, value, country string, rules Rules) (FieldCheck, error) {
	var fe FieldError
	var advice *EmailAdvice
	switch f {
	case FieldName:
		fe = ValidateName(value)
	case FieldCountry:
		fe = ValidateCountry(value)
	case FieldPhone:
		if strings.TrimSpace(country) == "" {
			fe = phoneWithoutCountry(value)
		} else {
			fe = ValidatePhone(value, country)
		}
	case FieldEmail:
		fe = ValidateEmail(value)
		if a := CheckEmail(value); a.Status != AdviceNone {
			advice = &a
		}
	case FieldDate:
		d, err := ParseDate(strings.TrimSpace(value))
		if err != nil {
			fe = FieldError{Code: CodeMissingDate, Message: "Date invalide (format AAAA-MM-JJ)"}
			break
		}
		fe = ValidateDate(d, rules.Today, rules.WindowDays)
		if fe.OK() {
			if reason, closed := rules.ClosedOn(d); closed {
				fe = ClosedDateError(reason)
			}
		}
	case FieldTime:
		fe = ValidateTime(value)
		if fe.OK() {
			if _, err := NormalizeTime(value); err != nil {
				fe = FieldError{Code: CodeMissingTime, Message: "Créneau horaire invalide"}
			}
		}
	case FieldPartySize:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			n = 0
		}
		fe = ValidatePartySize(n)
	case FieldSpecialRequest:
		fe = ValidateSpecialRequest(value)
	default:
		return FieldCheck{}, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return FieldCheck{Field: f, Valid: fe.OK(), Code: fe.Code, Message: fe.Message, Advice: advice}, nil
}
