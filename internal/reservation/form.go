package reservation

// SpecialDate overrides the weekly schedule for one day.
type SpecialDate struct {
	Date   Date   `json:"date"`
	IsOpen bool   `json:"is_open"`
	Reason string `json:"reason,omitempty"`
}

// Rules is the context the whole-form validator checks a draft against.
type Rules struct {
	// Today enables the booking-window checks when non-zero.
	Today        Date
	WindowDays   int
	SpecialDates []SpecialDate
}

// ClosedOn reports whether d is a special date marked closed, with its reason.
func (r Rules) ClosedOn(d Date) (string, bool) {
	if d.IsZero() {
		return "", false
	}
	for _, sd := range r.SpecialDates {
		if sd.Date == d && !sd.IsOpen {
			return sd.Reason, true
		}
	}
	return "", false
}

// ValidateForm runs every field validator plus the closed-date check. It does not
// mutate the draft, so repeated calls on an unchanged draft return equal maps.
func ValidateForm(d *Draft, rules Rules) ErrorMap {
	errs := ErrorMap{}
	errs.Set(FieldName, ValidateName(d.Name))
	errs.Set(FieldCountry, ValidateCountry(d.CountryCode))
	if _, ok := errs[FieldCountry]; ok {
		errs.Set(FieldPhone, phoneWithoutCountry(d.Phone))
	} else {
		errs.Set(FieldPhone, ValidatePhone(d.Phone, d.CountryCode))
	}
	errs.Set(FieldEmail, ValidateEmail(d.Email))
	errs.Set(FieldDate, ValidateDate(d.Date, rules.Today, rules.WindowDays))
	if _, ok := errs[FieldDate]; !ok {
		if reason, closed := rules.ClosedOn(d.Date); closed {
			errs.Set(FieldDate, ClosedDateError(reason))
		}
	}
	errs.Set(FieldTime, ValidateTime(d.Time))
	errs.Set(FieldPartySize, ValidatePartySize(d.PartySize))
	errs.Set(FieldSpecialRequest, ValidateSpecialRequest(d.SpecialRequest))
	return errs
}

// phoneWithoutCountry checks what can be checked about a phone before a country is chosen.
func phoneWithoutCountry(phone string) FieldError {
	err := ValidatePhone(phone, "")
	if err.Code == CodeMissingCountry {
		return FieldError{}
	}
	return err
}
