package reservation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	nameMinLen           = 2
	nameMaxLen           = 50
	emailMaxLen          = 100
	specialRequestMaxLen = 500
	MinPartySize         = 1
	MaxPartySize         = 10
)

var (
	nameAllowed  = regexp.MustCompile(`^[\p{L}\p{M} '’.\-]+$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NormalizeName trims surrounding space and composes the name to NFC so accented
// letters typed as base+combining mark count as one character.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// StripDigits removes every digit from s. Applied to the name input as the user types.
func StripDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, s)
}

// StripPhone removes spaces, dashes and parentheses from a local number.
func StripPhone(phone string) string {
	return phoneStrip.Replace(strings.TrimSpace(phone))
}

func ValidateName(name string) FieldError {
	name = NormalizeName(name)
	switch {
	case name == "":
		return FieldError{Code: CodeEmptyName, Message: "Le nom est requis"}
	case utf8.RuneCountInString(name) < nameMinLen:
		return FieldError{Code: CodeTooShort, Message: "Le nom doit contenir au moins 2 caractères"}
	case strings.IndexFunc(name, unicode.IsDigit) >= 0:
		return FieldError{Code: CodeContainsDigit, Message: "Le nom ne peut pas contenir de chiffres"}
	case !nameAllowed.MatchString(name):
		return FieldError{Code: CodeInvalidCharacter, Message: "Le nom ne peut contenir que des lettres, espaces, tirets, apostrophes et points"}
	case utf8.RuneCountInString(name) > nameMaxLen:
		return FieldError{Code: CodeTooLong, Message: "Le nom ne peut pas dépasser 50 caractères"}
	}
	return FieldError{}
}

// ValidatePhone checks a local number against the pattern of the country identified by countryCode.
func ValidatePhone(phone, countryCode string) FieldError {
	if strings.TrimSpace(phone) == "" {
		return FieldError{Code: CodeEmptyPhone, Message: "Le numéro de téléphone est requis"}
	}
	digits := StripPhone(phone)
	if strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return FieldError{Code: CodeNonNumeric, Message: "Le numéro ne doit contenir que des chiffres"}
	}
	country, ok := LookupCountry(countryCode)
	if !ok {
		return ValidateCountry(countryCode)
	}
	if !country.Pattern.MatchString(digits) {
		return FieldError{
			Code:    CodeInvalidFormatForCountry,
			Message: fmt.Sprintf("Format invalide pour %s (ex: %s %s)", country.Name, country.Code, country.Example),
		}
	}
	return FieldError{}
}

// ValidateEmail is the blocking basic check. Empty is valid because the field is optional.
func ValidateEmail(email string) FieldError {
	email = strings.TrimSpace(email)
	if email == "" {
		return FieldError{}
	}
	if !emailPattern.MatchString(email) {
		return FieldError{Code: CodeInvalidFormat, Message: "Adresse email invalide"}
	}
	if utf8.RuneCountInString(email) > emailMaxLen {
		return FieldError{Code: CodeTooLong, Message: "L'email ne peut pas dépasser 100 caractères"}
	}
	return FieldError{}
}

func ValidateCountry(code string) FieldError {
	if strings.TrimSpace(code) == "" {
		return FieldError{Code: CodeMissingCountry, Message: "Veuillez choisir un indicatif pays"}
	}
	if _, ok := LookupCountry(code); !ok {
		return FieldError{Code: CodeMissingCountry, Message: "Indicatif pays non pris en charge"}
	}
	return FieldError{}
}

// ValidateDate requires a date; with a non-zero today it also enforces the booking window.
func ValidateDate(d, today Date, windowDays int) FieldError {
	if d.IsZero() {
		return FieldError{Code: CodeMissingDate, Message: "Veuillez choisir une date"}
	}
	if today.IsZero() {
		return FieldError{}
	}
	if d.Before(today) {
		return FieldError{Code: CodeDateInPast, Message: "La date ne peut pas être dans le passé"}
	}
	if windowDays > 0 && d.After(today.AddDays(windowDays)) {
		return FieldError{
			Code:    CodeDateTooFar,
			Message: fmt.Sprintf("Les réservations sont ouvertes jusqu'à %d jours à l'avance", windowDays),
		}
	}
	return FieldError{}
}

func ValidateTime(slot string) FieldError {
	if strings.TrimSpace(slot) == "" {
		return FieldError{Code: CodeMissingTime, Message: "Veuillez choisir un créneau horaire"}
	}
	return FieldError{}
}

func ValidatePartySize(n int) FieldError {
	if n < MinPartySize || n > MaxPartySize {
		return FieldError{Code: CodeInvalidPartySize, Message: "Le nombre de personnes doit être entre 1 et 10"}
	}
	return FieldError{}
}

func ValidateSpecialRequest(s string) FieldError {
	if utf8.RuneCountInString(s) > specialRequestMaxLen {
		return FieldError{Code: CodeTooLong, Message: "La demande spéciale ne peut pas dépasser 500 caractères"}
	}
	return FieldError{}
}

// ClosedDateError is the RestaurantClosedOnDate error, carrying reason when one is known.
func ClosedDateError(reason string) FieldError {
	msg := "Le restaurant est fermé à cette date"
	if reason = strings.TrimSpace(reason); reason != "" {
		msg = msg + " : " + reason
	}
	return FieldError{Code: CodeRestaurantClosedOnDate, Message: msg}
}
