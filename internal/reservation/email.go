package reservation

import "strings"

// AdviceStatus is the outcome of the advisory email deep-check.
type AdviceStatus string

const (
	// AdviceNone means the deep-check did not run (empty or malformed address).
	AdviceNone        AdviceStatus = ""
	AdviceFormatValid AdviceStatus = "format_valid"
	AdviceDisposable  AdviceStatus = "disposable_domain"
	AdviceTypo        AdviceStatus = "typo_suggestion"
)

// EmailAdvice is shown next to the email field. It never blocks submission.
type EmailAdvice struct {
	Status     AdviceStatus `json:"status"`
	Suggestion string       `json:"suggestion,omitempty"`
	Message    string       `json:"message,omitempty"`
}

var disposableDomains = map[string]struct{}{
	"mailinator.com":    {},
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"guerrillamail.net": {},
	"tempmail.com":      {},
	"temp-mail.org":     {},
	"yopmail.com":       {},
	"yopmail.fr":        {},
	"throwawaymail.com": {},
	"trashmail.com":     {},
	"getnada.com":       {},
	"sharklasers.com":   {},
	"dispostable.com":   {},
	"maildrop.cc":       {},
	"fakeinbox.com":     {},
	"mailnesia.com":     {},
	"emailondeck.com":   {},
	"mintemail.com":     {},
	"spamgourmet.com":   {},
	"jetable.org":       {},
}

var domainTypos = map[string]string{
	"gmial.com":   "gmail.com",
	"gmai.com":    "gmail.com",
	"gmal.com":    "gmail.com",
	"gamil.com":   "gmail.com",
	"gnail.com":   "gmail.com",
	"gmail.co":    "gmail.com",
	"gmail.cm":    "gmail.com",
	"gmaill.com":  "gmail.com",
	"hotmial.com": "hotmail.com",
	"hotmal.com":  "hotmail.com",
	"hotmai.com":  "hotmail.com",
	"hotmail.co":  "hotmail.com",
	"hotmial.fr":  "hotmail.fr",
	"hotmal.fr":   "hotmail.fr",
	"yahooo.com":  "yahoo.com",
	"yaho.com":    "yahoo.com",
	"yahoo.co":    "yahoo.com",
	"yahooo.fr":   "yahoo.fr",
	"outlok.com":  "outlook.com",
	"outloo.com":  "outlook.com",
	"outlook.co":  "outlook.com",
	"iclod.com":   "icloud.com",
	"icoud.com":   "icloud.com",
	"icloud.co":   "icloud.com",
	"live.co":     "live.com",
}

// CheckEmail runs the advisory deep-check on an address that already passes ValidateEmail.
func CheckEmail(email string) EmailAdvice {
	email = strings.TrimSpace(email)
	if email == "" || !ValidateEmail(email).OK() {
		return EmailAdvice{}
	}
	at := strings.LastIndex(email, "@")
	local, domain := email[:at], strings.ToLower(email[at+1:])

	if _, ok := disposableDomains[domain]; ok {
		return EmailAdvice{
			Status:  AdviceDisposable,
			Message: "Les adresses email temporaires ne sont pas recommandées",
		}
	}
	if fixed, ok := domainTypos[domain]; ok {
		suggestion := local + "@" + fixed
		return EmailAdvice{
			Status:     AdviceTypo,
			Suggestion: suggestion,
			Message:    "Vouliez-vous dire " + suggestion + " ?",
		}
	}
	return EmailAdvice{Status: AdviceFormatValid}
}
