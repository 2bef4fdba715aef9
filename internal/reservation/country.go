package reservation

import (
	"regexp"
	"strings"
)

// Country is one row of the calling-code table. Pattern applies to the local number
// after separators are stripped; Example is shown to the user on mismatch.
type Country struct {
	Code    string
	Name    string
	Flag    string
	Pattern *regexp.Regexp
	Example string
}

var countries = []Country{
	{Code: "+212", Name: "Maroc", Flag: "🇲🇦", Pattern: regexp.MustCompile(`^[5-7]\d{8}$`), Example: "612345678"},
	{Code: "+33", Name: "France", Flag: "🇫🇷", Pattern: regexp.MustCompile(`^[1-9]\d{8}$`), Example: "612345678"},
	{Code: "+34", Name: "Espagne", Flag: "🇪🇸", Pattern: regexp.MustCompile(`^[6-9]\d{8}$`), Example: "612345678"},
	{Code: "+1", Name: "États-Unis / Canada", Flag: "🇺🇸", Pattern: regexp.MustCompile(`^[2-9]\d{9}$`), Example: "2025550123"},
	{Code: "+44", Name: "Royaume-Uni", Flag: "🇬🇧", Pattern: regexp.MustCompile(`^7\d{9}$`), Example: "7400123456"},
	{Code: "+49", Name: "Allemagne", Flag: "🇩🇪", Pattern: regexp.MustCompile(`^1\d{9,10}$`), Example: "15123456789"},
	{Code: "+39", Name: "Italie", Flag: "🇮🇹", Pattern: regexp.MustCompile(`^3\d{8,9}$`), Example: "3123456789"},
	{Code: "+32", Name: "Belgique", Flag: "🇧🇪", Pattern: regexp.MustCompile(`^4\d{8}$`), Example: "470123456"},
	{Code: "+41", Name: "Suisse", Flag: "🇨🇭", Pattern: regexp.MustCompile(`^7\d{8}$`), Example: "781234567"},
	{Code: "+31", Name: "Pays-Bas", Flag: "🇳🇱", Pattern: regexp.MustCompile(`^6\d{8}$`), Example: "612345678"},
	{Code: "+351", Name: "Portugal", Flag: "🇵🇹", Pattern: regexp.MustCompile(`^9\d{8}$`), Example: "912345678"},
	{Code: "+213", Name: "Algérie", Flag: "🇩🇿", Pattern: regexp.MustCompile(`^[5-7]\d{8}$`), Example: "551234567"},
	{Code: "+216", Name: "Tunisie", Flag: "🇹🇳", Pattern: regexp.MustCompile(`^[2-9]\d{7}$`), Example: "20123456"},
	{Code: "+20", Name: "Égypte", Flag: "🇪🇬", Pattern: regexp.MustCompile(`^1\d{9}$`), Example: "1001234567"},
	{Code: "+971", Name: "Émirats arabes unis", Flag: "🇦🇪", Pattern: regexp.MustCompile(`^5\d{8}$`), Example: "501234567"},
	{Code: "+966", Name: "Arabie saoudite", Flag: "🇸🇦", Pattern: regexp.MustCompile(`^5\d{8}$`), Example: "512345678"},
	{Code: "+221", Name: "Sénégal", Flag: "🇸🇳", Pattern: regexp.MustCompile(`^7\d{8}$`), Example: "701234567"},
	{Code: "+225", Name: "Côte d'Ivoire", Flag: "🇨🇮", Pattern: regexp.MustCompile(`^0\d{9}$`), Example: "0701234567"},
	{Code: "+90", Name: "Turquie", Flag: "🇹🇷", Pattern: regexp.MustCompile(`^5\d{9}$`), Example: "5012345678"},
	{Code: "+86", Name: "Chine", Flag: "🇨🇳", Pattern: regexp.MustCompile(`^1\d{10}$`), Example: "13812345678"},
	{Code: "+7", Name: "Russie", Flag: "🇷🇺", Pattern: regexp.MustCompile(`^9\d{9}$`), Example: "9123456789"},
}

var countryByCode = func() map[string]Country {
	m := make(map[string]Country, len(countries))
	for _, c := range countries {
		m[c.Code] = c
	}
	return m
}()

// Countries returns the supported countries in display order.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

// CanonicalCountryCode returns the table form ("+212") of a supported calling
// code. Unsupported codes come back trimmed and otherwise unchanged.
func CanonicalCountryCode(code string) string {
	if c, ok := LookupCountry(code); ok {
		return c.Code
	}
	return strings.TrimSpace(code)
}

// LookupCountry finds a country by calling code ("+212"). A missing "+" is tolerated.
func LookupCountry(code string) (Country, bool) {
	code = strings.TrimSpace(code)
	if code != "" && !strings.HasPrefix(code, "+") {
		code = "+" + code
	}
	c, ok := countryByCode[code]
	return c, ok
}
