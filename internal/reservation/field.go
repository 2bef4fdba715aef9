package reservation

// Field identifies a validated input of the booking form.
type Field string

const (
	FieldName           Field = "name"
	FieldCountry        Field = "country"
	FieldPhone          Field = "phone"
	FieldEmail          Field = "email"
	FieldDate           Field = "date"
	FieldTime           Field = "time"
	FieldPartySize      Field = "party_size"
	FieldSpecialRequest Field = "special_request"
)

// FieldOrder is the declared form order. The first invalid field in this order is
// the one brought into view after a failed submission.
var FieldOrder = []Field{
	FieldName,
	FieldCountry,
	FieldPhone,
	FieldEmail,
	FieldDate,
	FieldTime,
	FieldPartySize,
	FieldSpecialRequest,
}

// ErrorCode is a stable machine-readable reason for a field error.
type ErrorCode string

const (
	CodeEmptyName               ErrorCode = "empty_name"
	CodeTooShort                ErrorCode = "too_short"
	CodeContainsDigit           ErrorCode = "contains_digit"
	CodeInvalidCharacter        ErrorCode = "invalid_character"
	CodeTooLong                 ErrorCode = "too_long"
	CodeEmptyPhone              ErrorCode = "empty_phone"
	CodeNonNumeric              ErrorCode = "non_numeric"
	CodeInvalidFormatForCountry ErrorCode = "invalid_format_for_country"
	CodeInvalidFormat           ErrorCode = "invalid_format"
	CodeMissingCountry          ErrorCode = "missing_country"
	CodeMissingDate             ErrorCode = "missing_date"
	CodeDateInPast              ErrorCode = "date_in_past"
	CodeDateTooFar              ErrorCode = "date_too_far"
	CodeMissingTime             ErrorCode = "missing_time"
	CodeInvalidPartySize        ErrorCode = "invalid_party_size"
	CodeRestaurantClosedOnDate  ErrorCode = "restaurant_closed_on_date"
	// CodeServer marks a field error reported by the reservation API.
	CodeServer ErrorCode = "server"
)

// FieldError is a single validation failure. The zero value means "valid".
type FieldError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// OK reports whether e carries no error.
func (e FieldError) OK() bool {
	return e.Code == "" && e.Message == ""
}

func (e FieldError) Error() string {
	return e.Message
}

// ErrorMap holds at most one error per field. Absent keys are valid fields.
type ErrorMap map[Field]FieldError

// Set records err for f, or removes the entry when err is valid.
func (m ErrorMap) Set(f Field, err FieldError) {
	if err.OK() {
		delete(m, f)
		return
	}
	m[f] = err
}

// Empty reports whether no field carries an error.
func (m ErrorMap) Empty() bool {
	return len(m) == 0
}

// Clone returns an independent copy.
func (m ErrorMap) Clone() ErrorMap {
	out := make(ErrorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FirstInvalid returns the first field in FieldOrder carrying an error.
func (m ErrorMap) FirstInvalid() (Field, bool) {
	for _, f := range FieldOrder {
		if _, ok := m[f]; ok {
			return f, true
		}
	}
	return "", false
}

// Messages flattens the map into field -> message, the shape rendered by templates and JSON.
func (m ErrorMap) Messages() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v.Message
	}
	return out
}
