package restaurantapi

import (
	"errors"
	"fmt"
)

// ErrUnreachable wraps transport failures: refused connections, DNS, timeouts.
var ErrUnreachable = errors.New("restaurantapi: service unreachable")

// APIError is a non-2xx response from the reservation API.
type APIError struct {
	StatusCode int
	Message    string
	// FieldErrors maps payload keys ("customer_phone") to the first server message.
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("restaurantapi: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("restaurantapi: status %d", e.StatusCode)
}
