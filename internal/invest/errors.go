package invest

import "fmt"

// APIError is a failure reported by the Invest API gateway. It is passed
// through to callers untranslated.
type APIError struct {
	Status  int    // HTTP status
	Code    string // gateway error code, e.g. "50002"
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("invest api: status %d code %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("invest api: status %d: %s", e.Status, e.Message)
}

// Temporary reports whether the failure is worth retrying: rate limiting
// and server-side errors are, everything else is not.
func (e *APIError) Temporary() bool {
	return e.Status == 429 || e.Status >= 500
}
