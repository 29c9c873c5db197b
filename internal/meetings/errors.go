package meetings

import (
	"errors"
	"net/http"

	"meeting-platform/internal/platform"
)

var (
	ErrNotConfigured = errors.New("Stream API configuration missing")
	ErrNotFound      = errors.New("meeting not found")
)

// Failure is the client-facing shape of an issuance error.
type Failure struct {
	Status  int
	Message string
}

// Classify maps an issuance error to the response the caller sees.
// Auth-kind upstream failures are 401, permission-kind are 403, and
// everything else is 500 with the raw message passed through.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return Failure{Status: http.StatusOK}
	case IsValidation(err):
		return Failure{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, ErrNotFound):
		return Failure{Status: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, ErrNotConfigured):
		return Failure{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	switch platform.KindOf(err) {
	case platform.KindAuth:
		return Failure{Status: http.StatusUnauthorized, Message: "Authentication failed"}
	case platform.KindPermission:
		return Failure{Status: http.StatusForbidden, Message: "Permission denied"}
	default:
		return Failure{Status: http.StatusInternalServerError, Message: err.Error()}
	}
}
