// Package httpx holds the JSON response helpers shared by module handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
)

// Respond writes body as JSON with the given status.
func Respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// RespondError maps the error taxonomy to an HTTP status and writes the
// message. NotFound→404, Conflict→409, invalid transition→422,
// validation→400, everything else→500.
func RespondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrValidation):
		code = http.StatusBadRequest
	}
	Respond(w, code, map[string]string{"error": err.Error()})
}
