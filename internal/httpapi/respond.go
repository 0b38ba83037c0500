package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"reservation-booking-api/internal/account"
	"reservation-booking-api/internal/booking"
	"reservation-booking-api/internal/middleware"
	"reservation-booking-api/internal/validation"
)

const (
	msgUnauthenticated = "Unauthenticated."
	msgForbidden       = "This action is unauthorized."
	msgBadAbility      = "Invalid ability provided."
	msgNotFound        = "Reservation not found."
	msgMalformed       = "Malformed JSON body."
	msgServerError     = "Server Error"
)

type message struct {
	Message string `json:"message"`
}

type validationPayload struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

type envelope struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, message{Message: msg})
}

// decode reads a JSON body into v. An empty body leaves v untouched so the
// usual field validation reports what is missing.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// fail writes the response for a service error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verrs *validation.Errors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, validationPayload{Message: verrs.Message(), Errors: verrs.Fields()})
	case errors.Is(err, booking.ErrCapacity):
		writeMessage(w, http.StatusUnprocessableEntity, booking.CapacityMessage)
	case errors.Is(err, booking.ErrNotFound):
		writeMessage(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, account.ErrInvalidRefresh):
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
	case errors.Is(err, context.Canceled):
		// client went away, nobody reads the answer
		w.WriteHeader(499)
	default:
		s.log.WithError(err).WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"user_id": middleware.UserID(r.Context()),
		}).Error("request failed")
		writeMessage(w, http.StatusInternalServerError, msgServerError)
	}
}
