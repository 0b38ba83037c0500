package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"reservation-booking-api/internal/auth"
	"reservation-booking-api/internal/booking"
	"reservation-booking-api/internal/middleware"
	"reservation-booking-api/internal/model"
)

type reservationResource struct {
	ID            string `json:"id"`
	ReservedSince string `json:"reservedSince"`
	ReservedTill  string `json:"reservedTill"`
}

func newReservation(r *model.Reservation) reservationResource {
	return reservationResource{
		ID:            r.ID,
		ReservedSince: r.ReservedSince.String(),
		ReservedTill:  r.ReservedTill.String(),
	}
}

type dayResource struct {
	Date      string `json:"date"`
	Remaining int    `json:"remaining"`
}

func (s *Server) listReservations(w http.ResponseWriter, r *http.Request) {
	list, err := s.bookings.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]reservationResource, 0, len(list))
	for i := range list {
		out = append(out, newReservation(&list[i]))
	}
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	if c, ok := middleware.ClaimsFrom(r.Context()); !ok || !c.Can(auth.AbilityCreate) {
		writeMessage(w, http.StatusForbidden, msgBadAbility)
		return
	}
	var in booking.Input
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, msgMalformed)
		return
	}
	res, err := s.bookings.Create(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: newReservation(res)})
}

func (s *Server) showReservation(w http.ResponseWriter, r *http.Request) {
	res, ok := s.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: newReservation(res)})
}

func (s *Server) destroyReservation(w http.ResponseWriter, r *http.Request) {
	if c, ok := middleware.ClaimsFrom(r.Context()); !ok || !c.Can(auth.AbilityDestroy) {
		writeMessage(w, http.StatusForbidden, msgBadAbility)
		return
	}
	res, ok := s.owned(w, r)
	if !ok {
		return
	}
	if err := s.bookings.Destroy(r.Context(), res); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) vacancies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := s.bookings.Availability(r.Context(), q.Get("since"), q.Get("till"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]dayResource, 0, len(days))
	for _, d := range days {
		out = append(out, dayResource{Date: d.Date.String(), Remaining: d.Remaining})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": map[string]int{"ceiling": s.bookings.Ceiling()},
	})
}

// owned loads the {id} reservation and checks it belongs to the caller. On
// failure the response is already written.
func (s *Server) owned(w http.ResponseWriter, r *http.Request) (*model.Reservation, bool) {
	res, err := s.bookings.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	if res.UserID != middleware.UserID(r.Context()) {
		writeMessage(w, http.StatusForbidden, msgForbidden)
		return nil, false
	}
	return res, true
}
