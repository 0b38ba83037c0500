// Package httpapi serves the JSON REST API.
package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"reservation-booking-api/internal/account"
	"reservation-booking-api/internal/booking"
	"reservation-booking-api/internal/middleware"
)

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	accounts *account.Service
	bookings *booking.Service
	health   Pinger
	limiter  *middleware.RateLimiter
	log      logrus.FieldLogger
}

func NewServer(accounts *account.Service, bookings *booking.Service, health Pinger, limiter *middleware.RateLimiter, log logrus.FieldLogger) *Server {
	return &Server{accounts: accounts, bookings: bookings, health: health, limiter: limiter, log: log}
}

// Router builds the route table without the outer access log, CORS and
// recovery layers.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	limit := middleware.LimitHTTP(s.limiter)
	api.Handle("/register", limit(http.HandlerFunc(s.register))).Methods("POST")
	api.Handle("/login", limit(http.HandlerFunc(s.login))).Methods("POST")
	api.Handle("/refresh", limit(http.HandlerFunc(s.refresh))).Methods("POST")

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.RequireAuth(s.accounts.Secret()))
	authed.HandleFunc("/logout", s.logout).Methods("POST")

	v1 := authed.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/reservations", s.listReservations).Methods("GET")
	v1.HandleFunc("/reservations", s.createReservation).Methods("POST")
	v1.HandleFunc("/reservations/{id}", s.showReservation).Methods("GET")
	v1.HandleFunc("/reservations/{id}", s.destroyReservation).Methods("DELETE")
	v1.HandleFunc("/vacancies", s.vacancies).Methods("GET")

	return r
}

// Handler is the full HTTP stack: recovery, access log and CORS around the
// router. Access log lines go to accessLog.
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(s.log),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(handlers.CombinedLoggingHandler(accessLog, cors(s.Router())))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		s.log.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
