package httpapi

import (
	"net/http"

	"reservation-booking-api/internal/account"
	"reservation-booking-api/internal/middleware"
)

type sessionResource struct {
	UserID       string `json:"userId"`
	Name         string `json:"name,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func newSession(s *account.Session) sessionResource {
	return sessionResource{
		UserID:       s.UserID,
		Name:         s.Name,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.ExpiresIn.Seconds()),
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, msgMalformed)
		return
	}
	sess, err := s.accounts.Register(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSession(sess))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in account.LoginInput
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, msgMalformed)
		return
	}
	sess, err := s.accounts.Login(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSession(sess))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, msgMalformed)
		return
	}
	sess, err := s.accounts.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSession(sess))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Logout(r.Context(), middleware.UserID(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
