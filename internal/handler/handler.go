// Package handler exposes accounts and reservations as a gRPC service.
package handler

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reservation-booking-api/internal/account"
	"reservation-booking-api/internal/auth"
	"reservation-booking-api/internal/booking"
	"reservation-booking-api/internal/middleware"
	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/validation"
)

type Handler struct {
	accounts *account.Service
	bookings *booking.Service
	log      logrus.FieldLogger
}

var _ ReservationServiceServer = (*Handler)(nil)

func New(accounts *account.Service, bookings *booking.Service, log logrus.FieldLogger) *Handler {
	return &Handler{accounts: accounts, bookings: bookings, log: log}
}

func (h *Handler) Register(ctx context.Context, req *RegisterRequest) (*SessionResponse, error) {
	s, err := h.accounts.Register(ctx, account.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, h.status(ctx, err)
	}
	return session(s), nil
}

func (h *Handler) Login(ctx context.Context, req *LoginRequest) (*SessionResponse, error) {
	s, err := h.accounts.Login(ctx, account.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, h.status(ctx, err)
	}
	return session(s), nil
}

func (h *Handler) Refresh(ctx context.Context, req *RefreshRequest) (*SessionResponse, error) {
	s, err := h.accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, h.status(ctx, err)
	}
	return session(s), nil
}

func (h *Handler) Logout(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := h.accounts.Logout(ctx, middleware.UserID(ctx)); err != nil {
		return nil, h.status(ctx, err)
	}
	return &Empty{}, nil
}

func (h *Handler) CreateReservation(ctx context.Context, req *CreateReservationRequest) (*Reservation, error) {
	c, ok := middleware.ClaimsFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no token")
	}
	if !c.Can(auth.AbilityCreate) {
		return nil, status.Error(codes.PermissionDenied, "token cannot create reservations")
	}
	res, err := h.bookings.Create(ctx, c.UserID, booking.Input{ReservedSince: req.ReservedSince, ReservedTill: req.ReservedTill})
	if err != nil {
		return nil, h.status(ctx, err)
	}
	return toReservation(res), nil
}

func (h *Handler) ListReservations(ctx context.Context, _ *Empty) (*ListReservationsResponse, error) {
	list, err := h.bookings.List(ctx, middleware.UserID(ctx))
	if err != nil {
		return nil, h.status(ctx, err)
	}
	out := &ListReservationsResponse{Reservations: make([]Reservation, 0, len(list))}
	for i := range list {
		out.Reservations = append(out.Reservations, *toReservation(&list[i]))
	}
	return out, nil
}

func (h *Handler) GetReservation(ctx context.Context, req *ReservationID) (*Reservation, error) {
	res, err := h.owned(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return toReservation(res), nil
}

func (h *Handler) DeleteReservation(ctx context.Context, req *ReservationID) (*Empty, error) {
	if c, ok := middleware.ClaimsFrom(ctx); !ok || !c.Can(auth.AbilityDestroy) {
		return nil, status.Error(codes.PermissionDenied, "token cannot delete reservations")
	}
	res, err := h.owned(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := h.bookings.Destroy(ctx, res); err != nil {
		return nil, h.status(ctx, err)
	}
	return &Empty{}, nil
}

func (h *Handler) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*AvailabilityResponse, error) {
	days, err := h.bookings.Availability(ctx, req.Since, req.Till)
	if err != nil {
		return nil, h.status(ctx, err)
	}
	out := &AvailabilityResponse{Ceiling: h.bookings.Ceiling(), Days: make([]DayAvailability, 0, len(days))}
	for _, d := range days {
		out.Days = append(out.Days, DayAvailability{Date: d.Date.String(), Remaining: d.Remaining})
	}
	return out, nil
}

// owned loads a reservation that belongs to the caller.
func (h *Handler) owned(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := h.bookings.Get(ctx, id)
	if err != nil {
		return nil, h.status(ctx, err)
	}
	if res.UserID != middleware.UserID(ctx) {
		return nil, status.Error(codes.PermissionDenied, "not your reservation")
	}
	return res, nil
}

// status maps domain errors to gRPC codes. Unknown errors are logged and
// hidden behind Internal.
func (h *Handler) status(ctx context.Context, err error) error {
	var verrs *validation.Errors
	switch {
	case errors.As(err, &verrs):
		return invalidArgument(verrs)
	case errors.Is(err, booking.ErrCapacity):
		return status.Error(codes.FailedPrecondition, booking.CapacityMessage)
	case errors.Is(err, booking.ErrNotFound):
		return status.Error(codes.NotFound, "reservation not found")
	case errors.Is(err, account.ErrInvalidRefresh):
		return status.Error(codes.Unauthenticated, "invalid refresh token")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	h.log.WithError(err).WithField("user_id", middleware.UserID(ctx)).Error("request failed")
	return status.Error(codes.Internal, "internal error")
}

func invalidArgument(verrs *validation.Errors) error {
	st := status.New(codes.InvalidArgument, verrs.Message())
	br := &errdetails.BadRequest{}
	fields := verrs.Fields()
	for _, f := range verrs.FieldNames() {
		for _, msg := range fields[f] {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{Field: f, Description: msg})
		}
	}
	if withDetails, err := st.WithDetails(br); err == nil {
		st = withDetails
	}
	return st.Err()
}

func session(s *account.Session) *SessionResponse {
	return &SessionResponse{
		UserID:       s.UserID,
		Name:         s.Name,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.ExpiresIn.Seconds()),
	}
}

func toReservation(r *model.Reservation) *Reservation {
	return &Reservation{
		ID:            r.ID,
		ReservedSince: r.ReservedSince.String(),
		ReservedTill:  r.ReservedTill.String(),
	}
}
