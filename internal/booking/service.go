// Package booking owns the reservation lifecycle: it validates requests and
// applies the ledger changes and the reservation row in one transaction.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reservation-booking-api/internal/ledger"
	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/store"
	"reservation-booking-api/internal/validation"
)

// CapacityMessage is shown to clients when ErrCapacity is returned.
const CapacityMessage = "There are not enough vacancies for selected date range."

var (
	ErrCapacity = errors.New("not enough vacancies for selected date range")
	ErrNotFound = errors.New("reservation not found")
)

// Repository is the slice of the store the lifecycle needs.
type Repository interface {
	ledger.Reader
	InTx(ctx context.Context, fn func(tx store.Tx) error) error
	Reservation(ctx context.Context, id string) (*model.Reservation, error)
	ReservationsByUser(ctx context.Context, userID string) ([]model.Reservation, error)
}

type Service struct {
	repo   Repository
	ledger *ledger.Ledger
	log    logrus.FieldLogger
	now    func() time.Time
	loc    *time.Location
	// maxDays caps a reservation's length; 0 means no cap.
	maxDays int
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone "today" is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMaxDays rejects reservations longer than n days. n <= 0 leaves the
// length unbounded.
func WithMaxDays(n int) Option {
	return func(s *Service) { s.maxDays = n }
}

func NewService(repo Repository, l *ledger.Ledger, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		ledger: l,
		log:    log,
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

func (s *Service) Ceiling() int { return s.ledger.Ceiling() }

// Create validates the request and, in one transaction, claims a unit on
// every day of the range and stores the reservation. The capacity check runs
// inside the same transaction under row locks.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.Reservation, error) {
	r, err := Validate(in, s.Today())
	if err != nil {
		return nil, err
	}
	if s.maxDays > 0 && r.Len() > s.maxDays {
		return nil, validation.Single(FieldTill, tooLong(FieldTill, FieldSince, s.maxDays))
	}

	res := &model.Reservation{
		ID:            uuid.New().String(),
		UserID:        userID,
		ReservedSince: r.Since,
		ReservedTill:  r.Till,
	}
	fields := logrus.Fields{"user_id": userID, "since": r.Since.String(), "till": r.Till.String()}

	err = s.repo.InTx(ctx, func(tx store.Tx) error {
		ok, err := s.ledger.HasSufficientCapacity(ctx, tx, r)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCapacity
		}
		if err := s.ledger.Claim(ctx, tx, r); err != nil {
			return err
		}
		return tx.InsertReservation(ctx, res)
	})
	switch {
	case errors.Is(err, ErrCapacity), errors.Is(err, store.ErrNegativeVacancy):
		s.log.WithFields(fields).Info("reservation rejected: range fully booked")
		return nil, ErrCapacity
	case err != nil:
		s.log.WithFields(fields).WithError(err).Error("create reservation failed")
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.log.WithFields(fields).WithField("reservation_id", res.ID).Info("reservation created")
	return res, nil
}

// Destroy gives the reservation's days back to the ledger and deletes it.
// Days that were never recorded stay unrecorded.
func (s *Service) Destroy(ctx context.Context, res *model.Reservation) error {
	r := res.Range()
	restored := 0

	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		n, err := s.ledger.Release(ctx, tx, r)
		if err != nil {
			return err
		}
		restored = n
		return tx.DeleteReservation(ctx, res.ID)
	})
	fields := logrus.Fields{"reservation_id": res.ID, "user_id": res.UserID, "since": r.Since.String(), "till": r.Till.String()}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case err != nil:
		s.log.WithFields(fields).WithError(err).Error("destroy reservation failed")
		return fmt.Errorf("destroy reservation: %w", err)
	}

	if restored < r.Len() {
		s.log.WithFields(fields).WithField("missing_days", r.Len()-restored).
			Warn("reservation destroyed with days missing from the ledger")
	}
	s.log.WithFields(fields).Info("reservation destroyed")
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	res, err := s.repo.Reservation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// List returns the user's reservations in the order they were made.
func (s *Service) List(ctx context.Context, userID string) ([]model.Reservation, error) {
	out, err := s.repo.ReservationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// Availability reports remaining capacity per day of the window.
func (s *Service) Availability(ctx context.Context, since, till string) ([]ledger.Day, error) {
	r, err := ValidateWindow(since, till)
	if err != nil {
		return nil, err
	}
	days, err := s.ledger.Availability(ctx, s.repo, r)
	if err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}
	return days, nil
}
