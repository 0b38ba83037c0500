// Package store declares the persistence contract shared by the PostgreSQL
// and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"reservation-booking-api/internal/ledger"
	"reservation-booking-api/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrNegativeVacancy is returned when a delta would push a day's
	// remaining capacity below zero.
	ErrNegativeVacancy = errors.New("remaining vacancies would drop below zero")
)

// Tx is the unit of work for one reservation create or destroy. Everything
// done through it commits or rolls back together.
type Tx interface {
	ledger.Store
	InsertReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
}

type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Vacancies(ctx context.Context, r model.DateRange) ([]model.VacancyDay, error)
	Reservation(ctx context.Context, id string) (*model.Reservation, error)
	ReservationsByUser(ctx context.Context, userID string) ([]model.Reservation, error)

	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
	DeleteStaleRefreshTokens(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close()
}
