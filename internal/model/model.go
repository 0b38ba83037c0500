package model

import (
	"time"

	"cloud.google.com/go/civil"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Reservation struct {
	ID            string
	UserID        string
	ReservedSince civil.Date
	ReservedTill  civil.Date
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Range is the inclusive span of days the reservation claims.
func (r *Reservation) Range() DateRange {
	return DateRange{Since: r.ReservedSince, Till: r.ReservedTill}
}

// VacancyDay is the remaining capacity recorded for one calendar date.
type VacancyDay struct {
	Date      civil.Date
	Remaining int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}
