// Package ledger tracks the remaining reservation capacity of every calendar
// day. A day has no record until the first reservation touches it; until then
// it is treated as fully available.
package ledger

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"reservation-booking-api/internal/model"
)

// DefaultCeiling is the number of reservations a single day accepts.
const DefaultCeiling = 10

// Store is the persistence the ledger mutates. Implementations are expected
// to be bound to a transaction so that the lock taken by LockVacancies holds
// until every delta of the same call has been applied.
type Store interface {
	// LockVacancies locks every day of r, recorded or not, for the rest of
	// the transaction and returns the recorded days in ascending order.
	LockVacancies(ctx context.Context, r model.DateRange) ([]model.VacancyDay, error)

	// UpsertVacancy creates the day with initial+delta or adds delta to the
	// existing record.
	UpsertVacancy(ctx context.Context, day civil.Date, initial, delta int) error

	// AdjustVacancy adds delta to an existing record only. It reports whether
	// a record was found.
	AdjustVacancy(ctx context.Context, day civil.Date, delta int) (bool, error)
}

// Reader is the read-only view used for availability queries.
type Reader interface {
	Vacancies(ctx context.Context, r model.DateRange) ([]model.VacancyDay, error)
}

type Ledger struct {
	ceiling int
}

func New(ceiling int) *Ledger {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Ledger{ceiling: ceiling}
}

func (l *Ledger) Ceiling() int { return l.ceiling }

// HasSufficientCapacity reports false if any recorded day in r has no
// remaining capacity. Days without a record never fail the check.
func (l *Ledger) HasSufficientCapacity(ctx context.Context, s Store, r model.DateRange) (bool, error) {
	days, err := s.LockVacancies(ctx, r)
	if err != nil {
		return false, fmt.Errorf("lock vacancies %s: %w", r, err)
	}
	for _, d := range days {
		if d.Remaining <= 0 {
			return false, nil
		}
	}
	return true, nil
}

// ApplyDelta adds delta to the day, materializing it at ceiling+delta when it
// has no record yet. It does not check capacity.
func (l *Ledger) ApplyDelta(ctx context.Context, s Store, day civil.Date, delta int) error {
	if err := s.UpsertVacancy(ctx, day, l.ceiling, delta); err != nil {
		return fmt.Errorf("apply delta %+d to %s: %w", delta, day, err)
	}
	return nil
}

// Claim takes one unit from every day of r, ascending.
func (l *Ledger) Claim(ctx context.Context, s Store, r model.DateRange) error {
	for _, day := range r.Days() {
		if err := l.ApplyDelta(ctx, s, day, -1); err != nil {
			return err
		}
	}
	return nil
}

// Release gives one unit back to every recorded day of r, ascending. Days
// without a record are left alone. It returns how many days were restored.
func (l *Ledger) Release(ctx context.Context, s Store, r model.DateRange) (int, error) {
	if _, err := s.LockVacancies(ctx, r); err != nil {
		return 0, fmt.Errorf("lock vacancies %s: %w", r, err)
	}
	restored := 0
	for _, day := range r.Days() {
		ok, err := s.AdjustVacancy(ctx, day, 1)
		if err != nil {
			return restored, fmt.Errorf("release %s: %w", day, err)
		}
		if ok {
			restored++
		}
	}
	return restored, nil
}

// Day is the capacity left on one date.
type Day struct {
	Date      civil.Date
	Remaining int
	Recorded  bool
}

// Availability lists every day of r with its remaining capacity; unrecorded
// days are reported at the ceiling.
func (l *Ledger) Availability(ctx context.Context, rd Reader, r model.DateRange) ([]Day, error) {
	recorded, err := rd.Vacancies(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("read vacancies %s: %w", r, err)
	}
	byDate := make(map[civil.Date]int, len(recorded))
	for _, v := range recorded {
		byDate[v.Date] = v.Remaining
	}

	out := make([]Day, 0, r.Len())
	for _, d := range r.Days() {
		rem, ok := byDate[d]
		if !ok {
			rem = l.ceiling
		}
		out = append(out, Day{Date: d, Remaining: rem, Recorded: ok})
	}
	return out, nil
}
