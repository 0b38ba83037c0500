package postgres

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"

	"reservation-booking-api/internal/model"
)

const vacancyColumns = `vacancy_date, remaining_vacancies, created_at, updated_at`

func scanVacancies(rows pgx.Rows) ([]model.VacancyDay, error) {
	defer rows.Close()

	var out []model.VacancyDay
	for rows.Next() {
		var (
			v   model.VacancyDay
			day time.Time
		)
		if err := rows.Scan(&day, &v.Remaining, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Date = civil.DateOf(day)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) Vacancies(ctx context.Context, r model.DateRange) ([]model.VacancyDay, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+vacancyColumns+`
		 FROM vacancies
		 WHERE vacancy_date BETWEEN $1 AND $2
		 ORDER BY vacancy_date`, pgDate(r.Since), pgDate(r.Till),
	)
	if err != nil {
		return nil, err
	}
	return scanVacancies(rows)
}

// vacancyLockClass namespaces the per-day advisory locks.
const vacancyLockClass = 0x7661

var lockEpoch = civil.Date{Year: 1970, Month: 1, Day: 1}

// LockVacancies takes a transaction-scoped advisory lock on every day of r,
// recorded or not, in ascending order, then row-locks the recorded days.
// Days inserted later by the same transaction are already covered, so two
// overlapping ranges always queue on their first shared day.
func (t *txStore) LockVacancies(ctx context.Context, r model.DateRange) ([]model.VacancyDay, error) {
	if _, err := t.tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock($1::int, k::int)
		 FROM generate_series($2::int, $3::int) AS k`,
		vacancyLockClass, r.Since.DaysSince(lockEpoch), r.Till.DaysSince(lockEpoch),
	); err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx,
		`SELECT `+vacancyColumns+`
		 FROM vacancies
		 WHERE vacancy_date BETWEEN $1 AND $2
		 ORDER BY vacancy_date
		 FOR UPDATE`, pgDate(r.Since), pgDate(r.Till),
	)
	if err != nil {
		return nil, err
	}
	return scanVacancies(rows)
}

func (t *txStore) UpsertVacancy(ctx context.Context, day civil.Date, initial, delta int) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO vacancies (vacancy_date, remaining_vacancies)
		 VALUES ($1, $2::int + $3::int)
		 ON CONFLICT (vacancy_date) DO UPDATE
		 SET remaining_vacancies = vacancies.remaining_vacancies + $3::int, updated_at = NOW()`,
		pgDate(day), initial, delta,
	)
	return mapErr(err)
}

func (t *txStore) AdjustVacancy(ctx context.Context, day civil.Date, delta int) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE vacancies
		 SET remaining_vacancies = remaining_vacancies + $2::int, updated_at = NOW()
		 WHERE vacancy_date = $1`, pgDate(day), delta,
	)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
