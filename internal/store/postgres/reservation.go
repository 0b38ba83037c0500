package postgres

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"

	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/store"
)

func (t *txStore) InsertReservation(ctx context.Context, r *model.Reservation) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO reservations (id, user_id, reserved_since, reserved_till)
		 VALUES ($1,$2,$3,$4)
		 RETURNING created_at, updated_at`,
		r.ID, r.UserID, pgDate(r.ReservedSince), pgDate(r.ReservedTill),
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	return mapErr(err)
}

func (t *txStore) DeleteReservation(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		r           model.Reservation
		since, till time.Time
	)
	if err := row.Scan(&r.ID, &r.UserID, &since, &till, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ReservedSince = civil.DateOf(since)
	r.ReservedTill = civil.DateOf(till)
	return &r, nil
}

func (s *Store) Reservation(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx,
		`SELECT id, user_id, reserved_since, reserved_till, created_at, updated_at
		 FROM reservations WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (s *Store) ReservationsByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, reserved_since, reserved_till, created_at, updated_at
		 FROM reservations
		 WHERE user_id = $1
		 ORDER BY seq`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
