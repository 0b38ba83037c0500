package memstore

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"

	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/store"
)

func TestInTxRollsBack(t *testing.T) {
	m := New()
	d := civil.Date{Year: 2022, Month: 9, Day: 1}
	m.SeedVacancy(d, 5)
	boom := errors.New("boom")

	err := m.InTx(context.Background(), func(tx store.Tx) error {
		if err := tx.UpsertVacancy(context.Background(), d, 10, -1); err != nil {
			return err
		}
		if err := tx.InsertReservation(context.Background(), &model.Reservation{ID: "r1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if v, _ := m.Vacancy(d); v.Remaining != 5 {
		t.Errorf("expected 5 after rollback, got %d", v.Remaining)
	}
	if _, err := m.Reservation(context.Background(), "r1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("reservation should be rolled back, got %v", err)
	}
}

func TestNegativeRefused(t *testing.T) {
	m := New()
	d := civil.Date{Year: 2022, Month: 9, Day: 1}
	m.SeedVacancy(d, 0)

	err := m.InTx(context.Background(), func(tx store.Tx) error {
		_, err := tx.AdjustVacancy(context.Background(), d, -1)
		return err
	})
	if !errors.Is(err, store.ErrNegativeVacancy) {
		t.Fatalf("expected ErrNegativeVacancy, got %v", err)
	}
}

func TestUsersCaseInsensitive(t *testing.T) {
	m := New()
	ctx := context.Background()
	if err := m.CreateUser(ctx, &model.User{ID: "u1", Email: "A@Example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateUser(ctx, &model.User{ID: "u2", Email: "a@example.com"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	u, err := m.UserByEmail(ctx, "a@EXAMPLE.com")
	if err != nil || u.ID != "u1" {
		t.Fatalf("lookup: %v %v", u, err)
	}
}

func TestRotateOnce(t *testing.T) {
	m := New()
	ctx := context.Background()
	id, _ := m.CreateRefreshToken(ctx, "u1", "h1", m.now().Add(1e9))

	if err := m.RotateRefreshToken(ctx, id, "new", "u1", "h2", m.now().Add(1e9)); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := m.RotateRefreshToken(ctx, id, "newer", "u1", "h3", m.now().Add(1e9)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second rotate, got %v", err)
	}
	old, _ := m.GetRefreshTokenByHash(ctx, "h1")
	if !old.Revoked || old.ReplacedBy == nil || *old.ReplacedBy != "new" {
		t.Errorf("unexpected old token %+v", old)
	}
}
