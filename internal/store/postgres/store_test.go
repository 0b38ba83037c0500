package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"reservation-booking-api/internal/booking"
	"reservation-booking-api/internal/ledger"
	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/store"
	"reservation-booking-api/internal/store/postgres"
)

func setup(t *testing.T) (*postgres.Store, *pgxpool.Pool) {
	t.Helper()
	_ = godotenv.Load("../../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)

	st := postgres.New(pool)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st, pool
}

// window picks a run-private stretch of far future days and removes its
// ledger rows afterwards.
func window(t *testing.T, pool *pgxpool.Pool, days int) civil.Date {
	t.Helper()
	start := civil.Date{Year: 2200, Month: 1, Day: 1}.AddDays(rand.Intn(300 * 365))
	t.Cleanup(func() {
		pool.Exec(context.Background(),
			`DELETE FROM vacancies WHERE vacancy_date BETWEEN $1 AND $2`,
			start.In(time.UTC), start.AddDays(days).In(time.UTC))
	})
	return start
}

func createUser(t *testing.T, st *postgres.Store) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        fmt.Sprintf("test-%s@test.com", uuid.New().String()[:8]),
		PasswordHash: "x",
		Name:         "Test User",
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func service(st *postgres.Store) *booking.Service {
	log, _ := logtest.NewNullLogger()
	return booking.NewService(st, ledger.New(10), log, booking.WithClock(func() time.Time {
		return time.Date(2022, 9, 1, 12, 0, 0, 0, time.UTC)
	}))
}

func remaining(t *testing.T, st *postgres.Store, d civil.Date) (int, bool) {
	t.Helper()
	rows, err := st.Vacancies(context.Background(), model.DateRange{Since: d, Till: d})
	if err != nil {
		t.Fatalf("vacancies: %v", err)
	}
	if len(rows) == 0 {
		return 0, false
	}
	return rows[0].Remaining, true
}

func seed(t *testing.T, st *postgres.Store, d civil.Date, n int) {
	t.Helper()
	err := st.InTx(context.Background(), func(tx store.Tx) error {
		return tx.UpsertVacancy(context.Background(), d, n, 0)
	})
	if err != nil {
		t.Fatalf("seed %s: %v", d, err)
	}
}

func in(since, till civil.Date) booking.Input {
	return booking.Input{ReservedSince: since.String(), ReservedTill: till.String()}
}

func TestDuplicateEmail(t *testing.T) {
	st, _ := setup(t)
	u := createUser(t, st)

	dup := &model.User{ID: uuid.New().String(), Email: u.Email, PasswordHash: "x", Name: "Dup"}
	if err := st.CreateUser(context.Background(), dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := st.UserByEmail(context.Background(), u.Email)
	if err != nil || got.ID != u.ID {
		t.Fatalf("lookup: %v", err)
	}
}

func TestCreateAndDestroy(t *testing.T) {
	st, pool := setup(t)
	svc := service(st)
	u := createUser(t, st)
	start := window(t, pool, 5)
	ctx := context.Background()
	seed(t, st, start.AddDays(1), 5)

	res, err := svc.Create(ctx, u.ID, in(start.AddDays(1), start.AddDays(2)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n, _ := remaining(t, st, start.AddDays(1)); n != 4 {
		t.Errorf("existing day: expected 4, got %d", n)
	}
	if n, _ := remaining(t, st, start.AddDays(2)); n != 9 {
		t.Errorf("new day: expected 9, got %d", n)
	}
	if _, ok := remaining(t, st, start); ok {
		t.Error("day before range should not be recorded")
	}

	list, err := svc.List(ctx, u.ID)
	if err != nil || len(list) != 1 || list[0].ID != res.ID {
		t.Fatalf("list: %v %v", err, list)
	}
	if list[0].ReservedSince != start.AddDays(1) {
		t.Errorf("date round trip: got %s", list[0].ReservedSince)
	}

	if err := svc.Destroy(ctx, res); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if n, _ := remaining(t, st, start.AddDays(1)); n != 5 {
		t.Errorf("after destroy: expected 5, got %d", n)
	}
	if _, err := svc.Get(ctx, res.ID); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFullyBooked(t *testing.T) {
	st, pool := setup(t)
	svc := service(st)
	u := createUser(t, st)
	start := window(t, pool, 3)
	seed(t, st, start, 0)

	_, err := svc.Create(context.Background(), u.ID, in(start, start.AddDays(1)))
	if !errors.Is(err, booking.ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if _, ok := remaining(t, st, start.AddDays(1)); ok {
		t.Error("second day should not be recorded")
	}
}

func TestNegativeGuard(t *testing.T) {
	st, pool := setup(t)
	start := window(t, pool, 1)
	seed(t, st, start, 0)

	err := st.InTx(context.Background(), func(tx store.Tx) error {
		return tx.UpsertVacancy(context.Background(), start, 10, -1)
	})
	if !errors.Is(err, store.ErrNegativeVacancy) {
		t.Fatalf("expected ErrNegativeVacancy, got %v", err)
	}
}

func TestConcurrentLastUnit(t *testing.T) {
	st, pool := setup(t)
	svc := service(st)
	start := window(t, pool, 1)
	seed(t, st, start, 1)

	users := []*model.User{createUser(t, st), createUser(t, st)}
	var wg sync.WaitGroup
	errs := make(chan error, len(users))
	for _, u := range users {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), uid, in(start, start))
			errs <- err
		}(u.ID)
	}
	wg.Wait()
	close(errs)

	ok, full := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, booking.ErrCapacity):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || full != 1 {
		t.Errorf("expected 1 success and 1 capacity error, got %d and %d", ok, full)
	}
	if n, _ := remaining(t, st, start); n != 0 {
		t.Errorf("expected 0 remaining, got %d", n)
	}
}

func TestConcurrentFirstTouch(t *testing.T) {
	st, pool := setup(t)
	log, _ := logtest.NewNullLogger()
	svc := booking.NewService(st, ledger.New(3), log, booking.WithClock(func() time.Time {
		return time.Date(2022, 9, 1, 12, 0, 0, 0, time.UTC)
	}))
	start := window(t, pool, 1)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		u := createUser(t, st)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), u.ID, in(start, start))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, booking.ErrCapacity) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 3 {
		t.Errorf("expected exactly 3 bookings, got %d", ok)
	}
	if rem, _ := remaining(t, st, start); rem != 0 {
		t.Errorf("expected 0 remaining, got %d", rem)
	}
}

func TestRefreshTokens(t *testing.T) {
	st, _ := setup(t)
	u := createUser(t, st)
	ctx := context.Background()
	hash := uuid.New().String()

	id, err := st.CreateRefreshToken(ctx, u.ID, hash, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	newID := uuid.New().String()
	if err := st.RotateRefreshToken(ctx, id, newID, u.ID, uuid.New().String(), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := st.RotateRefreshToken(ctx, id, uuid.New().String(), u.ID, uuid.New().String(), time.Now().Add(time.Hour)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second rotate: expected ErrNotFound, got %v", err)
	}
	old, err := st.GetRefreshTokenByHash(ctx, hash)
	if err != nil || !old.Revoked || old.ReplacedBy == nil || *old.ReplacedBy != newID {
		t.Fatalf("old token state: %+v %v", old, err)
	}
}

func TestConcurrentOverlappingRanges(t *testing.T) {
	st, pool := setup(t)
	svc := service(st)
	start := window(t, pool, 6)
	// a recorded day late in the range, earlier days unrecorded
	seed(t, st, start.AddDays(3), 10)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		u := createUser(t, st)
		since, till := start, start.AddDays(3)
		if i%2 == 1 {
			since, till = start.AddDays(1), start.AddDays(5)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), u.ID, in(since, till))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, booking.ErrCapacity) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 10 {
		t.Errorf("expected 10 bookings on the shared days, got %d", ok)
	}
	for _, d := range []civil.Date{start.AddDays(1), start.AddDays(3)} {
		if rem, _ := remaining(t, st, d); rem != 0 {
			t.Errorf("%s: expected 0 remaining, got %d", d, rem)
		}
	}
}
