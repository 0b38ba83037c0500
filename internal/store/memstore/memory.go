// Package memstore is a process-local implementation of store.Store used for
// development and tests. Transactions are serialized by one mutex and rolled
// back from a snapshot, so it is only correct for a single instance.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/store"
)

type Memory struct {
	users        map[string]*model.User
	emails       map[string]string
	tokens       map[string]*model.RefreshToken
	reservations []model.Reservation
	vacancies    map[civil.Date]model.VacancyDay

	now  func() time.Time
	lock sync.Mutex
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		users:     map[string]*model.User{},
		emails:    map[string]string{},
		tokens:    map[string]*model.RefreshToken{},
		vacancies: map[civil.Date]model.VacancyDay{},
		now:       time.Now,
	}
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() {}

// InTx holds the store lock for the whole of fn. If fn fails or ctx is done
// by the time fn returns, reservations and vacancies are restored.
func (m *Memory) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	reservations := append([]model.Reservation(nil), m.reservations...)
	vacancies := make(map[civil.Date]model.VacancyDay, len(m.vacancies))
	for k, v := range m.vacancies {
		vacancies[k] = v
	}

	err := fn(&memTx{m: m})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.reservations = reservations
		m.vacancies = vacancies
		return err
	}
	return nil
}

// SeedVacancy records a day directly, outside any transaction.
func (m *Memory) SeedVacancy(day civil.Date, remaining int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now()
	m.vacancies[day] = model.VacancyDay{Date: day, Remaining: remaining, CreatedAt: now, UpdatedAt: now}
}

// SeedReservation appends a reservation without touching the ledger.
func (m *Memory) SeedReservation(r model.Reservation) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	m.reservations = append(m.reservations, r)
}

// Vacancy returns the recorded day, if any.
func (m *Memory) Vacancy(day civil.Date) (model.VacancyDay, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	v, ok := m.vacancies[day]
	return v, ok
}

func (m *Memory) vacanciesIn(r model.DateRange) []model.VacancyDay {
	var out []model.VacancyDay
	for _, d := range r.Days() {
		if v, ok := m.vacancies[d]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (m *Memory) Vacancies(ctx context.Context, r model.DateRange) ([]model.VacancyDay, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.vacanciesIn(r), ctx.Err()
}

func (m *Memory) Reservation(ctx context.Context, id string) (*model.Reservation, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, r := range m.reservations {
		if r.ID == id {
			res := r
			return &res, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) ReservationsByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	out := []model.Reservation{}
	for _, r := range m.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) CreateUser(ctx context.Context, u *model.User) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	key := strings.ToLower(u.Email)
	if _, ok := m.emails[key]; ok {
		return store.ErrDuplicate
	}
	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.users[u.ID] = &cp
	m.emails[key] = u.ID
	return nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *m.users[id]
	return &u, nil
}

type memTx struct {
	m *Memory
}

func (t *memTx) LockVacancies(ctx context.Context, r model.DateRange) ([]model.VacancyDay, error) {
	return t.m.vacanciesIn(r), nil
}

func (t *memTx) UpsertVacancy(ctx context.Context, day civil.Date, initial, delta int) error {
	now := t.m.now()
	v, ok := t.m.vacancies[day]
	if !ok {
		v = model.VacancyDay{Date: day, Remaining: initial, CreatedAt: now}
	}
	if v.Remaining+delta < 0 {
		return store.ErrNegativeVacancy
	}
	v.Remaining += delta
	v.UpdatedAt = now
	t.m.vacancies[day] = v
	return nil
}

func (t *memTx) AdjustVacancy(ctx context.Context, day civil.Date, delta int) (bool, error) {
	v, ok := t.m.vacancies[day]
	if !ok {
		return false, nil
	}
	if v.Remaining+delta < 0 {
		return false, store.ErrNegativeVacancy
	}
	v.Remaining += delta
	v.UpdatedAt = t.m.now()
	t.m.vacancies[day] = v
	return true, nil
}

func (t *memTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	for _, existing := range t.m.reservations {
		if existing.ID == r.ID {
			return store.ErrDuplicate
		}
	}
	now := t.m.now()
	r.CreatedAt, r.UpdatedAt = now, now
	t.m.reservations = append(t.m.reservations, *r)
	return nil
}

func (t *memTx) DeleteReservation(ctx context.Context, id string) error {
	for i, r := range t.m.reservations {
		if r.ID == id {
			t.m.reservations = append(t.m.reservations[:i:i], t.m.reservations[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}
