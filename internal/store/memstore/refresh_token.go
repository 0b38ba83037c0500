package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/store"
)

func (m *Memory) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	id := uuid.New().String()
	m.tokens[id] = &model.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: m.now(),
	}
	return id, nil
}

func (m *Memory) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, rt := range m.tokens {
		if rt.TokenHash == tokenHash {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	old, ok := m.tokens[oldID]
	if !ok || old.Revoked {
		return store.ErrNotFound
	}
	old.Revoked = true
	replacement := newID
	old.ReplacedBy = &replacement

	m.tokens[newID] = &model.RefreshToken{
		ID:        newID,
		UserID:    userID,
		TokenHash: newHash,
		ExpiresAt: newExpiry,
		CreatedAt: m.now(),
	}
	return nil
}

func (m *Memory) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, rt := range m.tokens {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func (m *Memory) DeleteStaleRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	var n int64
	for id, rt := range m.tokens {
		if rt.ExpiresAt.Before(before) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}
