// Package account registers users and manages their sessions: access
// tokens plus rotating refresh tokens.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reservation-booking-api/internal/auth"
	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/store"
	"reservation-booking-api/internal/validation"
)

const (
	msgBadCredentials = "These credentials do not match our records."
	msgEmailTaken     = "The email has already been taken."
)

// ErrInvalidRefresh covers unknown, expired and reused refresh tokens.
var ErrInvalidRefresh = errors.New("invalid refresh token")

type Repository interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is what a successful login, register or refresh hands back.
type Session struct {
	UserID       string
	Name         string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type Service struct {
	repo     Repository
	validate *validation.Validator
	cfg      Config
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(repo Repository, v *validation.Validator, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, validate: v, cfg: cfg, log: log, now: time.Now}
}

// Secret is the access token signing key, shared with the auth middleware.
func (s *Service) Secret() string { return s.cfg.Secret }

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, validation.Single("email", msgEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithField("user_id", u.ID).Info("user registered")
	return s.issue(ctx, u)
}

// Login checks the credentials and starts a fresh session. Earlier refresh
// tokens of the user are revoked.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.repo.UserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, validation.Single("email", msgBadCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		s.log.WithField("user_id", u.ID).Info("login rejected")
		return nil, validation.Single("email", msgBadCredentials)
	}

	if err := s.repo.RevokeAllRefreshTokens(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("revoke sessions: %w", err)
	}
	return s.issue(ctx, u)
}

// Refresh trades a refresh token for a new pair. Presenting a token that was
// already rotated revokes every session of its owner.
func (s *Service) Refresh(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, ErrInvalidRefresh
	}
	rt, err := s.repo.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidRefresh
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	if rt.Revoked {
		s.log.WithField("user_id", rt.UserID).Warn("refresh token reuse detected, revoking all sessions")
		if err := s.repo.RevokeAllRefreshTokens(ctx, rt.UserID); err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
		return nil, ErrInvalidRefresh
	}
	if !rt.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidRefresh
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	newID := uuid.New().String()
	err = s.repo.RotateRefreshToken(ctx, rt.ID, newID, rt.UserID, newHash, s.now().Add(s.cfg.RefreshTTL))
	if errors.Is(err, store.ErrNotFound) {
		// lost a race with another rotation of the same token
		return nil, ErrInvalidRefresh
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, err := auth.MakeToken(rt.UserID, auth.DefaultAbilities, s.cfg.Secret, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &Session{
		UserID:       rt.UserID,
		AccessToken:  access,
		RefreshToken: newRaw,
		ExpiresIn:    s.cfg.AccessTTL,
	}, nil
}

// Logout revokes every refresh token of the user. Access tokens already
// issued stay valid until they expire.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.WithField("user_id", userID).Info("user logged out")
	return nil
}

func (s *Service) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := auth.MakeToken(u.ID, auth.DefaultAbilities, s.cfg.Secret, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if _, err := s.repo.CreateRefreshToken(ctx, u.ID, hash, s.now().Add(s.cfg.RefreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{
		UserID:       u.ID,
		Name:         u.Name,
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    s.cfg.AccessTTL,
	}, nil
}
