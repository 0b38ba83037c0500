// Package auth issues and checks credentials: bcrypt password hashes,
// HMAC-signed access tokens and opaque refresh tokens stored by hash.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Token abilities.
const (
	AbilityCreate  = "create"
	AbilityDestroy = "destroy"
)

// DefaultAbilities is what a login grants.
var DefaultAbilities = []string{AbilityCreate, AbilityDestroy}

var ErrBadToken = errors.New("invalid token")

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Claims struct {
	UserID    string   `json:"uid"`
	Abilities []string `json:"abl,omitempty"`
	jwt.RegisteredClaims
}

// Can reports whether the token was granted ability.
func (c *Claims) Can(ability string) bool {
	return slices.Contains(c.Abilities, ability) || slices.Contains(c.Abilities, "*")
}

// MakeToken signs a short-lived access token.
func MakeToken(uid string, abilities []string, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		UserID:    uid,
		Abilities: abilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseToken(raw, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.UserID == "" {
		return nil, ErrBadToken
	}
	return c, nil
}

func GenerateRefreshToken() (raw string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashRefreshToken(raw), nil
}

func HashRefreshToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
