package store

import (
	"errors"
	"time"

	"tableside/restaurant-service/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	return err
}

func NewSession(user models.User, issuedAt time.Time, ttl time.Duration) models.Session {
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	session := models.Session{
		SessionID: uuid.NewString(),
		Username:  user.Username,
		Role:      user.Role,
		IssuedAt:  issuedAt,
	}
	if ttl > 0 {
		session.ExpiresAt = issuedAt.Add(ttl)
	}
	return session
}
