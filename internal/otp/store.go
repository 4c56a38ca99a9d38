package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const TTL = 5 * time.Minute

var ErrMismatch = errors.New("otp: code invalid or expired")

// Store keeps one-time registration codes in Redis, keyed by email.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Issue generates a fresh 6-digit code for the email, replacing any
// outstanding one.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, key(email), code, TTL).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify consumes the code for the email. The stored code is deleted
// before comparison, so any attempt, right or wrong, burns it and a
// caller gets exactly one guess per issued code. After a failed attempt
// the user must request a fresh code.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	stored, err := s.client.GetDel(ctx, key(email)).Result()
	if err == redis.Nil {
		return ErrMismatch
	}
	if err != nil {
		return err
	}
	if stored != code {
		return ErrMismatch
	}
	return nil
}

func key(email string) string {
	return "otp:" + email
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
