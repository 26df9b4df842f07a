package auth

import (
	"errors"
	"fmt"

	"github.com/devlearning/devauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and checks principal secrets.
type Hasher interface {
	Hash(secret string) ([]byte, error)
	// Compare returns nil on match and common.ErrBadSecret on mismatch.
	Compare(hash []byte, secret string) error
}

// BcryptHasher is a Hasher backed by bcrypt's salted adaptive hash.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost. Values outside bcrypt's range
// fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(secret string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	return hash, nil
}

func (h *BcryptHasher) Compare(hash []byte, secret string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(secret))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return common.ErrBadSecret
	default:
		return fmt.Errorf("%w: %v", common.ErrBadSecret, err)
	}
}
