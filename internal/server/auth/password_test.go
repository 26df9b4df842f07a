package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/devlearning/devauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if string(hash) == "secret1" {
		t.Fatal("hash must not equal the secret")
	}
	if err := h.Compare(hash, "secret1"); err != nil {
		t.Fatalf("Compare(match): %v", err)
	}
	if err := h.Compare(hash, "secret2"); !errors.Is(err, common.ErrBadSecret) {
		t.Fatalf("Compare(mismatch): want ErrBadSecret, got %v", err)
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if string(a) == string(b) {
		t.Fatal("two hashes of the same secret should differ")
	}
}

func TestBcryptHasher_GarbageHash(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	if err := h.Compare([]byte("not-a-hash"), "x"); !errors.Is(err, common.ErrBadSecret) {
		t.Fatalf("want ErrBadSecret, got %v", err)
	}
}

func TestBcryptHasher_TooLong(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	if _, err := h.Hash(strings.Repeat("x", 80)); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	t.Parallel()

	if h := NewBcryptHasher(0); h.cost != bcrypt.DefaultCost {
		t.Fatalf("cost = %d", h.cost)
	}
}
