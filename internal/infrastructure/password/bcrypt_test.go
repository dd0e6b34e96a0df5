package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/userdirectory/userdir-api/internal/core/domain"
)

func TestBcryptHasher_SaltedRoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if first == "secret1" {
		t.Fatalf("hash equals plaintext")
	}
	if first == second {
		t.Fatalf("expected different salts, got identical hashes")
	}
	if !h.Verify("secret1", first) || !h.Verify("secret1", second) {
		t.Fatalf("both hashes should verify")
	}
	if h.Verify("secret2", first) {
		t.Fatalf("wrong password verified")
	}
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	for _, bad := range []string{"", "not-a-hash", "$2a$10$short"} {
		if h.Verify("secret1", bad) {
			t.Fatalf("malformed hash %q verified", bad)
		}
	}
}

func TestBcryptHasher_CostFallback(t *testing.T) {
	if got := NewBcryptHasher(0).Cost(); got != DefaultCost {
		t.Fatalf("expected default cost %d, got %d", DefaultCost, got)
	}
	if got := NewBcryptHasher(bcrypt.MaxCost + 1).Cost(); got != DefaultCost {
		t.Fatalf("expected default cost %d, got %d", DefaultCost, got)
	}
	if got := NewBcryptHasher(bcrypt.MinCost).Cost(); got != bcrypt.MinCost {
		t.Fatalf("expected cost %d, got %d", bcrypt.MinCost, got)
	}
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", 73))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
