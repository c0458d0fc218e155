package auth

import (
	"errors"
	"strings"
	"testing"
)

// cheap keeps the tests fast; the encoding does not depend on the cost.
var cheap = Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashPassword_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$") {
		t.Errorf("unexpected PHC prefix: %s", hash)
	}
	if n := strings.Count(hash, "$"); n != 5 {
		t.Errorf("expected 5 separators, got %d", n)
	}
}

func TestParams_HashAndVerify(t *testing.T) {
	t.Parallel()

	hash, err := cheap.Hash("Sauerteig-2024")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	again, err := cheap.Hash("Sauerteig-2024")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == again {
		t.Error("expected different salts to give different hashes")
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct", "Sauerteig-2024", true},
		{"wrong", "Sauerteig-2025", false},
		{"case", "sauerteig-2024", false},
		{"empty", "", false},
		{"unicode", "Säuerteig-2024", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyPassword(tt.password, hash)
			if err != nil {
				t.Fatalf("VerifyPassword() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
		want error
	}{
		{"empty", "", ErrInvalidHash},
		{"bcrypt", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy", ErrInvalidHash},
		{"argon2i", "$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA", ErrInvalidHash},
		{"version", "$argon2id$v=16$m=65536,t=3,p=4$c2FsdA$aGFzaA", ErrIncompatibleVersion},
		{"params", "$argon2id$v=19$m=x,t=3,p=4$c2FsdA$aGFzaA", ErrInvalidHash},
		{"salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA", ErrInvalidHash},
		{"key", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$", ErrInvalidHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyPassword("anything", tt.hash)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if ok {
				t.Error("invalid hash must not verify")
			}
		})
	}
}

func TestNeedsRehash(t *testing.T) {
	t.Parallel()

	weak, err := cheap.Hash("pw")
	if err != nil {
		t.Fatal(err)
	}
	strong, err := HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}

	if !NeedsRehash(weak) {
		t.Error("expected cheap hash to need a rehash")
	}
	if NeedsRehash(strong) {
		t.Error("default hash must not need a rehash")
	}
	if NeedsRehash("garbage") {
		t.Error("unparseable hash must not need a rehash")
	}
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	a := ContentHash([]byte(`{"brief":[],"full":[]}`))
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
	if a != ContentHash([]byte(`{"brief":[],"full":[]}`)) {
		t.Error("expected same content to hash alike")
	}
	if a == ContentHash([]byte(`{"brief":[],"full":[{}]}`)) {
		t.Error("expected different content to hash differently")
	}
}
