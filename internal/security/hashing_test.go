package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// fastParams keeps argon2 cheap in tests.
var fastParams = HashParams{Memory: 1024, Time: 1, Threads: 1}

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(fastParams)
	password := []byte("secret123")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !h.Verify(password, hash) {
		t.Fatal("Verify returned false for matching password")
	}
}

func TestHasher_SaltedPerHash(t *testing.T) {
	h := NewHasher(fastParams)
	a, _ := h.Hash([]byte("secret123"))
	b, _ := h.Hash([]byte("secret123"))
	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestHasher_CompareWrongPassword(t *testing.T) {
	h := NewHasher(fastParams)
	hash, _ := h.Hash([]byte("secret123"))
	if err := h.Compare(hash, []byte("wrong")); !errors.Is(err, ErrMismatchedPassword) {
		t.Fatalf("Compare with wrong password: want ErrMismatchedPassword, got %v", err)
	}
}

func TestHasher_Malformed(t *testing.T) {
	h := NewHasher(fastParams)
	for _, hash := range []string{
		"",
		"plain",
		"$argon2id$v=19$m=1024,t=1,p=1$salt",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$2a$10$notavalidbcrypthash",
	} {
		if h.Verify([]byte("secret123"), hash) {
			t.Errorf("Verify(%q) = true, want false", hash)
		}
	}
}

func TestHasher_LegacyBcrypt(t *testing.T) {
	h := NewHasher(fastParams)
	legacy, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := h.Compare(string(legacy), []byte("secret123")); err != nil {
		t.Fatalf("Compare legacy: %v", err)
	}
	if err := h.Compare(string(legacy), []byte("other-pass")); !errors.Is(err, ErrMismatchedPassword) {
		t.Fatalf("Compare legacy mismatch: got %v", err)
	}
	if !h.NeedsRehash(string(legacy)) {
		t.Error("bcrypt hash should need rehash")
	}
}

func TestHasher_NeedsRehash(t *testing.T) {
	weak := NewHasher(fastParams)
	strong := NewHasher(HashParams{Memory: 2048, Time: 2, Threads: 1})
	hash, _ := weak.Hash([]byte("secret123"))
	if weak.NeedsRehash(hash) {
		t.Error("hash with current params should not need rehash")
	}
	if !strong.NeedsRehash(hash) {
		t.Error("hash with weaker params should need rehash")
	}
}

func TestNewHasher_Defaults(t *testing.T) {
	h := NewHasher(HashParams{})
	if h.Params != DefaultHashParams {
		t.Errorf("zero params: got %+v, want %+v", h.Params, DefaultHashParams)
	}
}
