package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMismatchedPassword is returned by Compare when the password does not match the hash.
	ErrMismatchedPassword = errors.New("password does not match hash")
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
)

// HashParams are the argon2id cost parameters. Memory is in KiB.
type HashParams struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultHashParams is suitable for interactive sign-in.
var DefaultHashParams = HashParams{
	Memory:  64 * 1024,
	Time:    3,
	Threads: 2,
	SaltLen: 16,
	KeyLen:  32,
}

// Hasher hashes and verifies passwords using argon2id. Hashes produced by an
// earlier bcrypt-based scheme (prefix "$2") are still verified. Callers must
// not log or persist plaintext passwords.
type Hasher struct {
	Params HashParams
}

// NewHasher returns a Hasher with the given parameters. Zero fields fall back
// to DefaultHashParams.
func NewHasher(p HashParams) *Hasher {
	if p.Memory == 0 {
		p.Memory = DefaultHashParams.Memory
	}
	if p.Time == 0 {
		p.Time = DefaultHashParams.Time
	}
	if p.Threads == 0 {
		p.Threads = DefaultHashParams.Threads
	}
	if p.SaltLen == 0 {
		p.SaltLen = DefaultHashParams.SaltLen
	}
	if p.KeyLen == 0 {
		p.KeyLen = DefaultHashParams.KeyLen
	}
	return &Hasher{Params: p}
}

// Hash produces an encoded argon2id hash of password with a random salt:
// $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
func (h *Hasher) Hash(password []byte) (string, error) {
	salt := make([]byte, h.Params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(password, salt, h.Params.Time, h.Params.Memory, h.Params.Threads, h.Params.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Params.Memory, h.Params.Time, h.Params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare verifies password against the stored hash in constant time.
// Returns nil on match, ErrMismatchedPassword on mismatch, ErrMalformedHash
// when the hash cannot be decoded.
func (h *Hasher) Compare(hash string, password []byte) error {
	if hash == "" {
		return ErrMalformedHash
	}
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), password)
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedPassword
		}
		if err != nil {
			return ErrMalformedHash
		}
		return nil
	}
	p, salt, key, err := decodeArgon2(hash)
	if err != nil {
		return err
	}
	other := argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	if subtle.ConstantTimeCompare(key, other) != 1 {
		return ErrMismatchedPassword
	}
	return nil
}

// Verify reports whether password matches hash.
func (h *Hasher) Verify(password []byte, hash string) bool {
	return h.Compare(hash, password) == nil
}

// NeedsRehash reports whether hash was produced by bcrypt or with weaker
// argon2id parameters than h.
func (h *Hasher) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	p, _, key, err := decodeArgon2(hash)
	if err != nil {
		return true
	}
	return p.Memory < h.Params.Memory || p.Time < h.Params.Time || p.Threads < h.Params.Threads || uint32(len(key)) < h.Params.KeyLen
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2")
}

func decodeArgon2(hash string) (HashParams, []byte, []byte, error) {
	var p HashParams
	parts := strings.Split(hash, "$")
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
