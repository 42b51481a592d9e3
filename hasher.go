package authkit

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// Argon2Params tunes the Argon2id hasher. Memory is expressed in KiB.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params follows the RFC 9106 low-memory recommendation.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword will generate an Argon2id hash in PHC string format.
// Hashing is deliberately expensive; callers must treat it as a blocking,
// non-trivial-latency operation.
func HashPassword(password string) (string, error) {
	return hashPasswordWithParams(password, DefaultArgon2Params)
}

func hashPasswordWithParams(password string, p Argon2Params) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate salt")
	}

	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the encoded Argon2id hash.
func ComparePasswordAndHash(password, hash string) error {
	p, salt, key, err := decodeArgon2Hash(hash)
	if err != nil {
		return err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	if subtle.ConstantTimeCompare(key, candidate) != 1 {
		return ErrMismatchedHashAndPassword
	}

	return nil
}

func decodeArgon2Hash(hash string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errors.New("unsupported password hash format", errors.CategoryInternal)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, errors.Wrap(err, errors.CategoryInternal, "malformed password hash version")
	}
	if version != argon2.Version {
		return p, nil, nil, errors.New("incompatible argon2 version", errors.CategoryInternal)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, errors.Wrap(err, errors.CategoryInternal, "malformed password hash parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, errors.Wrap(err, errors.CategoryInternal, "malformed password hash salt")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, errors.Wrap(err, errors.CategoryInternal, "malformed password hash digest")
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}

// PasswordHasher adapts the package-level hashing functions to the
// PasswordAuthenticator interface for injection into the authenticator.
type PasswordHasher struct {
	Params Argon2Params
}

// NewPasswordHasher returns a hasher with the default parameters.
func NewPasswordHasher() PasswordHasher {
	return PasswordHasher{Params: DefaultArgon2Params}
}

// HashPassword implements PasswordAuthenticator.
func (h PasswordHasher) HashPassword(password string) (string, error) {
	params := h.Params
	if params.KeyLength == 0 {
		params = DefaultArgon2Params
	}
	return hashPasswordWithParams(password, params)
}

// ComparePasswordAndHash implements PasswordAuthenticator.
func (h PasswordHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}
