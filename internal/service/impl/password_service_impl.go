package impl

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultPasswordIterations = 600_000

	pbkdf2KeyLen   = 64
	pbkdf2SaltSize = 16
)

// PasswordServicePBKDF2 hashes with PBKDF2-HMAC-SHA512. The iteration count
// is stored per user, so raising it only affects new and rehashed passwords.
type PasswordServicePBKDF2 struct {
	iterations int
}

func NewPasswordServicePBKDF2(iterations int) *PasswordServicePBKDF2 {
	if iterations <= 0 {
		iterations = DefaultPasswordIterations
	}
	return &PasswordServicePBKDF2{iterations: iterations}
}

func (p *PasswordServicePBKDF2) Hash(password, salt string, iterations int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if iterations <= 0 {
		return "", ErrInvalidIterations
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, pbkdf2KeyLen, sha512.New)
	return hex.EncodeToString(key), nil
}

func (p *PasswordServicePBKDF2) Verify(password, salt string, iterations int, expectedHash string) bool {
	got, err := p.Hash(password, salt, iterations)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expectedHash)) == 1
}

func (p *PasswordServicePBKDF2) NewCredential(password string) (hash, salt string, iterations int, err error) {
	raw := make([]byte, pbkdf2SaltSize)
	if _, err = rand.Read(raw); err != nil {
		return "", "", 0, err
	}
	salt = hex.EncodeToString(raw)
	hash, err = p.Hash(password, salt, p.iterations)
	if err != nil {
		return "", "", 0, err
	}
	return hash, salt, p.iterations, nil
}

func (p *PasswordServicePBKDF2) NeedsRehash(iterations int) bool {
	return iterations < p.iterations
}
