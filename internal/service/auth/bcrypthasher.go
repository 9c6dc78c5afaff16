package auth

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt password hasher
// Will be used as default one if user not provide it's own
//
// Password is pre-hashed with SHA-256, so passwords longer than 72 bytes (bcrypt limit) are not truncated
type BcryptHasher struct {
	Cost int
}

var DefaultHasher = BcryptHasher{Cost: bcrypt.DefaultCost}

// Valid bcrypt hash of a password nobody knows
// Compared against when user not found to keep response time the same
var dummyHash = func() string {
	h, err := DefaultHasher.Hash("dummy password nobody knows")
	if err != nil {
		panic(err)
	}
	return h
}()

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	return string(hash), err
}

// Compare in constant time. Any error (including malformed hash) means passwords do not match
func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])
}

// Verify reports whether password matches hash. Fails closed
func Verify(h PasswordHasher, hashedPassword string, password string) bool {
	return h.Compare(hashedPassword, password) == nil
}
