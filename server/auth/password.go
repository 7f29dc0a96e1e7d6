// Package auth wraps the password hashing contract used for locked rooms.
package auth

import "golang.org/x/crypto/bcrypt"

// MaxPasswordLength is the bcrypt input limit in bytes. Longer passwords are
// rejected instead of silently truncated.
const MaxPasswordLength = 72

// HashPassword derives an opaque hash from a room password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
