package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/tphakala/itemstore/internal/errors"
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.Newf("password must not be empty").
			Component("security").
			Category(errors.CategoryValidation).
			Build()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.New(err).
			Component("security").
			Category(errors.CategoryValidation).
			Context("operation", "hash_password").
			Build()
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A malformed hash never matches.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
