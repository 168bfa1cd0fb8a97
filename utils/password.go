package utils

import "golang.org/x/crypto/bcrypt"

// bcryptCost is the work factor for new hashes. Existing rows keep the cost
// they were hashed with, so raising this needs no migration.
const bcryptCost = bcrypt.DefaultCost

// HashPassword derives the bcrypt hash a user row stores in place of the
// plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
