package utils

import "golang.org/x/crypto/bcrypt"

// bcrypt cost for member passwords. The default is fine for a login endpoint
// already behind a rate limiter.
const passwordHashCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
