package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used for service token hashes.
const DefaultBcryptCost = 12

// HashToken hashes a service token with bcrypt. The result is the value
// expected in AI_SERVICE_TOKEN_HASH.
func HashToken(token string, cost int) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token is empty")
	}
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > 14 {
		return "", fmt.Errorf("bcrypt cost out of range: %d (must be %d-14)", cost, bcrypt.MinCost)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken reports whether token matches a bcrypt hash.
func VerifyToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
