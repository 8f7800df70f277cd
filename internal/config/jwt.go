package config

import "fmt"

// Service JWT defaults.
const (
	DefaultJWTIssuer          = "campus-agents"
	DefaultJWTExpirationHours = 24
)

// JWTConfig holds configuration for service JWT generation and validation.
// Tokens are HS256-signed with Secret.
type JWTConfig struct {
	Secret          string
	Issuer          string
	ExpirationHours int
}

// NewJWTConfig creates a JWT configuration, applying the default issuer and
// expiration when they are zero.
func NewJWTConfig(secret, issuer string, expirationHours int) (*JWTConfig, error) {
	if issuer == "" {
		issuer = DefaultJWTIssuer
	}
	if expirationHours == 0 {
		expirationHours = DefaultJWTExpirationHours
	}
	cfg := &JWTConfig{
		Secret:          secret,
		Issuer:          issuer,
		ExpirationHours: expirationHours,
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("AI_SERVICE_JWT_SECRET cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("AI_SERVICE_JWT_SECRET must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("AI_SERVICE_JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
