package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		issuer     string
		hours      int
		wantIssuer string
		wantHours  int
		wantErr    bool
	}{
		{name: "defaults", secret: "0123456789abcdef", wantIssuer: DefaultJWTIssuer, wantHours: 24},
		{name: "custom", secret: "0123456789abcdef", issuer: "backend", hours: 2, wantIssuer: "backend", wantHours: 2},
		{name: "empty secret", secret: "", wantErr: true},
		{name: "short secret", secret: "abc", wantErr: true},
		{name: "negative hours", secret: "0123456789abcdef", hours: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewJWTConfig(tt.secret, tt.issuer, tt.hours)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIssuer, cfg.Issuer)
			assert.Equal(t, tt.wantHours, cfg.ExpirationHours)
		})
	}
}
