package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{
			name:   "nil config",
			config: nil,
		},
		{
			name:   "disabled config skips validation",
			config: &Config{Enabled: false},
		},
		{
			name:    "enabled without methods",
			config:  &Config{Enabled: true},
			wantErr: "at least one authentication method",
		},
		{
			name: "basic without users",
			config: &Config{
				Enabled: true,
				Basic:   &BasicConfig{Enabled: true},
			},
			wantErr: "requires at least one user",
		},
		{
			name: "preauth without users",
			config: &Config{
				Enabled: true,
				Preauth: &PreauthConfig{Enabled: true},
			},
			wantErr: "requires at least one user",
		},
		{
			name: "valid basic",
			config: &Config{
				Enabled: true,
				Users:   []UserConfig{{Username: "alice", Password: "pw"}},
				Basic:   &BasicConfig{Enabled: true},
			},
		},
		{
			name: "user missing username",
			config: &Config{
				Enabled: true,
				Users:   []UserConfig{{Password: "pw"}},
				Basic:   &BasicConfig{Enabled: true},
			},
			wantErr: "missing a username",
		},
		{
			name: "jwt without key material",
			config: &Config{
				Enabled: true,
				JWT:     &JWTConfig{Enabled: true},
			},
			wantErr: "either secret or publicKeyFile",
		},
		{
			name: "jwt with both key sources",
			config: &Config{
				Enabled: true,
				JWT:     &JWTConfig{Enabled: true, Secret: "s", PublicKeyFile: "k.pem"},
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "jwt with unsupported algorithm",
			config: &Config{
				Enabled: true,
				JWT:     &JWTConfig{Enabled: true, Secret: "s", Algorithm: "ES256"},
			},
			wantErr: "unsupported algorithm",
		},
		{
			name: "valid jwt",
			config: &Config{
				Enabled: true,
				JWT:     &JWTConfig{Enabled: true, Secret: "s", Algorithm: "HS256"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	t.Parallel()

	var nilConfig *Config
	assert.False(t, nilConfig.IsBasicEnabled())
	assert.False(t, nilConfig.IsPreauthEnabled())
	assert.False(t, nilConfig.IsJWTEnabled())
	assert.Equal(t, DefaultPreauthHeader, nilConfig.PreauthHeader())

	config := &Config{
		Basic:   &BasicConfig{Enabled: true},
		Preauth: &PreauthConfig{Enabled: true, Header: "x-remote-user"},
		JWT:     &JWTConfig{Enabled: false},
	}
	assert.True(t, config.IsBasicEnabled())
	assert.True(t, config.IsPreauthEnabled())
	assert.False(t, config.IsJWTEnabled())
	assert.Equal(t, "x-remote-user", config.PreauthHeader())
}
