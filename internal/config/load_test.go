package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validConfig = `{
	"version": "v1",
	"frontend": {
		"baseURL": "https://signin.example.com",
		"addr": ":8080",
		"trustedOrigins": ["https://signin.example.com", "https://*.example.com"]
	},
	"provider": {
		"authorizationUrl": "https://auth.example.com/oauth2/auth",
		"tokenUrl": "https://auth.example.com/oauth2/token",
		"clientId": "maxplatform",
		"scopes": ["openid", "profile"]
	},
	"flow": {
		"attemptTimeout": "10m",
		"pendingTtl": "10m",
		"cleanupInterval": "5m"
	},
	"storage": {
		"kind": "memory",
		"encryptionKey": {"$env": "TEST_CONFIG_ENCRYPTION_KEY"}
	}
}`

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("TEST_CONFIG_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := Load(writeConfigFile(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://signin.example.com", cfg.Frontend.BaseURL)
	assert.Equal(t, ":8080", cfg.Frontend.Addr)
	assert.Len(t, cfg.Frontend.TrustedOrigins, 2)
	assert.Equal(t, "maxplatform", cfg.Provider.ClientID)
	assert.Equal(t, 10*time.Minute, time.Duration(cfg.Flow.AttemptTimeout))
	assert.Equal(t, StorageKindMemory, cfg.Storage.Kind)
	assert.Equal(t, Secret("0123456789abcdef0123456789abcdef"), cfg.Storage.EncryptionKey)
}

func TestLoadRejectsMissingVersion(t *testing.T) {
	_, err := Load(writeConfigFile(t, `{"frontend": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	_, err := Load(writeConfigFile(t, `{"version": "v2"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config version")
}

func TestLoadRejectsInlineEncryptionKey(t *testing.T) {
	// A key pasted into the config file is a secret leak; only env
	// references are accepted.
	_, err := Load(writeConfigFile(t, `{
		"version": "v1",
		"frontend": {
			"baseURL": "https://signin.example.com",
			"addr": ":8080",
			"trustedOrigins": ["https://signin.example.com"]
		},
		"provider": {
			"authorizationUrl": "https://auth.example.com/oauth2/auth",
			"tokenUrl": "https://auth.example.com/oauth2/token",
			"clientId": "maxplatform"
		},
		"storage": {
			"kind": "memory",
			"encryptionKey": "0123456789abcdef0123456789abcdef"
		}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment variable reference")
}

func TestValidateConfigRequiredFields(t *testing.T) {
	base := func() *Config {
		return &Config{
			Version: "v1",
			Frontend: FrontendConfig{
				BaseURL:        "https://signin.example.com",
				Addr:           ":8080",
				TrustedOrigins: []string{"https://signin.example.com"},
			},
			Provider: ProviderConfig{
				AuthorizationURL: "https://auth.example.com/oauth2/auth",
				TokenURL:         "https://auth.example.com/oauth2/token",
				ClientID:         "maxplatform",
			},
			Storage: StorageConfig{
				Kind:          StorageKindMemory,
				EncryptionKey: Secret("0123456789abcdef0123456789abcdef"),
			},
		}
	}

	assert.NoError(t, ValidateConfig(base()))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base URL", func(c *Config) { c.Frontend.BaseURL = "" }, "baseURL"},
		{"missing addr", func(c *Config) { c.Frontend.Addr = "" }, "addr"},
		{"no trusted origins", func(c *Config) { c.Frontend.TrustedOrigins = nil }, "trusted origin"},
		{"missing authorization URL", func(c *Config) { c.Provider.AuthorizationURL = "" }, "authorizationUrl"},
		{"missing token URL", func(c *Config) { c.Provider.TokenURL = "" }, "tokenUrl"},
		{"missing client ID", func(c *Config) { c.Provider.ClientID = "" }, "clientId"},
		{"firestore without project", func(c *Config) { c.Storage.Kind = StorageKindFirestore }, "gcpProject"},
		{"unknown storage kind", func(c *Config) { c.Storage.Kind = "redis" }, "storage.kind"},
		{"short encryption key", func(c *Config) { c.Storage.EncryptionKey = "short" }, "32 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
