package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, "v1") {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// The custom UnmarshalJSON methods resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig checks secrets are env references before resolution
func validateRawConfig(rawConfig map[string]any) error {
	storage, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		return nil
	}

	if value, exists := storage["encryptionKey"]; exists {
		if _, isString := value.(string); isString {
			return fmt.Errorf("encryptionKey must use environment variable reference for security")
		}
		if refMap, isMap := value.(map[string]any); isMap {
			if _, hasEnv := refMap["$env"]; !hasEnv {
				return fmt.Errorf("encryptionKey must use {\"$env\": \"VAR_NAME\"} format")
			}
		}
	}
	return nil
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Frontend.BaseURL == "" {
		return fmt.Errorf("frontend.baseURL is required")
	}
	if config.Frontend.Addr == "" {
		return fmt.Errorf("frontend.addr is required")
	}
	if len(config.Frontend.TrustedOrigins) == 0 {
		return fmt.Errorf("at least one trusted origin is required")
	}

	if config.Provider.AuthorizationURL == "" {
		return fmt.Errorf("provider.authorizationUrl is required")
	}
	if config.Provider.TokenURL == "" {
		return fmt.Errorf("provider.tokenUrl is required")
	}
	if config.Provider.ClientID == "" {
		return fmt.Errorf("provider.clientId is required")
	}

	switch config.Storage.Kind {
	case StorageKindMemory, "":
	case StorageKindFirestore:
		if config.Storage.GCPProject == "" {
			return fmt.Errorf("storage.gcpProject is required when using firestore storage")
		}
	default:
		return fmt.Errorf("storage.kind must be %q or %q", StorageKindMemory, StorageKindFirestore)
	}

	if len(config.Storage.EncryptionKey) != 32 {
		return fmt.Errorf("encryptionKey must be exactly 32 characters (got %d). Generate with: openssl rand -base64 32 | head -c 32", len(config.Storage.EncryptionKey))
	}

	return nil
}
