package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Duration unmarshals from a time.ParseDuration string ("10m", "1h30m")
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// StorageKind selects the pending-authorization backend
type StorageKind string

const (
	StorageKindMemory    StorageKind = "memory"
	StorageKindFirestore StorageKind = "firestore"
)

// Config is the resolved signin-front configuration
type Config struct {
	Version  string         `json:"version"`
	Frontend FrontendConfig `json:"frontend"`
	Provider ProviderConfig `json:"provider"`
	Flow     FlowConfig     `json:"flow"`
	Storage  StorageConfig  `json:"storage"`
}

// FrontendConfig describes this application's own surface
type FrontendConfig struct {
	// BaseURL is the public origin of signin-front, also the origin
	// completion messages are addressed to
	BaseURL string `json:"baseURL"`
	Addr    string `json:"addr"`

	// TrustedOrigins are the origins completion messages may come from.
	// Exact origins or *.wildcard subdomains; never a bare wildcard.
	TrustedOrigins []string `json:"trustedOrigins"`
}

// ProviderConfig describes the central authorization server
type ProviderConfig struct {
	AuthorizationURL string   `json:"authorizationUrl"`
	TokenURL         string   `json:"tokenUrl"`
	ClientID         string   `json:"clientId"`
	Scopes           []string `json:"scopes"`
}

// FlowConfig tunes attempt lifecycle timing. Zero values fall back to
// built-in defaults.
type FlowConfig struct {
	AttemptTimeout  Duration `json:"attemptTimeout,omitempty"`
	PollInterval    Duration `json:"pollInterval,omitempty"`
	PendingTTL      Duration `json:"pendingTtl,omitempty"`
	CleanupInterval Duration `json:"cleanupInterval,omitempty"`
}

// StorageConfig selects and configures the pending-authorization backend
type StorageConfig struct {
	Kind       StorageKind `json:"kind"`
	GCPProject string      `json:"gcpProject,omitempty"`
	Collection string      `json:"collection,omitempty"`

	// EncryptionKey seals code verifiers at rest. Must be exactly 32 bytes
	// and must be supplied as an environment reference, never inline.
	EncryptionKey Secret `json:"-"`

	EncryptionKeyRaw json.RawMessage `json:"encryptionKey,omitempty"`
}

// UnmarshalJSON resolves the encryption key env reference immediately
func (c *StorageConfig) UnmarshalJSON(data []byte) error {
	type alias StorageConfig
	if err := json.Unmarshal(data, (*alias)(c)); err != nil {
		return err
	}
	if len(c.EncryptionKeyRaw) > 0 {
		v, err := resolveEnvString(c.EncryptionKeyRaw)
		if err != nil {
			return fmt.Errorf("encryptionKey: %w", err)
		}
		c.EncryptionKey = Secret(v)
		c.EncryptionKeyRaw = nil
	}
	return nil
}

// resolveEnvString decodes either a plain JSON string or an {"$env": "VAR"}
// reference resolved against the process environment.
func resolveEnvString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var ref struct {
		Env string `json:"$env"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil || ref.Env == "" {
		return "", fmt.Errorf("value must be a string or {\"$env\": \"VAR_NAME\"}")
	}

	value, ok := os.LookupEnv(ref.Env)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", ref.Env)
	}
	return value, nil
}
