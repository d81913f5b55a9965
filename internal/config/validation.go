package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

// ValidateFile validates a config file structure without requiring env vars
// to be set, so it can run in CI before deployment.
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
		})
		return result, nil
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "version",
			Message: "version field is required. Hint: Add \"version\": \"v1\"",
		})
	} else if !strings.HasPrefix(version, "v1") {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("unsupported version %q - use \"v1\"", version),
		})
	}

	validateFrontendSection(rawConfig, result)
	validateProviderSection(rawConfig, result)
	validateFlowSection(rawConfig, result)
	validateStorageSection(rawConfig, result)

	return result, nil
}

func validateFrontendSection(rawConfig map[string]any, result *ValidationResult) {
	frontend, ok := rawConfig["frontend"].(map[string]any)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "frontend",
			Message: "frontend section is required",
		})
		return
	}

	baseURL, _ := frontend["baseURL"].(string)
	if baseURL == "" {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "frontend.baseURL",
			Message: "baseURL is required",
		})
	} else if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "frontend.baseURL",
			Message: fmt.Sprintf("baseURL %q is not an absolute URL", baseURL),
		})
	}

	if addr, _ := frontend["addr"].(string); addr == "" {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "frontend.addr",
			Message: "addr is required, e.g. \":8080\"",
		})
	}

	origins, ok := frontend["trustedOrigins"].([]any)
	if !ok || len(origins) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "frontend.trustedOrigins",
			Message: "at least one trusted origin is required",
		})
		return
	}
	for i, o := range origins {
		s, _ := o.(string)
		if s == "*" {
			result.Errors = append(result.Errors, ValidationError{
				Path:    fmt.Sprintf("frontend.trustedOrigins[%d]", i),
				Message: "a bare wildcard origin is never allowed",
			})
		}
	}
}

func validateProviderSection(rawConfig map[string]any, result *ValidationResult) {
	provider, ok := rawConfig["provider"].(map[string]any)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "provider",
			Message: "provider section is required",
		})
		return
	}

	for _, field := range []string{"authorizationUrl", "tokenUrl", "clientId"} {
		if s, _ := provider[field].(string); s == "" {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "provider." + field,
				Message: field + " is required",
			})
		}
	}

	if scopes, ok := provider["scopes"].([]any); !ok || len(scopes) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Path:    "provider.scopes",
			Message: "no scopes configured; the provider's defaults will apply",
		})
	}
}

func validateFlowSection(rawConfig map[string]any, result *ValidationResult) {
	flow, ok := rawConfig["flow"].(map[string]any)
	if !ok {
		return
	}

	for _, field := range []string{"attemptTimeout", "pollInterval", "pendingTtl", "cleanupInterval"} {
		raw, exists := flow[field]
		if !exists {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "flow." + field,
				Message: "duration must be a string like \"10m\"",
			})
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "flow." + field,
				Message: fmt.Sprintf("invalid duration %q", s),
			})
		}
	}
}

func validateStorageSection(rawConfig map[string]any, result *ValidationResult) {
	storage, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "storage",
			Message: "storage section is required",
		})
		return
	}

	kind, _ := storage["kind"].(string)
	switch kind {
	case "", "memory":
	case "firestore":
		if project, _ := storage["gcpProject"].(string); project == "" {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "storage.gcpProject",
				Message: "gcpProject is required for firestore storage",
			})
		}
	default:
		result.Errors = append(result.Errors, ValidationError{
			Path:    "storage.kind",
			Message: fmt.Sprintf("unknown storage kind %q - use \"memory\" or \"firestore\"", kind),
		})
	}

	key, exists := storage["encryptionKey"]
	if !exists {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "storage.encryptionKey",
			Message: "encryptionKey is required",
		})
		return
	}
	if _, isString := key.(string); isString {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "storage.encryptionKey",
			Message: "encryptionKey must use {\"$env\": \"VAR_NAME\"} - never inline the key",
		})
	}
}
