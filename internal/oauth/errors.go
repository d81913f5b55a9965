package oauth

import (
	"errors"
	"fmt"
)

// FailureKind classifies how a sign-in attempt failed
type FailureKind string

const (
	// KindUserCancelled: the auxiliary context was closed or denied by the user
	KindUserCancelled FailureKind = "user_cancelled"
	// KindProviderError: the provider returned an error parameter
	KindProviderError FailureKind = "provider_error"
	// KindStateMismatch: returned state does not match the retained one
	KindStateMismatch FailureKind = "state_mismatch"
	// KindOriginMismatch: message received from an untrusted origin
	KindOriginMismatch FailureKind = "origin_mismatch"
	// KindMalformedCallback: callback carried neither an error nor code+state
	KindMalformedCallback FailureKind = "malformed_callback"
	// KindTimeout: the attempt deadline was exceeded
	KindTimeout FailureKind = "timeout"
	// KindDuplicateProcessing: a re-entrant callback execution was blocked
	KindDuplicateProcessing FailureKind = "duplicate_processing"
	// KindExchangeFailed: the token endpoint rejected or was unreachable
	KindExchangeFailed FailureKind = "exchange_failed"
)

// FlowError is the structured failure surfaced to the initiating caller.
// OriginMismatch is never surfaced: untrusted messages are dropped and logged
// where they are received.
type FlowError struct {
	Kind         FailureKind `json:"error"`
	Description  string      `json:"error_description,omitempty"`
	ProviderCode string      `json:"provider_code,omitempty"`
	State        string      `json:"state,omitempty"`
}

func (e *FlowError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Description)
	}
	return string(e.Kind)
}

func NewFlowError(kind FailureKind, description string) *FlowError {
	return &FlowError{Kind: kind, Description: description}
}

// AsFlowError unwraps err into a *FlowError if it is one
func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// SecurityRelevant reports whether the failure must fail closed: these kinds
// never proceed to token exchange.
func (e *FlowError) SecurityRelevant() bool {
	return e.Kind == KindStateMismatch || e.Kind == KindDuplicateProcessing
}
