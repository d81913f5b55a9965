package oauth

import (
	"errors"
	"net/url"
	"time"
)

// Cross-context message types. These are the only payloads ever exchanged
// between the callback context and the initiating context.
const (
	MessageSuccess = "OAUTH_SUCCESS"
	MessageError   = "OAUTH_ERROR"
)

// ErrMalformedMessage marks a message that cannot be interpreted as an
// outcome. The receiver drops it and keeps waiting; it does not resolve the
// attempt.
var ErrMalformedMessage = errors.New("malformed cross-context message")

// CrossContextMessage is the completion payload relayed from the callback
// context back to the initiating context. It must be validated against the
// trusted origin set before being trusted.
type CrossContextMessage struct {
	Type             string `json:"type"`
	Code             string `json:"code,omitempty"`
	State            string `json:"state,omitempty"`
	ErrorCode        string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	Timestamp        int64  `json:"timestamp"`
}

// MessageFromCallback packages provider callback parameters as a message for
// relaying to the initiating context. Token exchange never happens on the
// relay side; the verifier lives with the initiator.
func MessageFromCallback(q url.Values) CrossContextMessage {
	msg := CrossContextMessage{Timestamp: time.Now().UnixMilli()}

	if errCode := q.Get("error"); errCode != "" {
		msg.Type = MessageError
		msg.ErrorCode = errCode
		msg.ErrorDescription = q.Get("error_description")
		msg.State = q.Get("state")
		return msg
	}

	msg.Type = MessageSuccess
	msg.Code = q.Get("code")
	msg.State = q.Get("state")
	return msg
}

// Outcome interprets a trusted message. Success messages yield an Outcome,
// error messages yield a ProviderError failure, and anything else is
// ErrMalformedMessage.
func (m CrossContextMessage) Outcome() (*Outcome, error) {
	switch m.Type {
	case MessageSuccess:
		if m.Code == "" || m.State == "" {
			return nil, ErrMalformedMessage
		}
		return &Outcome{Code: m.Code, State: m.State}, nil
	case MessageError:
		if m.ErrorCode == "" {
			return nil, ErrMalformedMessage
		}
		return nil, &FlowError{
			Kind:         KindProviderError,
			Description:  m.ErrorDescription,
			ProviderCode: m.ErrorCode,
			State:        m.State,
		}
	default:
		return nil, ErrMalformedMessage
	}
}
