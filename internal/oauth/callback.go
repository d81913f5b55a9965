package oauth

import "net/url"

// Outcome is the result of a provider callback that completed successfully.
// Failures are reported as *FlowError instead; an attempt produces exactly
// one of the two.
type Outcome struct {
	Code  string
	State string
}

// ParseCallback interprets the provider callback query parameters.
//
// A provider-supplied error parameter wins: it becomes a ProviderError
// failure. Otherwise both code and state are required; missing either is a
// MalformedCallback failure.
func ParseCallback(q url.Values) (*Outcome, error) {
	if errCode := q.Get("error"); errCode != "" {
		return nil, &FlowError{
			Kind:         KindProviderError,
			Description:  q.Get("error_description"),
			ProviderCode: errCode,
			State:        q.Get("state"),
		}
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		return nil, NewFlowError(KindMalformedCallback, "callback is missing code or state")
	}

	return &Outcome{Code: code, State: state}, nil
}
