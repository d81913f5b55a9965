// Package origin decides whether a message sender's origin is trusted.
//
// An origin is scheme://host[:port]. Patterns are either exact origins
// ("https://auth.maxplatform.io") or wildcard-subdomain patterns
// ("https://*.maxplatform.io"). A wildcard never matches the bare apex
// domain, and "*" alone is never a valid pattern.
package origin

import (
	"net/url"
	"strings"
)

// Validator holds the set of trusted origin patterns for a deployment
type Validator struct {
	patterns []pattern
}

type pattern struct {
	scheme   string
	host     string // lowercased, without port
	port     string
	wildcard bool // host is a "*.suffix" pattern
}

// NewValidator parses trusted origin patterns. Invalid patterns and bare
// wildcards are rejected.
func NewValidator(trusted []string) (*Validator, error) {
	v := &Validator{}
	for _, raw := range trusted {
		p, err := parsePattern(raw)
		if err != nil {
			return nil, err
		}
		v.patterns = append(v.patterns, p)
	}
	return v, nil
}

func parsePattern(raw string) (pattern, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return pattern{}, &InvalidPatternError{Pattern: raw, Reason: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return pattern{}, &InvalidPatternError{Pattern: raw, Reason: "origin must be scheme://host[:port]"}
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return pattern{}, &InvalidPatternError{Pattern: raw, Reason: "origin must not carry a path, query, or fragment"}
	}

	host := strings.ToLower(u.Hostname())
	if host == "*" {
		return pattern{}, &InvalidPatternError{Pattern: raw, Reason: "bare wildcard origins are not allowed"}
	}

	p := pattern{
		scheme: strings.ToLower(u.Scheme),
		host:   host,
		port:   u.Port(),
	}
	if strings.HasPrefix(host, "*.") {
		p.wildcard = true
		p.host = host[1:] // keep leading dot: ".maxplatform.io"
	}
	return p, nil
}

// Trusted reports whether the candidate origin matches any trusted pattern.
// Malformed candidates are never trusted.
func (v *Validator) Trusted(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := normalizePort(scheme, u.Port())

	for _, p := range v.patterns {
		if p.scheme != scheme {
			continue
		}
		if normalizePort(p.scheme, p.port) != port {
			continue
		}
		if p.wildcard {
			// "*.example.com" matches "a.example.com" but not "example.com"
			if strings.HasSuffix(host, p.host) && host != p.host[1:] {
				return true
			}
			continue
		}
		if p.host == host {
			return true
		}
	}
	return false
}

func normalizePort(scheme, port string) string {
	if port != "" {
		return port
	}
	switch scheme {
	case "https":
		return "443"
	case "http":
		return "80"
	}
	return ""
}

// InvalidPatternError reports a trusted-origin pattern that could not be parsed
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return "invalid trusted origin pattern " + e.Pattern + ": " + e.Reason
}
