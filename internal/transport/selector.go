package transport

// Mode identifies which delivery strategy an attempt uses. The decision is
// made once per attempt and is immutable for the attempt's lifetime;
// downstream components must not re-derive it.
type Mode string

const (
	ModeAuxiliary Mode = "auxiliary"
	ModeRedirect  Mode = "redirect"
)

// Intent expresses the caller's preference for an attempt
type Intent struct {
	// ForceRedirect skips the auxiliary context even when one could be opened
	ForceRedirect bool
}

// Selector picks the transport mode from caller intent and environment
// capability.
type Selector struct {
	launcher Launcher
}

// NewSelector creates a selector. launcher may be nil when the environment
// cannot open auxiliary contexts.
func NewSelector(launcher Launcher) *Selector {
	return &Selector{launcher: launcher}
}

// Select decides the mode for one attempt
func (s *Selector) Select(intent Intent) Mode {
	if intent.ForceRedirect || s.launcher == nil {
		return ModeRedirect
	}
	return ModeAuxiliary
}
