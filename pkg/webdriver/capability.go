package webdriver

import "strings"

// Capability is a role a lazily resolved handle must satisfy.
type Capability uint8

const (
	// CapElement is the Element method set.
	CapElement Capability = 1 << iota
	// CapLocatable is the Locatable method set.
	CapLocatable
)

// Has reports whether every capability in other is present in c.
func (c Capability) Has(other Capability) bool { return c&other == other }

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	if c.Has(CapElement) {
		parts = append(parts, "element")
	}
	if c.Has(CapLocatable) {
		parts = append(parts, "locatable")
	}
	return strings.Join(parts, "|")
}
