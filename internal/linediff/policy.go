package linediff

import (
	"fmt"
	"strings"
)

// IgnorePolicy decides which differences between two lines are ignored.
type IgnorePolicy int

const (
	// Default compares lines exactly.
	Default IgnorePolicy = iota
	// TrimWhitespace ignores leading and trailing whitespace.
	TrimWhitespace
	// IgnoreWhitespace ignores all whitespace.
	IgnoreWhitespace
)

var policyNames = map[IgnorePolicy]string{
	Default:          "default",
	TrimWhitespace:   "trim",
	IgnoreWhitespace: "ignore-whitespace",
}

func (p IgnorePolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("IgnorePolicy(%d)", int(p))
}

// Next cycles through the policies.
func (p IgnorePolicy) Next() IgnorePolicy {
	return (p + 1) % IgnorePolicy(len(policyNames))
}

// ParsePolicy accepts the names returned by String, plus a few aliases.
func ParsePolicy(s string) (IgnorePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "none":
		return Default, nil
	case "trim", "trim-whitespace":
		return TrimWhitespace, nil
	case "ignore-whitespace", "ignore", "whitespace":
		return IgnoreWhitespace, nil
	}
	return Default, fmt.Errorf("invalid ignore policy %q (expected default|trim|ignore-whitespace)", s)
}

// Normalize maps a line to the form compared under p.
func (p IgnorePolicy) Normalize(line string) string {
	switch p {
	case TrimWhitespace:
		return strings.TrimSpace(line)
	case IgnoreWhitespace:
		return strings.Join(strings.Fields(line), "")
	default:
		return line
	}
}

// Equal reports whether a and b are the same under p.
func Equal(a, b []string, p IgnorePolicy) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && p.Normalize(a[i]) != p.Normalize(b[i]) {
			return false
		}
	}
	return true
}
