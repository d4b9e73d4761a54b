package roster

import (
	"net"
	"strings"
	"unicode"
)

// looksLikeIPv4 reports whether raw has the dotted-quad shape, without
// validating octet ranges (that's validIPv4's job).
func looksLikeIPv4(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

func validIPv4(raw string) bool {
	ip := net.ParseIP(raw)
	return ip != nil && ip.To4() != nil
}

// looksLikeIPv6 uses the simplest useful heuristic: a colon, or a
// bracketed literal.
func looksLikeIPv6(raw string) bool {
	return strings.Contains(raw, ":") || (strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"))
}

func validIPv6(raw string) bool {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	ip := net.ParseIP(trimmed)
	return ip != nil && ip.To4() == nil
}

// validHostname enforces RFC 1123 label rules: 1-63 chars per label,
// alnum/hyphen only, no leading/trailing hyphen.
func validHostname(raw string) bool {
	if len(raw) > 253 {
		return false
	}
	labels := strings.Split(raw, ".")
	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		for i, r := range label {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
				return false
			}
			if (i == 0 || i == len(label)-1) && r == '-' {
				return false
			}
		}
	}
	return true
}
