package farside

import "strings"

// resolver decides whether a destination names a channel this library serves.
type resolver struct {
	patterns []string
}

func (r resolver) resolve(dest string) bool {
	// Destinations cross as NUL-terminated strings.
	if dest == "" || strings.IndexByte(dest, 0) >= 0 {
		return false
	}
	if len(r.patterns) == 0 {
		return true
	}
	for _, p := range r.patterns {
		if matchPattern(p, dest) {
			return true
		}
	}
	return false
}

// matchPattern matches a destination against an allowlist pattern.
//   - "*" matches everything
//   - "foo.*" matches any destination starting with "foo."
//   - "foo" matches exactly "foo"
func matchPattern(pattern, dest string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(dest, prefix)
	}
	return pattern == dest
}
