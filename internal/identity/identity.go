package identity

import "strings"

// Normalize extracts the canonical handle from a bare handle or a profile URL.
// ok is false when nothing usable remains; callers must not navigate then.
func Normalize(input string) (handle string, ok bool) {
	s := strings.TrimSpace(input)
	s = strings.TrimSuffix(s, "/")

	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}

	if s == "" {
		return "", false
	}
	return s, true
}
