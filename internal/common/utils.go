package common

import "strings"

// MentionsAny reports whether any phrase contains one of the hints,
// ignoring case. Hints are expected in lower case.
func MentionsAny(phrases []string, hints ...string) bool {
	for _, p := range phrases {
		p = strings.ToLower(p)
		for _, h := range hints {
			if strings.Contains(p, h) {
				return true
			}
		}
	}
	return false
}
