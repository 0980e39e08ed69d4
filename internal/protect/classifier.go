// Package protect decides which payload fields carry sensitive personal data
// and applies encryption, decryption, or masking across arbitrarily nested
// JSON values. Classification (is this field protected?) and traversal
// (walk the value tree) are kept separate so each is testable on its own.
package protect

import "strings"

// Classifier matches field names against configured protected-name fragments.
type Classifier struct {
	fragments []string
}

// NewClassifier lowercases the fragment list once up front; matching is
// case-insensitive substring containment.
func NewClassifier(fragments []string) *Classifier {
	lowered := make([]string, 0, len(fragments))
	for _, f := range fragments {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			lowered = append(lowered, f)
		}
	}
	return &Classifier{fragments: lowered}
}

// IsProtected reports whether a field name refers to sensitive personal data.
func (c *Classifier) IsProtected(fieldName string) bool {
	name := strings.ToLower(fieldName)
	for _, fragment := range c.fragments {
		if strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}

// MaskValue obscures a sensitive string for callers without data access.
// Values longer than 4 characters keep their first and last two characters;
// anything shorter collapses to "***" so length leaks nothing useful.
func MaskValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return "***"
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
