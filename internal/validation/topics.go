package validation

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	MaxTopicLength = 64
	MaxTopics      = 32
)

// NormalizeTopics trims and lowercases each topic and rejects malformed ones.
// Duplicates are kept; readers ignore them.
func NormalizeTopics(topics []string) ([]string, error) {
	if len(topics) > MaxTopics {
		return nil, fmt.Errorf("too many topics (max %d)", MaxTopics)
	}

	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return nil, fmt.Errorf("topic cannot be empty")
		}
		if len(t) > MaxTopicLength {
			return nil, fmt.Errorf("topic %q too long (max %d characters)", t, MaxTopicLength)
		}
		for _, r := range t {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return nil, fmt.Errorf("topic %q contains invalid character %q", t, r)
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// NormalizeEmail trims and lowercases an address. It only checks the basic
// local@domain shape; deliverability is not our concern.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	return email, nil
}
