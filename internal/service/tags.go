package service

import (
	"fmt"
	"strings"
)

// NormalizeTags turns the raw tags value of a request body into a list.
// A string is split on commas; list elements are trimmed, and non-string
// elements are kept in their printed form. ok is false for anything else,
// which callers treat as "tags not supplied".
func NormalizeTags(raw any) (tags []string, ok bool) {
	switch v := raw.(type) {
	case string:
		parts := strings.Split(v, ",")
		tags = make([]string, 0, len(parts))
		for _, p := range parts {
			tags = append(tags, strings.TrimSpace(p))
		}
		return tags, true
	case []string:
		tags = make([]string, 0, len(v))
		for _, s := range v {
			tags = append(tags, strings.TrimSpace(s))
		}
		return tags, true
	case []any:
		tags = make([]string, 0, len(v))
		for _, e := range v {
			if s, isString := e.(string); isString {
				tags = append(tags, strings.TrimSpace(s))
				continue
			}
			tags = append(tags, fmt.Sprint(e))
		}
		return tags, true
	default:
		return nil, false
	}
}
