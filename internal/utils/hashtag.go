package utils

import (
	"regexp"
	"slices"
	"strings"
)

var hashtagRe = regexp.MustCompile(`#([\p{L}\p{M}0-9_]+)`)

// ExtractHashtags returns the distinct lower-cased tags of text without the leading '#'.
// Tags containing profanity are dropped, and at most limit tags are kept when limit > 0.
func ExtractHashtags(text string, limit int) []string {
	matches := hashtagRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	filter := defaultProfanityFilter()
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if filter.Contains(tag) || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
