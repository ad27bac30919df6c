package utils

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// ProfanityFilter masks banned words with '*' of the same rune length.
// ASCII words match on word boundaries, case-insensitively; anything else matches as a substring.
type ProfanityFilter struct {
	patterns []*regexp.Regexp
}

var (
	defaultFilter     *ProfanityFilter
	defaultFilterOnce sync.Once
)

// DefaultBannedWords is extended at startup through PROFANITY_WORDS (comma-separated).
var DefaultBannedWords = []string{
	"fuck", "fucking", "fucker", "motherfucker", "shit", "bullshit",
	"bastard", "bitch", "dick", "cock", "pussy", "cunt",
	"asshole", "dumbass", "jackass", "retard", "slut", "whore",
	"faggot", "douche", "douchebag", "wanker", "twat", "prick",
	"arsehole", "bollocks", "cocksucker", "shithead", "dipshit",
	"dumbfuck", "dildo", "porn", "rapist", "blowjob", "handjob",
}

func defaultProfanityFilter() *ProfanityFilter {
	defaultFilterOnce.Do(func() {
		words := append([]string{}, DefaultBannedWords...)
		if extra := strings.TrimSpace(os.Getenv("PROFANITY_WORDS")); extra != "" {
			words = append(words, strings.Split(extra, ",")...)
		}
		defaultFilter = NewProfanityFilter(words)
	})
	return defaultFilter
}

// MaskProfanity masks s with the process-wide filter.
func MaskProfanity(s string) string {
	if s == "" {
		return s
	}
	return defaultProfanityFilter().Mask(s)
}

func NewProfanityFilter(words []string) *ProfanityFilter {
	uniq := make([]string, 0, len(words))
	seen := map[string]struct{}{}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		uniq = append(uniq, w)
	}
	// longest first so substrings never pre-empt the word that contains them
	sort.Slice(uniq, func(i, j int) bool {
		return len([]rune(uniq[i])) > len([]rune(uniq[j]))
	})
	pats := make([]*regexp.Regexp, 0, len(uniq))
	for _, w := range uniq {
		var pattern string
		if isASCIIWord(w) {
			pattern = `(?i)\b` + regexp.QuoteMeta(w) + `\b`
		} else {
			pattern = regexp.QuoteMeta(w)
		}
		pats = append(pats, regexp.MustCompile(pattern))
	}
	return &ProfanityFilter{patterns: pats}
}

func (pf *ProfanityFilter) Mask(s string) string {
	if pf == nil || len(pf.patterns) == 0 || s == "" {
		return s
	}
	out := s
	for _, re := range pf.patterns {
		out = re.ReplaceAllStringFunc(out, func(m string) string {
			return strings.Repeat("*", len([]rune(m)))
		})
	}
	return out
}

func (pf *ProfanityFilter) Contains(s string) bool {
	if pf == nil {
		return false
	}
	for _, re := range pf.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func isASCIIWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return false
		}
	}
	return true
}
