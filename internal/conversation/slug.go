package conversation

import (
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "can": {}, "do": {}, "for": {}, "from": {},
	"has": {}, "have": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {},
	"my": {}, "of": {}, "on": {}, "or": {}, "please": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "what": {}, "why": {}, "will": {},
	"with": {}, "you": {}, "your": {},
}

const slugMaxLen = 40

// Slug derives a short filesystem-safe name from prompt text: the first
// five meaningful words, kebab-cased, capped at 40 characters. Falls back
// to "conversation" when nothing usable remains.
func Slug(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var kept []string
	for _, w := range words {
		if _, skip := stopwords[w]; skip {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 5 {
			break
		}
	}
	if len(kept) == 0 {
		return "conversation"
	}

	slug := strings.Join(kept, "-")
	if runes := []rune(slug); len(runes) > slugMaxLen {
		slug = strings.TrimRight(string(runes[:slugMaxLen]), "-")
	}
	return slug
}
