package order

import (
	"regexp"
	"strings"
)

// replacements fixes common speech-to-text mis-hearings before any
// quantity or item matching runs. Longer variants come first so a
// shorter replacement cannot clobber part of a longer one.
var replacements = []struct {
	wrong string
	right string
}{
	{"shore my", "shawarma"},
	{"shorma", "shawarma"},
	{"shwarma", "shawarma"},
	{"schawarma", "shawarma"},
	{"sandwhiches", "sandwiches"},
	{"sandwhichs", "sandwiches"},
	{"sandwhich", "sandwich"},
	{"kabob", "kebab"},
	{"humus", "hummus"},
	{"falaffel", "falafel"},
}

// Normalize lowercases the utterance and applies the mis-hearing table.
func Normalize(text string) string {
	q := strings.ToLower(text)
	for _, r := range replacements {
		q = strings.ReplaceAll(q, r.wrong, r.right)
	}
	return q
}

var digitQuantityRe = regexp.MustCompile(`(?:^|\s)(\d+)(?:\s+|$)`)

// numberWords are scanned in this fixed priority order; the first word
// found in the text wins.
var numberWords = []struct {
	word  string
	value int
}{
	{"one", 1}, {"two", 2}, {"three", 3}, {"four", 4}, {"five", 5},
	{"six", 6}, {"seven", 7}, {"eight", 8}, {"nine", 9}, {"ten", 10},
}

// ParseQuantity pulls a quantity out of normalized text: an explicit
// digit first, then small number words, defaulting to 1.
func ParseQuantity(text string) int {
	if m := digitQuantityRe.FindStringSubmatch(text); m != nil {
		n := 0
		for _, ch := range m[1] {
			n = n*10 + int(ch-'0')
		}
		if n > 0 {
			return n
		}
	}
	for i, nw := range numberWords {
		if numberWordRes[i].MatchString(text) {
			return nw.value
		}
	}
	return 1
}

var numberWordRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(numberWords))
	for i, nw := range numberWords {
		res[i] = regexp.MustCompile(`\b` + nw.word + `\b`)
	}
	return res
}()

// stopwords are skipped when comparing utterance words to item names.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true,
	"with": true, "for": true, "to": true, "i": true, "we": true,
	"want": true, "like": true, "get": true, "me": true, "my": true,
	"some": true, "can": true, "could": true, "have": true, "would": true,
	"please": true, "also": true, "add": true, "order": true,
	"pickup": true, "takeout": true, "just": true, "do": true,
}

// SignificantWords splits text into lowercase non-stopword, non-numeric
// tokens.
func SignificantWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	})
	var words []string
	for _, f := range fields {
		if f == "" || stopwords[f] || isNumericToken(f) || isQuantityWord(f) {
			continue
		}
		words = append(words, f)
	}
	return words
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// isQuantityWord reports whether the token is a spelled-out quantity.
func isQuantityWord(s string) bool {
	for _, nw := range numberWords {
		if s == nw.word {
			return true
		}
	}
	return false
}

// singular strips a trailing plural "s" so "wraps" matches "wrap".
// Short words are left alone.
func singular(word string) string {
	if len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return strings.TrimSuffix(word, "s")
	}
	return word
}

func WordsMatch(a, b string) bool {
	return a == b || singular(a) == singular(b)
}
