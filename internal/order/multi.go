package order

import (
	"regexp"
	"strings"
)

// aliases map colloquial names to canonical catalog keys (lowercase).
// Checked before scoring; first hit wins.
var aliases = []struct {
	alias     string
	canonical string
}{
	{"coca cola", "soft drink"},
	{"coke", "soft drink"},
	{"cola", "soft drink"},
	{"pepsi", "soft drink"},
	{"sprite", "soft drink"},
	{"soda", "soft drink"},
	{"soft drink", "soft drink"},
	{"lemonade", "mint lemonade"},
	{"mango", "mango juice"},
	{"baba", "baba ghanoush"},
	{"grape leaves", "grape leaves"},
	{"tabouleh", "tabbouleh"},
	{"mixed grill", "mixed grill plate"},
}

// shawarmaQualifiers block the bare-shawarma default: when any of these
// appears alongside "shawarma" the scoring pass decides instead.
var shawarmaQualifiers = []string{"beef", "chicken", "plate", "family", "tray"}

// extras are orderable items that live outside the menu catalog. A
// segment matching no catalog entry still produces a line at the
// extra's fallback price.
var extras = []struct {
	name     string
	price    float64
	keywords []string
}{
	{"French Fries", 3.99, []string{"french fries", "fries"}},
	{"Side of Garlic Sauce", 0.99, []string{"garlic sauce"}},
	{"Extra Pita", 1.49, []string{"extra pita", "pita bread"}},
}

// twoNumberRe catches "N type1 and M type2 <shared-suffix>" spans like
// "1 beef and 2 chicken shawarma", which the generic comma/"and" split
// would mangle into "1 beef" + "2 chicken shawarma".
var twoNumberRe = regexp.MustCompile(`(?:^|\s)(\d+|one|two|three|four|five|six|seven|eight|nine|ten)\s+([a-z]+)\s+and\s+(\d+|one|two|three|four|five|six|seven|eight|nine|ten)\s+([a-z]+)\s+([a-z]+(?:\s+[a-z]+)*)`)

var segmentSplitRe = regexp.MustCompile(`,|\band\b|\bplus\b`)

// ParseMulti extracts any number of order lines from the text. The
// two-number shared-suffix pattern is consumed first so the generic
// segment pass cannot double-count it. An empty result means the caller
// should fall back to ParseSingle.
func (e *Extractor) ParseMulti(text string) []Line {
	q := Normalize(text)

	var lines []Line
	appendLine := func(l Line, ok bool) {
		if !ok {
			return
		}
		for i := range lines {
			if lines[i].Name == l.Name {
				lines[i].AddQuantity(l.Quantity)
				return
			}
		}
		lines = append(lines, l)
	}

	if m := twoNumberRe.FindStringSubmatchIndex(q); m != nil {
		sub := twoNumberRe.FindStringSubmatch(q)
		if sharedSuffixQualifier[sub[2]] && sharedSuffixQualifier[sub[4]] {
			qty1, qty2 := parseQuantityToken(sub[1]), parseQuantityToken(sub[3])
			// The greedy suffix can run past a following "and ..." clause;
			// keep only the shared-suffix words before it.
			suffix := sub[5]
			end := m[1]
			if cut := strings.Index(suffix, " and "); cut >= 0 {
				end = m[10] + cut
				suffix = suffix[:cut]
			}
			appendLine(e.matchSegment(sub[2]+" "+suffix, qty1))
			appendLine(e.matchSegment(sub[4]+" "+suffix, qty2))
			// Blank the consumed span so the generic pass skips it.
			q = q[:m[0]] + strings.Repeat(" ", end-m[0]) + q[end:]
		}
	}

	for _, seg := range segmentSplitRe.Split(q, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" || len(SignificantWords(seg)) == 0 {
			continue
		}
		appendLine(e.matchSegment(seg, ParseQuantity(seg)))
	}

	return lines
}

// sharedSuffixQualifier limits the two-number special case to the
// protein/ambiguous-compound pairs it exists for ("1 beef and 2 chicken
// shawarma"); anything else goes through the generic segment split.
var sharedSuffixQualifier = map[string]bool{
	"beef": true, "chicken": true, "falafel": true, "kafta": true, "lamb": true,
}

func parseQuantityToken(tok string) int {
	return ParseQuantity(tok + " ")
}

// matchSegment resolves one segment to a line: alias table first, then
// weighted scoring over the catalog, then the extras fallback.
func (e *Extractor) matchSegment(seg string, quantity int) (Line, bool) {
	if name, ok := e.aliasFor(seg); ok {
		if item, found := e.index.Lookup(name); found {
			return NewLine(item.Name, quantity, item.Price), true
		}
	}

	if name := e.bestScoredMatch(seg); name != "" {
		item, _ := e.index.Lookup(name)
		return NewLine(item.Name, quantity, item.Price), true
	}

	for _, extra := range extras {
		for _, kw := range extra.keywords {
			if strings.Contains(seg, kw) {
				return NewLine(extra.name, quantity, extra.price), true
			}
		}
	}

	return Line{}, false
}

func (e *Extractor) aliasFor(seg string) (string, bool) {
	for _, a := range aliases {
		if strings.Contains(seg, a.alias) {
			return a.canonical, true
		}
	}

	// Unqualified "shawarma" defaults to the chicken shawarma wrap.
	if strings.Contains(seg, "shawarma") {
		qualified := false
		for _, w := range shawarmaQualifiers {
			if strings.Contains(seg, w) {
				qualified = true
				break
			}
		}
		if !qualified {
			return "chicken shawarma wrap", true
		}
	}

	return "", false
}

// bestScoredMatch scores every catalog entry against the segment:
// core-substring containment carries the highest weight, shared words
// count with bonuses for load-bearing words, and items whose form word
// (wrap/plate/tray) matches the caller's get a preference. Beef and
// chicken compounds never cross-match.
func (e *Extractor) bestScoredMatch(seg string) string {
	segWords := SignificantWords(seg)
	if len(segWords) == 0 {
		return ""
	}

	segHasBeef := containsWord(segWords, "beef")
	segHasChicken := containsWord(segWords, "chicken")

	var matched string
	bestScore := 0
	bestCoreLen := 0

	for _, name := range e.index.Names() {
		nameWords := strings.Fields(name)

		if segHasBeef && containsWord(nameWords, "chicken") {
			continue
		}
		if segHasChicken && containsWord(nameWords, "beef") {
			continue
		}

		score := 0
		core := strings.TrimSpace(strings.NewReplacer("wrap", "", "sandwich", "").Replace(name))
		coreHit := core != "" && strings.Contains(seg, core)
		if coreHit {
			score += e.weights.CoreSubstring * len(core)
		}

		sharedSpecific := false
		for _, sw := range segWords {
			for _, nw := range nameWords {
				if WordsMatch(sw, nw) {
					score += e.weights.SharedWord
					if bonusWords[singular(sw)] {
						score += e.weights.BonusWord
					}
					if !isFormWord(sw) {
						sharedSpecific = true
					}
					break
				}
			}
		}

		// Form words alone ("2 sandwiches") cannot identify an item;
		// the caller gets the enumerated menu instead.
		if !coreHit && !sharedSpecific {
			continue
		}

		for _, form := range formWords {
			if strings.Contains(seg, form) && strings.Contains(name, form) {
				score += e.weights.FormPreference
			}
		}

		if score > bestScore || (score == bestScore && score > 0 && len(core) > bestCoreLen) {
			bestScore = score
			bestCoreLen = len(core)
			matched = name
		}
	}

	// A lone shared generic word is too weak to order on.
	if bestScore <= e.weights.SharedWord {
		return ""
	}
	return matched
}

func isFormWord(tok string) bool {
	s := singular(tok)
	for _, form := range formWords {
		if s == form {
			return true
		}
	}
	return false
}

func containsWord(words []string, tok string) bool {
	for _, w := range words {
		if w == tok {
			return true
		}
	}
	return false
}
