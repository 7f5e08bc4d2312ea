package order

import (
	"strings"

	"ai-receptionist/internal/catalog"
	"ai-receptionist/internal/common/logger"
)

// Weights tunes the multi-item candidate scoring. The defaults were fit
// against an example corpus (see extractor_corpus_test.go), not derived
// from any formal precedence, so they are configurable rather than
// hard-coded into the matcher.
type Weights struct {
	// CoreSubstring is multiplied by the matched core's length, so a
	// containment match dominates word-overlap scores.
	CoreSubstring int
	SharedWord    int
	BonusWord     int
	// FormPreference rewards items whose name carries a form word the
	// caller used (wrap, sandwich, plate, tray).
	FormPreference int
}

func DefaultWeights() Weights {
	return Weights{
		CoreSubstring:  10,
		SharedWord:     3,
		BonusWord:      4,
		FormPreference: 5,
	}
}

// bonusWords are semantically load-bearing: sharing one of these with an
// item name is much stronger evidence than sharing a generic word.
var bonusWords = map[string]bool{
	"hummus": true, "fattoush": true, "shawarma": true, "beef": true,
	"chicken": true, "kafta": true, "kebab": true, "falafel": true,
	"tabbouleh": true, "baklava": true, "lemonade": true, "juice": true,
	"grill": true, "tray": true,
}

// formWords describe how an item is served rather than what it is.
var formWords = []string{"wrap", "sandwich", "plate", "tray"}

// Extractor parses order lines against the read-only catalog index.
type Extractor struct {
	index   *catalog.Index
	weights Weights
	logger  logger.Logger
}

func NewExtractor(index *catalog.Index, weights Weights, log logger.Logger) *Extractor {
	return &Extractor{
		index:   index,
		weights: weights,
		logger:  log.WithFields(map[string]interface{}{"component": "order_extractor"}),
	}
}

// ParseSingle pulls one quantity and one catalog item out of the text.
// Every catalog entry is scored by the length of its core (name with
// "wrap"/"sandwich" stripped) when that core appears in the input; the
// longest matching core wins. When the caller says "wrap" or "sandwich"
// the candidate set is first restricted to wrap/sandwich items, falling
// back to the full set only if the restricted pass finds nothing.
func (e *Extractor) ParseSingle(text string) (Line, bool) {
	q := Normalize(text)
	quantity := ParseQuantity(q)

	prefersWrap := strings.Contains(q, "wrap") || strings.Contains(q, "sandwich")

	matched := e.bestCoreMatch(q, prefersWrap)
	if matched == "" && prefersWrap {
		matched = e.bestCoreMatch(q, false)
	}
	if matched == "" {
		return Line{}, false
	}

	item, _ := e.index.Lookup(matched)
	return NewLine(item.Name, quantity, item.Price), true
}

func (e *Extractor) bestCoreMatch(q string, wrapOnly bool) string {
	var matched string
	bestScore := 0

	for _, name := range e.index.Names() {
		core := strings.TrimSpace(strings.NewReplacer("wrap", "", "sandwich", "").Replace(name))
		if core == "" {
			continue
		}
		if wrapOnly && !strings.Contains(name, "wrap") && !strings.Contains(name, "sandwich") {
			continue
		}
		if strings.Contains(q, core) {
			if score := len(core); score > bestScore {
				bestScore = score
				matched = name
			}
		}
	}
	return matched
}
