package engine

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/order"
)

// itemFollowups pick a follow-up question from the most-recently-added
// item's name. Rules are ordered; the first substring match wins, and no
// match means no question is appended.
var itemFollowups = []struct {
	substr   string
	question string
}{
	{"family", "That feeds 4 to 6 people. How many are you feeding?"},
	{"tray", "That feeds 4 to 6 people. How many are you feeding?"},
	{"skewer", "How would you like the skewers done?"},
	{"kebab", "How would you like the kebabs done?"},
	{"shawarma", "Would you like garlic sauce and pickles on that, and should I make it spicy or mild?"},
	{"wrap", "Would you like to add a drink with that?"},
	{"sandwich", "Would you like to add a drink with that?"},
}

func followupFor(itemName string) string {
	lower := strings.ToLower(itemName)
	for _, rule := range itemFollowups {
		if strings.Contains(lower, rule.substr) {
			return rule.question
		}
	}
	return ""
}

// followupStopwords are skipped when reducing a phrase to its mapping
// key. This list is fixed; the mapping file was built with it.
var followupStopwords = map[string]bool{
	"i": true, "a": true, "an": true, "the": true, "just": true,
	"want": true, "get": true, "one": true, "do": true, "like": true,
	"would": true, "can": true, "could": true, "please": true,
	"for": true, "to": true, "with": true, "under": true,
}

// keyWords reduces text to its first three significant words, the same
// reduction the mapping file keys were built with.
func keyWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	})
	var words []string
	for _, f := range fields {
		if f == "" || followupStopwords[f] {
			continue
		}
		words = append(words, f)
		if len(words) == 3 {
			break
		}
	}
	return words
}

type followupEntry struct {
	key    string
	words  []string
	answer string
}

// FollowupTable is the precomputed phrase-to-canned-answer cache built
// from historical labeled examples. Matching it skips the language model.
type FollowupTable struct {
	entries []followupEntry
	logger  logger.Logger
}

// LoadFollowups reads the mapping file. A missing or malformed file
// yields an empty table so the engine simply never takes this branch.
func LoadFollowups(path string, log logger.Logger) *FollowupTable {
	table := &FollowupTable{logger: log}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("followup mapping file unavailable, cache branch disabled", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return table
	}
	var mapping map[string]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		log.Warn("followup mapping file malformed, cache branch disabled", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return table
	}
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		table.entries = append(table.entries, followupEntry{
			key:    k,
			words:  strings.Fields(k),
			answer: mapping[k],
		})
	}
	return table
}

// Match looks the utterance up against the table. An exact key hit wins;
// otherwise the entry sharing the most significant words is selected,
// requiring at least two shared words.
func (t *FollowupTable) Match(text string) (string, bool) {
	if t == nil || len(t.entries) == 0 {
		return "", false
	}
	words := keyWords(text)
	if len(words) == 0 {
		return "", false
	}
	key := strings.Join(words, " ")

	best := -1
	bestShared := 1
	for i, entry := range t.entries {
		if entry.key == key {
			return entry.answer, true
		}
		shared := sharedWordCount(words, entry.words)
		if shared > bestShared {
			bestShared = shared
			best = i
		}
	}
	if best >= 0 {
		return t.entries[best].answer, true
	}
	return "", false
}

func sharedWordCount(a, b []string) int {
	count := 0
	for _, aw := range a {
		for _, bw := range b {
			if order.WordsMatch(aw, bw) {
				count++
				break
			}
		}
	}
	return count
}

// Len reports the number of loaded entries.
func (t *FollowupTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
