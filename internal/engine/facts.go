package engine

import (
	"fmt"
	"strings"

	"ai-receptionist/internal/catalog"
)

// factRule answers a common factual question straight from the catalog.
// Rules run in order; a rule that matches but renders an empty answer
// declines, and the next rule gets a chance.
type factRule struct {
	name   string
	match  func(q string) bool
	answer func(e *Engine, q string) string
}

var factRules = []factRule{
	{
		name:  "hours",
		match: matchAny("hour", "open", "close", "when are you"),
		answer: func(e *Engine, _ string) string {
			return e.renderHours()
		},
	},
	{
		name:  "halal",
		match: matchAny("halal"),
		answer: func(e *Engine, _ string) string {
			if a := e.faqByTag("halal"); a != "" {
				return a
			}
			if e.business.Services["halal_meat"] {
				return "Yes, all of our meat is halal certified."
			}
			return ""
		},
	},
	{
		name:  "vegetarian",
		match: matchAny("vegetarian", "vegan"),
		answer: func(e *Engine, _ string) string {
			return e.faqByTag("vegetarian")
		},
	},
	{
		name:  "gluten",
		match: matchAny("gluten"),
		answer: func(e *Engine, _ string) string {
			return e.faqByTag("gluten_free")
		},
	},
	{
		name:  "parking",
		match: matchAny("parking", "park"),
		answer: func(e *Engine, _ string) string {
			return e.business.LocationInfo.Parking
		},
	},
	{
		name:  "catering",
		match: matchAny("catering", "cater"),
		answer: func(e *Engine, _ string) string {
			return e.faqByTag("catering")
		},
	},
	{
		name:  "delivery",
		match: matchAny("delivery", "deliver", "doordash", "uber eats"),
		answer: func(e *Engine, _ string) string {
			return e.faqByTag("delivery")
		},
	},
	{
		name:  "item price",
		match: matchAny("how much", "price", "cost", "what is", "what's", "tell me about"),
		answer: func(e *Engine, q string) string {
			return e.renderItemFact(q)
		},
	},
	{
		name:  "location",
		match: matchAny("where are you", "address", "located", "location", "how do i get"),
		answer: func(e *Engine, _ string) string {
			return e.renderLocation()
		},
	},
	{
		name:  "menu section",
		match: matchAny("appetizer", "dessert", "drinks", "plates", "trays", "what wraps", "what sandwiches"),
		answer: func(e *Engine, q string) string {
			return e.renderSection(q)
		},
	},
}

func matchAny(keywords ...string) func(string) bool {
	return func(q string) bool {
		return containsAny(q, keywords)
	}
}

// answerFact runs the fact rules in priority order. An empty string
// means no rule answered and the cascade continues.
func (e *Engine) answerFact(q string) string {
	for _, rule := range factRules {
		if !rule.match(q) {
			continue
		}
		if answer := rule.answer(e, q); answer != "" {
			return answer
		}
	}
	return ""
}

var dayOrder = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (e *Engine) renderHours() string {
	if len(e.business.Hours) == 0 {
		return ""
	}
	var parts []string
	for _, day := range dayOrder {
		if h, ok := e.business.Hours[day]; ok {
			parts = append(parts, fmt.Sprintf("%s%s %s", strings.ToUpper(day[:1]), day[1:], h))
		}
	}
	return fmt.Sprintf("Our hours are: %s.", strings.Join(parts, ", "))
}

func (e *Engine) renderLocation() string {
	addr := e.business.Address
	if addr.Street == "" {
		return ""
	}
	answer := fmt.Sprintf("We're located at %s, %s, %s %s.", addr.Street, addr.City, addr.State, addr.Zip)
	if lm := e.business.LocationInfo.Landmarks; lm != "" {
		answer += " " + lm
	}
	return answer
}

// faqByTag returns the first FAQ answer carrying the tag.
func (e *Engine) faqByTag(tag string) string {
	for _, faq := range e.business.FAQ {
		for _, t := range faq.Tags {
			if t == tag {
				return faq.Answer
			}
		}
	}
	return ""
}

// renderItemFact answers a per-item price or description question when
// the utterance names a catalog item.
func (e *Engine) renderItemFact(q string) string {
	item, ok := e.findMentionedItem(q)
	if !ok {
		return ""
	}
	answer := fmt.Sprintf("The %s is $%.2f.", item.Name, item.Price)
	if item.Description != "" {
		answer += " " + item.Description
	}
	return answer
}

// findMentionedItem scans the index for the longest item whose name, or
// whose name with the wrap/sandwich form word dropped, appears in the
// utterance.
func (e *Engine) findMentionedItem(q string) (catalog.MenuItem, bool) {
	var best catalog.MenuItem
	bestLen := 0
	for _, name := range e.index.Names() {
		core := strings.TrimSpace(strings.NewReplacer(" wrap", "", " sandwich", "").Replace(name))
		if len(core) < 5 {
			core = name
		}
		if strings.Contains(q, name) || strings.Contains(q, core) {
			if len(name) > bestLen {
				if item, ok := e.index.Lookup(name); ok {
					best = item
					bestLen = len(name)
				}
			}
		}
	}
	return best, bestLen > 0
}

func (e *Engine) renderSection(q string) string {
	for _, section := range e.business.MenuSections {
		lower := strings.ToLower(section.Name)
		matched := false
		for _, word := range strings.Fields(strings.Trim(lower, "&")) {
			word = strings.Trim(word, "&")
			if word == "" {
				continue
			}
			if strings.Contains(q, strings.TrimSuffix(word, "s")) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		var parts []string
		for _, item := range section.Items {
			parts = append(parts, fmt.Sprintf("%s ($%.2f)", item.Name, item.Price))
		}
		return fmt.Sprintf("Our %s: %s.", section.Name, strings.Join(parts, ", "))
	}
	return ""
}
