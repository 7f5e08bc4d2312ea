package engine

import (
	"fmt"
	"strings"

	"ai-receptionist/internal/intent"
)

// answerTemplate renders a canned per-intent response. An empty string
// means the template declined and the cascade falls through to
// retrieval and generation.
func (e *Engine) answerTemplate(in intent.Intent, q string) string {
	switch in {
	case intent.Greeting:
		return fmt.Sprintf("Thank you for calling %s! How can I help you today?", e.business.BusinessName)
	case intent.Menu:
		return e.renderMenuOverview()
	case intent.Pricing:
		return e.renderPricingRange()
	case intent.Hours:
		return e.renderHours()
	case intent.Direction:
		// Short utterances and off-topic mentions classified as
		// direction get the full treatment only when the caller
		// actually asked about getting here.
		if len(strings.Fields(q)) < 2 || !containsAny(q, []string{"where", "address", "direction", "located", "location", "get to", "find"}) {
			return ""
		}
		answer := e.renderLocation()
		if pt := e.business.LocationInfo.PublicTransport; answer != "" && pt != "" {
			answer += " " + pt
		}
		return answer
	case intent.Reservation:
		return e.renderReservationPolicy()
	case intent.Goodbye:
		return fmt.Sprintf("Thank you for calling %s. Have a wonderful day!", e.business.BusinessName)
	default:
		return ""
	}
}

func (e *Engine) renderMenuOverview() string {
	if len(e.business.MenuSections) == 0 {
		return ""
	}
	var sections []string
	for _, section := range e.business.MenuSections {
		sections = append(sections, section.Name)
	}
	return fmt.Sprintf("Our menu has %s. Is there a dish or section you'd like to hear more about?",
		joinWithAnd(sections))
}

func (e *Engine) renderPricingRange() string {
	lowest, highest := 0.0, 0.0
	first := true
	for _, name := range e.index.Names() {
		item, ok := e.index.Lookup(name)
		if !ok {
			continue
		}
		if first || item.Price < lowest {
			lowest = item.Price
		}
		if first || item.Price > highest {
			highest = item.Price
		}
		first = false
	}
	if first {
		return ""
	}
	return fmt.Sprintf("Our menu ranges from $%.2f to $%.2f. Wraps and sandwiches run around $8 to $10, "+
		"plates $13 to $19, and family trays feed 4 to 6. Is there an item I can price for you?",
		lowest, highest)
}

func (e *Engine) renderReservationPolicy() string {
	rules := e.business.ReservationRules
	if rules.MaxPartySize == 0 {
		return ""
	}
	answer := fmt.Sprintf("We accept reservations for parties of %d to %d.", rules.MinPartySize, rules.MaxPartySize)
	if rules.RequiresPhoneForLargeParty && rules.LargePartyThreshold > 0 {
		answer += fmt.Sprintf(" For parties of %d or more, please call us at %s.",
			rules.LargePartyThreshold, e.business.Address.Phone)
	}
	answer += " What date and time were you thinking, and for how many people?"
	return answer
}

// renderWrapMenu enumerates wrap and sandwich options for a bare
// "N wraps" request that named no specific item.
func (e *Engine) renderWrapMenu() string {
	var parts []string
	for _, name := range e.index.Names() {
		if !strings.Contains(name, "wrap") && !strings.Contains(name, "sandwich") {
			continue
		}
		if item, ok := e.index.Lookup(name); ok {
			parts = append(parts, fmt.Sprintf("%s ($%.2f)", item.Name, item.Price))
		}
	}
	if len(parts) == 0 {
		return "Which item would you like?"
	}
	return fmt.Sprintf("Sure! Our wraps and sandwiches are: %s. Which would you like?", strings.Join(parts, ", "))
}

func joinWithAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}
