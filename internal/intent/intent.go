// Package intent classifies customer utterances into a closed intent set
// using a tiered fallback: trained model, keyword rules, then LLM.
package intent

// Intent is the closed set of customer intents. Produced fresh per turn
// and never persisted beyond the current conversation entry.
type Intent string

const (
	Greeting        Intent = "greeting"
	Hours           Intent = "hours"
	Menu            Intent = "menu"
	Pricing         Intent = "pricing"
	Reservation     Intent = "reservation"
	Direction       Intent = "direction"
	GeneralQuestion Intent = "general_question"
	Goodbye         Intent = "goodbye"
	Unknown         Intent = "unknown"
)

// All lists every valid intent, in classification prompt order.
var All = []Intent{
	Greeting, Hours, Menu, Pricing, Reservation,
	Direction, GeneralQuestion, Goodbye, Unknown,
}

// Parse maps a raw string to an Intent. Unexpected values report ok=false
// so callers can treat them as unknown rather than trusting arbitrary text.
func Parse(s string) (Intent, bool) {
	switch Intent(s) {
	case Greeting, Hours, Menu, Pricing, Reservation,
		Direction, GeneralQuestion, Goodbye, Unknown:
		return Intent(s), true
	default:
		return Unknown, false
	}
}

// String implements fmt.Stringer.
func (i Intent) String() string { return string(i) }
