package engine

import (
	"fmt"
	"strings"

	"ai-receptionist/internal/session"
)

// endPhrases signal the caller is done. Checked after the cascade, so a
// closing script can override whatever branch produced the response.
var endPhrases = []string{
	"that's all", "that is all", "that's it", "that will be all",
	"no that's it", "no that's all", "no that's everything",
	"i'm done", "nothing else", "we're good", "we are good",
}

// repeatPhrases ask for the current order back with no mutation.
var repeatPhrases = []string{
	"what was my order", "repeat my order", "what did i order",
	"read back my order", "recap my order",
}

// orderStartPhrases open an order without naming items.
var orderStartPhrases = []string{
	"i want to order", "i'd like to order", "i would like to order",
	"can i order", "can i place an order", "place an order",
	"i want to place an order", "like to place an order",
}

// orderKeywords gate the extraction branch: only utterances carrying one
// of these are worth a parse attempt.
var orderKeywords = []string{
	"order", "pickup", "takeout", "shawarma", "wrap", "sandwich",
	"kebab", "tray", "mixed grill", "plate", "falafel", "hummus",
	"kafta", "skewer", "baklava", "fries", "drink", "soda", "coke",
	"juice", "lemonade", "fattoush", "tabbouleh", "grape leaves", "baba",
}

// unrelatedKeywords mark out-of-domain small talk that never reaches
// retrieval or the language model.
var unrelatedKeywords = []string{
	"weather", "temperature", "rain", "snow", "forecast", "news",
	"sports", "politics", "stock", "crypto", "movie", "tv show",
	"netflix", "youtube",
}

// questionMarkers keep informational questions that happen to name a
// menu item out of the ordering branch.
var questionMarkers = []string{
	"how much", "price", "cost", "what is", "what's", "do you",
	"tell me about",
}

// correctionKeywords flip the merge semantics from add to replace.
var correctionKeywords = []string{"not", "wrong", "should be"}

// confirmationWords form the short-affirmation vocabulary for the
// pending-confirmation branch.
var confirmationWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "please": true, "definitely": true,
	"absolutely": true, "sounds": true, "good": true, "great": true,
	"perfect": true,
}

const (
	emptyOrderResponse = "I don't have an order on file yet for this call."
	defaultOrderAsk    = "Would you like to add anything else or is that everything?"
)

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// isShortAffirmation reports whether the utterance is at most three
// tokens, all drawn from the confirmation vocabulary.
func isShortAffirmation(text string) bool {
	tokens := strings.Fields(strings.Trim(text, " .,!?"))
	if len(tokens) == 0 || len(tokens) > 3 {
		return false
	}
	for _, tok := range tokens {
		if !confirmationWords[strings.Trim(tok, ".,!?")] {
			return false
		}
	}
	return true
}

// renderItems formats order lines as "2 Chicken Shawarma Wrap, 1 Hummus".
func renderItems(st *session.State) string {
	parts := make([]string, 0, len(st.OrderItems))
	for _, line := range st.OrderItems {
		parts = append(parts, fmt.Sprintf("%d %s", line.Quantity, line.Name))
	}
	return strings.Join(parts, ", ")
}

// orderSummary renders the running order. A zero-line order always gets
// the fixed no-order message, never an empty string.
func orderSummary(st *session.State) string {
	if len(st.OrderItems) == 0 {
		return emptyOrderResponse
	}
	return fmt.Sprintf("So far I have: %s. The estimated total is $%.2f before tax and fees.",
		renderItems(st), st.OrderTotal())
}

func (e *Engine) closingScript(st *session.State) string {
	name := e.business.BusinessName
	if len(st.OrderItems) == 0 {
		return fmt.Sprintf("Thank you for calling %s. Have a wonderful day!", name)
	}
	return fmt.Sprintf("Perfect, I've placed your order for %s with an estimated total of $%.2f before tax and fees. "+
		"Your order will be ready in about 25 to 30 minutes at %s. "+
		"If you need to make any changes, please call us back at %s. "+
		"Thank you for calling, and have a wonderful day!",
		renderItems(st), st.OrderTotal(), name, e.business.Address.Phone)
}

func (e *Engine) unrelatedRedirect() string {
	return fmt.Sprintf("I'm here to help with questions about %s, our menu, hours, and orders. "+
		"Is there anything about the restaurant I can help you with?", e.business.BusinessName)
}
