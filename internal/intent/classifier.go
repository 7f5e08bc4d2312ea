package intent

import (
	"context"
	"strings"

	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/common/metrics"
)

// Tier names which cascade stage produced a classification.
type Tier string

const (
	TierModel Tier = "model"
	TierRule  Tier = "rule"
	TierLLM   Tier = "llm"
	TierNone  Tier = "none"
)

// Model is the trained classifier capability. It may be absent
// (nil Classifier.model) when no model is loaded.
type Model interface {
	Predict(ctx context.Context, text string) (Intent, error)
}

// LLM is the paid classification tier, the cascade's only suspension point.
type LLM interface {
	ClassifyIntent(ctx context.Context, text string) (string, error)
}

// keywordRules is the fixed, ordered rule table for the free middle tier.
// First intent whose any keyword is a substring of the lowercased text wins.
var keywordRules = []struct {
	intent   Intent
	keywords []string
}{
	{Greeting, []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}},
	{Hours, []string{"hours", "open", "closed", "when", "time", "available", "operating"}},
	{Menu, []string{"menu", "food", "dish", "drink", "special", "item", "serve", "offer"}},
	{Pricing, []string{"price", "cost", "how much", "expensive", "cheap", "dollar", "$"}},
	{Reservation, []string{"reservation", "reserve", "table", "book", "appointment", "availability"}},
	{Direction, []string{"location", "address", "where", "directions", "find", "map"}},
	{Goodbye, []string{"bye", "goodbye", "thanks", "thank you", "see you", "later"}},
}

// Classifier runs the three-tier cascade. Tier failures are soft results,
// never errors: the caller always gets an Intent back.
type Classifier struct {
	model  Model
	llm    LLM
	logger logger.Logger
}

func NewClassifier(model Model, llm LLM, log logger.Logger) *Classifier {
	return &Classifier{
		model:  model,
		llm:    llm,
		logger: log.WithFields(map[string]interface{}{"component": "intent_classifier"}),
	}
}

// Classify resolves text to an Intent and reports which tier produced it.
// Tier 1 output is trusted once present, even at low confidence. A rule
// result of GeneralQuestion counts as "no real match" and falls through.
// Terminal failure yields Unknown rather than an error.
func (c *Classifier) Classify(ctx context.Context, text string) (Intent, Tier) {
	if in, ok := c.classifyModel(ctx, text); ok {
		metrics.IntentsClassified.WithLabelValues(string(in), string(TierModel)).Inc()
		return in, TierModel
	}

	if in, ok := classifyRules(text); ok {
		metrics.IntentsClassified.WithLabelValues(string(in), string(TierRule)).Inc()
		return in, TierRule
	}

	in := c.classifyLLM(ctx, text)
	tier := TierLLM
	if c.llm == nil {
		tier = TierNone
	}
	metrics.IntentsClassified.WithLabelValues(string(in), string(tier)).Inc()
	return in, tier
}

func (c *Classifier) classifyModel(ctx context.Context, text string) (Intent, bool) {
	if c.model == nil {
		return Unknown, false
	}
	in, err := c.model.Predict(ctx, text)
	if err != nil {
		c.logger.Warn("trained model unavailable, falling back to rules", map[string]interface{}{
			"error": err.Error(),
		})
		return Unknown, false
	}
	return in, true
}

func classifyRules(text string) (Intent, bool) {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent, true
			}
		}
	}
	// GeneralQuestion is the rule default, which means nothing matched.
	return GeneralQuestion, false
}

func (c *Classifier) classifyLLM(ctx context.Context, text string) Intent {
	if c.llm == nil {
		return Unknown
	}
	answer, err := c.llm.ClassifyIntent(ctx, text)
	if err != nil {
		c.logger.Error("llm intent classification failed", map[string]interface{}{
			"error": err.Error(),
		})
		return Unknown
	}
	in, ok := Parse(strings.ToLower(strings.TrimSpace(answer)))
	if !ok {
		c.logger.Warn("llm returned unexpected intent", map[string]interface{}{
			"answer": answer,
		})
		return Unknown
	}
	return in
}
