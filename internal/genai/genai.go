// Package genai wraps the retrieval and generation collaborators: the
// knowledge store the engine retrieves passages from and the language
// model it falls back to when no fast path answers.
package genai

import "context"

// Provenance tags for generated responses, recorded for cost
// observability only.
const (
	ProvenanceLLM       = "llm_gpt4o_mini"
	ProvenanceLLMCached = "llm_cached"
	ProvenanceLLMError  = "llm_error"
)

// Passage is one retrieved supporting document.
type Passage struct {
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Message is one turn of conversation history passed to the generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Retriever fetches supporting passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

// Generator produces free text for a query. It returns the response,
// a provenance tag and an error; implementations must return a usable
// apology response alongside a non-nil error so the turn can complete.
type Generator interface {
	Generate(ctx context.Context, query string, history []Message, passages []Passage) (string, string, error)
}

// apologyResponse is what callers hear when generation fails.
const apologyResponse = "I apologize, but I'm having trouble processing your request right now. Please try again or call back later."
