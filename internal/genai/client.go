package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/common/metrics"
)

// ClientConfig configures the generation API client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// Client talks to the generation gateway. It is the single network
// suspension point of the turn pipeline, and also backs the intent
// cascade's LLM tier.
type Client struct {
	config ClientConfig
	client *http.Client
	logger logger.Logger
}

func NewClient(cfg ClientConfig, log logger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 150
	}
	return &Client{
		config: cfg,
		// No client timeout; the per-call context bounds each request.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"component": "genai_client"}),
	}
}

const systemPrompt = `You are a friendly and helpful AI receptionist for Cedar Garden Lebanese Kitchen.
Use the provided business information to answer customer questions accurately.
Be concise, professional, and warm.

IMPORTANT: If a customer asks about placing an order or making an order, encourage them to tell you what they'd like to order.
For regular takeout orders, we can process them immediately. For large catering orders (party trays), we typically need 24-48 hours notice.

If you don't know something, politely say so and offer to connect them with staff.`

// Generate asks the gateway for free text. Failures surface as a fixed
// apology string with the error provenance alongside the error, so the
// turn still completes normally.
func (c *Client) Generate(ctx context.Context, query string, history []Message, passages []Passage) (string, string, error) {
	prompt := c.buildPrompt(query, passages)

	requestBody := map[string]interface{}{
		"system":      systemPrompt,
		"prompt":      prompt,
		"history":     history,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}

	var apiResponse struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	if err := c.post(ctx, "/api/ai/generate", requestBody, &apiResponse); err != nil {
		metrics.GenerationCalls.WithLabelValues("error").Inc()
		return apologyResponse, ProvenanceLLMError, err
	}

	if strings.TrimSpace(apiResponse.Text) == "" {
		apiResponse.Text = "I don't have enough information to answer that question."
	}

	metrics.GenerationCalls.WithLabelValues("success").Inc()
	return strings.TrimSpace(apiResponse.Text), ProvenanceLLM, nil
}

// ClassifyIntent asks the gateway for a single-word intent label. The
// caller parses and validates the answer.
func (c *Client) ClassifyIntent(ctx context.Context, text string) (string, error) {
	requestBody := map[string]interface{}{
		"query": text,
	}

	var apiResponse struct {
		Intent string `json:"intent"`
	}
	if err := c.post(ctx, "/api/ai/parse-intent", requestBody, &apiResponse); err != nil {
		return "", stderrors.NewIntentLLMFailedError(err)
	}
	return apiResponse.Intent, nil
}

// ReservationDetails is the gateway's structured parse of a free-text
// reservation request. Empty fields mean the caller was not specific;
// the reservation book fills the defaults.
type ReservationDetails struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	PartySize int    `json:"party_size"`
}

// ParseReservation asks the gateway to pull reservation fields out of a
// free-text request.
func (c *Client) ParseReservation(ctx context.Context, text string) (ReservationDetails, error) {
	requestBody := map[string]interface{}{
		"query": text,
	}

	var details ReservationDetails
	if err := c.post(ctx, "/api/ai/parse-reservation", requestBody, &details); err != nil {
		return ReservationDetails{}, err
	}
	return details, nil
}

func (c *Client) post(ctx context.Context, path string, requestBody interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return stderrors.NewGenerationTimeoutError()
			}
		}

		// A fresh request per attempt; the body reader is single-use.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return stderrors.NewGenerationFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return stderrors.NewGenerationTimeoutError()
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil || resp == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no successful response after retries")
		}
		return stderrors.NewGenerationFailedError(lastErr)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return stderrors.NewGenerationFailedError(fmt.Errorf("decode error: %w", err))
	}
	return nil
}

func (c *Client) buildPrompt(query string, passages []Passage) string {
	if len(passages) == 0 {
		return query
	}

	var parts []string
	parts = append(parts, "Business Information:")
	for _, p := range passages {
		parts = append(parts, p.Text)
	}
	parts = append(parts, "", fmt.Sprintf("Customer Question: %s", query), "",
		"Please answer the customer's question using the business information above.")
	return strings.Join(parts, "\n")
}
